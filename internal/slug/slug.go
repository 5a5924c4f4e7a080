// Package slug generates the human-readable identifiers that name
// deployments. A slug doubles as the registry key and as the subdomain
// label a published site is served under, so every word in the
// vocabulary is a valid DNS label fragment.
package slug

import (
	"fmt"
	"math/rand/v2"
	"sync"
	"time"
)

var adjectives = []string{
	"lazy", "great", "blue", "fast", "bright", "sharp", "wise", "dark",
	"silent", "empty", "clever", "jolly", "brave", "calm", "eager",
}

var nouns = []string{
	"scientist", "ocean", "river", "fox", "tree", "sky", "mountain", "bear",
	"comet", "star", "moon", "sun", "robot", "cat", "dog",
}

// Generator produces adjective-adjective-noun slugs from a fixed
// vocabulary. It does not check generated slugs against the registry;
// with 15*14*15 combinations collisions are possible and accepted.
//
// One Generator is shared by every in-flight deployment, so access to
// the underlying rand state is serialized; Generate is safe to call
// from any number of goroutines.
type Generator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// New creates a generator seeded from the current time.
func New() *Generator {
	return NewFromSource(rand.NewPCG(uint64(time.Now().UnixNano()), rand.Uint64()))
}

// NewFromSource creates a generator backed by the given random source.
// Tests inject a fixed-seed source for deterministic output.
func NewFromSource(src rand.Source) *Generator {
	return &Generator{rng: rand.New(src)}
}

// Generate returns a slug of the form "<adj>-<adj>-<noun>". The two
// adjectives are always distinct; the second is redrawn on collision.
func (g *Generator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	adj1 := adjectives[g.rng.IntN(len(adjectives))]
	adj2 := adjectives[g.rng.IntN(len(adjectives))]
	for adj1 == adj2 {
		adj2 = adjectives[g.rng.IntN(len(adjectives))]
	}
	noun := nouns[g.rng.IntN(len(nouns))]
	return fmt.Sprintf("%s-%s-%s", adj1, adj2, noun)
}

// Adjectives returns the adjective vocabulary.
func Adjectives() []string {
	out := make([]string, len(adjectives))
	copy(out, adjectives)
	return out
}

// Nouns returns the noun vocabulary.
func Nouns() []string {
	out := make([]string, len(nouns))
	copy(out, nouns)
	return out
}
