package site

import (
	"fmt"
	"sync"
	"testing"
)

func TestRegisterAndLookup(t *testing.T) {
	r := NewRegistry()

	if _, ok := r.Lookup("blue-lazy-fox"); ok {
		t.Error("Lookup() on empty registry reported a hit")
	}

	r.Register("blue-lazy-fox", "/srv/deployments/blue-lazy-fox")

	root, ok := r.Lookup("blue-lazy-fox")
	if !ok {
		t.Fatal("Lookup() missed a registered slug")
	}
	if root != "/srv/deployments/blue-lazy-fox" {
		t.Errorf("Lookup() = %q, want registered root", root)
	}
}

func TestClear(t *testing.T) {
	r := NewRegistry()
	r.Register("calm-wise-moon", "/tmp/x")

	r.Clear()

	if r.Count() != 0 {
		t.Errorf("Count() after Clear() = %d, want 0", r.Count())
	}
	if _, ok := r.Lookup("calm-wise-moon"); ok {
		t.Error("Lookup() found slug after Clear()")
	}
}

func TestConcurrentRegister(t *testing.T) {
	r := NewRegistry()

	const n = 64
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			slug := fmt.Sprintf("site-%d", i)
			r.Register(slug, "/deployments/"+slug)
		}(i)
	}
	wg.Wait()

	if r.Count() != n {
		t.Fatalf("Count() = %d after %d concurrent registers, want %d", r.Count(), n, n)
	}

	for i := 0; i < n; i++ {
		slug := fmt.Sprintf("site-%d", i)
		root, ok := r.Lookup(slug)
		if !ok {
			t.Errorf("Lookup(%q) missed after concurrent register", slug)
			continue
		}
		if root != "/deployments/"+slug {
			t.Errorf("Lookup(%q) = %q, keys overwrote each other", slug, root)
		}
	}

	if len(r.List()) != n {
		t.Errorf("List() returned %d slugs, want %d", len(r.List()), n)
	}
}
