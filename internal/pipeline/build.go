package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"deployerdock/pkg/cmdutil"
)

// Builder runs a build against a freshly fetched tree and returns the
// captured combined output of whatever it ran.
type Builder interface {
	Build(ctx context.Context, dir string) ([]byte, error)
}

// CommandBuilder runs a configured list of shell-quoted commands
// sequentially in the fetched tree, stopping at the first failure.
type CommandBuilder struct {
	// Commands are shell-quoted command strings, e.g.
	// ["npm install", "npm run build"].
	Commands []string

	// Timeout bounds each individual command. Zero means unbounded.
	Timeout time.Duration
}

// NewCommandBuilder creates a builder for the given commands.
func NewCommandBuilder(commands []string, timeout time.Duration) *CommandBuilder {
	return &CommandBuilder{Commands: commands, Timeout: timeout}
}

// Build runs each configured command in dir. On failure it returns the
// output collected so far together with the error.
func (b *CommandBuilder) Build(ctx context.Context, dir string) ([]byte, error) {
	var output bytes.Buffer

	for i, raw := range b.Commands {
		argv, err := cmdutil.ParseCommandString(raw)
		if err != nil {
			return output.Bytes(), fmt.Errorf("failed to parse build command %d: %w", i, err)
		}

		result, err := cmdutil.Run(ctx, cmdutil.ExecOptions{
			Dir:     dir,
			Timeout: b.Timeout,
		}, argv)
		if result != nil {
			output.Write(result.Output)
		}
		if err != nil {
			return output.Bytes(), fmt.Errorf("build command %q failed: %w", cmdutil.FormatCommand(argv), err)
		}
	}

	return output.Bytes(), nil
}
