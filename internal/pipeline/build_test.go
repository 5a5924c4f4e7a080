package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestCommandBuilderRunsCommandsInOrder(t *testing.T) {
	dir := t.TempDir()
	b := NewCommandBuilder([]string{
		`sh -c "echo step-one > marker.txt"`,
		`sh -c "echo step-two >> marker.txt"`,
	}, 0)

	output, err := b.Build(context.Background(), dir)
	if err != nil {
		t.Fatalf("Build() error = %v (output %q)", err, output)
	}

	data, err := os.ReadFile(filepath.Join(dir, "marker.txt"))
	if err != nil {
		t.Fatalf("marker file missing: %v", err)
	}
	if string(data) != "step-one\nstep-two\n" {
		t.Errorf("marker = %q, commands did not run in order", data)
	}
}

func TestCommandBuilderStopsAtFirstFailure(t *testing.T) {
	dir := t.TempDir()
	b := NewCommandBuilder([]string{
		`sh -c "echo boom >&2; exit 1"`,
		`sh -c "touch never.txt"`,
	}, 0)

	output, err := b.Build(context.Background(), dir)
	if err == nil {
		t.Fatal("Build() expected error from failing command")
	}
	if !strings.Contains(string(output), "boom") {
		t.Errorf("Build() output = %q, want captured stderr", output)
	}

	if _, statErr := os.Stat(filepath.Join(dir, "never.txt")); !os.IsNotExist(statErr) {
		t.Error("Build() ran commands after a failure")
	}
}

func TestCommandBuilderRejectsUnparsableCommand(t *testing.T) {
	b := NewCommandBuilder([]string{`echo "unbalanced`}, 0)

	if _, err := b.Build(context.Background(), t.TempDir()); err == nil {
		t.Error("Build() accepted an unparsable command")
	}
}
