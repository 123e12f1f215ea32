package util

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// RunWithStdin feeds stdin to the command. It is used for tools such as
// clipboard helpers that read their payload from standard input.
func RunWithStdin(ctx context.Context, cwd, stdin, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	if cwd != "" {
		cmd.Dir = cwd
	}
	cmd.Stdin = strings.NewReader(stdin)

	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("command failed: %s %s: %w (%s)", name, strings.Join(args, " "), err, strings.TrimSpace(string(out)))
	}
	return nil
}

// Available reports whether name resolves on PATH.
func Available(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}
