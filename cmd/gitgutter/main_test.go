package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"gitgutter/internal/config"
	"gitgutter/internal/diffbase"
)

func newTestEnv(t *testing.T) *env {
	t.Helper()
	cfg := config.Default()
	cfg.DebounceMS = 0
	cfg.StorePath = ":memory:"
	cfg.Providers = []string{diffbase.ProviderPinned}

	e, err := newEnv(cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("newEnv: %v", err)
	}
	t.Cleanup(e.close)
	return e
}

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

func TestPinShowPatchUnpin(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	path := writeTemp(t, "notes.txt", "a\nb\n")

	var out bytes.Buffer
	if err := e.dispatch(ctx, "pin", []string{path}, &out); err != nil {
		t.Fatalf("pin: %v", err)
	}
	if !strings.Contains(out.String(), "(4 bytes)") {
		t.Fatalf("pin output = %q", out.String())
	}

	if err := os.WriteFile(path, []byte("a\nB\nc\n"), 0o644); err != nil {
		t.Fatalf("rewrite: %v", err)
	}

	out.Reset()
	if err := e.dispatch(ctx, "show", []string{path}, &out); err != nil {
		t.Fatalf("show: %v", err)
	}
	lines := strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("show printed %d lines:\n%s", len(lines), out.String())
	}
	if lines[0] != "     1 a" {
		t.Fatalf("line 1 = %q", lines[0])
	}
	if !strings.HasSuffix(lines[1], "  2 B") || strings.HasPrefix(lines[1], "   ") {
		t.Fatalf("line 2 has no marker: %q", lines[1])
	}

	out.Reset()
	if err := e.dispatch(ctx, "patch", []string{path}, &out); err != nil {
		t.Fatalf("patch: %v", err)
	}
	for _, want := range []string{"@@ -1,2 +1,3 @@", "-b\n", "+B\n", "+c\n"} {
		if !strings.Contains(out.String(), want) {
			t.Fatalf("patch missing %q:\n%s", want, out.String())
		}
	}

	out.Reset()
	if err := e.dispatch(ctx, "pins", nil, &out); err != nil {
		t.Fatalf("pins: %v", err)
	}
	if !strings.Contains(out.String(), "notes.txt") {
		t.Fatalf("pins output = %q", out.String())
	}

	out.Reset()
	if err := e.dispatch(ctx, "unpin", []string{path}, &out); err != nil {
		t.Fatalf("unpin: %v", err)
	}
	err := e.dispatch(ctx, "patch", []string{path}, &out)
	if err == nil || !strings.Contains(err.Error(), "no diff base") {
		t.Fatalf("patch after unpin err = %v", err)
	}
	if err := e.dispatch(ctx, "unpin", []string{path}, &out); !errors.Is(err, diffbase.ErrNotPinned) {
		t.Fatalf("second unpin err = %v, want ErrNotPinned", err)
	}
}

func TestShowWithoutBaseHasNoMarkers(t *testing.T) {
	e := newTestEnv(t)
	path := writeTemp(t, "plain.txt", "x\ny\n")

	var out bytes.Buffer
	if err := e.dispatch(context.Background(), "show", []string{path}, &out); err != nil {
		t.Fatalf("show: %v", err)
	}
	want := "     1 x\n     2 y\n"
	if out.String() != want {
		t.Fatalf("show = %q, want %q", out.String(), want)
	}
}

func TestDispatchUsageErrors(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	cases := []struct {
		name string
		args []string
	}{
		{"show", nil},
		{"patch", []string{"a", "b"}},
		{"pin", nil},
		{"pins", []string{"extra"}},
		{"summary", []string{"extra"}},
		{"bogus", nil},
	}
	for _, tc := range cases {
		if err := e.dispatch(ctx, tc.name, tc.args, &bytes.Buffer{}); !errors.Is(err, errUsage) {
			t.Fatalf("%s %v: err = %v, want usage", tc.name, tc.args, err)
		}
	}
}

func TestIsCommand(t *testing.T) {
	if !isCommand("summary") || isCommand("main.go") {
		t.Fatalf("isCommand misclassified arguments")
	}
}

func TestRunRejectsInvalidConfig(t *testing.T) {
	cfgPath := writeTemp(t, "config.json", `{"algorithm":"patience"}`)
	var stdout, stderr bytes.Buffer
	if code := run([]string{"-config", cfgPath, "pins"}, &stdout, &stderr); code != 1 {
		t.Fatalf("run() = %d, want 1 (stderr %q)", code, stderr.String())
	}
	if !strings.Contains(stderr.String(), "config") {
		t.Fatalf("stderr = %q", stderr.String())
	}
}
