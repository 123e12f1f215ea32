package git

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gitgutter/internal/util"
)

var ErrNotTracked = errors.New("file is not tracked at HEAD")

// HeadBlob returns the raw bytes of path as committed at HEAD. Directories,
// submodules and symlinks have no meaningful line diff and report
// ErrNotTracked, as do files outside the repository or missing from HEAD.
func HeadBlob(ctx context.Context, path string) ([]byte, error) {
	root, rel, err := RelPath(ctx, path)
	if err != nil {
		return nil, err
	}

	out, err := util.Run(ctx, root, "git", "ls-tree", "-z", "HEAD", "--", rel)
	if err != nil {
		return nil, err
	}
	entry, err := parseTreeEntry(out)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", rel, err)
	}
	if !entry.isFile() {
		return nil, fmt.Errorf("%s is a %s: %w", rel, entry.Type, ErrNotTracked)
	}

	return util.RunBytes(ctx, root, "git", "cat-file", "blob", entry.Object)
}

type treeEntry struct {
	Mode   string
	Type   string
	Object string
	Path   string
}

func (e treeEntry) isFile() bool {
	return e.Type == "blob" && (e.Mode == "100644" || e.Mode == "100755")
}

// parseTreeEntry parses one `git ls-tree -z` record:
// "<mode> SP <type> SP <object> TAB <path> NUL".
func parseTreeEntry(out string) (treeEntry, error) {
	rec, _, _ := strings.Cut(out, "\x00")
	if rec == "" {
		return treeEntry{}, ErrNotTracked
	}
	meta, path, ok := strings.Cut(rec, "\t")
	if !ok {
		return treeEntry{}, fmt.Errorf("unexpected ls-tree record: %q", rec)
	}
	fields := strings.Fields(meta)
	if len(fields) != 3 {
		return treeEntry{}, fmt.Errorf("unexpected ls-tree record: %q", rec)
	}
	return treeEntry{Mode: fields[0], Type: fields[1], Object: fields[2], Path: path}, nil
}
