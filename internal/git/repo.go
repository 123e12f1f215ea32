package git

import (
	"context"
	"path/filepath"
	"strings"

	"gitgutter/internal/util"
)

func DiscoverRepoRoot(ctx context.Context, cwd string) (string, error) {
	out, err := util.Run(ctx, cwd, "git", "rev-parse", "--show-toplevel")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

func DiscoverGitDir(ctx context.Context, cwd string) (string, error) {
	out, err := util.Run(ctx, cwd, "git", "rev-parse", "--absolute-git-dir")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// RelPath resolves path against the repository containing it and returns the
// repository root together with the slash-separated path inside it.
func RelPath(ctx context.Context, path string) (root, rel string, err error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", "", err
	}
	// git reports the root with symlinks resolved, so the file's directory
	// has to be resolved the same way before computing the relative path.
	dir, err := filepath.EvalSymlinks(filepath.Dir(abs))
	if err != nil {
		return "", "", err
	}
	root, err = DiscoverRepoRoot(ctx, dir)
	if err != nil {
		return "", "", err
	}
	rel, err = filepath.Rel(root, filepath.Join(dir, filepath.Base(abs)))
	if err != nil {
		return "", "", err
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", "", ErrNotTracked
	}
	return root, filepath.ToSlash(rel), nil
}
