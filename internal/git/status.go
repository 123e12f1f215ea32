package git

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strings"

	"gitgutter/internal/util"
)

// FileItem is one changed file from git status. Path is relative to the
// repository root.
type FileItem struct {
	Path      string
	Status    string
	Staged    bool
	Unstaged  bool
	Untracked bool
	Deleted   bool
}

// Viewable reports whether the file still exists in the working tree and can
// be opened for a gutter diff.
func (f FileItem) Viewable() bool {
	return !f.Deleted
}

type StatusService interface {
	ListChangedFiles(ctx context.Context, root string) ([]FileItem, error)
}

type statusService struct{}

func NewStatusService() StatusService {
	return statusService{}
}

func (statusService) ListChangedFiles(ctx context.Context, root string) ([]FileItem, error) {
	out, err := util.Run(ctx, root, "git", "status", "--porcelain=v2", "--untracked-files=all", "-z")
	if err != nil {
		return nil, err
	}

	items, err := parsePorcelainV2Z([]byte(out))
	if err != nil {
		return nil, err
	}

	sort.Slice(items, func(i, j int) bool {
		return items[i].Path < items[j].Path
	})

	return items, nil
}

func parsePorcelainV2Z(data []byte) ([]FileItem, error) {
	records := bytes.Split(data, []byte{0})
	items := make([]FileItem, 0, len(records))

	for i := 0; i < len(records); i++ {
		rec := string(records[i])
		if rec == "" {
			continue
		}

		switch rec[0] {
		case '1':
			item, err := changedItem(rec, 9)
			if err != nil {
				return nil, err
			}
			items = append(items, item)

		case 'u':
			item, err := changedItem(rec, 11)
			if err != nil {
				return nil, err
			}
			items = append(items, item)

		case '2':
			item, err := changedItem(rec, 10)
			if err != nil {
				return nil, err
			}
			items = append(items, item)
			if i+1 < len(records) {
				i++ // -z rename/copy entries are followed by the original path
			}

		case '?':
			items = append(items, FileItem{
				Path:      strings.TrimPrefix(rec, "? "),
				Status:    "??",
				Unstaged:  true,
				Untracked: true,
			})

		case '!', '#':
			continue

		default:
			return nil, fmt.Errorf("unknown porcelain record: %q", rec)
		}
	}

	return items, nil
}

// changedItem splits a record into n space-separated fields; the last one is
// the path, which may itself contain spaces.
func changedItem(rec string, n int) (FileItem, error) {
	fields := strings.SplitN(rec, " ", n)
	if len(fields) != n {
		return FileItem{}, fmt.Errorf("unexpected porcelain record: %q", rec)
	}
	xy := fields[1]
	status := strings.TrimSpace(xy)
	if status == "" {
		status = ".."
	}
	return FileItem{
		Path:     fields[len(fields)-1],
		Status:   status,
		Staged:   len(xy) > 0 && xy[0] != '.',
		Unstaged: len(xy) > 1 && xy[1] != '.',
		Deleted:  strings.Contains(xy, "D"),
	}, nil
}
