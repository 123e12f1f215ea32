package clipboard

import (
	"context"
	"errors"
	"os"
	"runtime"

	"gitgutter/internal/util"
)

var ErrUnavailable = errors.New("no clipboard helper found")

type helper struct {
	name string
	args []string
}

var linuxHelpers = []helper{
	{name: "wl-copy"},
	{name: "xclip", args: []string{"-selection", "clipboard"}},
	{name: "xsel", args: []string{"--clipboard", "--input"}},
}

func CopyText(ctx context.Context, text string) error {
	switch runtime.GOOS {
	case "darwin":
		return util.RunWithStdin(ctx, "", text, "pbcopy")
	case "windows":
		return util.RunWithStdin(ctx, "", text, "clip")
	default:
		h, ok := pickHelper(linuxHelpers, os.Getenv("WAYLAND_DISPLAY") != "", util.Available)
		if !ok {
			return ErrUnavailable
		}
		return util.RunWithStdin(ctx, "", text, h.name, h.args...)
	}
}

// pickHelper returns the first installed helper. wl-copy is only considered
// inside a Wayland session.
func pickHelper(helpers []helper, wayland bool, available func(string) bool) (helper, bool) {
	for _, h := range helpers {
		if h.name == "wl-copy" && !wayland {
			continue
		}
		if available(h.name) {
			return h, true
		}
	}
	return helper{}, false
}
