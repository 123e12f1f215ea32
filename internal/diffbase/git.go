package diffbase

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"gitgutter/internal/git"
)

// Git serves the file's contents as committed at HEAD.
type Git struct {
	logger zerolog.Logger
	blob   func(ctx context.Context, path string) ([]byte, error)
}

func NewGit(logger zerolog.Logger) *Git {
	return &Git{
		logger: logger.With().Str("provider", ProviderGit).Logger(),
		blob:   git.HeadBlob,
	}
}

func (g *Git) DiffBase(ctx context.Context, path string) ([]byte, bool) {
	data, err := g.blob(ctx, path)
	if err != nil {
		ev := g.logger.Debug().Str("path", path)
		if !errors.Is(err, git.ErrNotTracked) {
			ev = ev.Err(err)
		}
		ev.Msg("no HEAD version")
		return nil, false
	}
	return data, true
}
