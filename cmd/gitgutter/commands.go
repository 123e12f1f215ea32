package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"text/tabwriter"
	"time"

	"golang.org/x/sync/errgroup"

	"gitgutter/internal/differ"
	"gitgutter/internal/diffview"
	gitint "gitgutter/internal/git"
	"gitgutter/internal/intern"
	"gitgutter/internal/linediff"
)

var errUsage = errors.New("usage")

var commands = map[string]func(e *env, ctx context.Context, args []string, out io.Writer) error{
	"show":    (*env).show,
	"patch":   (*env).patch,
	"pin":     (*env).pin,
	"unpin":   (*env).unpin,
	"pins":    (*env).pins,
	"summary": (*env).summary,
}

func isCommand(name string) bool {
	_, ok := commands[name]
	return ok
}

func (e *env) dispatch(ctx context.Context, name string, args []string, out io.Writer) error {
	cmd, ok := commands[name]
	if !ok {
		return errUsage
	}
	return cmd(e, ctx, args, out)
}

// document reads path together with its diff base.
type document struct {
	path    string
	text    string
	base    string
	hasBase bool
}

func (e *env) readDocument(ctx context.Context, path string) (document, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return document{}, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return document{}, err
	}
	doc := document{path: abs, text: string(data)}
	if raw, ok := e.bases.DiffBase(ctx, abs); ok {
		doc.base = string(raw)
		doc.hasBase = true
	}
	return doc, nil
}

// diffOnce runs a differ over a fixed pair of texts and returns its final
// snapshot. The caller releases it.
func (e *env) diffOnce(base, text string) *differ.Snapshot {
	d := differ.New(base, text, e.cfg.DifferOptions(e.logger)...)
	d.Close()
	<-d.Done()
	return d.LineDiffs()
}

func (e *env) algorithm() linediff.Algorithm {
	alg, err := linediff.ParseAlgorithm(e.cfg.Algorithm)
	if err != nil {
		return linediff.Myers
	}
	return alg
}

func (e *env) show(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("show", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	width := fs.Int("width", 120, "output width in cells")
	highlight := fs.Bool("highlight", false, "syntax highlight the text")
	if err := fs.Parse(args); err != nil || fs.NArg() != 1 {
		return errUsage
	}

	doc, err := e.readDocument(ctx, fs.Arg(0))
	if err != nil {
		return err
	}

	var rows []diffview.GutterRow
	if doc.hasBase {
		snap := e.diffOnce(doc.base, doc.text)
		rows = diffview.BuildRows(doc.text, snap)
		snap.Release()
	} else {
		e.logger.Info().Str("file", doc.path).Msg("no diff base, showing without markers")
		rows = diffview.BuildRows(doc.text, nil)
	}

	opts := diffview.RenderOptions{Width: *width, Cursor: -1}
	if *highlight {
		opts.Highlighted = diffview.NewHighlighter(filepath.Base(doc.path), e.cfg.Theme).Lines(doc.text)
	}
	for _, line := range diffview.RenderGutter(rows, opts) {
		fmt.Fprintln(out, strings.TrimRight(line, " "))
	}
	return nil
}

func (e *env) patch(ctx context.Context, args []string, out io.Writer) error {
	if len(args) != 1 {
		return errUsage
	}
	doc, err := e.readDocument(ctx, args[0])
	if err != nil {
		return err
	}
	if !doc.hasBase {
		return fmt.Errorf("%s has no diff base", args[0])
	}

	name := filepath.ToSlash(args[0])
	if _, rel, err := gitint.RelPath(ctx, doc.path); err == nil {
		name = rel
	}
	patch, err := diffview.FormatPatch(name, doc.base, doc.text, e.algorithm())
	if err != nil {
		return err
	}
	_, err = io.WriteString(out, patch)
	return err
}

func (e *env) pin(ctx context.Context, args []string, out io.Writer) error {
	if len(args) != 1 {
		return errUsage
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	if err := e.store.Pin(ctx, args[0], data); err != nil {
		return err
	}
	fmt.Fprintf(out, "pinned %s (%d bytes)\n", args[0], len(data))
	return nil
}

func (e *env) unpin(ctx context.Context, args []string, out io.Writer) error {
	if len(args) != 1 {
		return errUsage
	}
	if err := e.store.Unpin(ctx, args[0]); err != nil {
		return err
	}
	fmt.Fprintf(out, "unpinned %s\n", args[0])
	return nil
}

func (e *env) pins(ctx context.Context, args []string, out io.Writer) error {
	if len(args) != 0 {
		return errUsage
	}
	pins, err := e.store.List(ctx)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PATH\tSIZE\tPINNED")
	for _, p := range pins {
		fmt.Fprintf(tw, "%s\t%d\t%s\n", p.Path, p.Size, p.PinnedAt.Local().Format(time.DateTime))
	}
	return tw.Flush()
}

type fileSummary struct {
	path      string
	stats     differ.Stats
	untracked bool
	err       error
}

func (e *env) summary(ctx context.Context, args []string, out io.Writer) error {
	if len(args) != 0 {
		return errUsage
	}
	cwd, err := os.Getwd()
	if err != nil {
		return err
	}
	root, err := gitint.DiscoverRepoRoot(ctx, cwd)
	if err != nil {
		return err
	}
	items, err := gitint.NewStatusService().ListChangedFiles(ctx, root)
	if err != nil {
		return err
	}

	results := make([]fileSummary, len(items))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for i, item := range items {
		if !item.Viewable() {
			results[i] = fileSummary{path: item.Path}
			continue
		}
		g.Go(func() error {
			results[i] = e.summarize(gctx, root, item.Path)
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PATH\tADDED\tMODIFIED\tDELETION POINTS")
	var total differ.Stats
	for i, r := range results {
		switch {
		case r.err != nil:
			fmt.Fprintf(tw, "%s\terror: %v\n", r.path, r.err)
		case !items[i].Viewable():
			fmt.Fprintf(tw, "%s\tdeleted\n", r.path)
		default:
			note := ""
			if r.untracked {
				note = "\t(no base)"
			}
			fmt.Fprintf(tw, "%s\t+%d\t~%d\t-%d%s\n", r.path, r.stats.Added, r.stats.Modified, r.stats.Deleted, note)
			total.Added += r.stats.Added
			total.Modified += r.stats.Modified
			total.Deleted += r.stats.Deleted
		}
	}
	fmt.Fprintf(tw, "total\t+%d\t~%d\t-%d\n", total.Added, total.Modified, total.Deleted)
	return tw.Flush()
}

func (e *env) summarize(ctx context.Context, root, rel string) fileSummary {
	doc, err := e.readDocument(ctx, filepath.Join(root, filepath.FromSlash(rel)))
	if err != nil {
		return fileSummary{path: rel, err: err}
	}
	if !doc.hasBase {
		return fileSummary{path: rel, untracked: true, stats: differ.Stats{Added: intern.LineCount(doc.text)}}
	}
	snap := e.diffOnce(doc.base, doc.text)
	defer snap.Release()
	return fileSummary{path: rel, stats: snap.Stats()}
}
