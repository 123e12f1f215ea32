package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"gitgutter/internal/app"
	"gitgutter/internal/config"
	"gitgutter/internal/diffbase"
	"gitgutter/internal/logging"
)

const usage = `usage: gitgutter [flags] [command] [args]

With no command, gitgutter opens the terminal viewer (optionally on FILE).

commands:
  show FILE     print FILE with its gutter markers
  patch FILE    print a unified diff of FILE against its diff base
  pin FILE      store the current contents of FILE as its diff base
  unpin FILE    remove the pinned diff base of FILE
  pins          list pinned diff bases
  summary       count changed lines of every changed file in the repository

flags:
`

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("gitgutter", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprint(stderr, usage)
		fs.PrintDefaults()
	}
	configPath := fs.String("config", "", "config file (default $XDG_CONFIG_HOME/gitgutter/config.json)")
	algorithm := fs.String("algorithm", "", "diff algorithm override: myers or ratcliff")
	level := fs.String("log-level", "", "log level override")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "failed to load config: %v\n", err)
		return 1
	}
	if *algorithm != "" {
		cfg.Algorithm = *algorithm
	}
	if *level != "" {
		cfg.Log.Level = *level
	}
	if err := config.Validate(cfg); err != nil {
		fmt.Fprintf(stderr, "invalid config: %v\n", err)
		return 1
	}

	rest := fs.Args()
	interactive := len(rest) == 0 || !isCommand(rest[0])

	builder := logging.NewBuilder(cfg.Log)
	if interactive {
		// The viewer owns the terminal.
		builder = builder.WithConsole(nil)
	}
	logger, err := builder.Build()
	if err != nil {
		fmt.Fprintf(stderr, "failed to initialize logging: %v\n", err)
		return 1
	}

	e, err := newEnv(cfg, logger)
	if err != nil {
		fmt.Fprintf(stderr, "failed to initialize: %v\n", err)
		return 1
	}
	defer e.close()

	if interactive {
		if len(rest) > 1 {
			fs.Usage()
			return 2
		}
		return runViewer(e, rest, stderr)
	}

	ctx := context.Background()
	if err := e.dispatch(ctx, rest[0], rest[1:], stdout); err != nil {
		if errors.Is(err, errUsage) {
			fs.Usage()
			return 2
		}
		fmt.Fprintf(stderr, "%s: %v\n", rest[0], err)
		return 1
	}
	return 0
}

func loadConfig(path string) (config.AppConfig, error) {
	if path != "" {
		return config.LoadFromPath(path)
	}
	cfg, _, err := config.Load()
	return cfg, err
}

func runViewer(e *env, rest []string, stderr io.Writer) int {
	opts := app.Options{
		Config: e.cfg,
		Bases:  e.bases,
		Store:  e.store,
		Logger: e.logger,
	}
	if len(rest) == 1 {
		opts.InitialPath = rest[0]
	}

	model, err := app.NewModel(opts)
	if err != nil {
		fmt.Fprintf(stderr, "failed to initialize app: %v\n", err)
		return 1
	}

	program := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		e.logger.Error().Err(err).Msg("viewer exited")
		fmt.Fprintf(stderr, "application error: %v\n", err)
		return 1
	}
	return 0
}

// env carries what every command needs once config and logging are set up.
type env struct {
	cfg    config.AppConfig
	logger zerolog.Logger
	store  *diffbase.Store
	bases  *diffbase.Registry
}

func newEnv(cfg config.AppConfig, logger zerolog.Logger) (*env, error) {
	store, err := diffbase.Open(cfg.StorePath, logger)
	if err != nil {
		return nil, err
	}
	bases, err := diffbase.FromConfig(cfg.Providers, store, logger)
	if err != nil {
		store.Close()
		return nil, err
	}
	return &env{cfg: cfg, logger: logger, store: store, bases: bases}, nil
}

func (e *env) close() {
	if err := e.store.Close(); err != nil {
		e.logger.Warn().Err(err).Msg("closing pin store")
	}
}
