package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jessevdk/go-flags"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"

	"github.com/wippyai/vmod-types/config"
	"github.com/wippyai/vmod-types/elfsym"
	"github.com/wippyai/vmod-types/scan"
	"github.com/wippyai/vmod-types/vmod"
)

// Options are the command line flags.
type Options struct {
	ConfigFile  string   `short:"c" long:"config" description:"YAML config file"`
	Dir         string   `short:"d" long:"dir" description:"vmod directory or storage URL"`
	Modules     []string `short:"m" long:"module" description:"module to read, repeatable"`
	File        string   `short:"f" long:"file" description:"read a single shared object instead of the vmod directory"`
	List        bool     `short:"l" long:"list" description:"list module names and exit"`
	Interactive bool     `short:"i" long:"interactive" description:"browse namespaces in a terminal UI"`
	WIT         bool     `long:"wit" description:"print WIT signatures"`
	Dump        bool     `long:"dump" description:"dump the raw type tree"`
	Watch       bool     `short:"w" long:"watch" description:"rescan when the vmod directory changes"`
}

func main() {
	opts := &Options{}
	if _, err := flags.ParseArgs(opts, os.Args[1:]); err != nil {
		if e, ok := err.(*flags.Error); ok && e.Type == flags.ErrHelp {
			return
		}
		os.Exit(2)
	}

	if err := run(opts); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(opts *Options) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()
	vmod.SetLogger(logger.Named("vmod"))
	scan.SetLogger(logger.Named("scan"))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p := &printer{
		w:      os.Stdout,
		styled: term.IsTerminal(int(os.Stdout.Fd())),
		wit:    opts.WIT,
		dump:   opts.Dump,
	}

	if opts.File != "" {
		return runFile(opts, p)
	}

	s := scan.New(cfg, nil)

	if cfg.Scan.Watch {
		return s.Watch(ctx, func(results []scan.Result) {
			p.results(results, opts.List)
		})
	}

	results, err := s.Scan(ctx)
	if err != nil {
		return err
	}

	if opts.Interactive {
		var mods []*vmod.Module
		for _, r := range results {
			if r.Err != nil {
				logger.Warn("skipping module", zap.String("module", r.Name), zap.Error(r.Err))
				continue
			}
			mods = append(mods, r.Module)
		}
		return runInteractive(cfg.Vmods.Dir, mods, opts.WIT)
	}

	p.results(results, opts.List)
	return nil
}

func runFile(opts *Options, p *printer) error {
	data, err := os.ReadFile(opts.File)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}

	names := opts.Modules
	if len(names) == 0 || opts.List {
		names, err = elfsym.Modules(data)
		if err != nil {
			return err
		}
	}
	if opts.List {
		for _, name := range names {
			fmt.Fprintln(p.w, name)
		}
		return nil
	}
	if len(names) == 0 {
		return fmt.Errorf("%s exports no vmod data symbols", opts.File)
	}

	var mods []*vmod.Module
	for _, name := range names {
		m, err := vmod.Read(data, name)
		if err != nil {
			return err
		}
		mods = append(mods, m)
	}

	if opts.Interactive {
		return runInteractive(opts.File, mods, opts.WIT)
	}
	for _, m := range mods {
		p.module(m)
	}
	return nil
}

func loadConfig(opts *Options) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if opts.ConfigFile != "" {
		cfg, err = config.Load(opts.ConfigFile)
	} else {
		cfg, err = config.LoadWithFallback("vmodinfo.yaml")
	}
	if err != nil {
		return nil, err
	}

	if opts.Dir != "" {
		cfg.Vmods.Dir = opts.Dir
	}
	if len(opts.Modules) > 0 {
		cfg.Scan.Modules = opts.Modules
	}
	if opts.Watch {
		cfg.Scan.Watch = true
	}
	if opts.Interactive {
		cfg.Scan.Watch = false
	}
	return cfg, nil
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	var zc zap.Config
	if cfg.Format == "json" {
		zc = zap.NewProductionConfig()
	} else {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.OutputPaths = []string{"stderr"}
	return zc.Build()
}
