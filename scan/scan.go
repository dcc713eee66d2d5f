package scan

import (
	"context"
	"sort"

	"github.com/viant/afs"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/wippyai/vmod-types/config"
	"github.com/wippyai/vmod-types/errors"
	"github.com/wippyai/vmod-types/vmod"
)

// Result is the outcome for one module. Exactly one of Module and Err is
// set.
type Result struct {
	Module *vmod.Module
	Err    error
	Name   string
	URL    string
}

// Scanner reads every vmod in the configured directory.
type Scanner struct {
	cfg *config.Config
	fs  afs.Service
}

// New creates a scanner. A nil fs uses afs.New().
func New(cfg *config.Config, fs afs.Service) *Scanner {
	if cfg == nil {
		cfg = config.Default()
	}
	if fs == nil {
		fs = afs.New()
	}
	return &Scanner{cfg: cfg, fs: fs}
}

// Scan reads the modules listed in the scan config, or every file in the
// vmod directory matching the file pattern when the list is empty.
// Results are sorted by module name. A failing module does not stop the
// others; only a listing failure or cancellation returns an error.
func (s *Scanner) Scan(ctx context.Context) ([]Result, error) {
	if len(s.cfg.Scan.Modules) > 0 {
		return s.ScanModules(ctx, s.cfg.Scan.Modules)
	}

	targets, err := s.list(ctx)
	if err != nil {
		return nil, err
	}
	return s.read(ctx, targets)
}

// ScanModules reads the named modules from the vmod directory.
func (s *Scanner) ScanModules(ctx context.Context, names []string) ([]Result, error) {
	targets := make([]Result, len(names))
	for i, name := range names {
		targets[i] = Result{Name: name, URL: s.cfg.Path(name)}
	}
	sort.Slice(targets, func(i, j int) bool { return targets[i].Name < targets[j].Name })
	return s.read(ctx, targets)
}

func (s *Scanner) list(ctx context.Context) ([]Result, error) {
	dir := s.cfg.Vmods.Dir
	objects, err := s.fs.List(ctx, dir)
	if err != nil {
		return nil, errors.New(errors.PhaseScan, errors.KindNotFound).
			Detail("list %s", dir).
			Cause(err).
			Build()
	}

	var targets []Result
	for _, obj := range objects {
		if obj.IsDir() {
			continue
		}
		name, ok := s.cfg.ModuleName(obj.Name())
		if !ok {
			continue
		}
		targets = append(targets, Result{Name: name, URL: obj.URL()})
	}
	sort.Slice(targets, func(i, j int) bool { return targets[i].Name < targets[j].Name })

	Logger().Debug("vmod directory listed",
		zap.String("dir", dir),
		zap.Int("objects", len(objects)),
		zap.Int("modules", len(targets)))
	return targets, nil
}

func (s *Scanner) read(ctx context.Context, targets []Result) ([]Result, error) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Scan.Concurrency)

	for i := range targets {
		r := &targets[i]
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			m, err := vmod.LoadURL(gctx, s.fs, r.Name, r.URL)
			if err != nil {
				Logger().Warn("vmod read failed",
					zap.String("module", r.Name),
					zap.String("url", r.URL),
					zap.Error(err))
				r.Err = err
				return nil
			}
			r.Module = m
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	failed := 0
	for _, r := range targets {
		if r.Err != nil {
			failed++
		}
	}
	Logger().Info("vmod scan finished",
		zap.Int("modules", len(targets)),
		zap.Int("failed", failed))
	return targets, nil
}
