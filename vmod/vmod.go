package vmod

import (
	"context"
	"os"

	"github.com/viant/afs"
	"go.uber.org/zap"

	"github.com/wippyai/vmod-types/config"
	"github.com/wippyai/vmod-types/descriptor"
	"github.com/wippyai/vmod-types/elfsym"
	"github.com/wippyai/vmod-types/errors"
	"github.com/wippyai/vmod-types/schema"
	"github.com/wippyai/vmod-types/types"
)

// Module is everything extracted from one vmod shared object.
type Module struct {
	// Namespace is named after the module and holds every function and
	// object constructor the module exports.
	Namespace *types.Object
	Location  *elfsym.Location
	// Descriptor carries the raw record, including the schema text.
	Descriptor *descriptor.Descriptor
	Name       string
	Versions   []string
	Events     []string
}

// Read extracts the typed namespace of module name from an ELF image.
// Errors are *errors.Error values tagged with the module name.
func Read(data []byte, name string) (*Module, error) {
	loc, err := elfsym.Locate(data, name)
	if err != nil {
		return nil, errors.WithModule(err, name)
	}

	d, err := descriptor.DecodeLayout(data, loc.Offset, loc.Layout)
	if err != nil {
		return nil, errors.WithModule(err, name)
	}

	m, err := schema.ParseManifest(d.Schema)
	if err != nil {
		return nil, errors.WithModule(err, name)
	}
	m.Namespace.Name = name

	Logger().Debug("vmod read",
		zap.String("module", name),
		zap.String("symbol", loc.Symbol),
		zap.Int64("offset", loc.Offset),
		zap.String("abi", d.ABIVersion()),
		zap.Int("entries", m.Namespace.Len()))

	return &Module{
		Name:       name,
		Namespace:  m.Namespace,
		Location:   loc,
		Descriptor: d,
		Versions:   m.Versions,
		Events:     m.Events,
	}, nil
}

// LoadFile reads the shared object at path and extracts module name.
func LoadFile(ctx context.Context, name, path string) (*Module, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WithModule(errors.Load("read "+path, err), name)
	}
	return Read(data, name)
}

// LoadURL downloads the shared object at url through fs and extracts
// module name. A nil fs uses afs.New().
func LoadURL(ctx context.Context, fs afs.Service, name, url string) (*Module, error) {
	if fs == nil {
		fs = afs.New()
	}
	data, err := fs.DownloadWithURL(ctx, url)
	if err != nil {
		return nil, errors.WithModule(errors.Load("download "+url, err), name)
	}
	return Read(data, name)
}

// Load resolves name to a file with the configured directory and pattern
// and extracts it.
func Load(ctx context.Context, name string, cfg *config.Config) (*Module, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	return LoadURL(ctx, nil, name, cfg.Path(name))
}
