// Package vmodtypes extracts type information from compiled Varnish
// modules (vmods).
//
// A vmod is an ELF shared object that exports a Vmod_<name>_Data record.
// The record points at a JSON interface schema describing every function
// and object the module offers to VCL. This library reads that record from
// the file image without loading or executing it and turns the schema into
// a typed namespace.
//
// # Architecture Overview
//
//	vmodtypes/           Root package (documentation only)
//	├── vmod/            Read, LoadFile, Load: the full pipeline
//	├── elfsym/          Locates Vmod_<name>_Data in the dynamic symbol table
//	├── descriptor/      Decodes the C record and its null-terminated strings
//	├── schema/          Parses the JSON interface schema into a namespace
//	├── types/           Type model: primitives, functions, objects, WIT mapping
//	├── scan/            Concurrent directory scans and change watching
//	├── config/          YAML configuration with environment overrides
//	├── errors/          Structured error types for debugging
//	└── cmd/vmodinfo/    Command line inspector with an interactive browser
//
// # Quick Start
//
// Read one module:
//
//	m, err := vmod.LoadFile(ctx, "std", "/usr/lib/varnish-plus/vmods/libvmod_std.so")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, fn := range m.Namespace.Funcs() {
//	    fmt.Println(fn) // "tolower(STRANDS s) -> STRING"
//	}
//
// Scan a directory:
//
//	results, err := scan.New(cfg, nil).Scan(ctx)
//
// # Type Model
//
// Return types map onto four primitives:
//
//   - BACKEND: a backend handle
//   - STRING: text
//   - INT, REAL: NUMBER
//   - BOOL: BOOL
//
// Any other return type, VOID included, has no model equivalent and is
// left nil. Objects appear in the namespace as a constructor function
// whose return value is an object holding the methods.
//
// # Error Handling
//
// All failures are *errors.Error values categorized by phase and kind:
//
//	if errors.Is(err, errors.ErrSymbolNotFound) {
//	    // file is not a vmod, or the name is wrong
//	}
//
// # Logging
//
// The vmod and scan packages log through zap and are silent until a
// logger is installed:
//
//	vmod.SetLogger(zapLogger)
//	scan.SetLogger(zapLogger)
package vmodtypes
