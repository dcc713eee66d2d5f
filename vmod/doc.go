// Package vmod extracts the type tree of a Varnish module from its shared
// object.
//
// Read runs the whole pipeline on an in-memory image: it locates the
// Vmod_<name>_Data export, decodes the record it points at and parses the
// embedded interface schema into a namespace named after the module.
//
//	m, err := vmod.LoadFile(ctx, "std", "/usr/lib/varnish-plus/vmods/libvmod_std.so")
//	if err != nil {
//	    return err
//	}
//	for _, name := range m.Namespace.Names() {
//	    v, _ := m.Namespace.Get(name)
//	    fmt.Println(v)
//	}
//
// Load resolves a module name through config.Config, and LoadURL fetches
// the image through any afs storage URL.
package vmod
