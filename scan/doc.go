// Package scan reads every vmod in a directory concurrently and can keep
// doing so as the directory changes.
//
// Each module is read independently; a module that fails to load is
// reported in its Result without affecting the others.
//
//	s := scan.New(cfg, nil)
//	results, err := s.Scan(ctx)
package scan
