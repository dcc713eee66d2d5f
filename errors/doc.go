// Package errors provides structured error types for vmod inspection.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type carries the module name, a field path into the schema, and a cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseParse, errors.KindSchemaShape).
//		Path("row 3", "$FUNC greet", "signature").
//		Detail("expected array, got string").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.SymbolNotFound("Vmod_std_Data")
//	err := errors.OutOfBounds(errors.PhaseDecode, path, 4096, 1024)
//
// Every Error matches the package sentinels through errors.Is by Phase and Kind:
//
//	if errors.Is(err, errors.ErrSchemaShape) { ... }
package errors
