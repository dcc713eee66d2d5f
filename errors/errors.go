package errors

import (
	"fmt"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseLocate Phase = "locate" // export table lookup
	PhaseDecode Phase = "decode" // descriptor record decoding
	PhaseParse  Phase = "parse"  // JSON schema parsing
	PhaseLoad   Phase = "load"   // reading module images
	PhaseConfig Phase = "config" // configuration loading
	PhaseScan   Phase = "scan"   // batch scanning
)

// Kind categorizes the error
type Kind string

const (
	KindSymbolNotFound     Kind = "symbol_not_found"
	KindSectionNotFound    Kind = "section_not_found"
	KindMalformedImage     Kind = "malformed_image"
	KindOutOfBounds        Kind = "out_of_bounds"
	KindUnterminatedString Kind = "unterminated_string"
	KindTruncatedData      Kind = "truncated_data"
	KindSchemaSyntax       Kind = "schema_syntax"
	KindSchemaShape        Kind = "schema_shape"
	KindNotFound           Kind = "not_found"
	KindInvalidInput       Kind = "invalid_input"
)

// Sentinels for errors.Is. Matching compares Phase and Kind only.
var (
	ErrSymbolNotFound     = &Error{Phase: PhaseLocate, Kind: KindSymbolNotFound}
	ErrSectionNotFound    = &Error{Phase: PhaseLocate, Kind: KindSectionNotFound}
	ErrMalformedImage     = &Error{Phase: PhaseLocate, Kind: KindMalformedImage}
	ErrOutOfBounds        = &Error{Phase: PhaseDecode, Kind: KindOutOfBounds}
	ErrUnterminatedString = &Error{Phase: PhaseDecode, Kind: KindUnterminatedString}
	ErrTruncatedData      = &Error{Phase: PhaseDecode, Kind: KindTruncatedData}
	ErrSchemaSyntax       = &Error{Phase: PhaseParse, Kind: KindSchemaSyntax}
	ErrSchemaShape        = &Error{Phase: PhaseParse, Kind: KindSchemaShape}
)

// Error is the structured error type used throughout the module
type Error struct {
	Value  any
	Cause  error
	Phase  Phase
	Kind   Kind
	Module string
	Detail string
	Path   []string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.Module != "" {
		b.WriteString(" in vmod ")
		b.WriteString(e.Module)
	}

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Path sets the field path
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// Module sets the module the error belongs to
func (b *Builder) Module(name string) *Builder {
	b.err.Module = name
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// SymbolNotFound creates an error for a missing export symbol
func SymbolNotFound(symbol string) *Error {
	return &Error{
		Phase:  PhaseLocate,
		Kind:   KindSymbolNotFound,
		Detail: fmt.Sprintf("dynamic symbol %q not found", symbol),
		Value:  symbol,
	}
}

// SectionNotFound creates an error for a symbol whose section index does not resolve
func SectionNotFound(symbol string, index int) *Error {
	return &Error{
		Phase:  PhaseLocate,
		Kind:   KindSectionNotFound,
		Detail: fmt.Sprintf("section %d referenced by %q does not exist", index, symbol),
		Value:  index,
	}
}

// MalformedImage creates an error for a byte buffer that is not a usable binary
func MalformedImage(detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseLocate,
		Kind:   KindMalformedImage,
		Detail: detail,
		Cause:  cause,
	}
}

// OutOfBounds creates an out of bounds error
func OutOfBounds(phase Phase, path []string, index, length int) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOutOfBounds,
		Path:   path,
		Detail: fmt.Sprintf("offset %d out of bounds (length %d)", index, length),
		Value:  index,
	}
}

// UnterminatedString creates an error for text missing its null terminator
func UnterminatedString(path []string, offset, length int) *Error {
	return &Error{
		Phase:  PhaseDecode,
		Kind:   KindUnterminatedString,
		Path:   path,
		Detail: fmt.Sprintf("no null terminator between offset %d and end of data (length %d)", offset, length),
		Value:  offset,
	}
}

// TruncatedData creates an error for a record that does not fit in the data
func TruncatedData(offset, need, have int) *Error {
	return &Error{
		Phase:  PhaseDecode,
		Kind:   KindTruncatedData,
		Detail: fmt.Sprintf("record at offset %d needs %d bytes, %d available", offset, need, have),
		Value:  offset,
	}
}

// SchemaSyntax creates an error for schema text that is not valid JSON
func SchemaSyntax(cause error) *Error {
	return &Error{
		Phase:  PhaseParse,
		Kind:   KindSchemaSyntax,
		Detail: "schema is not valid JSON",
		Cause:  cause,
	}
}

// SchemaShape creates an error for a schema row with a missing or mistyped element
func SchemaShape(path []string, detail string, args ...any) *Error {
	return &Error{
		Phase:  PhaseParse,
		Kind:   KindSchemaShape,
		Path:   path,
		Detail: fmt.Sprintf(detail, args...),
	}
}

// NotFound creates a not-found error
func NotFound(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Detail: fmt.Sprintf("%s %q not found", what, name),
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// Load creates a module loading error
func Load(detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindNotFound,
		Detail: detail,
		Cause:  cause,
	}
}

// WithModule returns a copy of err tagged with the module name when err is
// an *Error, and err unchanged otherwise.
func WithModule(err error, module string) error {
	e, ok := err.(*Error)
	if !ok || e.Module != "" {
		return err
	}
	cp := *e
	cp.Module = module
	return &cp
}
