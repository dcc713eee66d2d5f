// Package descriptor decodes the Vmod_<name>_Data record of a vmod image.
//
// The record is a C struct with natural alignment:
//
//	uint32      abi major
//	uint32      abi minor
//	const char *file id
//	const char *name
//	const void *function table
//	int32       function table length
//	const char *prototype
//	const char *json schema
//	const char *abi marker
//
// Pointer fields are treated as byte offsets into the same image. Every
// offset is bounds-checked before the null terminator is searched for.
package descriptor
