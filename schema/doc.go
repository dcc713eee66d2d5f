// Package schema parses the JSON interface description embedded in a vmod.
//
// The schema is an array of rows. Each row is an array whose first element
// is a tag:
//
//	["$VMOD", "1.0", ...]                        module metadata, ignored
//	["$EVENT", "event_function"]                 lifecycle hook, ignored
//	["$FUNC", "greet", [["STRING"], c, args, ["STRING", "name"], ...]]
//	["$OBJ", "director", flags, cstruct, init, fini, ["$METHOD", ...], ...]
//
// Rows with any other tag are skipped. A recognized row with a missing or
// mistyped element fails the whole parse with errors.ErrSchemaShape; no
// partial namespace is returned.
package schema
