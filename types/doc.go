// Package types is the type model produced from a vmod's interface schema.
//
// A Type is one of the primitives (Backend, String, Number, Bool), a *Func
// or an *Object. Funcs and Objects own their nested types, so every tree
// built by a parse is acyclic and shares nothing with other parses.
//
// The root of a parsed vmod is always an *Object whose properties are the
// module's functions. An object type declared by the vmod appears as a
// constructor *Func whose Return is the *Object holding its methods:
//
//	ns.Get("director")          // *Func, Return: *Object "director"
//	ns.Get("director").Return   // *Object with "add_backend", "backend", ...
package types
