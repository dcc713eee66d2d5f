package types

import (
	"fmt"
	"strings"

	"go.bytecodealliance.org/wit"
)

// WIT maps a value type onto its closest WebAssembly Interface Type.
// Backends and objects become owned resource handles named after the
// VCL type. Functions are not values and map to nil.
func WIT(t Type) wit.Type {
	switch v := t.(type) {
	case String:
		return wit.String{}
	case Number:
		return wit.F64{}
	case Bool:
		return wit.Bool{}
	case Backend:
		return ownedResource("backend")
	case *Object:
		return ownedResource(v.Name)
	default:
		return nil
	}
}

// WITParam maps a VCL parameter type name, as written in a vmod schema,
// onto a WIT type. Unknown names become resource handles.
func WITParam(vclType string) wit.Type {
	switch vclType {
	case "STRING", "STRANDS", "STRING_LIST", "HEADER", "ENUM", "REGEX":
		return wit.String{}
	case "INT", "BYTES":
		return wit.S64{}
	case "REAL", "DURATION", "TIME":
		return wit.F64{}
	case "BOOL":
		return wit.Bool{}
	case "BLOB":
		return &wit.TypeDef{Kind: &wit.List{Type: wit.U8{}}}
	default:
		return ownedResource(strings.ToLower(vclType))
	}
}

func ownedResource(name string) wit.Type {
	res := &wit.TypeDef{Name: &name, Kind: &wit.Resource{}}
	return &wit.TypeDef{Kind: &wit.Own{Type: res}}
}

// WITName renders a WIT type the way it is written in WIT source.
func WITName(t wit.Type) string {
	switch v := t.(type) {
	case nil:
		return ""
	case wit.Bool:
		return "bool"
	case wit.U8:
		return "u8"
	case wit.S64:
		return "s64"
	case wit.F64:
		return "f64"
	case wit.String:
		return "string"
	case *wit.TypeDef:
		if v.Name != nil {
			return *v.Name
		}
		switch k := v.Kind.(type) {
		case *wit.Own:
			if k.Type != nil {
				return "own<" + WITName(k.Type) + ">"
			}
			return "own"
		case *wit.List:
			return "list<" + WITName(k.Type) + ">"
		}
		return "typedef"
	default:
		return fmt.Sprintf("%T", t)
	}
}

// WITSignature renders f as a WIT function type, e.g.
// "func(name: string, count: s64) -> string".
func WITSignature(f *Func) string {
	params := make([]string, 0, len(f.Params))
	for _, p := range f.Params {
		params = append(params, p.Name+": "+WITName(WITParam(p.Type)))
	}
	s := "func(" + strings.Join(params, ", ") + ")"
	if f.Return != nil {
		s += " -> " + WITName(WIT(f.Return))
	}
	return s
}
