package schema

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/wippyai/vmod-types/errors"
	"github.com/wippyai/vmod-types/types"
)

// Row tags recognized in a vmod interface schema.
const (
	TagModule = "$VMOD"
	TagEvent  = "$EVENT"
	TagFunc   = "$FUNC"
	TagObject = "$OBJ"
)

// MethodsStart is the index of the first method row inside a $OBJ row.
// Elements 2 through 5 hold the object's flags, its C struct name and the
// $INIT and $FINI rows, none of which reach the type tree.
const MethodsStart = 6

// paramsStart is the index of the first parameter inside a signature.
// Element 0 lists return types; 1 and 2 are the C function and argument
// struct names.
const paramsStart = 3

// Manifest is a parsed schema including the rows that do not contribute
// to the namespace.
type Manifest struct {
	Namespace *types.Object
	// Versions holds the first element after the tag of every $VMOD row.
	Versions []string
	// Events lists $EVENT hook names in schema order.
	Events []string
}

// Parse builds the module namespace from schema text. The returned object
// is unnamed; callers that know the module name set it.
func Parse(text string) (*types.Object, error) {
	m, err := ParseManifest(text)
	if err != nil {
		return nil, err
	}
	return m.Namespace, nil
}

// ParseManifest parses schema text like Parse and also collects $VMOD
// versions and $EVENT hooks. Those reserved rows never cause a failure.
func ParseManifest(text string) (*Manifest, error) {
	var doc any
	if err := json.Unmarshal([]byte(text), &doc); err != nil {
		return nil, errors.SchemaSyntax(err)
	}

	rows, ok := doc.([]any)
	if !ok {
		return nil, errors.SchemaShape([]string{"schema"}, "expected array of rows, got %s", jsonKind(doc))
	}

	m := &Manifest{Namespace: types.NewObject("")}

	for i, v := range rows {
		at := fmt.Sprintf("row %d", i)

		row, ok := v.([]any)
		if !ok {
			return nil, errors.SchemaShape([]string{at}, "expected array, got %s", jsonKind(v))
		}
		if len(row) == 0 {
			return nil, errors.SchemaShape([]string{at}, "empty row")
		}

		tag, ok := row[0].(string)
		if !ok {
			continue
		}

		switch tag {
		case TagModule:
			if s, ok := optString(row, 1); ok {
				m.Versions = append(m.Versions, s)
			}
		case TagEvent:
			if s, ok := optString(row, 1); ok {
				m.Events = append(m.Events, s)
			}
		case TagFunc:
			fn, err := parseFunc(row, []string{at, tag})
			if err != nil {
				return nil, err
			}
			m.Namespace.Set(fn.Name, fn)
		case TagObject:
			fn, err := parseObject(row, []string{at, tag})
			if err != nil {
				return nil, err
			}
			m.Namespace.Set(fn.Name, fn)
		}
	}

	return m, nil
}

// parseObject turns a $OBJ row into a constructor function returning an
// object that holds the methods.
func parseObject(row []any, path []string) (*types.Func, error) {
	name, err := stringAt(row, 1, path, "name")
	if err != nil {
		return nil, err
	}
	path = extend(path, name)

	if len(row) < MethodsStart {
		return nil, errors.SchemaShape(path, "object row has %d elements, want at least %d", len(row), MethodsStart)
	}

	obj := types.NewObject(name)
	for i := MethodsStart; i < len(row); i++ {
		at := extend(path, fmt.Sprintf("method %d", i))
		method, ok := row[i].([]any)
		if !ok {
			return nil, errors.SchemaShape(at, "expected method row array, got %s", jsonKind(row[i]))
		}
		fn, err := parseFunc(method, at)
		if err != nil {
			return nil, err
		}
		obj.Set(fn.Name, fn)
	}

	retName := name
	return &types.Func{
		Name:           name,
		ReturnTypeName: &retName,
		Return:         obj,
	}, nil
}

// parseFunc reads a function or method row: [tag, name, signature, ...].
// The tag at index 0 is not inspected.
func parseFunc(row []any, path []string) (*types.Func, error) {
	name, err := stringAt(row, 1, path, "name")
	if err != nil {
		return nil, err
	}
	path = extend(path, name)

	sig, err := arrayAt(row, 2, path, "signature")
	if err != nil {
		return nil, err
	}

	rets, err := arrayAt(sig, 0, path, "signature[0]")
	if err != nil {
		return nil, err
	}
	if len(rets) == 0 {
		return nil, errors.SchemaShape(extend(path, "signature[0]"), "missing return type")
	}
	retName, ok := rets[0].(string)
	if !ok {
		return nil, errors.SchemaShape(extend(path, "signature[0][0]"), "expected string, got %s", jsonKind(rets[0]))
	}

	if len(sig) < paramsStart {
		return nil, errors.SchemaShape(extend(path, "signature"), "signature has %d elements, want at least %d", len(sig), paramsStart)
	}

	params := make([]types.Param, 0, len(sig)-paramsStart)
	for i := paramsStart; i < len(sig); i++ {
		field := fmt.Sprintf("signature[%d]", i)
		arg, ok := sig[i].([]any)
		if !ok {
			return nil, errors.SchemaShape(extend(path, field), "expected argument array, got %s", jsonKind(sig[i]))
		}
		typ, err := stringAt(arg, 0, extend(path, field), "type")
		if err != nil {
			return nil, err
		}
		argName, err := stringAt(arg, 1, extend(path, field), "name")
		if err != nil {
			return nil, err
		}
		params = append(params, types.Param{Type: typ, Name: argName})
	}

	signature := formatSignature(params)
	return &types.Func{
		Name:           name,
		Signature:      &signature,
		ReturnTypeName: &retName,
		Return:         ReturnType(retName),
		Params:         params,
	}, nil
}

// ReturnType maps a schema return type name onto the type model. VOID and
// every name without a model equivalent map to nil.
func ReturnType(name string) types.Type {
	switch name {
	case "BACKEND":
		return types.Backend{}
	case "STRING":
		return types.String{}
	case "REAL", "INT":
		return types.Number{}
	case "BOOL":
		return types.Bool{}
	default:
		return nil
	}
}

func formatSignature(params []types.Param) string {
	parts := make([]string, len(params))
	for i, p := range params {
		parts[i] = p.Type + " " + p.Name
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

func stringAt(arr []any, i int, path []string, field string) (string, error) {
	if i >= len(arr) {
		return "", errors.SchemaShape(extend(path, field), "missing element %d", i)
	}
	s, ok := arr[i].(string)
	if !ok {
		return "", errors.SchemaShape(extend(path, field), "expected string, got %s", jsonKind(arr[i]))
	}
	return s, nil
}

func arrayAt(arr []any, i int, path []string, field string) ([]any, error) {
	if i >= len(arr) {
		return nil, errors.SchemaShape(extend(path, field), "missing element %d", i)
	}
	a, ok := arr[i].([]any)
	if !ok {
		return nil, errors.SchemaShape(extend(path, field), "expected array, got %s", jsonKind(arr[i]))
	}
	return a, nil
}

func optString(arr []any, i int) (string, bool) {
	if i >= len(arr) {
		return "", false
	}
	s, ok := arr[i].(string)
	return s, ok
}

// extend returns path+elem without sharing path's backing array.
func extend(path []string, elem string) []string {
	out := make([]string, len(path)+1)
	copy(out, path)
	out[len(path)] = elem
	return out
}

func jsonKind(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case float64:
		return "number"
	case bool:
		return "bool"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}
