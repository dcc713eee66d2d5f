package schema

import (
	"errors"
	"strings"
	"testing"

	werrors "github.com/wippyai/vmod-types/errors"
	"github.com/wippyai/vmod-types/types"
)

func mustParse(t *testing.T, text string) *types.Object {
	t.Helper()
	ns, err := Parse(text)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return ns
}

func mustFunc(t *testing.T, o *types.Object, name string) *types.Func {
	t.Helper()
	v, ok := o.Get(name)
	if !ok {
		t.Fatalf("%q not found in %v", name, o.Names())
	}
	fn, ok := v.(*types.Func)
	if !ok {
		t.Fatalf("%q is %T, want *types.Func", name, v)
	}
	return fn
}

func TestReturnType(t *testing.T) {
	tests := []struct {
		name string
		want types.Type
	}{
		{"REAL", types.Number{}},
		{"INT", types.Number{}},
		{"STRING", types.String{}},
		{"BOOL", types.Bool{}},
		{"BACKEND", types.Backend{}},
		{"VOID", nil},
		{"DURATION", nil},
		{"string", nil},
		{"", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ReturnType(tt.name)
			if !types.Equal(got, tt.want) {
				t.Errorf("ReturnType(%q) = %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}

func TestParseFunc(t *testing.T) {
	ns := mustParse(t, `[["$FUNC","greet",[["STRING"],null,null,["STRING","name"],["INT","count"]]]]`)

	if ns.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", ns.Len())
	}
	fn := mustFunc(t, ns, "greet")
	if fn.Name != "greet" {
		t.Errorf("Name = %q, want greet", fn.Name)
	}
	if fn.Signature == nil || *fn.Signature != "(STRING name, INT count)" {
		t.Errorf("Signature = %v, want (STRING name, INT count)", fn.Signature)
	}
	if fn.ReturnTypeName == nil || *fn.ReturnTypeName != "STRING" {
		t.Errorf("ReturnTypeName = %v, want STRING", fn.ReturnTypeName)
	}
	if fn.Return == nil || fn.Return.Kind() != types.KindString {
		t.Errorf("Return = %v, want String", fn.Return)
	}
	wantParams := []types.Param{{Type: "STRING", Name: "name"}, {Type: "INT", Name: "count"}}
	if len(fn.Params) != len(wantParams) {
		t.Fatalf("Params = %v, want %v", fn.Params, wantParams)
	}
	for i := range wantParams {
		if fn.Params[i] != wantParams[i] {
			t.Errorf("Params[%d] = %v, want %v", i, fn.Params[i], wantParams[i])
		}
	}
}

func TestParseFuncVariants(t *testing.T) {
	tests := []struct {
		name      string
		row       string
		signature string
		ret       types.Type
	}{
		{"no params", `["$FUNC","now",[["REAL"],"Vmod_f_now","args"]]`, "()", types.Number{}},
		{"void", `["$FUNC","log",[["VOID"],null,null,["STRING","msg"]]]`, "(STRING msg)", nil},
		{"unknown return", `["$FUNC","ttl",[["DURATION"],null,null]]`, "()", nil},
		{"later candidates ignored", `["$FUNC","b",[["BOOL","STRING",7],null,null]]`, "()", types.Bool{}},
		{"extra arg fields", `["$FUNC","f",[["INT"],null,null,["ENUM","mode",null,["a","b"]]]]`, "(ENUM mode)", types.Number{}},
		{"extra row fields", `["$FUNC","g",[["BACKEND"],null,null],"ignored",{}]`, "()", types.Backend{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ns := mustParse(t, "["+tt.row+"]")
			fn := mustFunc(t, ns, ns.Names()[0])
			if *fn.Signature != tt.signature {
				t.Errorf("Signature = %q, want %q", *fn.Signature, tt.signature)
			}
			if !types.Equal(fn.Return, tt.ret) {
				t.Errorf("Return = %v, want %v", fn.Return, tt.ret)
			}
		})
	}
}

func TestParseObject(t *testing.T) {
	text := `[
		["$OBJ","backend_handle",{"NULL_OK":false},"struct vmod_x_backend_handle",
			["$INIT",[["VOID"],"init",null]],
			["$FINI",[["VOID"],"fini",null]],
			["$METHOD","ping",[["BOOL"],"ping","args"]]
		]
	]`
	ns := mustParse(t, text)

	if ns.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", ns.Len())
	}
	ctor := mustFunc(t, ns, "backend_handle")
	if ctor.Signature != nil {
		t.Errorf("constructor Signature = %q, want nil", *ctor.Signature)
	}
	if ctor.ReturnTypeName == nil || *ctor.ReturnTypeName != "backend_handle" {
		t.Errorf("constructor ReturnTypeName = %v, want backend_handle", ctor.ReturnTypeName)
	}

	obj, ok := ctor.Return.(*types.Object)
	if !ok {
		t.Fatalf("constructor Return = %T, want *types.Object", ctor.Return)
	}
	if obj.Name != "backend_handle" {
		t.Errorf("object Name = %q, want backend_handle", obj.Name)
	}
	if !obj.ReadOnly {
		t.Error("object should be read-only")
	}
	if obj.Len() != 1 {
		t.Fatalf("object has %d properties, want 1: %v", obj.Len(), obj.Names())
	}
	ping := mustFunc(t, obj, "ping")
	if ping.Return == nil || ping.Return.Kind() != types.KindBool {
		t.Errorf("ping Return = %v, want Bool", ping.Return)
	}
	if *ping.Signature != "()" {
		t.Errorf("ping Signature = %q, want ()", *ping.Signature)
	}
}

func TestParseObjectMethodsStart(t *testing.T) {
	// Elements before MethodsStart are metadata even when they look like
	// method rows.
	text := `[["$OBJ","o",null,null,["$METHOD","x",[["INT"],null,null]],null,["$METHOD","y",[["INT"],null,null]]]]`
	ns := mustParse(t, text)
	obj := mustFunc(t, ns, "o").Constructor()
	if obj == nil {
		t.Fatal("constructor has no object")
	}
	if _, ok := obj.Get("x"); ok {
		t.Error("element 4 must not be parsed as a method")
	}
	if _, ok := obj.Get("y"); !ok {
		t.Error("element 6 should be parsed as a method")
	}
}

func TestParseObjectNoMethods(t *testing.T) {
	ns := mustParse(t, `[["$OBJ","empty",{},"struct x",[],[]]]`)
	obj := mustFunc(t, ns, "empty").Constructor()
	if obj == nil || obj.Len() != 0 {
		t.Fatalf("expected empty object, got %v", obj)
	}
}

func TestParseSkipsReservedAndUnknownRows(t *testing.T) {
	text := `[
		["$VMOD","1.0","example","Vmod_example_Func","abc","VRT 17.0"],
		["$EVENT","event_function"],
		["$CPROTO","struct vmod_priv;"],
		["$ALIAS","x","y"],
		[7,"numeric tag"],
		[null],
		["$FUNC","f",[["VOID"],null,null]]
	]`
	ns := mustParse(t, text)
	if ns.Len() != 1 {
		t.Fatalf("Len() = %d, want 1: %v", ns.Len(), ns.Names())
	}
	mustFunc(t, ns, "f")
}

func TestParseManifest(t *testing.T) {
	text := `[
		["$VMOD","1.0","example"],
		["$EVENT","on_load"],
		["$EVENT"],
		["$FUNC","f",[["VOID"],null,null]]
	]`
	m, err := ParseManifest(text)
	if err != nil {
		t.Fatalf("ParseManifest: %v", err)
	}
	if len(m.Versions) != 1 || m.Versions[0] != "1.0" {
		t.Errorf("Versions = %v, want [1.0]", m.Versions)
	}
	if len(m.Events) != 1 || m.Events[0] != "on_load" {
		t.Errorf("Events = %v, want [on_load]", m.Events)
	}
	if m.Namespace.Len() != 1 {
		t.Errorf("Namespace has %d members, want 1", m.Namespace.Len())
	}
}

func TestParseDuplicateNames(t *testing.T) {
	text := `[
		["$FUNC","f",[["STRING"],null,null]],
		["$FUNC","g",[["INT"],null,null]],
		["$FUNC","f",[["BOOL"],null,null,["INT","n"]]],
		["$OBJ","g",null,null,null,null]
	]`
	ns := mustParse(t, text)
	if ns.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", ns.Len())
	}
	f := mustFunc(t, ns, "f")
	if f.Return.Kind() != types.KindBool || *f.Signature != "(INT n)" {
		t.Errorf("f = %v, want the later BOOL definition", f)
	}
	if mustFunc(t, ns, "g").Constructor() == nil {
		t.Error("g should be the later object constructor")
	}
}

func TestParseDuplicateMethods(t *testing.T) {
	text := `[["$OBJ","o",null,null,null,null,
		["$METHOD","m",[["INT"],null,null]],
		["$METHOD","m",[["STRING"],null,null]]]]`
	obj := mustFunc(t, mustParse(t, text), "o").Constructor()
	if obj.Len() != 1 {
		t.Fatalf("object has %d methods, want 1", obj.Len())
	}
	if mustFunc(t, obj, "m").Return.Kind() != types.KindString {
		t.Error("later method definition should win")
	}
}

func TestParseIdempotent(t *testing.T) {
	text := `[
		["$FUNC","greet",[["STRING"],null,null,["STRING","name"]]],
		["$OBJ","h",null,null,null,null,["$METHOD","ping",[["BOOL"],null,null]]]
	]`
	a := mustParse(t, text)
	b := mustParse(t, text)

	if !types.Equal(a, b) {
		t.Fatal("two parses of the same text should be structurally equal")
	}
	if a == b {
		t.Fatal("parses must not share the root object")
	}

	ha := mustFunc(t, a, "h")
	hb := mustFunc(t, b, "h")
	if ha == hb || ha.Constructor() == hb.Constructor() {
		t.Fatal("parses must not share nested values")
	}

	ha.Constructor().Set("extra", types.Number{})
	if _, ok := hb.Constructor().Get("extra"); ok {
		t.Error("mutating one tree leaked into the other")
	}
}

func TestParseEmptySchema(t *testing.T) {
	ns := mustParse(t, `[]`)
	if ns.Len() != 0 || ns.Name != "" || !ns.ReadOnly {
		t.Errorf("unexpected namespace %+v", ns)
	}
}

func TestParseSyntaxError(t *testing.T) {
	for _, text := range []string{``, `[`, `[["$FUNC"]] trailing`, `{"a":`} {
		t.Run(text, func(t *testing.T) {
			ns, err := Parse(text)
			if ns != nil {
				t.Error("expected nil namespace")
			}
			if !errors.Is(err, werrors.ErrSchemaSyntax) {
				t.Errorf("expected ErrSchemaSyntax, got %v", err)
			}
		})
	}
}

func TestParseShapeErrors(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		contains string
	}{
		{"top level object", `{"rows":[]}`, "schema"},
		{"row not array", `["$FUNC"]`, "row 0"},
		{"empty row", `[[]]`, "empty row"},
		{"func missing name", `[["$FUNC"]]`, "name"},
		{"func name not string", `[["$FUNC",5,[["INT"],null,null]]]`, "expected string, got number"},
		{"func missing signature", `[["$FUNC","f"]]`, "signature"},
		{"signature not array", `[["$FUNC","f","(INT)"]]`, "expected array, got string"},
		{"missing return list", `[["$FUNC","f",[]]]`, "signature[0]"},
		{"return list not array", `[["$FUNC","f",["INT",null,null]]]`, "signature[0]"},
		{"empty return list", `[["$FUNC","f",[[],null,null]]]`, "missing return type"},
		{"return not string", `[["$FUNC","f",[[null],null,null]]]`, "signature[0][0]"},
		{"short signature", `[["$FUNC","f",[["INT"]]]]`, "want at least 3"},
		{"arg not array", `[["$FUNC","f",[["INT"],null,null,"STRING s"]]]`, "signature[3]"},
		{"arg missing name", `[["$FUNC","f",[["INT"],null,null,["STRING"]]]]`, "missing element 1"},
		{"arg type not string", `[["$FUNC","f",[["INT"],null,null,[1,"s"]]]]`, "type"},
		{"object missing name", `[["$OBJ"]]`, "name"},
		{"object too short", `[["$OBJ","o",null,null]]`, "want at least 6"},
		{"method not array", `[["$OBJ","o",null,null,null,null,"ping"]]`, "method 6"},
		{"bad method", `[["$OBJ","o",null,null,null,null,["$METHOD","ping"]]]`, "ping"},
		{"error after valid rows", `[["$FUNC","ok",[["INT"],null,null]],["$FUNC","bad"]]`, "row 1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ns, err := Parse(tt.text)
			if ns != nil {
				t.Errorf("expected nil namespace, got %v", ns.Names())
			}
			if !errors.Is(err, werrors.ErrSchemaShape) {
				t.Fatalf("expected ErrSchemaShape, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.contains) {
				t.Errorf("error %q does not mention %q", err, tt.contains)
			}
		})
	}
}

func TestShapeErrorPath(t *testing.T) {
	_, err := Parse(`[["$VMOD"],["$OBJ","o",null,null,null,null,["$METHOD","ping",[["BOOL"],null,null,["INT"]]]]]`)
	var e *werrors.Error
	if !errors.As(err, &e) {
		t.Fatalf("expected *errors.Error, got %T", err)
	}
	want := []string{"row 1", "$OBJ", "o", "method 6", "ping", "signature[3]", "name"}
	if strings.Join(e.Path, "|") != strings.Join(want, "|") {
		t.Errorf("Path = %v, want %v", e.Path, want)
	}
}
