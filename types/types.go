package types

import (
	"sort"
	"strings"
)

// Kind discriminates the Type variants.
type Kind uint8

const (
	KindBackend Kind = iota + 1
	KindString
	KindNumber
	KindBool
	KindFunc
	KindObject
)

var kindNames = [...]string{
	KindBackend: "Backend",
	KindString:  "String",
	KindNumber:  "Number",
	KindBool:    "Bool",
	KindFunc:    "Func",
	KindObject:  "Object",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) && kindNames[k] != "" {
		return kindNames[k]
	}
	return "Kind(?)"
}

// Type is one exported type. The set of implementations is closed:
// the four primitives, *Func and *Object.
type Type interface {
	Kind() Kind
	String() string
	isType()
}

// Primitive types. They carry no data; compare with Kind().
type (
	Backend struct{}
	String  struct{}
	Number  struct{}
	Bool    struct{}
)

func (Backend) Kind() Kind { return KindBackend }
func (String) Kind() Kind  { return KindString }
func (Number) Kind() Kind  { return KindNumber }
func (Bool) Kind() Kind    { return KindBool }

func (Backend) String() string { return "BACKEND" }
func (String) String() string  { return "STRING" }
func (Number) String() string  { return "NUMBER" }
func (Bool) String() string    { return "BOOL" }

func (Backend) isType() {}
func (String) isType()  {}
func (Number) isType()  {}
func (Bool) isType()    {}

// Param is one declared parameter of a function.
type Param struct {
	Type string
	Name string
}

// Func is a callable. A nil Return means the function returns nothing.
type Func struct {
	Return         Type
	Signature      *string
	ReturnTypeName *string
	Name           string
	Params         []Param
}

func (*Func) Kind() Kind { return KindFunc }
func (*Func) isType()    {}

// String renders the function as name(signature) -> return.
func (f *Func) String() string {
	var b strings.Builder
	b.WriteString(f.Name)
	if f.Signature != nil {
		b.WriteString(*f.Signature)
	} else {
		b.WriteString("()")
	}
	if f.Return != nil {
		b.WriteString(" -> ")
		if o, ok := f.Return.(*Object); ok {
			b.WriteString(o.Name)
		} else {
			b.WriteString(f.Return.String())
		}
	}
	return b.String()
}

// Object is a namespace of named members.
type Object struct {
	Properties map[string]Type
	Name       string
	ReadOnly   bool
}

// NewObject returns an empty read-only object.
func NewObject(name string) *Object {
	return &Object{
		Name:       name,
		ReadOnly:   true,
		Properties: make(map[string]Type),
	}
}

func (*Object) Kind() Kind { return KindObject }
func (*Object) isType()    {}

func (o *Object) String() string {
	return "object " + o.Name
}

// Set stores t under name, replacing any previous entry.
func (o *Object) Set(name string, t Type) {
	if o.Properties == nil {
		o.Properties = make(map[string]Type)
	}
	o.Properties[name] = t
}

// Get returns the member stored under name.
func (o *Object) Get(name string) (Type, bool) {
	t, ok := o.Properties[name]
	return t, ok
}

// Len returns the number of members.
func (o *Object) Len() int {
	return len(o.Properties)
}

// Names returns member names in sorted order.
func (o *Object) Names() []string {
	names := make([]string, 0, len(o.Properties))
	for name := range o.Properties {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Funcs returns the function members sorted by name.
func (o *Object) Funcs() []*Func {
	var funcs []*Func
	for _, name := range o.Names() {
		if f, ok := o.Properties[name].(*Func); ok {
			funcs = append(funcs, f)
		}
	}
	return funcs
}

// Constructor returns the object a function constructs, or nil when f
// does not return an object.
func (f *Func) Constructor() *Object {
	if f == nil {
		return nil
	}
	o, _ := f.Return.(*Object)
	return o
}

// Equal reports whether a and b describe the same type tree.
func Equal(a, b Type) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a.Kind() != b.Kind() {
		return false
	}

	switch av := a.(type) {
	case *Func:
		bv := b.(*Func)
		if av.Name != bv.Name ||
			!equalStrPtr(av.Signature, bv.Signature) ||
			!equalStrPtr(av.ReturnTypeName, bv.ReturnTypeName) ||
			len(av.Params) != len(bv.Params) {
			return false
		}
		for i := range av.Params {
			if av.Params[i] != bv.Params[i] {
				return false
			}
		}
		return Equal(av.Return, bv.Return)
	case *Object:
		bv := b.(*Object)
		if av.Name != bv.Name || av.ReadOnly != bv.ReadOnly || len(av.Properties) != len(bv.Properties) {
			return false
		}
		for name, at := range av.Properties {
			bt, ok := bv.Properties[name]
			if !ok || !Equal(at, bt) {
				return false
			}
		}
		return true
	default:
		return true
	}
}

func equalStrPtr(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
