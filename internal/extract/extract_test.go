package extract

import (
	"testing"

	"github.com/karhunen/abidump/internal/abi"
	"github.com/karhunen/abidump/internal/query"
)

// fakeType and fakeCursor implement the query interfaces directly so the
// classifier can be exercised without parsing source text.

type fakeType struct {
	kind     query.TypeKind
	spelling string
	size     int64
	pointee  *fakeType
	args     []*fakeType
	ret      *fakeType
	variadic bool
	elem     *fakeType
	arrayLen int64
	decl     *fakeCursor
}

func typeOrNil(t *fakeType) query.Type {
	if t == nil {
		return nil
	}
	return t
}

func (t *fakeType) Kind() query.TypeKind  { return t.kind }
func (t *fakeType) Spelling() string      { return t.spelling }
func (t *fakeType) Canonical() query.Type { return t }
func (t *fakeType) Size() int64           { return t.size }
func (t *fakeType) Pointee() query.Type   { return typeOrNil(t.pointee) }
func (t *fakeType) ReturnType() query.Type {
	return typeOrNil(t.ret)
}
func (t *fakeType) NumArgs() int { return len(t.args) }
func (t *fakeType) Arg(i int) query.Type {
	if i < 0 || i >= len(t.args) {
		return nil
	}
	return t.args[i]
}
func (t *fakeType) IsVariadic() bool  { return t.variadic }
func (t *fakeType) Elem() query.Type  { return typeOrNil(t.elem) }
func (t *fakeType) ArrayLen() int64   { return t.arrayLen }
func (t *fakeType) Declaration() query.Cursor {
	if t.decl == nil {
		return nil
	}
	return t.decl
}

type fakeCursor struct {
	kind     query.CursorKind
	spelling string
	file     string
	typ      *fakeType
	def      *fakeCursor
	anon     bool
	enumVal  int64
	eval     query.EvalResult
	bitOff   int64
	children []*fakeCursor
}

func (c *fakeCursor) Kind() query.CursorKind { return c.kind }
func (c *fakeCursor) Spelling() string       { return c.spelling }
func (c *fakeCursor) DisplayName() string    { return c.spelling }
func (c *fakeCursor) Location() (string, int, int) {
	return c.file, 1, 1
}
func (c *fakeCursor) Type() query.Type { return typeOrNil(c.typ) }
func (c *fakeCursor) Definition() query.Cursor {
	if c.def == nil {
		return nil
	}
	return c.def
}
func (c *fakeCursor) Equal(other query.Cursor) bool {
	oc, ok := other.(*fakeCursor)
	return ok && oc == c
}
func (c *fakeCursor) IsAnonymous() bool          { return c.anon }
func (c *fakeCursor) EnumValue() int64           { return c.enumVal }
func (c *fakeCursor) Evaluate() query.EvalResult { return c.eval }
func (c *fakeCursor) BitOffset() int64           { return c.bitOff }
func (c *fakeCursor) NumChildren() int           { return len(c.children) }
func (c *fakeCursor) Child(i int) query.Cursor   { return c.children[i] }

// newRecord builds a defined record cursor whose type points back at it.
func newRecord(name, file string, size int64) *fakeCursor {
	c := &fakeCursor{kind: query.StructDecl, spelling: name, file: file}
	c.def = c
	c.typ = &fakeType{kind: query.TypeRecord, spelling: name, size: size, decl: c}
	return c
}

func newField(name string, typ *fakeType, bitOff int64) *fakeCursor {
	return &fakeCursor{kind: query.FieldDecl, spelling: name, typ: typ, bitOff: bitOff}
}

func intType() *fakeType {
	return &fakeType{kind: query.TypeInt, spelling: "int", size: 4}
}

func root(children ...*fakeCursor) *fakeCursor {
	return &fakeCursor{kind: query.TranslationUnitDecl, children: children}
}

func docFor(t *testing.T, c *fakeCursor) *abi.Document {
	t.Helper()
	doc := abi.NewDocument()
	Into(doc, c)
	return doc
}

func TestRecordExtraction(t *testing.T) {
	t.Parallel()

	point := newRecord("Point", "geo.h", 8)
	point.children = []*fakeCursor{
		newField("x", intType(), 0),
		newField("y", intType(), 32),
	}

	doc := docFor(t, root(point))

	s, ok := doc.Structs["Point"]
	if !ok {
		t.Fatalf("Point missing, structs = %v", doc.Structs)
	}
	if s.Size != 8 {
		t.Errorf("size = %d, want 8", s.Size)
	}
	if s.FileName != "geo.h" {
		t.Errorf("fileName = %q, want geo.h", s.FileName)
	}
	if len(s.Fields) != 2 {
		t.Fatalf("fields = %d, want 2", len(s.Fields))
	}
	if s.Fields[0].Name != "x" || s.Fields[0].Offset != 0 {
		t.Errorf("field 0 = %+v, want x at offset 0", s.Fields[0])
	}
	if s.Fields[1].Name != "y" || s.Fields[1].Offset != 4 {
		t.Errorf("field 1 = %+v, want y at offset 4", s.Fields[1])
	}
	if s.Fields[0].Type.Kind != abi.KindPrimitive || s.Fields[0].Type.Name != "signed int" {
		t.Errorf("field 0 type = %+v, want Primitive signed int", s.Fields[0].Type)
	}
}

func TestBitFieldOffsetTruncatesToBytes(t *testing.T) {
	t.Parallel()

	rec := newRecord("Flags", "f.h", 4)
	rec.children = []*fakeCursor{newField("b", intType(), 12)}

	doc := docFor(t, root(rec))
	if got := doc.Structs["Flags"].Fields[0].Offset; got != 1 {
		t.Errorf("offset = %d, want 1 (bit 12 truncated to its byte)", got)
	}
}

func TestForwardDeclarationSkipped(t *testing.T) {
	t.Parallel()

	// Never defined anywhere.
	fwd := &fakeCursor{kind: query.StructDecl, spelling: "Opaque", file: "o.h"}
	fwd.typ = &fakeType{kind: query.TypeRecord, spelling: "Opaque", decl: fwd}

	doc := docFor(t, root(fwd))
	if _, ok := doc.Structs["Opaque"]; ok {
		t.Fatal("forward-only declaration was recorded")
	}
}

func TestForwardDeclarationBeforeDefinition(t *testing.T) {
	t.Parallel()

	def := newRecord("Conn", "c.h", 4)
	def.children = []*fakeCursor{newField("fd", intType(), 0)}

	fwd := &fakeCursor{kind: query.StructDecl, spelling: "Conn", file: "c.h", typ: def.typ, def: def}

	doc := docFor(t, root(fwd, def))
	s, ok := doc.Structs["Conn"]
	if !ok {
		t.Fatal("definition was not recorded")
	}
	if len(s.Fields) != 1 {
		t.Errorf("fields = %d, want 1", len(s.Fields))
	}
}

func TestRedeclarationLastWins(t *testing.T) {
	t.Parallel()

	second := newRecord("Cfg", "b.h", 8)
	first := &fakeCursor{kind: query.StructDecl, spelling: "Cfg", file: "a.h", typ: second.typ, def: second}

	doc := docFor(t, root(first, second))
	s := doc.Structs["Cfg"]
	if s == nil {
		t.Fatal("Cfg missing")
	}
	if s.FileName != "b.h" || s.Size != 8 {
		t.Errorf("got %+v, want the later declaration (b.h, size 8)", s)
	}
}

func TestAnonymousRecordSkipped(t *testing.T) {
	t.Parallel()

	flagged := newRecord("", "a.h", 4)
	flagged.anon = true

	spelled := newRecord("", "a.h", 4)
	spelled.typ.spelling = "(anonymous struct at a.h:3:1)"

	doc := docFor(t, root(flagged, spelled))
	if len(doc.Structs) != 0 {
		t.Fatalf("anonymous records were recorded: %v", doc.Structs)
	}
}

func TestSelfReferentialRecordTerminates(t *testing.T) {
	t.Parallel()

	// struct Node { struct Node *next; }; the walk must bottom out at a
	// name reference instead of recursing through the cycle.
	node := newRecord("Node", "list.h", 8)
	ptr := &fakeType{kind: query.TypePointer, size: 8, pointee: node.typ}
	node.children = []*fakeCursor{newField("next", ptr, 0)}

	doc := docFor(t, root(node))
	ft := doc.Structs["Node"].Fields[0].Type
	if ft.Kind != abi.KindPointer {
		t.Fatalf("field type kind = %q, want Pointer", ft.Kind)
	}
	if ft.Pointee.Kind != abi.KindStruct || ft.Pointee.Name != "Node" {
		t.Errorf("pointee = %+v, want Struct reference to Node", ft.Pointee)
	}
}

func TestFunctionExtraction(t *testing.T) {
	t.Parallel()

	add := &fakeCursor{
		kind: query.FunctionDecl, spelling: "add", file: "math.h",
		typ: &fakeType{
			kind: query.TypeFunctionProto,
			args: []*fakeType{intType(), intType()},
			ret:  intType(),
		},
	}

	doc := docFor(t, root(add))
	fn, ok := doc.Functions["add"]
	if !ok {
		t.Fatal("add missing")
	}
	if len(fn.ArgTypes) != 2 {
		t.Errorf("argTypes = %d, want 2", len(fn.ArgTypes))
	}
	if fn.ReturnType.Name != "signed int" {
		t.Errorf("returnType = %+v, want signed int", fn.ReturnType)
	}
	if fn.Variadic {
		t.Error("variadic = true, want false")
	}
}

func TestVariadicFunction(t *testing.T) {
	t.Parallel()

	logf := &fakeCursor{
		kind: query.FunctionDecl, spelling: "logf", file: "log.h",
		typ: &fakeType{
			kind:     query.TypeFunctionProto,
			args:     []*fakeType{{kind: query.TypePointer, size: 8, pointee: &fakeType{kind: query.TypeCharS, size: 1}}},
			ret:      &fakeType{kind: query.TypeVoid},
			variadic: true,
		},
	}

	doc := docFor(t, root(logf))
	if !doc.Functions["logf"].Variadic {
		t.Error("variadic flag lost")
	}
}

func TestUnprototypedFunction(t *testing.T) {
	t.Parallel()

	f := &fakeCursor{
		kind: query.FunctionDecl, spelling: "legacy", file: "old.h",
		typ: &fakeType{kind: query.TypeFunctionNoProto, ret: intType()},
	}

	doc := docFor(t, root(f))
	fn, ok := doc.Functions["legacy"]
	if !ok {
		t.Fatal("unprototyped function missing")
	}
	if len(fn.ArgTypes) != 0 {
		t.Errorf("argTypes = %v, want empty", fn.ArgTypes)
	}
}

func TestFunctionWithNonFunctionTypeSkipped(t *testing.T) {
	t.Parallel()

	broken := &fakeCursor{kind: query.FunctionDecl, spelling: "weird", typ: intType()}
	doc := docFor(t, root(broken))
	if len(doc.Functions) != 0 {
		t.Fatalf("degenerate function was recorded: %v", doc.Functions)
	}
}

func TestEnumeratorExtraction(t *testing.T) {
	t.Parallel()

	colorDef := &fakeCursor{kind: query.EnumDecl, spelling: "Color", file: "c.h"}
	colorDef.def = colorDef
	colorType := &fakeType{kind: query.TypeEnum, spelling: "Color", size: 4, decl: colorDef}

	green := &fakeCursor{kind: query.EnumConstantDecl, spelling: "GREEN", file: "c.h", typ: colorType, enumVal: 2}
	colorDef.children = []*fakeCursor{green}

	doc := docFor(t, root(colorDef))
	c, ok := doc.Constants["GREEN"]
	if !ok {
		t.Fatal("GREEN missing")
	}
	if c.Value == nil || c.Value.Kind != abi.ValueInt || c.Value.Int != 2 {
		t.Errorf("value = %+v, want int 2", c.Value)
	}
	if c.Type.Kind != abi.KindEnum || c.Type.Name != "Color" {
		t.Errorf("type = %+v, want Enum Color", c.Type)
	}
}

func TestVariableConstantValues(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		eval query.EvalResult
		want *abi.ConstValue
	}{
		{"int initializer", query.EvalResult{Kind: query.EvalInt, Int: 64}, abi.IntValue(64)},
		{"float initializer", query.EvalResult{Kind: query.EvalFloat, Float: 2.5}, abi.FloatValue(2.5)},
		{"string initializer", query.EvalResult{Kind: query.EvalString, Str: "v1"}, abi.StringValue("v1")},
		{"no initializer", query.EvalResult{}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			v := &fakeCursor{kind: query.VarDecl, spelling: "X", file: "v.h", typ: intType(), eval: tt.eval}
			doc := docFor(t, root(v))
			c, ok := doc.Constants["X"]
			if !ok {
				t.Fatal("X missing; a non-evaluable variable should still leave a stub")
			}
			if tt.want == nil {
				if c.Value != nil {
					t.Fatalf("value = %+v, want none", c.Value)
				}
				return
			}
			if c.Value == nil || *c.Value != *tt.want {
				t.Errorf("value = %+v, want %+v", c.Value, tt.want)
			}
		})
	}
}

func TestVariableStubNeverClobbersValue(t *testing.T) {
	t.Parallel()

	valued := &fakeCursor{kind: query.VarDecl, spelling: "LIMIT", file: "a.h", typ: intType(),
		eval: query.EvalResult{Kind: query.EvalInt, Int: 64}}
	stub := &fakeCursor{kind: query.VarDecl, spelling: "LIMIT", file: "b.h", typ: intType()}

	doc := docFor(t, root(valued, stub))
	c := doc.Constants["LIMIT"]
	if c.Value == nil || c.Value.Int != 64 {
		t.Fatalf("stub clobbered the value, got %+v", c.Value)
	}

	// A later value-bearing declaration still wins.
	revalued := &fakeCursor{kind: query.VarDecl, spelling: "LIMIT", file: "c.h", typ: intType(),
		eval: query.EvalResult{Kind: query.EvalInt, Int: 128}}
	doc2 := docFor(t, root(valued, stub, revalued))
	if got := doc2.Constants["LIMIT"].Value.Int; got != 128 {
		t.Errorf("value = %d, want 128", got)
	}
}

func TestNestedDeclarationsReachedEverywhere(t *testing.T) {
	t.Parallel()

	inner := newRecord("Inner", "n.h", 4)
	inner.children = []*fakeCursor{newField("v", intType(), 0)}

	outer := newRecord("Outer", "n.h", 4)
	outer.children = []*fakeCursor{inner, newField("i", inner.typ, 0)}

	ns := &fakeCursor{kind: query.Namespace, spelling: "net", children: []*fakeCursor{outer}}
	linkage := &fakeCursor{kind: query.LinkageSpec, children: []*fakeCursor{
		{kind: query.FunctionDecl, spelling: "reset", typ: &fakeType{kind: query.TypeFunctionProto, ret: &fakeType{kind: query.TypeVoid}}},
	}}

	doc := docFor(t, root(ns, linkage))
	if _, ok := doc.Structs["Outer"]; !ok {
		t.Error("Outer missing: walk did not descend into the namespace")
	}
	if _, ok := doc.Structs["Inner"]; !ok {
		t.Error("Inner missing: walk did not descend into the record body")
	}
	if _, ok := doc.Functions["reset"]; !ok {
		t.Error("reset missing: walk did not descend into the linkage block")
	}

	// The nested record is a table entry, never a field of its parent.
	outerFields := doc.Structs["Outer"].Fields
	if len(outerFields) != 1 || outerFields[0].Name != "i" {
		t.Errorf("outer fields = %+v, want just i", outerFields)
	}
}

func TestAnonymousFieldTypeSpellsOut(t *testing.T) {
	t.Parallel()

	anonDef := &fakeCursor{kind: query.StructDecl, spelling: "", anon: true, file: "u.h"}
	anonDef.def = anonDef
	anonType := &fakeType{kind: query.TypeRecord, spelling: "(anonymous union at u.h:5:3)", size: 4, decl: anonDef}

	holder := newRecord("Holder", "u.h", 4)
	holder.children = []*fakeCursor{newField("u", anonType, 0)}

	doc := docFor(t, root(holder))
	ft := doc.Structs["Holder"].Fields[0].Type
	if ft.Kind != abi.KindStruct || ft.Name != "(anonymous union at u.h:5:3)" {
		t.Errorf("field type = %+v, want the synthesized anonymous spelling", ft)
	}
}
