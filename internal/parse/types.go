package parse

import (
	"fmt"

	"github.com/karhunen/abidump/internal/lang"
	"github.com/karhunen/abidump/internal/query"
)

// ctype is one node of the semantic type graph. Record and enum types are
// shared, identity-stable objects completed in place, so forward references
// and cycles resolve to the same object a later definition fills in.
type ctype interface {
	tkind() query.TypeKind
}

type builtinType struct {
	kind  query.TypeKind
	name  string
	size  int64
	align int64
}

func (b *builtinType) tkind() query.TypeKind { return b.kind }

type pointerType struct {
	to ctype
}

func (p *pointerType) tkind() query.TypeKind { return query.TypePointer }

type refType struct {
	to     ctype
	rvalue bool
}

func (r *refType) tkind() query.TypeKind {
	if r.rvalue {
		return query.TypeRValueReference
	}
	return query.TypeLValueReference
}

// fieldMember is one storage-occupying member of a record: a named field, an
// unnamed bit-field, or an anonymous sub-record member. offsetBits is filled
// by the layout pass.
type fieldMember struct {
	name       string
	typ        ctype
	isBitfield bool
	width      int64
	offsetBits int64
	d          *decl
}

type recordType struct {
	kw    string // "struct", "union", or "class"
	tag   string // "" when the record has no tag
	spell string // display spelling, synthesized for anonymous records
	anon  bool

	complete bool
	fields   []*fieldMember
	def      *decl

	size    int64
	align   int64
	laidOut bool
}

func (r *recordType) tkind() query.TypeKind { return query.TypeRecord }

type enumType struct {
	tag   string
	spell string
	anon  bool

	complete bool
	base     ctype // explicit underlying type, nil for plain enums
	def      *decl
}

func (e *enumType) tkind() query.TypeKind { return query.TypeEnum }

type arrayType struct {
	elem       ctype
	count      int64
	incomplete bool
}

func (a *arrayType) tkind() query.TypeKind {
	if a.incomplete {
		return query.TypeIncompleteArray
	}
	return query.TypeConstantArray
}

type funcType struct {
	params   []ctype
	ret      ctype
	variadic bool
	noProto  bool
}

func (f *funcType) tkind() query.TypeKind {
	if f.noProto {
		return query.TypeFunctionNoProto
	}
	return query.TypeFunctionProto
}

type typedefType struct {
	name  string
	under ctype
}

func (t *typedefType) tkind() query.TypeKind { return query.TypeTypedef }

// unresolvedType stands in for a type name the unit never declares, usually
// from an include that was not found. It degrades to Unknown downstream.
type unresolvedType struct {
	name string
}

func (u *unresolvedType) tkind() query.TypeKind { return query.TypeUnexposed }

// canonicalOf strips typedef layers off the head of a type. Sub-types are
// canonicalized lazily by the query adapter.
func canonicalOf(t ctype) ctype {
	for {
		td, ok := t.(*typedefType)
		if !ok {
			return t
		}
		t = td.under
	}
}

// newBuiltins constructs the builtin table for an LP64 target. Plain char is
// signed. Dialect-dependent entries (wchar_t and friends) are added when the
// dialect treats them as builtins.
func newBuiltins(d *lang.Dialect) (map[query.TypeKind]*builtinType, map[string]*builtinType) {
	list := []*builtinType{
		{query.TypeVoid, "void", -1, 1},
		{query.TypeBool, "bool", 1, 1},
		{query.TypeCharS, "char", 1, 1},
		{query.TypeSChar, "signed char", 1, 1},
		{query.TypeUChar, "unsigned char", 1, 1},
		{query.TypeShort, "short", 2, 2},
		{query.TypeUShort, "unsigned short", 2, 2},
		{query.TypeInt, "int", 4, 4},
		{query.TypeUInt, "unsigned int", 4, 4},
		{query.TypeLong, "long", 8, 8},
		{query.TypeULong, "unsigned long", 8, 8},
		{query.TypeLongLong, "long long", 8, 8},
		{query.TypeULongLong, "unsigned long long", 8, 8},
		{query.TypeFloat, "float", 4, 4},
		{query.TypeDouble, "double", 8, 8},
		{query.TypeLongDouble, "long double", 16, 16},
	}
	byKind := make(map[query.TypeKind]*builtinType, len(list))
	byName := make(map[string]*builtinType, len(list)+8)
	for _, b := range list {
		byKind[b.kind] = b
		byName[b.name] = b
	}
	byName["_Bool"] = byKind[query.TypeBool]

	if d.WCharBuiltin {
		wchar := &builtinType{query.TypeWChar, "wchar_t", 4, 4}
		char16 := &builtinType{query.TypeChar16, "char16_t", 2, 2}
		char32 := &builtinType{query.TypeChar32, "char32_t", 4, 4}
		byKind[wchar.kind] = wchar
		byKind[char16.kind] = char16
		byKind[char32.kind] = char32
		byName["wchar_t"] = wchar
		byName["char16_t"] = char16
		byName["char32_t"] = char32
		byName["char8_t"] = byKind[query.TypeUChar]
	}
	return byKind, byName
}

// seedTypedefs installs the <stdint.h> and <stddef.h> names so headers parse
// usefully even when the system include tree is not on the search path.
func (u *unit) seedTypedefs() {
	seed := map[string]query.TypeKind{
		"int8_t":    query.TypeSChar,
		"int16_t":   query.TypeShort,
		"int32_t":   query.TypeInt,
		"int64_t":   query.TypeLong,
		"uint8_t":   query.TypeUChar,
		"uint16_t":  query.TypeUShort,
		"uint32_t":  query.TypeUInt,
		"uint64_t":  query.TypeULong,
		"intptr_t":  query.TypeLong,
		"uintptr_t": query.TypeULong,
		"intmax_t":  query.TypeLong,
		"uintmax_t": query.TypeULong,
		"size_t":    query.TypeULong,
		"ssize_t":   query.TypeLong,
		"ptrdiff_t": query.TypeLong,
	}
	for name, kind := range seed {
		u.typedefs[name] = &typedefType{name: name, under: u.builtins[kind]}
	}
	if !u.dialect.WCharBuiltin {
		u.typedefs["wchar_t"] = &typedefType{name: "wchar_t", under: u.builtins[query.TypeInt]}
	}
}

// spellingOf renders a type name. Record and enum spellings carry the
// synthesized anonymous form the classifier pattern-matches on.
func (u *unit) spellingOf(t ctype) string {
	switch v := t.(type) {
	case *builtinType:
		return v.name
	case *pointerType:
		return u.spellingOf(v.to) + " *"
	case *refType:
		if v.rvalue {
			return u.spellingOf(v.to) + " &&"
		}
		return u.spellingOf(v.to) + " &"
	case *recordType:
		return v.spell
	case *enumType:
		return v.spell
	case *arrayType:
		if v.incomplete {
			return u.spellingOf(v.elem) + " []"
		}
		return fmt.Sprintf("%s [%d]", u.spellingOf(v.elem), v.count)
	case *funcType:
		s := u.spellingOf(v.ret) + " ("
		for i, p := range v.params {
			if i > 0 {
				s += ", "
			}
			s += u.spellingOf(p)
		}
		if v.variadic {
			if len(v.params) > 0 {
				s += ", "
			}
			s += "..."
		}
		return s + ")"
	case *typedefType:
		return v.name
	case *unresolvedType:
		return v.name
	}
	return "<unknown>"
}
