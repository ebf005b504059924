// Package query defines the read-only interface between the ABI extractor and
// a parsed translation unit. The extractor walks cursors and types through
// these interfaces only; the front-end that answers them lives elsewhere.
package query

import "fmt"

// CursorKind identifies what a declaration cursor refers to.
type CursorKind int

const (
	// TranslationUnitDecl is the root cursor of a parsed unit.
	TranslationUnitDecl CursorKind = iota
	// Namespace is a C++ namespace definition; a container, never recorded.
	Namespace
	// LinkageSpec is an extern "C" { ... } block; a container, never recorded.
	LinkageSpec
	// StructDecl is a struct declaration or definition.
	StructDecl
	// UnionDecl is a union declaration or definition.
	UnionDecl
	// ClassDecl is a C++ class declaration or definition.
	ClassDecl
	// EnumDecl is an enum declaration or definition.
	EnumDecl
	// FieldDecl is a non-static data member of a record.
	FieldDecl
	// EnumConstantDecl is one enumerator inside an enum definition.
	EnumConstantDecl
	// FunctionDecl is a free function declaration or definition.
	FunctionDecl
	// VarDecl is a variable declaration at file, namespace, or record scope.
	VarDecl
	// TypedefDecl is a typedef or alias declaration.
	TypedefDecl
	// MethodDecl is a member function; never recorded.
	MethodDecl
	// OtherDecl covers every declaration kind the extractor ignores.
	OtherDecl
)

// TypeKind identifies the shape of a type handle. The numeric value of a kind
// is written into the output document for shapes the serializer does not map,
// so the order here is part of the output format.
type TypeKind int

const (
	TypeInvalid TypeKind = iota
	TypeUnexposed

	// Builtin kinds. CharU and CharS are plain char on platforms where it is
	// unsigned respectively signed; UChar and SChar are the explicit forms.
	TypeVoid
	TypeBool
	TypeCharU
	TypeUChar
	TypeUShort
	TypeUInt
	TypeULong
	TypeULongLong
	TypeCharS
	TypeSChar
	TypeShort
	TypeInt
	TypeLong
	TypeLongLong
	TypeFloat
	TypeDouble
	TypeLongDouble
	TypeWChar
	TypeChar16
	TypeChar32
	TypeNullPtr

	TypePointer
	TypeLValueReference
	TypeRValueReference
	TypeRecord
	TypeEnum
	TypeTypedef
	TypeFunctionProto
	TypeFunctionNoProto
	TypeConstantArray
	TypeIncompleteArray
)

// String returns the stable spelling of the kind, used as the kindName of
// Unknown nodes in the output.
func (k TypeKind) String() string {
	switch k {
	case TypeInvalid:
		return "Invalid"
	case TypeUnexposed:
		return "Unexposed"
	case TypeVoid:
		return "Void"
	case TypeBool:
		return "Bool"
	case TypeCharU:
		return "Char_U"
	case TypeUChar:
		return "UChar"
	case TypeUShort:
		return "UShort"
	case TypeUInt:
		return "UInt"
	case TypeULong:
		return "ULong"
	case TypeULongLong:
		return "ULongLong"
	case TypeCharS:
		return "Char_S"
	case TypeSChar:
		return "SChar"
	case TypeShort:
		return "Short"
	case TypeInt:
		return "Int"
	case TypeLong:
		return "Long"
	case TypeLongLong:
		return "LongLong"
	case TypeFloat:
		return "Float"
	case TypeDouble:
		return "Double"
	case TypeLongDouble:
		return "LongDouble"
	case TypeWChar:
		return "WChar"
	case TypeChar16:
		return "Char16"
	case TypeChar32:
		return "Char32"
	case TypeNullPtr:
		return "NullPtr"
	case TypePointer:
		return "Pointer"
	case TypeLValueReference:
		return "LValueReference"
	case TypeRValueReference:
		return "RValueReference"
	case TypeRecord:
		return "Record"
	case TypeEnum:
		return "Enum"
	case TypeTypedef:
		return "Typedef"
	case TypeFunctionProto:
		return "FunctionProto"
	case TypeFunctionNoProto:
		return "FunctionNoProto"
	case TypeConstantArray:
		return "ConstantArray"
	case TypeIncompleteArray:
		return "IncompleteArray"
	}
	return fmt.Sprintf("TypeKind(%d)", int(k))
}

// EvalKind classifies a compile-time evaluation result.
type EvalKind int

const (
	// EvalNone means the initializer could not be evaluated.
	EvalNone EvalKind = iota
	EvalInt
	EvalFloat
	EvalString
)

// EvalResult is the outcome of evaluating a declaration's initializer. Only
// the field matching Kind is meaningful; the zero value means "not evaluable".
type EvalResult struct {
	Kind  EvalKind
	Int   int64
	Float float64
	Str   string
}

// Severity ranks a diagnostic.
type Severity int

const (
	SeverityNote Severity = iota
	SeverityWarning
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityNote:
		return "note"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	}
	return fmt.Sprintf("Severity(%d)", int(s))
}

// Diagnostic is one issue the front-end noticed while producing a unit.
type Diagnostic struct {
	Severity Severity
	File     string
	Line     int
	Col      int
	Message  string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s:%d:%d: %s: %s", d.File, d.Line, d.Col, d.Severity, d.Message)
}

// TranslationUnit is a fully parsed header plus everything it included.
type TranslationUnit interface {
	// Root returns the unit cursor; its children are the top-level
	// declarations in source order, includes spliced in place.
	Root() Cursor

	// Diagnostics returns the issues collected during parsing, in the order
	// they were found.
	Diagnostics() []Diagnostic
}

// Cursor is one declaration in the tree. Cursors are cheap values; identity
// is checked with Equal, not ==.
type Cursor interface {
	Kind() CursorKind

	// Spelling is the declared name, empty for unnamed declarations.
	Spelling() string

	// DisplayName is the name a consumer would refer to the declaration by.
	// For records this is the tag name (or an adopted typedef name); empty
	// when the declaration is anonymous.
	DisplayName() string

	// Location returns the originating file and 1-based line and column.
	Location() (file string, line, col int)

	// Type returns the type of the declared entity, or nil for cursors that
	// have none (namespaces, linkage blocks, the unit root).
	Type() Type

	// Definition resolves to the cursor that defines this declaration's
	// entity within the unit, or nil if the unit never defines it.
	Definition() Cursor

	// Equal reports whether both cursors refer to the same declaration.
	Equal(other Cursor) bool

	// IsAnonymous reports whether the declaration has no usable name.
	IsAnonymous() bool

	// EnumValue returns the enumerator's value; only meaningful for
	// EnumConstantDecl cursors.
	EnumValue() int64

	// Evaluate attempts compile-time evaluation of the declaration's
	// initializer.
	Evaluate() EvalResult

	// BitOffset returns the field's bit offset within its record, or -1 when
	// the cursor is not a field.
	BitOffset() int64

	NumChildren() int
	Child(i int) Cursor
}

// Type is one type handle. Accessors for sub-types return nil when the kind
// has none (asking a pointer for its return type, and so on).
type Type interface {
	Kind() TypeKind

	// Spelling is the raw type name, including synthesized spellings for
	// anonymous records such as "(anonymous struct at file:3:5)".
	Spelling() string

	// Canonical resolves every typedef layer and returns the underlying
	// type; canonical types return themselves.
	Canonical() Type

	// Size returns the byte size, or a negative value when the size is not
	// known (incomplete or invalid types).
	Size() int64

	// Pointee returns the pointed-to or referenced type.
	Pointee() Type

	// ReturnType returns a function type's result type.
	ReturnType() Type

	// NumArgs and Arg enumerate a function type's parameter types in order.
	NumArgs() int
	Arg(i int) Type

	// IsVariadic reports whether a function type takes trailing variadic
	// arguments.
	IsVariadic() bool

	// Elem returns an array's element type.
	Elem() Type

	// ArrayLen returns a constant array's element count, or -1 otherwise.
	ArrayLen() int64

	// Declaration returns the cursor declaring a record or enum type, or nil
	// for other kinds.
	Declaration() Cursor
}
