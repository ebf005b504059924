// Package abi defines the ABI document extracted from a header: type nodes,
// record layouts, function signatures, constants, and the JSON encoding
// binding generators consume.
package abi

// NodeKind tags a TypeNode variant. The set is closed; the encoder rejects
// anything else.
type NodeKind string

const (
	KindPrimitive NodeKind = "Primitive"
	KindPointer   NodeKind = "Pointer"
	KindFunction  NodeKind = "Function"
	KindStruct    NodeKind = "Struct"
	KindEnum      NodeKind = "Enum"
	KindArray     NodeKind = "Array"
	KindUnknown   NodeKind = "Unknown"
)

// TypeNode is one node of a serialized type shape. Only the fields belonging
// to Kind are set. Struct and Enum nodes carry a name reference into the
// document's tables, never inline members, so a TypeNode tree is always
// finite even when the underlying type graph is cyclic.
type TypeNode struct {
	Kind NodeKind

	// Name is the primitive spelling, record or enum reference, or the
	// front-end kind name for Unknown nodes.
	Name string

	Pointee     *TypeNode
	ArgTypes    []TypeNode
	ReturnType  *TypeNode
	Variadic    bool
	ElementType *TypeNode

	// Count is an array's element count, not a byte size.
	Count uint64

	// KindID is the front-end's numeric type kind for Unknown nodes.
	KindID int
}

// Primitive returns a Primitive node with the given spelling.
func Primitive(name string) TypeNode {
	return TypeNode{Kind: KindPrimitive, Name: name}
}

// PointerTo returns a Pointer node wrapping pointee.
func PointerTo(pointee TypeNode) TypeNode {
	return TypeNode{Kind: KindPointer, Pointee: &pointee}
}

// FunctionOf returns a Function node. args may be nil for a function with no
// named parameters; it is encoded as an empty list either way.
func FunctionOf(args []TypeNode, ret TypeNode, variadic bool) TypeNode {
	return TypeNode{Kind: KindFunction, ArgTypes: args, ReturnType: &ret, Variadic: variadic}
}

// StructRef returns a Struct node referring to a record by name.
func StructRef(name string) TypeNode {
	return TypeNode{Kind: KindStruct, Name: name}
}

// EnumRef returns an Enum node referring to an enum by name.
func EnumRef(name string) TypeNode {
	return TypeNode{Kind: KindEnum, Name: name}
}

// ArrayOf returns an Array node with count elements of elem.
func ArrayOf(elem TypeNode, count uint64) TypeNode {
	return TypeNode{Kind: KindArray, ElementType: &elem, Count: count}
}

// Unknown returns an Unknown node carrying the front-end's kind id and name.
func Unknown(kindID int, kindName string) TypeNode {
	return TypeNode{Kind: KindUnknown, KindID: kindID, Name: kindName}
}

// ValueKind tags a ConstValue variant.
type ValueKind int

const (
	ValueInt ValueKind = iota + 1
	ValueFloat
	ValueString
)

// ConstValue is an evaluated constant. The zero value is invalid; use the
// constructors.
type ConstValue struct {
	Kind  ValueKind
	Int   int64
	Float float64
	Str   string
}

// IntValue returns a ConstValue holding an integer.
func IntValue(v int64) *ConstValue { return &ConstValue{Kind: ValueInt, Int: v} }

// FloatValue returns a ConstValue holding a float.
func FloatValue(v float64) *ConstValue { return &ConstValue{Kind: ValueFloat, Float: v} }

// StringValue returns a ConstValue holding a string literal's value.
func StringValue(v string) *ConstValue { return &ConstValue{Kind: ValueString, Str: v} }

// FieldInfo is one direct member of a record, in declaration order.
type FieldInfo struct {
	Name string `json:"name"`

	// Size is the member's byte size; Offset its byte offset from the start
	// of the record. Bit-field offsets are truncated to whole bytes.
	Size   int64 `json:"size"`
	Offset int64 `json:"offset"`

	Type TypeNode `json:"type"`
}

// StructInfo is one record definition. The document map key is its canonical
// name; re-declarations overwrite (last write wins).
type StructInfo struct {
	Size     int64       `json:"size"`
	Fields   []FieldInfo `json:"fields"`
	FileName string      `json:"fileName"`
}

// FunctionInfo is one free function's canonical signature. Overloads are not
// disambiguated: colliding spellings overwrite.
type FunctionInfo struct {
	ArgTypes   []TypeNode `json:"argTypes"`
	ReturnType TypeNode   `json:"returnType"`
	Variadic   bool       `json:"variadic,omitempty"`
	FileName   string     `json:"fileName"`
}

// ConstantInfo is one enumerator or evaluable global. Value is nil when the
// initializer could not be evaluated; a nil Value is distinguishable from any
// recorded value, including zero.
type ConstantInfo struct {
	Type     TypeNode    `json:"type"`
	Value    *ConstValue `json:"value,omitempty"`
	FileName string      `json:"fileName"`
}

// Document is the complete ABI description of one translation unit, or of a
// merged set of units in scan mode.
type Document struct {
	Structs   map[string]*StructInfo   `json:"structs"`
	Functions map[string]*FunctionInfo `json:"functions"`
	Constants map[string]*ConstantInfo `json:"constants"`
}

// NewDocument returns an empty document with all three tables allocated.
func NewDocument() *Document {
	return &Document{
		Structs:   make(map[string]*StructInfo),
		Functions: make(map[string]*FunctionInfo),
		Constants: make(map[string]*ConstantInfo),
	}
}

// Merge folds other into d with the same semantics as re-declarations inside
// one unit: structs and functions overwrite, and a constant stub without a
// value never clobbers an entry that carries one.
func (d *Document) Merge(other *Document) {
	for name, s := range other.Structs {
		d.Structs[name] = s
	}
	for name, f := range other.Functions {
		d.Functions[name] = f
	}
	for name, c := range other.Constants {
		if c.Value == nil {
			if prev, ok := d.Constants[name]; ok && prev.Value != nil {
				continue
			}
		}
		d.Constants[name] = c
	}
}
