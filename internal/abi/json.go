package abi

import (
	"encoding/json"
	"fmt"
)

// Encode renders the document as indented JSON. Map keys sort
// alphabetically, so output is deterministic for a given document.
func (d *Document) Encode() ([]byte, error) {
	return json.MarshalIndent(d, "", "  ")
}

// MarshalJSON emits only the keys belonging to the node's kind. The switch is
// exhaustive over the closed kind set; an unrecognized kind is a programming
// error and fails the encode.
func (n TypeNode) MarshalJSON() ([]byte, error) {
	switch n.Kind {
	case KindPrimitive, KindStruct, KindEnum:
		return json.Marshal(struct {
			Kind NodeKind `json:"kind"`
			Name string   `json:"name"`
		}{n.Kind, n.Name})
	case KindPointer:
		return json.Marshal(struct {
			Kind    NodeKind  `json:"kind"`
			Pointee *TypeNode `json:"pointee"`
		}{n.Kind, n.Pointee})
	case KindFunction:
		args := n.ArgTypes
		if args == nil {
			args = []TypeNode{}
		}
		return json.Marshal(struct {
			Kind       NodeKind   `json:"kind"`
			ArgTypes   []TypeNode `json:"argTypes"`
			ReturnType *TypeNode  `json:"returnType"`
			Variadic   bool       `json:"variadic,omitempty"`
		}{n.Kind, args, n.ReturnType, n.Variadic})
	case KindArray:
		return json.Marshal(struct {
			Kind        NodeKind  `json:"kind"`
			ElementType *TypeNode `json:"elementType"`
			Count       uint64    `json:"size"`
		}{n.Kind, n.ElementType, n.Count})
	case KindUnknown:
		return json.Marshal(struct {
			Kind NodeKind `json:"kind"`
			ID   int      `json:"id"`
			Name string   `json:"name"`
		}{n.Kind, n.KindID, n.Name})
	}
	return nil, fmt.Errorf("abi: cannot encode type node kind %q", n.Kind)
}

// MarshalJSON writes the bare scalar, not a tagged object: a constant's value
// appears in the document as the number or string itself.
func (v ConstValue) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case ValueInt:
		return json.Marshal(v.Int)
	case ValueFloat:
		return json.Marshal(v.Float)
	case ValueString:
		return json.Marshal(v.Str)
	}
	return nil, fmt.Errorf("abi: cannot encode constant value kind %d", v.Kind)
}

// MarshalJSON guarantees fields encode as a list even when empty.
func (s *StructInfo) MarshalJSON() ([]byte, error) {
	fields := s.Fields
	if fields == nil {
		fields = []FieldInfo{}
	}
	type alias StructInfo
	a := alias(*s)
	a.Fields = fields
	return json.Marshal(a)
}

// MarshalJSON guarantees argTypes encode as a list even when empty.
func (f *FunctionInfo) MarshalJSON() ([]byte, error) {
	args := f.ArgTypes
	if args == nil {
		args = []TypeNode{}
	}
	type alias FunctionInfo
	a := alias(*f)
	a.ArgTypes = args
	return json.Marshal(a)
}
