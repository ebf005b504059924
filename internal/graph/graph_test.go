package graph

import (
	"reflect"
	"testing"

	"github.com/karhunen/abidump/internal/abi"
)

func TestDanglingFindsUnresolvedRecordReferences(t *testing.T) {
	t.Parallel()

	doc := abi.NewDocument()
	doc.Structs["Node"] = &abi.StructInfo{
		Size: 16,
		Fields: []abi.FieldInfo{
			{Name: "next", Size: 8, Offset: 0, Type: abi.PointerTo(abi.StructRef("Node"))},
			{Name: "data", Size: 8, Offset: 8, Type: abi.PointerTo(abi.StructRef("Blob"))},
		},
		FileName: "node.h",
	}
	doc.Functions["open_it"] = &abi.FunctionInfo{
		ArgTypes:   []abi.TypeNode{abi.PointerTo(abi.StructRef("Blob"))},
		ReturnType: abi.PointerTo(abi.StructRef("Opaque")),
		FileName:   "node.h",
	}
	doc.Constants["origin"] = &abi.ConstantInfo{
		Type:     abi.StructRef("Point"),
		FileName: "node.h",
	}
	doc.Constants["color"] = &abi.ConstantInfo{
		Type:     abi.EnumRef("Color"),
		Value:    abi.IntValue(1),
		FileName: "node.h",
	}

	got := Dangling(doc)
	want := []Reference{
		{Name: "Blob", From: []string{"function open_it", "struct Node"}},
		{Name: "Opaque", From: []string{"function open_it"}},
		{Name: "Point", From: []string{"constant origin"}},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestDanglingSeesNestedPositions(t *testing.T) {
	t.Parallel()

	// A record reference buried in an array element inside a function
	// pointer argument must still be found.
	inner := abi.FunctionOf(
		[]abi.TypeNode{abi.ArrayOf(abi.StructRef("Deep"), 4)},
		abi.Primitive("void"),
		false,
	)
	doc := abi.NewDocument()
	doc.Structs["Holder"] = &abi.StructInfo{
		Size: 8,
		Fields: []abi.FieldInfo{
			{Name: "cb", Size: 8, Offset: 0, Type: abi.PointerTo(inner)},
		},
		FileName: "holder.h",
	}

	got := Dangling(doc)
	if len(got) != 1 || got[0].Name != "Deep" {
		t.Fatalf("got %+v, want only Deep", got)
	}
	if len(got[0].From) != 1 || got[0].From[0] != "struct Holder" {
		t.Errorf("from = %v, want struct Holder", got[0].From)
	}
}

func TestDanglingEmptyWhenResolved(t *testing.T) {
	t.Parallel()

	doc := abi.NewDocument()
	doc.Structs["Point"] = &abi.StructInfo{
		Size: 8,
		Fields: []abi.FieldInfo{
			{Name: "x", Size: 4, Offset: 0, Type: abi.Primitive("signed int")},
		},
		FileName: "geo.h",
	}
	doc.Structs["Line"] = &abi.StructInfo{
		Size: 16,
		Fields: []abi.FieldInfo{
			{Name: "a", Size: 8, Offset: 0, Type: abi.PointerTo(abi.StructRef("Point"))},
			{Name: "b", Size: 8, Offset: 8, Type: abi.PointerTo(abi.StructRef("Point"))},
		},
		FileName: "geo.h",
	}

	if got := Dangling(doc); len(got) != 0 {
		t.Errorf("got %+v, want none", got)
	}
}

func TestDanglingIgnoresEnumReferences(t *testing.T) {
	t.Parallel()

	doc := abi.NewDocument()
	doc.Constants["RED"] = &abi.ConstantInfo{
		Type:     abi.EnumRef("Color"),
		Value:    abi.IntValue(0),
		FileName: "color.h",
	}

	if got := Dangling(doc); len(got) != 0 {
		t.Errorf("got %+v, enum references have no table to resolve against", got)
	}
}
