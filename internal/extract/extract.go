// Package extract walks a parsed translation unit and builds the ABI
// document: record layouts, free-function signatures, and constants.
package extract

import (
	"strings"

	"github.com/karhunen/abidump/internal/abi"
	"github.com/karhunen/abidump/internal/query"
)

// Document builds the ABI document for one translation unit.
func Document(tu query.TranslationUnit) *abi.Document {
	doc := abi.NewDocument()
	Into(doc, tu.Root())
	return doc
}

// Into classifies every declaration reachable from root into doc. The walk is
// depth-first pre-order and descends into every node, so declarations nested
// in namespaces, linkage blocks, and record bodies are all visited. doc is
// the only thing the walk mutates.
func Into(doc *abi.Document, root query.Cursor) {
	walk(doc, root)
}

func walk(doc *abi.Document, c query.Cursor) {
	classify(doc, c)
	for i := 0; i < c.NumChildren(); i++ {
		walk(doc, c.Child(i))
	}
}

// classify records one declaration. Kinds outside the four recorded families
// are skipped, never errors.
func classify(doc *abi.Document, c query.Cursor) {
	switch c.Kind() {
	case query.StructDecl, query.UnionDecl, query.ClassDecl:
		recordStruct(doc, c)
	case query.FunctionDecl:
		recordFunction(doc, c)
	case query.EnumConstantDecl:
		recordEnumerator(doc, c)
	case query.VarDecl:
		recordVariable(doc, c)
	}
}

func recordStruct(doc *abi.Document, c query.Cursor) {
	if isAnonymous(c) || !isDefinition(c) {
		return
	}
	t := c.Type()
	if t == nil {
		return
	}
	file, _, _ := c.Location()
	doc.Structs[typeName(t)] = &abi.StructInfo{
		Size:     t.Size(),
		Fields:   fields(c),
		FileName: file,
	}
}

func recordFunction(doc *abi.Document, c query.Cursor) {
	t := c.Type()
	if t == nil {
		return
	}
	n := typeNode(t.Canonical())
	if n.Kind != abi.KindFunction {
		return
	}
	file, _, _ := c.Location()
	doc.Functions[c.Spelling()] = &abi.FunctionInfo{
		ArgTypes:   n.ArgTypes,
		ReturnType: *n.ReturnType,
		Variadic:   n.Variadic,
		FileName:   file,
	}
}

// recordEnumerator types the constant as the enclosing enum's canonical type.
// Enumerators are constant expressions by definition, so the value is always
// present.
func recordEnumerator(doc *abi.Document, c query.Cursor) {
	t := c.Type()
	if t == nil {
		return
	}
	file, _, _ := c.Location()
	doc.Constants[c.Spelling()] = &abi.ConstantInfo{
		Type:     typeNode(t.Canonical()),
		Value:    abi.IntValue(c.EnumValue()),
		FileName: file,
	}
}

// recordVariable records a constant when the initializer evaluates to an
// integer, float, or string literal. Otherwise the entry is a type-only stub,
// and a stub never erases a value recorded by an earlier declaration of the
// same name.
func recordVariable(doc *abi.Document, c query.Cursor) {
	t := c.Type()
	if t == nil {
		return
	}
	name := c.Spelling()
	file, _, _ := c.Location()
	info := &abi.ConstantInfo{Type: typeNode(t.Canonical()), FileName: file}
	switch ev := c.Evaluate(); ev.Kind {
	case query.EvalInt:
		info.Value = abi.IntValue(ev.Int)
	case query.EvalFloat:
		info.Value = abi.FloatValue(ev.Float)
	case query.EvalString:
		info.Value = abi.StringValue(ev.Str)
	}
	if info.Value == nil {
		if prev, ok := doc.Constants[name]; ok && prev.Value != nil {
			return
		}
	}
	doc.Constants[name] = info
}

// fields visits only the record's immediate children: one bounded level, no
// recursion into nested record bodies. Members of an anonymous sub-record are
// therefore not flattened into the parent's field list.
func fields(c query.Cursor) []abi.FieldInfo {
	out := []abi.FieldInfo{}
	for i := 0; i < c.NumChildren(); i++ {
		f := c.Child(i)
		if f.Kind() != query.FieldDecl {
			continue
		}
		t := f.Type()
		if t == nil {
			continue
		}
		out = append(out, abi.FieldInfo{
			Name: f.Spelling(),
			Size: t.Size(),
			// Exact for byte-aligned fields; bit-fields lose their sub-byte
			// position here.
			Offset: f.BitOffset() / 8,
			Type:   typeNode(t.Canonical()),
		})
	}
	return out
}

// isDefinition reports whether the record cursor is its own definition:
// resolving the type to its definition must yield a cursor identical to this
// one. Forward declarations resolve elsewhere or nowhere.
func isDefinition(c query.Cursor) bool {
	def := c.Definition()
	return def != nil && def.Equal(c)
}

// isAnonymous checks both the front-end's anonymity flag and the canonical
// spelling for a synthesized anonymous name. Neither test alone catches every
// unnamed shape on real-world headers.
func isAnonymous(c query.Cursor) bool {
	if c.IsAnonymous() {
		return true
	}
	t := c.Type()
	return t != nil && strings.Contains(t.Canonical().Spelling(), "(anonymous")
}
