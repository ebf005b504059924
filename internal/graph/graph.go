// Package graph checks referential integrity of an extracted document.
// Record references in type trees are names, not inline definitions, so a
// reference can point at a record the document never defines: an opaque
// handle type, a record behind a missing include, or a definition dropped
// because it was anonymous. Dangling finds those.
package graph

import (
	"sort"

	"github.com/karhunen/abidump/internal/abi"
)

// Reference is one record name that no structs entry defines, along with the
// document entries that mention it.
type Reference struct {
	Name string
	From []string
}

// Dangling walks every type tree in doc and returns the Struct references
// that do not resolve to a structs-table entry, in name order. Enum
// references are not checked: enumerators flatten into the constants table
// and the enum type itself has no table to resolve against.
func Dangling(doc *abi.Document) []Reference {
	refs := make(map[string]map[string]struct{})
	var visit func(n *abi.TypeNode, from string)
	visit = func(n *abi.TypeNode, from string) {
		if n == nil {
			return
		}
		if n.Kind == abi.KindStruct && n.Name != "" {
			if _, ok := refs[n.Name]; !ok {
				refs[n.Name] = make(map[string]struct{})
			}
			refs[n.Name][from] = struct{}{}
		}
		visit(n.Pointee, from)
		visit(n.ReturnType, from)
		visit(n.ElementType, from)
		for i := range n.ArgTypes {
			visit(&n.ArgTypes[i], from)
		}
	}

	for name, s := range doc.Structs {
		for i := range s.Fields {
			visit(&s.Fields[i].Type, "struct "+name)
		}
	}
	for name, fn := range doc.Functions {
		for i := range fn.ArgTypes {
			visit(&fn.ArgTypes[i], "function "+name)
		}
		visit(&fn.ReturnType, "function "+name)
	}
	for name, c := range doc.Constants {
		visit(&c.Type, "constant "+name)
	}

	var out []Reference
	for name, from := range refs {
		if _, ok := doc.Structs[name]; ok {
			continue
		}
		out = append(out, Reference{Name: name, From: sortedKeys(from)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func sortedKeys(m map[string]struct{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
