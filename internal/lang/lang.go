// Package lang provides the dialect registry mapping header extensions to
// tree-sitter grammars and per-dialect semantics.
package lang

import (
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
)

// Dialect holds tree-sitter configuration and the semantic quirks of one
// supported C-family dialect.
type Dialect struct {
	Name       string
	Extensions []string
	lang       *sitter.Language

	// Predefined is the macro table every translation unit of this dialect
	// starts with, before any #define in the sources.
	Predefined map[string]string

	// EmptyRecordSize is the byte size of a record with no members: 0 in C,
	// 1 in C++.
	EmptyRecordSize int64

	// WCharBuiltin reports whether wchar_t is a distinct builtin type rather
	// than a library typedef.
	WCharBuiltin bool
}

// GetLanguage returns the tree-sitter Language pointer.
func (d *Dialect) GetLanguage() *sitter.Language {
	return d.lang
}

// NewParser creates a fresh tree-sitter parser for this dialect.
// Each goroutine must use its own parser (not thread-safe).
func (d *Dialect) NewParser() *sitter.Parser {
	p := sitter.NewParser()
	p.SetLanguage(d.lang)
	return p
}

// Dialects maps dialect names to their configuration.
// Populated by init() functions in per-dialect files.
var Dialects = map[string]*Dialect{}

// extensionMap is built lazily after all init() functions have run.
var extensionMap map[string]string
var extensionOnce sync.Once

func getExtensionMap() map[string]string {
	extensionOnce.Do(func() {
		extensionMap = make(map[string]string)
		for _, d := range Dialects {
			for _, ext := range d.Extensions {
				extensionMap[ext] = d.Name
			}
		}
	})
	return extensionMap
}

// ForExtension returns the dialect name for a file extension, or "" if the
// extension is not a known C-family one.
func ForExtension(ext string) string {
	return getExtensionMap()[ext]
}

// NodeText returns the source text of a tree-sitter node.
func NodeText(node *sitter.Node, source []byte) string {
	return string(source[node.StartByte():node.EndByte()])
}
