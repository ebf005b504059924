// Package parse builds a queryable semantic model of a C or C++ header from
// its tree-sitter syntax tree. One call to Unit parses the file and every
// reachable include, resolves types against the unit's tag and typedef
// tables, and returns a cursor tree the extraction layer walks. Syntax trees
// are released before Unit returns; the model owns all of its memory.
package parse

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/karhunen/abidump/internal/lang"
	"github.com/karhunen/abidump/internal/query"
)

const (
	maxIncludeDepth = 64
	maxSyntaxErrors = 20
)

// Options configure a single translation unit parse.
type Options struct {
	// IncludePaths are the -I directories searched for includes.
	IncludePaths []string
	// Dialect forces a language ("c" or "c++"). Empty selects by file
	// extension, with C as the fallback.
	Dialect string
}

// Unit parses path and returns its translation unit. The returned error is
// reserved for conditions that prevent producing a unit at all: an unreadable
// main file, an unknown dialect, or a parser failure. Recoverable problems
// surface as diagnostics on the unit instead.
func Unit(path string, opts Options) (query.TranslationUnit, error) {
	name := opts.Dialect
	if name == "" {
		name = lang.ForExtension(filepath.Ext(path))
	}
	if name == "" {
		name = "c"
	}
	dialect, ok := lang.Dialects[name]
	if !ok {
		return nil, fmt.Errorf("unknown dialect %q", name)
	}

	u := newUnit(dialect, opts.IncludePaths)
	u.root = &decl{kind: query.TranslationUnitDecl, name: path, file: path}
	if err := u.parseFile(path, u.root); err != nil {
		return nil, err
	}
	u.finish()
	return &tunit{u: u}, nil
}

// fileCtx carries the source of the file currently being walked so node
// text can be sliced out without re-reading.
type fileCtx struct {
	path   string
	source []byte
}

// unit holds the semantic state of one translation unit: flat tag and
// typedef namespaces, the macro table, and every record created so the
// layout pass can finish them in one sweep.
type unit struct {
	dialect      *lang.Dialect
	includePaths []string

	builtins     map[query.TypeKind]*builtinType
	builtinNames map[string]*builtinType

	structTags  map[string]*recordType
	enumTags    map[string]*enumType
	typedefs    map[string]ctype
	enumerators map[string]*decl
	constVars   map[string]query.EvalResult
	macros      map[string]string
	records     []*recordType

	root  *decl
	diags []query.Diagnostic

	visited      map[string]bool
	includeDepth int
	errCount     int
}

func newUnit(dialect *lang.Dialect, includePaths []string) *unit {
	u := &unit{
		dialect:      dialect,
		includePaths: includePaths,
		structTags:   make(map[string]*recordType),
		enumTags:     make(map[string]*enumType),
		typedefs:     make(map[string]ctype),
		enumerators:  make(map[string]*decl),
		constVars:    make(map[string]query.EvalResult),
		macros:       make(map[string]string),
		visited:      make(map[string]bool),
	}
	u.builtins, u.builtinNames = newBuiltins(dialect)
	u.seedTypedefs()
	for name, value := range dialect.Predefined {
		u.macros[name] = value
	}
	return u
}

// parseFile parses one file and walks its declarations into container.
// Files already visited in this unit are skipped, which terminates include
// cycles whether or not the header carries a guard.
func (u *unit) parseFile(path string, container *decl) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	if u.visited[abs] {
		return nil
	}
	u.visited[abs] = true

	source, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	parser := u.dialect.NewParser()
	tree, err := parser.ParseCtx(context.Background(), nil, source)
	if err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	defer tree.Close()

	fc := &fileCtx{path: path, source: source}
	u.walkNodes(fc, childrenOf(tree.RootNode()), container, "")
	return nil
}

// finish lays out every complete record so layout diagnostics are attached
// to the unit before the caller starts querying it.
func (u *unit) finish() {
	for _, r := range u.records {
		if r.complete {
			u.layoutRecord(r)
		}
	}
}

// handleInclude resolves an #include and splices the target file's
// declarations in at the include site. Quoted includes search the including
// file's directory first, then the -I paths; angle includes search only the
// -I paths. A missing quoted include warns, a missing angle include is a
// note since system headers are routinely absent.
func (u *unit) handleInclude(fc *fileCtx, node *sitter.Node, container *decl) {
	var pathNode *sitter.Node
	for _, child := range childrenOf(node) {
		switch child.Type() {
		case "string_literal", "system_lib_string":
			pathNode = child
		}
	}
	if pathNode == nil {
		return
	}
	quoted := pathNode.Type() == "string_literal"
	target := strings.Trim(lang.NodeText(pathNode, fc.source), "\"<>")
	if target == "" {
		return
	}

	resolved, found := u.resolveInclude(fc, target, quoted)
	if !found {
		sev := query.SeverityNote
		if quoted {
			sev = query.SeverityWarning
		}
		u.diag(sev, fc, node, fmt.Sprintf("include %q not found, declarations from it will be missing", target))
		return
	}

	if u.includeDepth >= maxIncludeDepth {
		u.diag(query.SeverityWarning, fc, node, fmt.Sprintf("include depth limit reached, skipping %q", target))
		return
	}
	u.includeDepth++
	err := u.parseFile(resolved, container)
	u.includeDepth--
	if err != nil {
		u.diag(query.SeverityWarning, fc, node, fmt.Sprintf("cannot read include %q: %v", target, err))
	}
}

func (u *unit) resolveInclude(fc *fileCtx, target string, quoted bool) (string, bool) {
	if quoted {
		candidate := filepath.Join(filepath.Dir(fc.path), target)
		if fileExists(candidate) {
			return candidate, true
		}
	}
	for _, dir := range u.includePaths {
		candidate := filepath.Join(dir, target)
		if fileExists(candidate) {
			return candidate, true
		}
	}
	return "", false
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// dispatchPreproc handles the directive subset that affects which
// declarations exist: defines, undefs, and conditional blocks. Taken
// branches are walked with the caller's own walker so the handling works
// identically at file scope and inside record bodies. It reports whether the
// node was a directive.
func (u *unit) dispatchPreproc(fc *fileCtx, node *sitter.Node, walk func([]*sitter.Node)) bool {
	switch node.Type() {
	case "preproc_def":
		name, value := u.macroParts(fc, node)
		if name != "" {
			u.macros[name] = value
		}
		return true
	case "preproc_function_def":
		name, _ := u.macroParts(fc, node)
		if name != "" {
			u.macros[name] = ""
		}
		return true
	case "preproc_call":
		u.handlePreprocCall(fc, node)
		return true
	case "preproc_ifdef":
		u.handleIfdef(fc, node, walk)
		return true
	case "preproc_if":
		u.handleIf(fc, node, walk)
		return true
	}
	return false
}

func (u *unit) macroParts(fc *fileCtx, node *sitter.Node) (string, string) {
	name, value := "", ""
	for _, child := range childrenOf(node) {
		switch child.Type() {
		case "identifier":
			if name == "" {
				name = lang.NodeText(child, fc.source)
			}
		case "preproc_arg":
			value = strings.TrimSpace(lang.NodeText(child, fc.source))
		}
	}
	return name, value
}

// handlePreprocCall covers directives without dedicated grammar nodes.
// Only #undef changes anything we track; #pragma and friends pass by.
func (u *unit) handlePreprocCall(fc *fileCtx, node *sitter.Node) {
	directive, arg := "", ""
	for _, child := range childrenOf(node) {
		switch child.Type() {
		case "preproc_directive":
			directive = lang.NodeText(child, fc.source)
		case "preproc_arg":
			arg = strings.TrimSpace(lang.NodeText(child, fc.source))
		}
	}
	if directive == "#undef" {
		if fields := strings.Fields(arg); len(fields) > 0 {
			delete(u.macros, fields[0])
		}
	}
}

// handleIfdef walks the branch selected by an #ifdef or #ifndef. The two
// directives share a node type; the leading token distinguishes them.
func (u *unit) handleIfdef(fc *fileCtx, node *sitter.Node, walk func([]*sitter.Node)) {
	children := childrenOf(node)
	if len(children) == 0 {
		return
	}
	directive := children[0].Type()

	name := ""
	var body []*sitter.Node
	var alt *sitter.Node
	for _, child := range children[1:] {
		switch child.Type() {
		case "identifier":
			if name == "" {
				name = lang.NodeText(child, fc.source)
				continue
			}
			body = append(body, child)
		case "preproc_else", "preproc_elif", "preproc_elifdef":
			alt = child
		case "#endif":
		default:
			if name != "" {
				body = append(body, child)
			}
		}
	}

	_, defined := u.macros[name]
	taken := defined
	if directive == "#ifndef" {
		taken = !defined
	}
	if taken {
		walk(body)
	} else if alt != nil {
		u.handleElseBranch(fc, alt, walk)
	}
}

// handleIf walks the branch selected by an #if. A condition the evaluator
// cannot settle keeps the consequence branch visible rather than silently
// dropping declarations.
func (u *unit) handleIf(fc *fileCtx, node *sitter.Node, walk func([]*sitter.Node)) {
	var cond *sitter.Node
	var body []*sitter.Node
	var alt *sitter.Node
	for _, child := range childrenOf(node) {
		switch child.Type() {
		case "preproc_else", "preproc_elif", "preproc_elifdef":
			alt = child
		case "#endif", "#if", "#elif", "\n", "comment":
		default:
			if cond == nil && child.IsNamed() {
				cond = child
				continue
			}
			if cond != nil {
				body = append(body, child)
			}
		}
	}

	taken := true
	if cond != nil {
		v, ok := u.evalPreprocCond(fc, cond)
		if ok {
			taken = v != 0
		} else {
			u.diag(query.SeverityNote, fc, cond, "cannot evaluate preprocessor condition, assuming it holds")
		}
	}
	if taken {
		walk(body)
	} else if alt != nil {
		u.handleElseBranch(fc, alt, walk)
	}
}

func (u *unit) handleElseBranch(fc *fileCtx, node *sitter.Node, walk func([]*sitter.Node)) {
	switch node.Type() {
	case "preproc_else":
		var body []*sitter.Node
		for _, child := range childrenOf(node) {
			if child.Type() == "#else" {
				continue
			}
			body = append(body, child)
		}
		walk(body)
	case "preproc_elif":
		u.handleIf(fc, node, walk)
	case "preproc_elifdef":
		u.handleIfdef(fc, node, walk)
	}
}

func (u *unit) diag(sev query.Severity, fc *fileCtx, node *sitter.Node, msg string) {
	line, col := pointOf(node)
	u.diags = append(u.diags, query.Diagnostic{
		Severity: sev, File: fc.path, Line: line, Col: col, Message: msg,
	})
}

// syntaxError records an ERROR node, capped so a binary or generated file
// does not flood the report.
func (u *unit) syntaxError(fc *fileCtx, node *sitter.Node) {
	u.errCount++
	if u.errCount > maxSyntaxErrors {
		return
	}
	msg := "syntax error"
	if u.errCount == maxSyntaxErrors {
		msg = "syntax error (further syntax errors suppressed)"
	}
	u.diag(query.SeverityError, fc, node, msg)
}
