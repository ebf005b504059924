package parse

import (
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/karhunen/abidump/internal/lang"
	"github.com/karhunen/abidump/internal/query"
)

// decl is one declaration cursor in the semantic tree.
type decl struct {
	kind query.CursorKind
	name string

	file string
	line int
	col  int

	typ      ctype
	children []*decl
	anon     bool

	enumVal int64
	eval    query.EvalResult

	// Field declarations keep a handle on their record and layout slot so
	// offset queries can trigger layout on demand.
	owner  *recordType
	member *fieldMember
}

func childrenOf(node *sitter.Node) []*sitter.Node {
	n := int(node.ChildCount())
	out := make([]*sitter.Node, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, node.Child(i))
	}
	return out
}

func pointOf(node *sitter.Node) (int, int) {
	p := node.StartPoint()
	return int(p.Row) + 1, int(p.Column) + 1
}

func kindForKeyword(kw string) query.CursorKind {
	switch kw {
	case "union":
		return query.UnionDecl
	case "class":
		return query.ClassDecl
	}
	return query.StructDecl
}

// walkNodes drives file-scope declarations in document order. Preprocessor
// directives mutate the macro table as they are encountered, so conditionals
// later in the file see the effect of earlier defines and includes.
func (u *unit) walkNodes(fc *fileCtx, nodes []*sitter.Node, container *decl, prefix string) {
	walk := func(inner []*sitter.Node) {
		u.walkNodes(fc, inner, container, prefix)
	}
	for _, node := range nodes {
		switch node.Type() {
		case "declaration":
			u.buildDeclaration(fc, node, container, prefix)
		case "type_definition":
			u.buildTypedef(fc, node, container, prefix)
		case "alias_declaration":
			u.buildAlias(fc, node, container)
		case "struct_specifier", "union_specifier", "class_specifier":
			u.buildRecord(fc, node, container, prefix, "", true)
		case "enum_specifier":
			u.buildEnum(fc, node, container, prefix, "", true)
		case "function_definition":
			u.buildFunctionDefinition(fc, node, container, prefix)
		case "namespace_definition":
			u.buildNamespace(fc, node, container, prefix)
		case "linkage_specification":
			u.buildLinkage(fc, node, container, prefix)
		case "preproc_include":
			u.handleInclude(fc, node, container)
		case "template_declaration", "using_declaration", "static_assert_declaration":
			// Not part of the extracted surface.
		case "comment", ";", "expression_statement":
			// skip
		case "ERROR":
			u.syntaxError(fc, node)
			u.walkNodes(fc, childrenOf(node), container, prefix)
		default:
			u.dispatchPreproc(fc, node, walk)
		}
	}
}

// buildDeclaration handles a file-scope declaration: variables, function
// prototypes, and tagged types declared together with declarators.
func (u *unit) buildDeclaration(fc *fileCtx, node *sitter.Node, container *decl, prefix string) {
	var specNode *sitter.Node
	var declarators []*sitter.Node
	for _, child := range childrenOf(node) {
		switch child.Type() {
		case "primitive_type", "sized_type_specifier", "type_identifier",
			"qualified_identifier", "struct_specifier", "union_specifier",
			"class_specifier", "enum_specifier", "template_type":
			if specNode == nil {
				specNode = child
			}
		case "identifier", "init_declarator", "pointer_declarator",
			"function_declarator", "array_declarator",
			"parenthesized_declarator", "reference_declarator":
			declarators = append(declarators, child)
		}
	}
	if specNode == nil && len(declarators) == 0 {
		return
	}

	var base ctype
	if specNode == nil {
		base = u.builtins[query.TypeInt]
	} else {
		base = u.typeFromSpecifier(fc, specNode, container, prefix, "", len(declarators) == 0)
	}

	for _, dn := range declarators {
		typ, nameNode, initNode := u.resolveDeclarator(fc, base, dn)
		if nameNode == nil {
			continue
		}
		name := lang.NodeText(nameNode, fc.source)
		line, col := pointOf(nameNode)

		if ft, ok := typ.(*funcType); ok {
			kind := query.FunctionDecl
			if nameNode.Type() == "qualified_identifier" {
				// Out-of-line member definition, not a free function.
				kind = query.MethodDecl
			}
			container.children = append(container.children, &decl{
				kind: kind, name: name, file: fc.path, line: line, col: col, typ: ft,
			})
			continue
		}

		d := &decl{kind: query.VarDecl, name: name, file: fc.path, line: line, col: col, typ: typ}
		if initNode != nil {
			if ev, ok := u.evalConst(fc, initNode); ok {
				d.eval = ev
				u.constVars[name] = ev
			}
		}
		container.children = append(container.children, d)
	}
}

// typeFromSpecifier resolves the type-specifier part of a declaration.
// Record and enum specifiers with bodies define their type here; bare
// specifiers with no declarators become forward declarations.
func (u *unit) typeFromSpecifier(fc *fileCtx, node *sitter.Node, container *decl, prefix, adoptName string, bare bool) ctype {
	switch node.Type() {
	case "primitive_type":
		text := lang.NodeText(node, fc.source)
		if b, ok := u.builtinNames[text]; ok {
			return b
		}
		if td, ok := u.typedefs[text]; ok {
			return td
		}
		return &unresolvedType{name: text}
	case "sized_type_specifier":
		return u.sizedType(lang.NodeText(node, fc.source))
	case "type_identifier":
		text := lang.NodeText(node, fc.source)
		if td, ok := u.typedefs[text]; ok {
			return td
		}
		if rec, ok := u.structTags[text]; ok {
			return rec
		}
		if et, ok := u.enumTags[text]; ok {
			return et
		}
		return &unresolvedType{name: text}
	case "qualified_identifier":
		text := lang.NodeText(node, fc.source)
		if td, ok := u.typedefs[text]; ok {
			return td
		}
		if i := strings.LastIndex(text, "::"); i >= 0 {
			last := text[i+2:]
			if td, ok := u.typedefs[last]; ok {
				return td
			}
			if rec, ok := u.structTags[last]; ok {
				return rec
			}
		}
		return &unresolvedType{name: text}
	case "struct_specifier", "union_specifier", "class_specifier":
		return u.buildRecord(fc, node, container, prefix, adoptName, bare)
	case "enum_specifier":
		return u.buildEnum(fc, node, container, prefix, adoptName, bare)
	}
	return &unresolvedType{name: strings.Join(strings.Fields(lang.NodeText(node, fc.source)), " ")}
}

// buildRecord materializes a struct, union, or class specifier. The tag
// table hands back one shared object per tag, so forward references and the
// eventual definition agree on identity. Redefinition re-points the
// definition link, which makes the later declaration win.
func (u *unit) buildRecord(fc *fileCtx, node *sitter.Node, container *decl, prefix, adoptName string, bare bool) ctype {
	kw := strings.TrimSuffix(node.Type(), "_specifier")
	var tagNode, bodyNode *sitter.Node
	for _, child := range childrenOf(node) {
		switch child.Type() {
		case "type_identifier":
			if tagNode == nil {
				tagNode = child
			}
		case "field_declaration_list":
			bodyNode = child
		}
	}

	line, col := pointOf(node)
	tag := ""
	if tagNode != nil {
		tag = lang.NodeText(tagNode, fc.source)
	}

	var rec *recordType
	if tag != "" {
		rec = u.structTags[tag]
		if rec == nil {
			rec = &recordType{kw: kw, tag: tag, spell: tag}
			u.structTags[tag] = rec
			u.records = append(u.records, rec)
		}
	} else {
		rec = &recordType{kw: kw}
		u.records = append(u.records, rec)
		if adoptName != "" {
			rec.spell = adoptName
		} else {
			rec.anon = true
			rec.spell = fmt.Sprintf("%s(anonymous %s at %s:%d:%d)", prefix, kw, fc.path, line, col)
		}
	}

	if bodyNode == nil {
		if bare && tag != "" && container != nil {
			container.children = append(container.children, &decl{
				kind: kindForKeyword(kw), name: tag,
				file: fc.path, line: line, col: col, typ: rec,
			})
		}
		return rec
	}

	if rec.complete {
		rec.fields = nil
		rec.laidOut = false
	}
	rec.complete = true
	rec.kw = kw

	name := tag
	if name == "" {
		name = adoptName
	}
	d := &decl{
		kind: kindForKeyword(kw), name: name, anon: rec.anon,
		file: fc.path, line: line, col: col, typ: rec,
	}
	rec.def = d
	if container != nil {
		container.children = append(container.children, d)
	}
	u.walkMembers(fc, childrenOf(bodyNode), rec, d, rec.spell+"::")
	return rec
}

// walkMembers drives the body of a record definition, including nested
// types and preprocessor conditionals between members.
func (u *unit) walkMembers(fc *fileCtx, nodes []*sitter.Node, rec *recordType, d *decl, prefix string) {
	walk := func(inner []*sitter.Node) {
		u.walkMembers(fc, inner, rec, d, prefix)
	}
	for _, node := range nodes {
		switch node.Type() {
		case "field_declaration", "declaration":
			u.buildMember(fc, node, rec, d, prefix)
		case "function_definition":
			u.buildMethodDefinition(fc, node, d)
		case "struct_specifier", "union_specifier", "class_specifier":
			t := u.buildRecord(fc, node, d, prefix, "", true)
			if nested, ok := t.(*recordType); ok && nested.anon && nested.complete {
				rec.fields = append(rec.fields, &fieldMember{typ: nested})
			}
		case "enum_specifier":
			u.buildEnum(fc, node, d, prefix, "", true)
		case "type_definition":
			u.buildTypedef(fc, node, d, prefix)
		case "alias_declaration":
			u.buildAlias(fc, node, d)
		case "access_specifier", "friend_declaration", "template_declaration",
			"using_declaration", "static_assert_declaration":
			// skip
		case "comment", ";", "{", "}":
			// skip
		case "ERROR":
			u.syntaxError(fc, node)
			u.walkMembers(fc, childrenOf(node), rec, d, prefix)
		default:
			u.dispatchPreproc(fc, node, walk)
		}
	}
}

// buildMember handles one member declaration inside a record body: data
// fields, bit-fields, nested anonymous members, methods, and static data
// members.
func (u *unit) buildMember(fc *fileCtx, node *sitter.Node, rec *recordType, d *decl, prefix string) {
	var specNode, bitfieldNode, valueNode *sitter.Node
	var declarators []*sitter.Node
	isStatic := false
	sawEq := false
	for _, child := range childrenOf(node) {
		switch child.Type() {
		case "primitive_type", "sized_type_specifier", "type_identifier",
			"qualified_identifier", "struct_specifier", "union_specifier",
			"class_specifier", "enum_specifier", "template_type":
			if specNode == nil {
				specNode = child
			}
		case "field_identifier", "identifier", "init_declarator",
			"pointer_declarator", "function_declarator", "array_declarator",
			"parenthesized_declarator", "reference_declarator":
			declarators = append(declarators, child)
		case "bitfield_clause":
			bitfieldNode = child
		case "storage_class_specifier":
			if lang.NodeText(child, fc.source) == "static" {
				isStatic = true
			}
		case "=":
			// In-class initializers hang off the member declaration itself
			// rather than an init_declarator.
			sawEq = true
		default:
			if sawEq && valueNode == nil && child.IsNamed() && child.Type() != "comment" {
				valueNode = child
			}
		}
	}
	if specNode == nil && len(declarators) == 0 {
		return
	}

	var base ctype
	if specNode == nil {
		base = u.builtins[query.TypeInt]
	} else {
		base = u.typeFromSpecifier(fc, specNode, d, prefix, "", len(declarators) == 0)
	}

	var width int64 = -1
	if bitfieldNode != nil {
		width = 0
		if expr := firstNamedChild(bitfieldNode); expr != nil {
			if v, ok := u.evalConst(fc, expr); ok && v.Kind == query.EvalInt {
				width = v.Int
			} else {
				u.diag(query.SeverityWarning, fc, bitfieldNode, "cannot evaluate bit-field width")
			}
		}
	}

	if len(declarators) == 0 {
		switch {
		case bitfieldNode != nil:
			// Unnamed bit-field: layout only, no cursor.
			rec.fields = append(rec.fields, &fieldMember{typ: base, isBitfield: true, width: width})
		default:
			if nested, ok := base.(*recordType); ok && nested.anon && nested.complete {
				// Anonymous member, occupies storage.
				rec.fields = append(rec.fields, &fieldMember{typ: nested})
			}
		}
		return
	}

	for _, dn := range declarators {
		typ, nameNode, initNode := u.resolveDeclarator(fc, base, dn)
		name := ""
		line, col := pointOf(dn)
		if nameNode != nil {
			name = lang.NodeText(nameNode, fc.source)
			line, col = pointOf(nameNode)
		}

		if ft, ok := typ.(*funcType); ok {
			d.children = append(d.children, &decl{
				kind: query.MethodDecl, name: name, file: fc.path, line: line, col: col, typ: ft,
			})
			continue
		}
		if isStatic {
			init := initNode
			if init == nil {
				init = valueNode
			}
			sd := &decl{kind: query.VarDecl, name: name, file: fc.path, line: line, col: col, typ: typ}
			if init != nil {
				if ev, ok := u.evalConst(fc, init); ok {
					sd.eval = ev
					u.constVars[name] = ev
				}
			}
			d.children = append(d.children, sd)
			continue
		}
		if nameNode == nil {
			continue
		}

		fm := &fieldMember{name: name, typ: typ, isBitfield: bitfieldNode != nil, width: width}
		fd := &decl{
			kind: query.FieldDecl, name: name, file: fc.path, line: line, col: col,
			typ: typ, owner: rec, member: fm,
		}
		fm.d = fd
		rec.fields = append(rec.fields, fm)
		d.children = append(d.children, fd)
	}
}

func (u *unit) buildMethodDefinition(fc *fileCtx, node *sitter.Node, d *decl) {
	for _, child := range childrenOf(node) {
		if child.Type() == "function_declarator" {
			_, nameNode, _ := u.resolveDeclarator(fc, u.builtins[query.TypeInt], child)
			name := ""
			if nameNode != nil {
				name = lang.NodeText(nameNode, fc.source)
			}
			line, col := pointOf(node)
			d.children = append(d.children, &decl{
				kind: query.MethodDecl, name: name, file: fc.path, line: line, col: col,
			})
			return
		}
	}
}

// buildEnum materializes an enum specifier, assigning enumerator values with
// the usual previous-plus-one rule.
func (u *unit) buildEnum(fc *fileCtx, node *sitter.Node, container *decl, prefix, adoptName string, bare bool) ctype {
	var tagNode, bodyNode, baseNode *sitter.Node
	sawColon := false
	for _, child := range childrenOf(node) {
		switch child.Type() {
		case ":":
			sawColon = true
		case "type_identifier":
			if sawColon {
				if baseNode == nil {
					baseNode = child
				}
			} else if tagNode == nil {
				tagNode = child
			}
		case "primitive_type", "sized_type_specifier", "qualified_identifier":
			if sawColon && baseNode == nil {
				baseNode = child
			}
		case "enumerator_list":
			bodyNode = child
		}
	}

	line, col := pointOf(node)
	tag := ""
	if tagNode != nil {
		tag = lang.NodeText(tagNode, fc.source)
	}

	var et *enumType
	if tag != "" {
		et = u.enumTags[tag]
		if et == nil {
			et = &enumType{tag: tag, spell: tag}
			u.enumTags[tag] = et
		}
	} else {
		et = &enumType{}
		if adoptName != "" {
			et.spell = adoptName
		} else {
			et.anon = true
			et.spell = fmt.Sprintf("%s(anonymous enum at %s:%d:%d)", prefix, fc.path, line, col)
		}
	}
	if baseNode != nil {
		et.base = u.typeFromSpecifier(fc, baseNode, nil, prefix, "", false)
	}

	if bodyNode == nil {
		if bare && tag != "" && container != nil {
			container.children = append(container.children, &decl{
				kind: query.EnumDecl, name: tag, file: fc.path, line: line, col: col, typ: et,
			})
		}
		return et
	}

	et.complete = true
	name := tag
	if name == "" {
		name = adoptName
	}
	d := &decl{
		kind: query.EnumDecl, name: name, anon: et.anon,
		file: fc.path, line: line, col: col, typ: et,
	}
	et.def = d
	if container != nil {
		container.children = append(container.children, d)
	}

	var next int64
	for _, child := range childrenOf(bodyNode) {
		if child.Type() != "enumerator" {
			continue
		}
		var nameNode, valueNode *sitter.Node
		for _, part := range childrenOf(child) {
			switch {
			case part.Type() == "identifier" && nameNode == nil:
				nameNode = part
			case part.IsNamed() && part.Type() != "comment" && nameNode != nil:
				valueNode = part
			}
		}
		if nameNode == nil {
			continue
		}
		if valueNode != nil {
			if v, ok := u.evalConst(fc, valueNode); ok && v.Kind == query.EvalInt {
				next = v.Int
			} else {
				u.diag(query.SeverityWarning, fc, valueNode,
					fmt.Sprintf("cannot evaluate enumerator %q, continuing from previous value", lang.NodeText(nameNode, fc.source)))
			}
		}
		eline, ecol := pointOf(nameNode)
		ed := &decl{
			kind: query.EnumConstantDecl, name: lang.NodeText(nameNode, fc.source),
			file: fc.path, line: eline, col: ecol, typ: et, enumVal: next,
		}
		d.children = append(d.children, ed)
		u.enumerators[ed.name] = ed
		next++
	}
	return et
}

// buildTypedef registers typedef names. An anonymous record or enum defined
// directly in a typedef adopts the first plain typedef name as its own.
func (u *unit) buildTypedef(fc *fileCtx, node *sitter.Node, container *decl, prefix string) {
	var specNode *sitter.Node
	var declarators []*sitter.Node
	for _, child := range childrenOf(node) {
		switch child.Type() {
		case "primitive_type", "sized_type_specifier",
			"struct_specifier", "union_specifier", "class_specifier",
			"enum_specifier", "template_type", "qualified_identifier":
			if specNode == nil {
				specNode = child
			}
		case "type_identifier":
			// The first type_identifier may be the source type, the rest are
			// the declared names. A preceding specifier disambiguates.
			if specNode == nil {
				specNode = child
			} else {
				declarators = append(declarators, child)
			}
		case "pointer_declarator", "function_declarator", "array_declarator",
			"parenthesized_declarator", "reference_declarator":
			declarators = append(declarators, child)
		}
	}
	if specNode == nil {
		return
	}

	adoptName := ""
	for _, dn := range declarators {
		if dn.Type() == "type_identifier" {
			adoptName = lang.NodeText(dn, fc.source)
			break
		}
	}

	base := u.typeFromSpecifier(fc, specNode, container, prefix, adoptName, false)
	for _, dn := range declarators {
		typ, nameNode, _ := u.resolveDeclarator(fc, base, dn)
		if nameNode == nil {
			continue
		}
		name := lang.NodeText(nameNode, fc.source)
		line, col := pointOf(nameNode)
		td := &typedefType{name: name, under: typ}
		u.typedefs[name] = td
		if container != nil {
			container.children = append(container.children, &decl{
				kind: query.TypedefDecl, name: name, file: fc.path, line: line, col: col, typ: td,
			})
		}
	}
}

// buildAlias handles C++ `using Name = Type;` as a typedef.
func (u *unit) buildAlias(fc *fileCtx, node *sitter.Node, container *decl) {
	var nameNode, descNode *sitter.Node
	for _, child := range childrenOf(node) {
		switch child.Type() {
		case "type_identifier":
			if nameNode == nil {
				nameNode = child
			}
		case "type_descriptor":
			descNode = child
		}
	}
	if nameNode == nil || descNode == nil {
		return
	}
	name := lang.NodeText(nameNode, fc.source)
	line, col := pointOf(nameNode)
	td := &typedefType{name: name, under: u.parseTypeDescriptor(fc, descNode)}
	u.typedefs[name] = td
	if container != nil {
		container.children = append(container.children, &decl{
			kind: query.TypedefDecl, name: name, file: fc.path, line: line, col: col, typ: td,
		})
	}
}

// buildFunctionDefinition records the prototype of a function defined with a
// body. The body itself is not walked; local declarations stay invisible.
func (u *unit) buildFunctionDefinition(fc *fileCtx, node *sitter.Node, container *decl, prefix string) {
	var specNode, declNode *sitter.Node
	for _, child := range childrenOf(node) {
		switch child.Type() {
		case "primitive_type", "sized_type_specifier", "type_identifier",
			"qualified_identifier", "struct_specifier", "union_specifier",
			"class_specifier", "enum_specifier":
			if specNode == nil {
				specNode = child
			}
		case "function_declarator", "pointer_declarator", "reference_declarator",
			"parenthesized_declarator":
			if declNode == nil {
				declNode = child
			}
		}
	}
	if declNode == nil {
		return
	}
	var base ctype
	if specNode == nil {
		base = u.builtins[query.TypeInt]
	} else {
		base = u.typeFromSpecifier(fc, specNode, container, prefix, "", false)
	}
	typ, nameNode, _ := u.resolveDeclarator(fc, base, declNode)
	ft, ok := typ.(*funcType)
	if !ok || nameNode == nil {
		return
	}
	name := lang.NodeText(nameNode, fc.source)
	line, col := pointOf(nameNode)
	kind := query.FunctionDecl
	if nameNode.Type() == "qualified_identifier" {
		kind = query.MethodDecl
	}
	container.children = append(container.children, &decl{
		kind: kind, name: name, file: fc.path, line: line, col: col, typ: ft,
	})
}

func (u *unit) buildNamespace(fc *fileCtx, node *sitter.Node, container *decl, prefix string) {
	name := ""
	var bodyNode *sitter.Node
	for _, child := range childrenOf(node) {
		switch child.Type() {
		case "identifier", "namespace_identifier":
			name = lang.NodeText(child, fc.source)
		case "declaration_list":
			bodyNode = child
		}
	}
	line, col := pointOf(node)
	d := &decl{kind: query.Namespace, name: name, file: fc.path, line: line, col: col}
	container.children = append(container.children, d)
	if bodyNode == nil {
		return
	}
	childPrefix := prefix
	if name != "" {
		childPrefix = prefix + name + "::"
	}
	u.walkNodes(fc, childrenOf(bodyNode), d, childPrefix)
}

func (u *unit) buildLinkage(fc *fileCtx, node *sitter.Node, container *decl, prefix string) {
	line, col := pointOf(node)
	d := &decl{kind: query.LinkageSpec, file: fc.path, line: line, col: col}
	container.children = append(container.children, d)
	for _, child := range childrenOf(node) {
		switch child.Type() {
		case "string_literal":
			d.name = stringLiteralValue(lang.NodeText(child, fc.source))
		case "declaration_list":
			u.walkNodes(fc, childrenOf(child), d, prefix)
		case "declaration", "type_definition", "struct_specifier", "union_specifier",
			"class_specifier", "enum_specifier", "function_definition":
			u.walkNodes(fc, []*sitter.Node{child}, d, prefix)
		}
	}
}

// resolveDeclarator applies the inside-out C declarator rules: each wrapping
// declarator transforms the base type, and recursion bottoms out at the
// declared name. It returns the final type, the name node (nil for abstract
// declarators), and the initializer expression when one is present.
func (u *unit) resolveDeclarator(fc *fileCtx, base ctype, node *sitter.Node) (ctype, *sitter.Node, *sitter.Node) {
	switch node.Type() {
	case "identifier", "field_identifier", "type_identifier", "operator_name", "qualified_identifier":
		return base, node, nil

	case "init_declarator":
		var inner, value *sitter.Node
		for _, child := range childrenOf(node) {
			if !child.IsNamed() || child.Type() == "comment" {
				continue
			}
			if inner == nil {
				inner = child
			} else {
				value = child
			}
		}
		if inner == nil {
			return base, nil, nil
		}
		t, name, _ := u.resolveDeclarator(fc, base, inner)
		return t, name, value

	case "pointer_declarator", "abstract_pointer_declarator":
		next := &pointerType{to: base}
		inner := declaratorChild(node)
		if inner == nil {
			return next, nil, nil
		}
		return u.resolveDeclarator(fc, next, inner)

	case "reference_declarator", "abstract_reference_declarator":
		rvalue := false
		for _, child := range childrenOf(node) {
			if child.Type() == "&&" {
				rvalue = true
			}
		}
		next := &refType{to: base, rvalue: rvalue}
		inner := declaratorChild(node)
		if inner == nil {
			return next, nil, nil
		}
		return u.resolveDeclarator(fc, next, inner)

	case "array_declarator", "abstract_array_declarator":
		at := &arrayType{elem: base, incomplete: true}
		if expr := arraySizeExpr(node); expr != nil {
			if v, ok := u.evalConst(fc, expr); ok && v.Kind == query.EvalInt && v.Int >= 0 {
				at.count = v.Int
				at.incomplete = false
			} else {
				u.diag(query.SeverityWarning, fc, expr, "cannot evaluate array length")
			}
		}
		inner := declaratorChild(node)
		if inner == nil {
			return at, nil, nil
		}
		return u.resolveDeclarator(fc, at, inner)

	case "function_declarator", "abstract_function_declarator":
		params, variadic, noProto := u.parseParameterList(fc, node)
		ft := &funcType{params: params, ret: base, variadic: variadic, noProto: noProto}
		inner := declaratorChild(node)
		if inner == nil {
			return ft, nil, nil
		}
		return u.resolveDeclarator(fc, ft, inner)

	case "parenthesized_declarator", "abstract_parenthesized_declarator":
		inner := declaratorChild(node)
		if inner == nil {
			return base, nil, nil
		}
		return u.resolveDeclarator(fc, base, inner)
	}
	return base, nil, nil
}

func isDeclaratorNode(t string) bool {
	switch t {
	case "identifier", "field_identifier", "type_identifier", "operator_name",
		"qualified_identifier", "init_declarator",
		"pointer_declarator", "abstract_pointer_declarator",
		"reference_declarator", "abstract_reference_declarator",
		"array_declarator", "abstract_array_declarator",
		"function_declarator", "abstract_function_declarator",
		"parenthesized_declarator", "abstract_parenthesized_declarator":
		return true
	}
	return false
}

// declaratorChild finds the nested declarator inside a wrapping declarator.
func declaratorChild(node *sitter.Node) *sitter.Node {
	for _, child := range childrenOf(node) {
		if isDeclaratorNode(child.Type()) {
			return child
		}
	}
	return nil
}

// arraySizeExpr returns the size expression of an array declarator, skipping
// the nested declarator and qualifier tokens.
func arraySizeExpr(node *sitter.Node) *sitter.Node {
	for _, child := range childrenOf(node) {
		if isDeclaratorNode(child.Type()) {
			continue
		}
		if child.IsNamed() && child.Type() != "comment" && child.Type() != "type_qualifier" {
			return child
		}
	}
	return nil
}

// parseParameterList resolves parameter types. A C parameter list with no
// parameters at all is an old-style unprototyped declaration; a lone void
// means an explicit empty prototype.
func (u *unit) parseParameterList(fc *fileCtx, declNode *sitter.Node) ([]ctype, bool, bool) {
	var listNode *sitter.Node
	for _, child := range childrenOf(declNode) {
		if child.Type() == "parameter_list" {
			listNode = child
			break
		}
	}
	params := []ctype{}
	variadic := false
	if listNode == nil {
		return params, false, u.dialect.Name == "c"
	}

	count := 0
	for _, child := range childrenOf(listNode) {
		switch child.Type() {
		case "parameter_declaration", "optional_parameter_declaration":
			count++
			if t := u.parseParameter(fc, child); t != nil {
				params = append(params, t)
			}
		case "variadic_parameter", "...":
			variadic = true
		}
	}

	if count == 1 && len(params) == 1 && !variadic {
		if b, ok := canonicalOf(params[0]).(*builtinType); ok && b.kind == query.TypeVoid {
			return []ctype{}, false, false
		}
	}
	noProto := count == 0 && !variadic && u.dialect.Name == "c"
	return params, variadic, noProto
}

func (u *unit) parseParameter(fc *fileCtx, node *sitter.Node) ctype {
	var specNode, declNode *sitter.Node
	for _, child := range childrenOf(node) {
		switch child.Type() {
		case "primitive_type", "sized_type_specifier", "type_identifier",
			"qualified_identifier", "struct_specifier", "union_specifier",
			"class_specifier", "enum_specifier", "template_type":
			if specNode == nil {
				specNode = child
			}
		case "identifier", "pointer_declarator", "function_declarator",
			"array_declarator", "parenthesized_declarator", "reference_declarator",
			"abstract_pointer_declarator", "abstract_function_declarator",
			"abstract_array_declarator", "abstract_parenthesized_declarator",
			"abstract_reference_declarator":
			if declNode == nil {
				declNode = child
			}
		}
	}
	if specNode == nil {
		return nil
	}
	base := u.typeFromSpecifier(fc, specNode, nil, "", "", false)
	if declNode == nil {
		return base
	}
	t, _, _ := u.resolveDeclarator(fc, base, declNode)
	return t
}

// parseTypeDescriptor resolves a type written without a declared name, as in
// casts, sizeof, and alias declarations.
func (u *unit) parseTypeDescriptor(fc *fileCtx, node *sitter.Node) ctype {
	var specNode, declNode *sitter.Node
	for _, child := range childrenOf(node) {
		switch child.Type() {
		case "primitive_type", "sized_type_specifier", "type_identifier",
			"qualified_identifier", "struct_specifier", "union_specifier",
			"class_specifier", "enum_specifier", "template_type":
			if specNode == nil {
				specNode = child
			}
		case "abstract_pointer_declarator", "abstract_function_declarator",
			"abstract_array_declarator", "abstract_parenthesized_declarator",
			"abstract_reference_declarator":
			if declNode == nil {
				declNode = child
			}
		}
	}
	if specNode == nil {
		return &unresolvedType{name: strings.Join(strings.Fields(lang.NodeText(node, fc.source)), " ")}
	}
	base := u.typeFromSpecifier(fc, specNode, nil, "", "", false)
	if declNode == nil {
		return base
	}
	t, _, _ := u.resolveDeclarator(fc, base, declNode)
	return t
}

// sizedType maps a sized specifier like "unsigned long long int" onto the
// builtin it names.
func (u *unit) sizedType(text string) ctype {
	unsigned := false
	longs := 0
	short := false
	base := ""
	for _, f := range strings.Fields(text) {
		switch f {
		case "unsigned":
			unsigned = true
		case "signed":
		case "long":
			longs++
		case "short":
			short = true
		case "int", "char", "double", "float", "_Bool", "bool":
			base = f
		}
	}

	var kind query.TypeKind
	switch {
	case base == "char":
		kind = query.TypeSChar
		if unsigned {
			kind = query.TypeUChar
		}
	case base == "double":
		kind = query.TypeDouble
		if longs > 0 {
			kind = query.TypeLongDouble
		}
	case base == "float":
		kind = query.TypeFloat
	case base == "_Bool" || base == "bool":
		kind = query.TypeBool
	case short:
		kind = query.TypeShort
		if unsigned {
			kind = query.TypeUShort
		}
	case longs >= 2:
		kind = query.TypeLongLong
		if unsigned {
			kind = query.TypeULongLong
		}
	case longs == 1:
		kind = query.TypeLong
		if unsigned {
			kind = query.TypeULong
		}
	default:
		kind = query.TypeInt
		if unsigned {
			kind = query.TypeUInt
		}
	}
	return u.builtins[kind]
}
