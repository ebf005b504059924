package parse

import (
	"strconv"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/karhunen/abidump/internal/lang"
	"github.com/karhunen/abidump/internal/query"
)

// evalConst evaluates an initializer or enumerator expression against the
// unit's enumerators, previously evaluated constants, and object-like macros.
// The second return is false when the expression is not a compile-time
// constant we understand.
func (u *unit) evalConst(fc *fileCtx, node *sitter.Node) (query.EvalResult, bool) {
	return u.evalExpr(fc, node, false)
}

// evalPreprocCond evaluates an #if or #elif condition. Undefined identifiers
// evaluate to zero, as the C preprocessor specifies.
func (u *unit) evalPreprocCond(fc *fileCtx, node *sitter.Node) (int64, bool) {
	res, ok := u.evalExpr(fc, node, true)
	if !ok {
		return 0, false
	}
	switch res.Kind {
	case query.EvalInt:
		return res.Int, true
	case query.EvalFloat:
		return int64(res.Float), true
	}
	return 0, false
}

func (u *unit) evalExpr(fc *fileCtx, node *sitter.Node, preproc bool) (query.EvalResult, bool) {
	switch node.Type() {
	case "number_literal":
		return parseNumberLiteral(lang.NodeText(node, fc.source))

	case "char_literal":
		v, ok := parseCharLiteral(lang.NodeText(node, fc.source))
		if !ok {
			return query.EvalResult{}, false
		}
		return query.EvalResult{Kind: query.EvalInt, Int: v}, true

	case "string_literal":
		if preproc {
			return query.EvalResult{}, false
		}
		return query.EvalResult{Kind: query.EvalString, Str: stringLiteralValue(lang.NodeText(node, fc.source))}, true

	case "concatenated_string":
		if preproc {
			return query.EvalResult{}, false
		}
		var b strings.Builder
		for i := 0; i < int(node.ChildCount()); i++ {
			child := node.Child(i)
			if child.Type() == "string_literal" {
				b.WriteString(stringLiteralValue(lang.NodeText(child, fc.source)))
			}
		}
		return query.EvalResult{Kind: query.EvalString, Str: b.String()}, true

	case "true":
		return query.EvalResult{Kind: query.EvalInt, Int: 1}, true
	case "false":
		return query.EvalResult{Kind: query.EvalInt, Int: 0}, true

	case "identifier":
		name := lang.NodeText(node, fc.source)
		if preproc {
			if val, ok := u.macros[name]; ok {
				return macroValue(val)
			}
			// Undefined identifiers in preprocessor conditions are zero.
			return query.EvalResult{Kind: query.EvalInt}, true
		}
		return u.lookupConstant(name)

	case "qualified_identifier":
		if preproc {
			return query.EvalResult{}, false
		}
		text := lang.NodeText(node, fc.source)
		if i := strings.LastIndex(text, "::"); i >= 0 {
			text = text[i+2:]
		}
		return u.lookupConstant(text)

	case "preproc_defined":
		for i := 0; i < int(node.ChildCount()); i++ {
			child := node.Child(i)
			if child.Type() == "identifier" {
				if _, ok := u.macros[lang.NodeText(child, fc.source)]; ok {
					return query.EvalResult{Kind: query.EvalInt, Int: 1}, true
				}
				return query.EvalResult{Kind: query.EvalInt, Int: 0}, true
			}
		}
		return query.EvalResult{}, false

	case "parenthesized_expression", "preproc_parenthesized_expression":
		inner := firstNamedChild(node)
		if inner == nil {
			return query.EvalResult{}, false
		}
		return u.evalExpr(fc, inner, preproc)

	case "unary_expression", "preproc_unary_expression":
		operand := firstNamedChild(node)
		if operand == nil {
			return query.EvalResult{}, false
		}
		op := ""
		for i := 0; i < int(node.ChildCount()); i++ {
			child := node.Child(i)
			if !child.IsNamed() {
				op = child.Type()
				break
			}
		}
		val, ok := u.evalExpr(fc, operand, preproc)
		if !ok {
			return query.EvalResult{}, false
		}
		return applyUnary(op, val)

	case "binary_expression", "preproc_binary_expression":
		var left, right *sitter.Node
		op := ""
		for i := 0; i < int(node.ChildCount()); i++ {
			child := node.Child(i)
			if child.Type() == "comment" {
				continue
			}
			if child.IsNamed() {
				if left == nil {
					left = child
				} else {
					right = child
				}
			} else if left != nil && right == nil {
				op = child.Type()
			}
		}
		if left == nil || right == nil || op == "" {
			return query.EvalResult{}, false
		}
		lv, ok := u.evalExpr(fc, left, preproc)
		if !ok {
			return query.EvalResult{}, false
		}
		// Short-circuit so `defined(X) && X > 2` never divides by a missing
		// macro and junk right-hand sides stay harmless.
		if op == "&&" && isZero(lv) {
			return query.EvalResult{Kind: query.EvalInt}, true
		}
		if op == "||" && !isZero(lv) && lv.Kind != query.EvalString {
			return query.EvalResult{Kind: query.EvalInt, Int: 1}, true
		}
		rv, ok := u.evalExpr(fc, right, preproc)
		if !ok {
			return query.EvalResult{}, false
		}
		return applyBinary(op, lv, rv)

	case "conditional_expression":
		var parts []*sitter.Node
		for i := 0; i < int(node.ChildCount()); i++ {
			child := node.Child(i)
			if child.IsNamed() && child.Type() != "comment" {
				parts = append(parts, child)
			}
		}
		if len(parts) != 3 {
			return query.EvalResult{}, false
		}
		cond, ok := u.evalExpr(fc, parts[0], preproc)
		if !ok {
			return query.EvalResult{}, false
		}
		if isZero(cond) {
			return u.evalExpr(fc, parts[2], preproc)
		}
		return u.evalExpr(fc, parts[1], preproc)

	case "cast_expression":
		var desc, value *sitter.Node
		for i := 0; i < int(node.ChildCount()); i++ {
			child := node.Child(i)
			switch {
			case child.Type() == "type_descriptor":
				desc = child
			case child.IsNamed() && child.Type() != "comment":
				value = child
			}
		}
		if value == nil {
			return query.EvalResult{}, false
		}
		val, ok := u.evalExpr(fc, value, preproc)
		if !ok {
			return query.EvalResult{}, false
		}
		if desc != nil {
			val = u.applyCast(fc, desc, val)
		}
		return val, true

	case "sizeof_expression":
		for i := 0; i < int(node.ChildCount()); i++ {
			child := node.Child(i)
			if child.Type() == "type_descriptor" {
				sz := u.sizeOf(u.parseTypeDescriptor(fc, child))
				if sz < 0 {
					return query.EvalResult{}, false
				}
				return query.EvalResult{Kind: query.EvalInt, Int: sz}, true
			}
		}
		return query.EvalResult{}, false
	}

	return query.EvalResult{}, false
}

// lookupConstant resolves a name used in a semantic constant expression.
// Macros come last: the syntax tree is unpreprocessed, so a macro used as an
// array length or enumerator value is still an identifier here.
func (u *unit) lookupConstant(name string) (query.EvalResult, bool) {
	if d, ok := u.enumerators[name]; ok {
		return query.EvalResult{Kind: query.EvalInt, Int: d.enumVal}, true
	}
	if ev, ok := u.constVars[name]; ok {
		return ev, true
	}
	if val, ok := u.macros[name]; ok {
		return macroValue(val)
	}
	return query.EvalResult{}, false
}

// applyCast converts an evaluated value to the named type when the type is
// arithmetic. Casts to types we cannot resolve pass the value through.
func (u *unit) applyCast(fc *fileCtx, desc *sitter.Node, val query.EvalResult) query.EvalResult {
	t := canonicalOf(u.parseTypeDescriptor(fc, desc))
	b, ok := t.(*builtinType)
	if !ok {
		return val
	}
	switch b.kind {
	case query.TypeFloat, query.TypeDouble, query.TypeLongDouble:
		if val.Kind == query.EvalInt {
			return query.EvalResult{Kind: query.EvalFloat, Float: float64(val.Int)}
		}
	case query.TypeVoid:
		return val
	default:
		if val.Kind == query.EvalFloat {
			return query.EvalResult{Kind: query.EvalInt, Int: int64(val.Float)}
		}
	}
	return val
}

// macroValue interprets an object-like macro body as a constant. Bodies that
// are a single (possibly parenthesized) literal evaluate to that literal;
// any other non-empty body counts as "defined and true".
func macroValue(body string) (query.EvalResult, bool) {
	s := strings.TrimSpace(body)
	for strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	if s == "" {
		return query.EvalResult{Kind: query.EvalInt, Int: 1}, true
	}
	if res, ok := parseNumberLiteral(s); ok {
		return res, true
	}
	if v, ok := parseCharLiteral(s); ok {
		return query.EvalResult{Kind: query.EvalInt, Int: v}, true
	}
	return query.EvalResult{Kind: query.EvalInt, Int: 1}, true
}

func isZero(v query.EvalResult) bool {
	switch v.Kind {
	case query.EvalInt:
		return v.Int == 0
	case query.EvalFloat:
		return v.Float == 0
	}
	return false
}

func applyUnary(op string, v query.EvalResult) (query.EvalResult, bool) {
	switch op {
	case "+":
		return v, v.Kind == query.EvalInt || v.Kind == query.EvalFloat
	case "-":
		switch v.Kind {
		case query.EvalInt:
			return query.EvalResult{Kind: query.EvalInt, Int: -v.Int}, true
		case query.EvalFloat:
			return query.EvalResult{Kind: query.EvalFloat, Float: -v.Float}, true
		}
	case "!":
		if v.Kind == query.EvalInt || v.Kind == query.EvalFloat {
			if isZero(v) {
				return query.EvalResult{Kind: query.EvalInt, Int: 1}, true
			}
			return query.EvalResult{Kind: query.EvalInt}, true
		}
	case "~":
		if v.Kind == query.EvalInt {
			return query.EvalResult{Kind: query.EvalInt, Int: ^v.Int}, true
		}
	}
	return query.EvalResult{}, false
}

func applyBinary(op string, l, r query.EvalResult) (query.EvalResult, bool) {
	if l.Kind == query.EvalString || r.Kind == query.EvalString {
		return query.EvalResult{}, false
	}
	if l.Kind == query.EvalFloat || r.Kind == query.EvalFloat {
		return applyBinaryFloat(op, asFloat(l), asFloat(r))
	}
	return applyBinaryInt(op, l.Int, r.Int)
}

func asFloat(v query.EvalResult) float64 {
	if v.Kind == query.EvalInt {
		return float64(v.Int)
	}
	return v.Float
}

func applyBinaryInt(op string, l, r int64) (query.EvalResult, bool) {
	boolInt := func(b bool) (query.EvalResult, bool) {
		if b {
			return query.EvalResult{Kind: query.EvalInt, Int: 1}, true
		}
		return query.EvalResult{Kind: query.EvalInt}, true
	}
	switch op {
	case "+":
		return query.EvalResult{Kind: query.EvalInt, Int: l + r}, true
	case "-":
		return query.EvalResult{Kind: query.EvalInt, Int: l - r}, true
	case "*":
		return query.EvalResult{Kind: query.EvalInt, Int: l * r}, true
	case "/":
		if r == 0 {
			return query.EvalResult{}, false
		}
		return query.EvalResult{Kind: query.EvalInt, Int: l / r}, true
	case "%":
		if r == 0 {
			return query.EvalResult{}, false
		}
		return query.EvalResult{Kind: query.EvalInt, Int: l % r}, true
	case "<<":
		if r < 0 || r > 63 {
			return query.EvalResult{}, false
		}
		return query.EvalResult{Kind: query.EvalInt, Int: l << uint(r)}, true
	case ">>":
		if r < 0 || r > 63 {
			return query.EvalResult{}, false
		}
		return query.EvalResult{Kind: query.EvalInt, Int: l >> uint(r)}, true
	case "&":
		return query.EvalResult{Kind: query.EvalInt, Int: l & r}, true
	case "|":
		return query.EvalResult{Kind: query.EvalInt, Int: l | r}, true
	case "^":
		return query.EvalResult{Kind: query.EvalInt, Int: l ^ r}, true
	case "&&":
		return boolInt(l != 0 && r != 0)
	case "||":
		return boolInt(l != 0 || r != 0)
	case "==":
		return boolInt(l == r)
	case "!=":
		return boolInt(l != r)
	case "<":
		return boolInt(l < r)
	case ">":
		return boolInt(l > r)
	case "<=":
		return boolInt(l <= r)
	case ">=":
		return boolInt(l >= r)
	}
	return query.EvalResult{}, false
}

func applyBinaryFloat(op string, l, r float64) (query.EvalResult, bool) {
	boolInt := func(b bool) (query.EvalResult, bool) {
		if b {
			return query.EvalResult{Kind: query.EvalInt, Int: 1}, true
		}
		return query.EvalResult{Kind: query.EvalInt}, true
	}
	switch op {
	case "+":
		return query.EvalResult{Kind: query.EvalFloat, Float: l + r}, true
	case "-":
		return query.EvalResult{Kind: query.EvalFloat, Float: l - r}, true
	case "*":
		return query.EvalResult{Kind: query.EvalFloat, Float: l * r}, true
	case "/":
		if r == 0 {
			return query.EvalResult{}, false
		}
		return query.EvalResult{Kind: query.EvalFloat, Float: l / r}, true
	case "==":
		return boolInt(l == r)
	case "!=":
		return boolInt(l != r)
	case "<":
		return boolInt(l < r)
	case ">":
		return boolInt(l > r)
	case "<=":
		return boolInt(l <= r)
	case ">=":
		return boolInt(l >= r)
	}
	return query.EvalResult{}, false
}

// parseNumberLiteral handles C integer and floating literals: decimal, hex,
// octal, binary, digit separators, and the u/l/f/z suffix soup.
func parseNumberLiteral(text string) (query.EvalResult, bool) {
	s := strings.ReplaceAll(strings.TrimSpace(text), "'", "")
	if s == "" {
		return query.EvalResult{}, false
	}
	lower := strings.ToLower(s)
	isHex := strings.HasPrefix(lower, "0x")

	var body string
	var isFloat bool
	if isHex {
		body = strings.TrimRight(lower, "ul")
		isFloat = strings.ContainsAny(body[2:], ".p")
	} else {
		body = strings.TrimRight(lower, "uflz")
		isFloat = strings.ContainsAny(body, ".e") ||
			(strings.HasSuffix(lower, "f") && strings.IndexFunc(lower, notDigit) == len(lower)-1)
	}
	if body == "" {
		return query.EvalResult{}, false
	}

	if isFloat {
		f, err := strconv.ParseFloat(body, 64)
		if err != nil {
			return query.EvalResult{}, false
		}
		return query.EvalResult{Kind: query.EvalFloat, Float: f}, true
	}
	v, err := strconv.ParseUint(body, 0, 64)
	if err != nil {
		return query.EvalResult{}, false
	}
	return query.EvalResult{Kind: query.EvalInt, Int: int64(v)}, true
}

func notDigit(r rune) bool { return r < '0' || r > '9' }

// parseCharLiteral returns the numeric value of a character literal,
// honoring encoding prefixes and escape sequences.
func parseCharLiteral(text string) (int64, bool) {
	s := text
	if i := strings.IndexByte(s, '\''); i >= 0 {
		s = s[i:]
	}
	if len(s) < 3 || s[0] != '\'' || s[len(s)-1] != '\'' {
		return 0, false
	}
	inner := decodeCString(s[1 : len(s)-1])
	if inner == "" {
		return 0, false
	}
	runes := []rune(inner)
	return int64(runes[0]), true
}

// stringLiteralValue strips the quotes and any encoding prefix from a string
// literal and decodes its escapes.
func stringLiteralValue(text string) string {
	s := text
	if i := strings.IndexByte(s, '"'); i >= 0 {
		s = s[i:]
	}
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	return decodeCString(s)
}

func decodeCString(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' {
			b.WriteByte(c)
			continue
		}
		i++
		if i >= len(s) {
			break
		}
		switch s[i] {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		case 'a':
			b.WriteByte(7)
		case 'b':
			b.WriteByte(8)
		case 'f':
			b.WriteByte(12)
		case 'v':
			b.WriteByte(11)
		case '\\', '\'', '"', '?':
			b.WriteByte(s[i])
		case 'x':
			j := i + 1
			for j < len(s) && isHexDigit(s[j]) {
				j++
			}
			if j > i+1 {
				if v, err := strconv.ParseUint(s[i+1:j], 16, 32); err == nil {
					b.WriteRune(rune(v))
				}
				i = j - 1
			}
		case 'u', 'U':
			n := 4
			if s[i] == 'U' {
				n = 8
			}
			if i+n < len(s) {
				if v, err := strconv.ParseUint(s[i+1:i+1+n], 16, 32); err == nil {
					b.WriteRune(rune(v))
					i += n
				}
			}
		default:
			if s[i] >= '0' && s[i] <= '7' {
				j := i
				for j < len(s) && j < i+3 && s[j] >= '0' && s[j] <= '7' {
					j++
				}
				if v, err := strconv.ParseUint(s[i:j], 8, 32); err == nil {
					b.WriteRune(rune(v))
				}
				i = j - 1
			} else {
				b.WriteByte(s[i])
			}
		}
	}
	return b.String()
}

func isHexDigit(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func firstNamedChild(node *sitter.Node) *sitter.Node {
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child.IsNamed() && child.Type() != "comment" {
			return child
		}
	}
	return nil
}
