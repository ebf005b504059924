package parse

import "github.com/karhunen/abidump/internal/query"

// tunit adapts a parsed unit to the query.TranslationUnit interface.
type tunit struct {
	u *unit
}

func (t *tunit) Root() query.Cursor {
	return &cursor{u: t.u, d: t.u.root}
}

func (t *tunit) Diagnostics() []query.Diagnostic {
	return t.u.diags
}

type cursor struct {
	u *unit
	d *decl
}

func (c *cursor) Kind() query.CursorKind { return c.d.kind }
func (c *cursor) Spelling() string       { return c.d.name }
func (c *cursor) DisplayName() string    { return c.d.name }

func (c *cursor) Location() (string, int, int) {
	return c.d.file, c.d.line, c.d.col
}

func (c *cursor) Type() query.Type {
	return c.u.wrapType(c.d.typ, false)
}

// Definition resolves through the shared tag object, so every declaration of
// a record or enum agrees on which cursor is the defining one. Re-definition
// moves the link, leaving earlier definitions pointing at the newer cursor.
func (c *cursor) Definition() query.Cursor {
	switch c.d.kind {
	case query.StructDecl, query.UnionDecl, query.ClassDecl:
		if rec, ok := c.d.typ.(*recordType); ok && rec.def != nil {
			return &cursor{u: c.u, d: rec.def}
		}
	case query.EnumDecl:
		if et, ok := c.d.typ.(*enumType); ok && et.def != nil {
			return &cursor{u: c.u, d: et.def}
		}
	}
	return nil
}

func (c *cursor) Equal(other query.Cursor) bool {
	oc, ok := other.(*cursor)
	return ok && oc.d == c.d
}

func (c *cursor) IsAnonymous() bool { return c.d.anon }
func (c *cursor) EnumValue() int64  { return c.d.enumVal }

func (c *cursor) Evaluate() query.EvalResult { return c.d.eval }

// BitOffset forces layout of the enclosing record on first use.
func (c *cursor) BitOffset() int64 {
	if c.d.kind != query.FieldDecl || c.d.owner == nil || c.d.member == nil {
		return -1
	}
	c.u.layoutRecord(c.d.owner)
	return c.d.member.offsetBits
}

func (c *cursor) NumChildren() int { return len(c.d.children) }

func (c *cursor) Child(i int) query.Cursor {
	if i < 0 || i >= len(c.d.children) {
		return nil
	}
	return &cursor{u: c.u, d: c.d.children[i]}
}

// typeHandle adapts a ctype. A canonical handle canonicalizes every type it
// hands out, so one Canonical() call yields a deeply canonical view the way
// component types of a canonical type are themselves canonical.
type typeHandle struct {
	u     *unit
	t     ctype
	canon bool
}

func (u *unit) wrapType(t ctype, canon bool) query.Type {
	if t == nil {
		return nil
	}
	if canon {
		t = canonicalOf(t)
	}
	return typeHandle{u: u, t: t, canon: canon}
}

func (h typeHandle) sub(t ctype) query.Type {
	if t == nil {
		return nil
	}
	return h.u.wrapType(t, h.canon)
}

func (h typeHandle) Kind() query.TypeKind { return h.t.tkind() }

func (h typeHandle) Spelling() string { return h.u.spellingOf(h.t) }

func (h typeHandle) Canonical() query.Type {
	return h.u.wrapType(h.t, true)
}

func (h typeHandle) Size() int64 { return h.u.sizeOf(h.t) }

func (h typeHandle) Pointee() query.Type {
	switch v := h.t.(type) {
	case *pointerType:
		return h.sub(v.to)
	case *refType:
		return h.sub(v.to)
	}
	return nil
}

func (h typeHandle) ReturnType() query.Type {
	if ft, ok := h.t.(*funcType); ok {
		return h.sub(ft.ret)
	}
	return nil
}

func (h typeHandle) NumArgs() int {
	if ft, ok := h.t.(*funcType); ok {
		return len(ft.params)
	}
	return 0
}

func (h typeHandle) Arg(i int) query.Type {
	ft, ok := h.t.(*funcType)
	if !ok || i < 0 || i >= len(ft.params) {
		return nil
	}
	return h.sub(ft.params[i])
}

func (h typeHandle) IsVariadic() bool {
	ft, ok := h.t.(*funcType)
	return ok && ft.variadic
}

func (h typeHandle) Elem() query.Type {
	if at, ok := h.t.(*arrayType); ok {
		return h.sub(at.elem)
	}
	return nil
}

func (h typeHandle) ArrayLen() int64 {
	if at, ok := h.t.(*arrayType); ok && !at.incomplete {
		return at.count
	}
	return -1
}

func (h typeHandle) Declaration() query.Cursor {
	switch v := h.t.(type) {
	case *recordType:
		if v.def != nil {
			return &cursor{u: h.u, d: v.def}
		}
	case *enumType:
		if v.def != nil {
			return &cursor{u: h.u, d: v.def}
		}
	}
	return nil
}
