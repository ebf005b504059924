package parse

import (
	"fmt"

	"github.com/karhunen/abidump/internal/query"
)

// The layout engine models an LP64 target with natural alignment: no pragma
// pack, no attributes. Pointers and references are 8 bytes, plain enums 4.

const (
	pointerSize  = 8
	pointerAlign = 8
	enumSize     = 4
	enumAlign    = 4
)

// sizeOf returns the storage size of a type in bytes, or a negative value
// when the type has no size (void, functions, incomplete types).
func (u *unit) sizeOf(t ctype) int64 {
	switch v := t.(type) {
	case *builtinType:
		return v.size
	case *pointerType, *refType:
		return pointerSize
	case *recordType:
		if !v.complete {
			return -2
		}
		u.layoutRecord(v)
		return v.size
	case *enumType:
		if v.base != nil {
			return u.sizeOf(v.base)
		}
		return enumSize
	case *arrayType:
		if v.incomplete {
			return -2
		}
		es := u.sizeOf(v.elem)
		if es < 0 {
			return es
		}
		return es * v.count
	case *typedefType:
		return u.sizeOf(v.under)
	case *funcType:
		return -1
	}
	return -1
}

// alignOf returns the alignment of a type in bytes, defaulting to 1 for
// types without a meaningful alignment.
func (u *unit) alignOf(t ctype) int64 {
	switch v := t.(type) {
	case *builtinType:
		if v.align > 0 {
			return v.align
		}
		return 1
	case *pointerType, *refType:
		return pointerAlign
	case *recordType:
		if !v.complete {
			return 1
		}
		u.layoutRecord(v)
		return v.align
	case *enumType:
		if v.base != nil {
			return u.alignOf(v.base)
		}
		return enumAlign
	case *arrayType:
		return u.alignOf(v.elem)
	case *typedefType:
		return u.alignOf(v.under)
	}
	return 1
}

// layoutRecord assigns member offsets and the record's size and alignment.
// Bit-fields pack into the storage unit of their declared type and never
// straddle a unit boundary; a zero-width bit-field closes the current unit.
// Members whose size cannot be determined occupy zero bytes and leave a
// warning behind.
func (u *unit) layoutRecord(r *recordType) {
	if r.laidOut || !r.complete {
		return
	}
	r.laidOut = true

	if len(r.fields) == 0 {
		r.size = u.dialect.EmptyRecordSize
		r.align = 1
		return
	}

	isUnion := r.kw == "union"
	var offsetBits, sizeBits, alignBits int64 = 0, 0, 8

	for _, f := range r.fields {
		if f.isBitfield {
			unitSize := u.sizeOf(f.typ)
			if unitSize <= 0 {
				u.layoutWarning(f.d, r, f.name)
				unitSize = 4
			}
			unitBits := unitSize * 8
			if f.width <= 0 {
				// Zero-width bit-field: align to the next unit, no storage.
				offsetBits = roundUp(offsetBits, unitBits)
				continue
			}
			w := f.width
			if w > unitBits {
				w = unitBits
			}
			if isUnion {
				f.offsetBits = 0
				sizeBits = maxInt64(sizeBits, unitBits)
			} else {
				if offsetBits/unitBits != (offsetBits+w-1)/unitBits {
					offsetBits = roundUp(offsetBits, unitBits)
				}
				f.offsetBits = offsetBits
				offsetBits += w
			}
			if f.name != "" {
				alignBits = maxInt64(alignBits, u.alignOf(f.typ)*8)
			}
			continue
		}

		sz := u.sizeOf(f.typ)
		al := u.alignOf(f.typ)
		if at, ok := canonicalOf(f.typ).(*arrayType); ok && at.incomplete {
			// Flexible array member: no storage, but it does align the record.
			sz = 0
			al = u.alignOf(at.elem)
		}
		if sz < 0 {
			u.layoutWarning(f.d, r, f.name)
			sz, al = 0, 1
		}
		fieldAlignBits := al * 8
		if isUnion {
			f.offsetBits = 0
			sizeBits = maxInt64(sizeBits, sz*8)
		} else {
			offsetBits = roundUp(offsetBits, fieldAlignBits)
			f.offsetBits = offsetBits
			offsetBits += sz * 8
		}
		alignBits = maxInt64(alignBits, fieldAlignBits)
	}

	if !isUnion {
		sizeBits = offsetBits
	}
	r.align = alignBits / 8
	r.size = roundUp(sizeBits, alignBits) / 8
}

func (u *unit) layoutWarning(d *decl, r *recordType, field string) {
	diag := query.Diagnostic{
		Severity: query.SeverityWarning,
		Message:  fmt.Sprintf("size of field %q in %s is unknown, layout of %s is approximate", field, r.spell, r.spell),
	}
	if d != nil {
		diag.File, diag.Line, diag.Col = d.file, d.line, d.col
	}
	u.diags = append(u.diags, diag)
}

func roundUp(x, m int64) int64 {
	if m <= 0 {
		return x
	}
	return (x + m - 1) / m * m
}

func maxInt64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
