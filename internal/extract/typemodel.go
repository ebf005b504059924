package extract

import (
	"github.com/karhunen/abidump/internal/abi"
	"github.com/karhunen/abidump/internal/query"
)

// primitiveSpellings fixes the platform-independent name written for each
// builtin kind. Plain char folds into its signed/unsigned variant.
var primitiveSpellings = map[query.TypeKind]string{
	query.TypeVoid:      "void",
	query.TypeBool:      "bool",
	query.TypeCharU:     "unsigned char",
	query.TypeUChar:     "unsigned char",
	query.TypeUShort:    "unsigned short",
	query.TypeUInt:      "unsigned int",
	query.TypeULong:     "unsigned long",
	query.TypeULongLong: "unsigned long long",
	query.TypeCharS:     "signed char",
	query.TypeSChar:     "signed char",
	query.TypeShort:     "signed short",
	query.TypeInt:       "signed int",
	query.TypeLong:      "signed long",
	// TODO: long long has shipped with the unsigned spelling since the first
	// format version; correcting it needs a format rev coordinated with the
	// binding generators that key on it.
	query.TypeLongLong: "unsigned long long",
	query.TypeFloat:    "float",
	query.TypeDouble:   "double",
}

// typeNode serializes one resolved type handle into a TypeNode, independent
// of how deeply the type is nested in an enclosing shape. Record and enum
// types become name references and are never expanded, which keeps the result
// finite on self- and mutually-referential records. Shapes outside the mapped
// set degrade to Unknown; serialization never fails.
func typeNode(t query.Type) abi.TypeNode {
	if t == nil {
		return abi.Unknown(int(query.TypeInvalid), query.TypeInvalid.String())
	}
	if name, ok := primitiveSpellings[t.Kind()]; ok {
		return abi.Primitive(name)
	}
	switch t.Kind() {
	case query.TypePointer:
		return abi.PointerTo(typeNode(t.Pointee()))
	case query.TypeFunctionProto, query.TypeFunctionNoProto:
		args := make([]abi.TypeNode, 0, t.NumArgs())
		for i := 0; i < t.NumArgs(); i++ {
			args = append(args, typeNode(t.Arg(i)))
		}
		return abi.FunctionOf(args, typeNode(t.ReturnType()), t.IsVariadic())
	case query.TypeRecord:
		return abi.StructRef(typeName(t))
	case query.TypeEnum:
		return abi.EnumRef(typeName(t))
	case query.TypeConstantArray:
		count := t.ArrayLen()
		if count < 0 {
			count = 0
		}
		return abi.ArrayOf(typeNode(t.Elem()), uint64(count))
	}
	return abi.Unknown(int(t.Kind()), t.Kind().String())
}

// typeName resolves the name written into a Struct or Enum reference: the
// declaration's display name when it has one (a typedef name defers to the
// underlying tag), otherwise the raw type spelling.
func typeName(t query.Type) string {
	if d := t.Declaration(); d != nil {
		if name := d.DisplayName(); name != "" {
			return name
		}
	}
	return t.Spelling()
}
