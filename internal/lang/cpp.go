package lang

import (
	"github.com/smacker/go-tree-sitter/cpp"
)

func init() {
	Dialects["c++"] = &Dialect{
		Name:       "c++",
		Extensions: []string{".hh", ".hpp", ".hxx", ".cc", ".cpp", ".cxx"},
		lang:       cpp.GetLanguage(),
		Predefined: map[string]string{
			"__cplusplus": "201703L",
		},
		EmptyRecordSize: 1,
		WCharBuiltin:    true,
	}
}
