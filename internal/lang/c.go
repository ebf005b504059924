package lang

import (
	"github.com/smacker/go-tree-sitter/c"
)

func init() {
	Dialects["c"] = &Dialect{
		Name:       "c",
		Extensions: []string{".h", ".c"},
		lang:       c.GetLanguage(),
		Predefined: map[string]string{
			"__STDC__":         "1",
			"__STDC_VERSION__": "201710L",
		},
		EmptyRecordSize: 0,
		WCharBuiltin:    false,
	}
}
