// Package discover finds header files under a directory tree.
package discover

import (
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"

	"github.com/karhunen/abidump/internal/lang"
)

var headerExtensions = map[string]bool{
	".h":   true,
	".hh":  true,
	".hpp": true,
	".hxx": true,
}

// FileEntry is one discovered header, the dialect its extension implies, and
// its size so callers can filter oversized files.
type FileEntry struct {
	Path    string
	Dialect string
	Size    int64
}

// Headers walks root and returns every header file in deterministic path
// order. Hidden directories and files are skipped, symlinks are not
// followed, and a .gitignore at the root is honored.
func Headers(root string) ([]FileEntry, error) {
	var gi *ignore.GitIgnore
	if g, err := ignore.CompileIgnoreFile(filepath.Join(root, ".gitignore")); err == nil {
		gi = g
	}

	var entries []FileEntry
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := d.Name()
		if d.IsDir() {
			if path != root && strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(name, ".") || d.Type()&fs.ModeSymlink != 0 {
			return nil
		}
		ext := filepath.Ext(name)
		if !headerExtensions[ext] {
			return nil
		}
		if gi != nil {
			if rel, relErr := filepath.Rel(root, path); relErr == nil && gi.MatchesPath(rel) {
				return nil
			}
		}
		entry := FileEntry{Path: path, Dialect: lang.ForExtension(ext)}
		if info, infoErr := d.Info(); infoErr == nil {
			entry.Size = info.Size()
		}
		entries = append(entries, entry)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })
	return entries, nil
}
