// Package listing enumerates the immediate children of a directory.
package listing

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Entry is one child of a listed directory.
type Entry struct {
	Name    string
	IsDir   bool
	Size    int64 // 0 for directories
	ModTime time.Time
}

// Result holds folders and files keyed by lowercased name. Two names that
// fold to the same key keep whichever was read last.
type Result struct {
	Folders map[string]Entry
	Files   map[string]Entry
}

// Error reports a directory that could not be enumerated.
type Error struct {
	Op   string
	Path string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("listing: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// List reads dirAbs. Any failure, including on a single child, fails the
// whole listing.
func List(dirAbs string) (Result, error) {
	ents, err := os.ReadDir(dirAbs)
	if err != nil {
		return Result{}, &Error{Op: "read", Path: dirAbs, Err: err}
	}
	res := Result{
		Folders: make(map[string]Entry),
		Files:   make(map[string]Entry),
	}
	for _, e := range ents {
		// Stat follows symlinks so a link to a folder lists as a folder.
		info, err := os.Stat(filepath.Join(dirAbs, e.Name()))
		if err != nil {
			return Result{}, &Error{Op: "stat", Path: e.Name(), Err: err}
		}
		key := strings.ToLower(e.Name())
		it := Entry{
			Name:    e.Name(),
			IsDir:   info.IsDir(),
			ModTime: info.ModTime(),
		}
		if it.IsDir {
			res.Folders[key] = it
			continue
		}
		it.Size = info.Size()
		res.Files[key] = it
	}
	return res, nil
}

// Sorted returns the entries of m ordered by key.
func Sorted(m map[string]Entry) []Entry {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]Entry, 0, len(keys))
	for _, k := range keys {
		out = append(out, m[k])
	}
	return out
}
