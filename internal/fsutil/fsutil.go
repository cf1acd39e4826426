package fsutil

import (
	"errors"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// Kind classifies what a URL path points at under the root.
type Kind int

const (
	Missing Kind = iota
	File
	Directory
)

func (k Kind) String() string {
	switch k {
	case File:
		return "file"
	case Directory:
		return "directory"
	default:
		return "missing"
	}
}

// Target is the outcome of resolving a URL path.
type Target struct {
	Kind Kind
	// Path is the URL path with trailing slashes stripped ("" for root).
	Path string
	// Abs is the filesystem location; empty when Kind is Missing because of an escape.
	Abs string
}

// URLPath strips trailing slashes from an already percent-decoded URL path.
// The root collapses to "".
func URLPath(p string) string {
	return strings.TrimRight(p, "/")
}

// Resolve maps a decoded URL path onto root and classifies it.
// Paths that would leave root resolve to Missing.
func Resolve(rootAbs, urlPath string) Target {
	t := Target{Kind: Missing, Path: URLPath(urlPath)}
	abs, err := JoinWithinRoot(rootAbs, t.Path)
	if err != nil {
		return t
	}
	t.Abs = abs
	st, err := os.Stat(abs)
	if err != nil {
		return t
	}
	switch {
	case st.Mode().IsRegular():
		t.Kind = File
	case st.IsDir():
		t.Kind = Directory
	}
	return t
}

// CleanRelPath takes a user path like "", ".", "/a/b", "a//b", and returns a
// slash-based, no-leading-slash relative path ("" means root).
// ".." segments are kept so JoinWithinRoot can refuse them.
func CleanRelPath(p string) string {
	if p == "" || p == "." || p == "/" {
		return ""
	}
	p = strings.ReplaceAll(p, "\\", "/")
	p = path.Clean(p)
	p = strings.TrimPrefix(p, "/")
	if p == "." {
		return ""
	}
	return p
}

// JoinWithinRoot returns an absolute filesystem path under root for a given rel
// path. It rejects escapes (..).
func JoinWithinRoot(rootAbs string, rel string) (string, error) {
	rel = CleanRelPath(rel)
	if rel == "" {
		return rootAbs, nil
	}
	if strings.Contains(rel, "\x00") {
		return "", errors.New("invalid path")
	}
	if rel == ".." || strings.HasPrefix(rel, "../") {
		return "", errors.New("path escape")
	}
	return Within(rootAbs, filepath.FromSlash(rel))
}

// Within joins name onto dir and fails if the result is not dir itself or
// below it.
func Within(dir, name string) (string, error) {
	if filepath.IsAbs(name) || filepath.VolumeName(name) != "" {
		return "", errors.New("absolute path")
	}
	abs := filepath.Join(dir, name)
	dirClean := filepath.Clean(dir)
	if abs != dirClean && !strings.HasPrefix(abs, strings.TrimSuffix(dirClean, string(filepath.Separator))+string(filepath.Separator)) {
		return "", errors.New("path escape")
	}
	return abs, nil
}

// ParentWithin fails if the nearest existing ancestor of p's parent
// directory resolves, through symlinks, to a place outside dir. p must
// already have passed Within.
func ParentWithin(dir, p string) error {
	realDir, err := filepath.EvalSymlinks(dir)
	if err != nil {
		return err
	}
	anc := filepath.Dir(p)
	for {
		real, err := filepath.EvalSymlinks(anc)
		if err == nil {
			rel, err := filepath.Rel(realDir, real)
			if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
				return errors.New("path escape through symlink")
			}
			return nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		next := filepath.Dir(anc)
		if next == anc {
			return errors.New("no existing ancestor")
		}
		anc = next
	}
}
