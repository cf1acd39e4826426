// Package archive expands uploaded zip files into the folder they were saved in.
package archive

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"loadista/internal/fsutil"
)

// MacOSXDir is the metadata folder macOS archivers add at the top level.
const MacOSXDir = "__MACOSX"

type Reason int

const (
	// Open: the archive could not be opened or read.
	Open Reason = iota + 1
	// Exists: an entry would replace something already on disk.
	Exists
	// Unsafe: an entry would be written outside the target folder.
	Unsafe
	// Failed: writing an entry or removing the archive failed.
	Failed
)

func (r Reason) String() string {
	switch r {
	case Open:
		return "open"
	case Exists:
		return "exists"
	case Unsafe:
		return "unsafe"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Message is the text shown to the user for r.
func (r Reason) Message() string {
	if r == Exists {
		return "Same file already exists."
	}
	return "Unable to extract uploaded file."
}

type Error struct {
	Reason Reason
	Entry  string
	Err    error
}

func (e *Error) Error() string {
	if e.Entry != "" {
		return fmt.Sprintf("archive %s %q: %v", e.Reason, e.Entry, e.Err)
	}
	return fmt.Sprintf("archive %s: %v", e.Reason, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

type entry struct {
	f   *zip.File
	dst string
}

// Extract expands zipPath into dir. Without overwrite, nothing is written if
// any entry already exists on disk. On success the archive and any top-level
// __MACOSX folder are removed; on failure the archive stays in place.
func Extract(zipPath, dir string, overwrite bool) error {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return &Error{Reason: Open, Err: err}
	}
	ents, err := plan(r.File, dir, overwrite)
	if err == nil {
		err = extractAll(ents)
	}
	if cerr := r.Close(); err == nil && cerr != nil {
		err = &Error{Reason: Failed, Err: cerr}
	}
	if err != nil {
		return err
	}

	if err := os.Remove(zipPath); err != nil {
		return &Error{Reason: Failed, Err: fmt.Errorf("remove zip: %w", err)}
	}
	macosx := filepath.Join(dir, MacOSXDir)
	if _, err := os.Lstat(macosx); err == nil {
		if err := os.RemoveAll(macosx); err != nil {
			return &Error{Reason: Failed, Entry: MacOSXDir, Err: err}
		}
	}
	return nil
}

// plan maps every entry onto dir and runs the all-or-nothing checks.
func plan(files []*zip.File, dir string, overwrite bool) ([]entry, error) {
	ents := make([]entry, 0, len(files))
	for _, f := range files {
		if strings.Contains(f.Name, "\x00") {
			return nil, &Error{Reason: Unsafe, Entry: f.Name, Err: errors.New("invalid name")}
		}
		dst, err := fsutil.Within(dir, filepath.FromSlash(f.Name))
		if err != nil {
			return nil, &Error{Reason: Unsafe, Entry: f.Name, Err: err}
		}
		if dst == filepath.Clean(dir) {
			continue
		}
		if err := fsutil.ParentWithin(dir, dst); err != nil {
			return nil, &Error{Reason: Unsafe, Entry: f.Name, Err: err}
		}
		ents = append(ents, entry{f: f, dst: dst})
	}
	if overwrite {
		return ents, nil
	}
	for _, e := range ents {
		if _, err := os.Lstat(e.dst); err == nil {
			return nil, &Error{Reason: Exists, Entry: e.f.Name, Err: os.ErrExist}
		}
	}
	return ents, nil
}

func extractAll(ents []entry) error {
	for _, e := range ents {
		if err := extractOne(e); err != nil {
			return &Error{Reason: Failed, Entry: e.f.Name, Err: err}
		}
	}
	return nil
}

func extractOne(e entry) error {
	if e.f.FileInfo().IsDir() {
		return os.MkdirAll(e.dst, 0o755)
	}
	if err := os.MkdirAll(filepath.Dir(e.dst), 0o755); err != nil {
		return err
	}
	// Never write through an existing link.
	if st, err := os.Lstat(e.dst); err == nil && st.Mode()&os.ModeSymlink != 0 {
		if err := os.Remove(e.dst); err != nil {
			return err
		}
	}

	rc, err := e.f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	mode := e.f.Mode().Perm()
	if mode == 0 {
		mode = 0o644
	}
	out, err := os.OpenFile(e.dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, rc); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
