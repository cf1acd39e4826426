package upload

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"loadista/internal/archive"
)

// Form fields of the upload form.
const (
	FieldFile      = "file"
	FieldUnzip     = "unzip"
	FieldOverwrite = "overwrite"
)

type Reason int

const (
	NoFile Reason = iota + 1
	Exists
	TooLarge
	Write
)

func (r Reason) String() string {
	switch r {
	case NoFile:
		return "no file"
	case Exists:
		return "exists"
	case TooLarge:
		return "too large"
	case Write:
		return "write"
	default:
		return "unknown"
	}
}

// Message is the text shown to the user for r.
func (r Reason) Message() string {
	switch r {
	case NoFile:
		return "No file has been specified for upload."
	case Exists:
		return "Same file already exists."
	case TooLarge:
		return "Uploaded file is too large."
	default:
		return "Unable to save uploaded file."
	}
}

type Error struct {
	Reason Reason
	Name   string
	Err    error
}

func (e *Error) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("upload %s %q: %v", e.Reason, e.Name, e.Err)
	}
	return fmt.Sprintf("upload %s: %v", e.Reason, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Request is one parsed form submission.
type Request struct {
	FileName  string
	Body      io.Reader
	Overwrite bool
	Unzip     bool
}

// Result describes a stored upload and, when asked for, its extraction.
type Result struct {
	Name string
	Path string
	Size int64

	// UnzipRequested is set when the upload was a .zip and unzip was ticked.
	UnzipRequested bool
	// ExtractErr is the *archive.Error of a failed extraction.
	ExtractErr error
}

type Processor struct {
	maxMemory int64
	maxUpload int64
}

// New returns a Processor. maxMemory is the multipart in-memory threshold;
// maxUpload caps the request body when > 0.
func New(maxMemory, maxUpload int64) *Processor {
	if maxMemory <= 0 {
		maxMemory = 32 << 20
	}
	return &Processor{maxMemory: maxMemory, maxUpload: maxUpload}
}

// Process stores the file posted in r into dirAbs and, if requested,
// expands it. dirAbs must be an existing directory.
func (p *Processor) Process(w http.ResponseWriter, r *http.Request, dirAbs string) (Result, error) {
	req, err := p.Parse(w, r)
	if err != nil {
		return Result{}, err
	}
	if c, ok := req.Body.(io.Closer); ok {
		defer c.Close()
	}
	res, err := Save(dirAbs, req)
	if err != nil {
		return res, err
	}
	if req.Unzip && IsZip(res.Name) {
		res.UnzipRequested = true
		res.ExtractErr = archive.Extract(res.Path, dirAbs, req.Overwrite)
	}
	return res, nil
}

// Parse reads the multipart form of r. The returned Body must be closed
// when it implements io.Closer.
func (p *Processor) Parse(w http.ResponseWriter, r *http.Request) (Request, error) {
	if p.maxUpload > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, p.maxUpload)
	}
	if err := r.ParseMultipartForm(p.maxMemory); err != nil {
		var tooBig *http.MaxBytesError
		switch {
		case errors.As(err, &tooBig):
			return Request{}, &Error{Reason: TooLarge, Err: err}
		case errors.Is(err, http.ErrNotMultipart), errors.Is(err, http.ErrMissingBoundary):
			return Request{}, &Error{Reason: NoFile, Err: err}
		default:
			return Request{}, &Error{Reason: Write, Err: fmt.Errorf("parse form: %w", err)}
		}
	}
	fhs := r.MultipartForm.File[FieldFile]
	if len(fhs) == 0 || fhs[0].Filename == "" {
		return Request{}, &Error{Reason: NoFile, Err: errors.New("missing file part")}
	}
	name := BaseName(fhs[0].Filename)
	if name == "" {
		return Request{}, &Error{Reason: NoFile, Name: fhs[0].Filename, Err: errors.New("unusable file name")}
	}
	f, err := fhs[0].Open()
	if err != nil {
		return Request{}, &Error{Reason: Write, Name: name, Err: err}
	}
	return Request{
		FileName:  name,
		Body:      f,
		Overwrite: r.PostFormValue(FieldOverwrite) != "",
		Unzip:     r.PostFormValue(FieldUnzip) != "",
	}, nil
}

// IsZip reports whether name ends in ".zip" after a non-empty stem.
// Leading dots belong to the stem, so ".zip" itself is not an archive.
func IsZip(name string) bool {
	return filepath.Ext(strings.TrimLeft(name, ".")) == ".zip"
}

// BaseName drops any directory part of a client-supplied file name, for
// either separator. It returns "" when nothing usable is left.
func BaseName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = path.Base(name)
	switch name {
	case ".", "..", "/":
		return ""
	}
	if strings.ContainsRune(name, 0) {
		return ""
	}
	return name
}

// Save writes req.Body to dirAbs/req.FileName. The bytes land in a temp
// file first so a failed write never clobbers an existing file.
func Save(dirAbs string, req Request) (Result, error) {
	name := BaseName(req.FileName)
	if name == "" {
		return Result{}, &Error{Reason: NoFile, Name: req.FileName, Err: errors.New("unusable file name")}
	}
	dst := filepath.Join(dirAbs, name)
	if !req.Overwrite {
		if _, err := os.Lstat(dst); err == nil {
			return Result{}, &Error{Reason: Exists, Name: name, Err: os.ErrExist}
		}
	}

	tmp, err := os.CreateTemp(dirAbs, ".upload-*")
	if err != nil {
		return Result{}, &Error{Reason: Write, Name: name, Err: err}
	}
	tmpPath := tmp.Name()
	n, err := io.Copy(tmp, req.Body)
	if err == nil {
		err = tmp.Sync()
	}
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		err = os.Chmod(tmpPath, 0o644)
	}
	if err == nil {
		err = os.Rename(tmpPath, dst)
	}
	if err != nil {
		_ = os.Remove(tmpPath)
		return Result{}, &Error{Reason: Write, Name: name, Err: err}
	}
	return Result{Name: name, Path: dst, Size: n}, nil
}
