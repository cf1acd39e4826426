// Package page accumulates the state of one directory response and renders
// it as an HTML document.
package page

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"net/url"
	"path"
	"time"

	"loadista/internal/listing"
)

// DateFormat is the layout of the Date column.
const DateFormat = "2006-01-02 15:04"

type Severity string

const (
	Info  Severity = "info"
	Error Severity = "error"
)

type Message struct {
	Severity Severity
	Text     string
}

// Row is one line of the listing table.
type Row struct {
	Href string
	Name string
	Size string
	Date string
}

type Stats struct {
	Folders int
	Files   int
	Bytes   int64
}

//go:embed templates/page.html templates/style.css
var templatesFS embed.FS

var tmpl = template.Must(template.New("page.html").Funcs(template.FuncMap{
	"size": FormatSize,
}).ParseFS(templatesFS, "templates/page.html"))

var style = func() template.CSS {
	b, err := templatesFS.ReadFile("templates/style.css")
	if err != nil {
		panic(err)
	}
	return template.CSS(b)
}()

// Page is owned by a single request.
type Page struct {
	Title string
	// Path is the URL path of the listed folder, "" for the root.
	Path string
	// Readonly drops the upload form.
	Readonly bool

	loc      *time.Location
	messages []Message
	folders  []Row
	files    []Row
	stats    Stats
}

func New(title, urlPath string) *Page {
	return &Page{Title: title, Path: urlPath, loc: time.Local}
}

func (p *Page) AddMessage(sev Severity, text string) {
	p.messages = append(p.messages, Message{Severity: sev, Text: text})
}

func (p *Page) Messages() []Message { return p.messages }

func (p *Page) Stats() Stats { return p.stats }

// AddFolders appends one row per folder in key order.
func (p *Page) AddFolders(folders map[string]listing.Entry) {
	for _, e := range listing.Sorted(folders) {
		p.folders = append(p.folders, Row{
			Href: p.href(e.Name),
			Name: e.Name,
			Size: "dir",
			Date: e.ModTime.In(p.loc).Format(DateFormat),
		})
		p.stats.Folders++
	}
}

// AddFiles appends one row per file in key order and adds its size to the total.
func (p *Page) AddFiles(files map[string]listing.Entry) {
	for _, e := range listing.Sorted(files) {
		p.files = append(p.files, Row{
			Href: p.href(e.Name),
			Name: e.Name,
			Size: FormatSize(e.Size),
			Date: e.ModTime.In(p.loc).Format(DateFormat),
		})
		p.stats.Files++
		p.stats.Bytes += e.Size
	}
}

func (p *Page) href(name string) string {
	return escapePath(path.Join("/", p.Path, name))
}

func escapePath(p string) string {
	return (&url.URL{Path: p}).EscapedPath()
}

type view struct {
	Title    string
	Style    template.CSS
	Current  string
	Messages []Message
	Readonly bool
	Stats    Stats
	UpLinks  bool
	Parent   string
	Folders  []Row
	Files    []Row
}

// Render writes the document: header, messages in insertion order, upload
// form, statistics, up-links, folder rows then file rows.
func (p *Page) Render(w io.Writer) error {
	v := view{
		Title:    p.Title,
		Style:    style,
		Current:  p.Path,
		Messages: p.messages,
		Readonly: p.Readonly,
		Stats:    p.stats,
		UpLinks:  p.Path != "",
		Folders:  p.folders,
		Files:    p.files,
	}
	if v.Current == "" {
		v.Current = "/"
	}
	if v.UpLinks {
		v.Parent = escapePath(path.Dir(p.Path))
	}
	if err := tmpl.Execute(w, v); err != nil {
		return fmt.Errorf("render page: %w", err)
	}
	return nil
}

// FormatSize renders n with binary thresholds: whole bytes below 1 KiB,
// otherwise one decimal of kB, MB or GB.
func FormatSize(n int64) string {
	switch {
	case n < 1024:
		return fmt.Sprintf("%d B", n)
	case n < 1048576:
		return fmt.Sprintf("%.1f kB", float64(n)/1024)
	case n < 1073741824:
		return fmt.Sprintf("%.1f MB", float64(n)/1048576)
	default:
		return fmt.Sprintf("%.1f GB", float64(n)/1073741824)
	}
}
