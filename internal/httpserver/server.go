package httpserver

import (
	"bytes"
	"context"
	"errors"
	"log"
	"mime"
	"net"
	"net/http"
	"os"
	"strconv"
	"time"

	"loadista/internal/archive"
	"loadista/internal/config"
	"loadista/internal/fsutil"
	"loadista/internal/listing"
	"loadista/internal/page"
	"loadista/internal/upload"
)

const (
	msgCannotAccess = "Cannot access specified folder."
	msgUploaded     = "File has been uploaded successfully."
	msgUnzipped     = "File has been unzipped successfully."
)

type Options struct {
	Config config.Config
}

type Server struct {
	cfg     config.Config
	uploads *upload.Processor
}

func New(opts Options) (*Server, error) {
	if err := opts.Config.Validate(); err != nil {
		return nil, err
	}
	return &Server{
		cfg:     opts.Config,
		uploads: upload.New(opts.Config.MaxMemory(), opts.Config.MaxUpload()),
	}, nil
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	if s.cfg.DAV {
		mux.Handle(davPrefix+"/", s.davHandler())
	}
	mux.HandleFunc("/", s.dispatch)
	return logRequests(withHeaders(mux))
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr())
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener. Each connection is aborted once it
// has been idle for the configured timeout.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	timeout := s.cfg.Timeout()
	srv := &http.Server{
		Handler:     s.Handler(),
		IdleTimeout: timeout,
		ErrorLog:    log.Default(),
	}
	if timeout > 0 {
		srv.ReadHeaderTimeout = timeout
		ln = &idleListener{Listener: ln, timeout: timeout}
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ln) }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) dispatch(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet, http.MethodHead:
		s.handleGet(w, r)
	case http.MethodPost:
		s.handlePost(w, r)
	default:
		w.Header().Set("Allow", "GET, HEAD, POST")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// --- handlers ---

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	t := fsutil.Resolve(s.cfg.Root, r.URL.Path)
	switch t.Kind {
	case fsutil.File:
		s.sendFile(w, r, t.Abs)
	case fsutil.Directory:
		s.showFolder(w, t, page.New(s.cfg.Title, t.Path))
	default:
		notFound(w)
	}
}

func (s *Server) handlePost(w http.ResponseWriter, r *http.Request) {
	t := fsutil.Resolve(s.cfg.Root, r.URL.Path)
	if t.Kind != fsutil.Directory {
		notFound(w)
		return
	}
	pg := page.New(s.cfg.Title, t.Path)
	s.saveUpload(w, r, t.Abs, pg)
	s.showFolder(w, t, pg)
}

// sendFile streams abs as an attachment. ServeContent adds Content-Length,
// Range and conditional request handling and skips the body for HEAD.
func (s *Server) sendFile(w http.ResponseWriter, r *http.Request, abs string) {
	f, err := os.Open(abs)
	if err != nil {
		log.Printf("open %s: %v", abs, err)
		notFound(w)
		return
	}
	defer f.Close()
	st, err := f.Stat()
	if err != nil {
		log.Printf("stat %s: %v", abs, err)
		notFound(w)
		return
	}

	h := w.Header()
	h.Set("Content-Type", "application/force-download")
	h.Set("Content-Description", "File Transfer")
	h.Set("Content-Disposition", attachment(st.Name()))
	h.Set("Content-Transfer-Encoding", "binary")
	h.Set("Cache-Control", "must-revalidate")
	h.Set("Expires", "0")
	http.ServeContent(w, r, st.Name(), st.ModTime(), f)
}

func (s *Server) showFolder(w http.ResponseWriter, t fsutil.Target, pg *page.Page) {
	res, err := listing.List(t.Abs)
	if err != nil {
		log.Printf("list %s: %v", t.Abs, err)
		pg.AddMessage(page.Error, msgCannotAccess)
		pg.Readonly = true
	} else {
		pg.AddFolders(res.Folders)
		pg.AddFiles(res.Files)
	}

	var buf bytes.Buffer
	if err := pg.Render(&buf); err != nil {
		log.Printf("%v", err)
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// saveUpload runs the upload (and extraction) and turns the outcome into
// page messages. Failures never abort the request.
func (s *Server) saveUpload(w http.ResponseWriter, r *http.Request, dirAbs string, pg *page.Page) {
	res, err := s.uploads.Process(w, r, dirAbs)
	if err != nil {
		log.Printf("upload into %s: %v", dirAbs, err)
		pg.AddMessage(page.Error, uploadMessage(err))
		return
	}
	log.Printf("uploaded %s (%d bytes)", res.Path, res.Size)
	pg.AddMessage(page.Info, msgUploaded)

	if !res.UnzipRequested {
		return
	}
	if res.ExtractErr != nil {
		log.Printf("extract %s: %v", res.Path, res.ExtractErr)
		pg.AddMessage(page.Error, extractMessage(res.ExtractErr))
		return
	}
	pg.AddMessage(page.Info, msgUnzipped)
}

// --- helpers ---

func uploadMessage(err error) string {
	var uerr *upload.Error
	if errors.As(err, &uerr) {
		return uerr.Reason.Message()
	}
	return upload.Write.Message()
}

func extractMessage(err error) string {
	var aerr *archive.Error
	if errors.As(err, &aerr) {
		return aerr.Reason.Message()
	}
	return archive.Failed.Message()
}

// notFound answers 404 with no body.
func notFound(w http.ResponseWriter) {
	w.Header().Set("Content-Type", `text/html; charset="utf-8"`)
	w.WriteHeader(http.StatusNotFound)
}

func attachment(name string) string {
	if v := mime.FormatMediaType("attachment", map[string]string{"filename": name}); v != "" {
		return v
	}
	return "attachment"
}
