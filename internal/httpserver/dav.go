package httpserver

import (
	"log"
	"net/http"

	"golang.org/x/net/webdav"
)

const davPrefix = "/dav"

// davHandler exposes Root over WebDAV for clients that prefer mounting the
// share. webdav.Dir keeps every request inside Root.
func (s *Server) davHandler() http.Handler {
	return &webdav.Handler{
		Prefix:     davPrefix,
		FileSystem: webdav.Dir(s.cfg.Root),
		LockSystem: webdav.NewMemLS(),
		Logger: func(r *http.Request, err error) {
			if err != nil {
				log.Printf("dav %s %s: %v", r.Method, r.URL.Path, err)
			}
		},
	}
}
