package chi

import (
	"embed"
	"net/http"

	"github.com/go-chi/chi/v5"
)

//go:embed web
var webFS embed.FS

func (s *Server) mountStatic(r chi.Router) {
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/intro", http.StatusTemporaryRedirect)
	})
	r.Get("/intro", servePage("web/intro.html", "text/html; charset=utf-8"))
	r.Get("/app", servePage("web/index.html", "text/html; charset=utf-8"))
	r.Get("/admin", servePage("web/admin.html", "text/html; charset=utf-8"))
	r.Get("/styles.css", servePage("web/styles.css", "text/css; charset=utf-8"))
}

func servePage(path, contentType string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		data, err := webFS.ReadFile(path)
		if err != nil {
			http.Error(w, "page not found", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", contentType)
		_, _ = w.Write(data)
	}
}
