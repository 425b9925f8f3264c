package server

import (
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/claimkit/claimkit/pkg/cli"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const maxUploadSize = 64 << 20

var page = template.Must(template.New("upload").Parse(`<!DOCTYPE html>
<html>
<head><title>claimkit</title></head>
<body>
<h1>Upload a document</h1>
{{if .Message}}<p><strong>{{.Message}}</strong></p>{{end}}
<form method="POST" action="/upload" enctype="multipart/form-data">
<p><input type="file" name="file" required></p>
<p><input type="text" name="topic" placeholder="topic (optional)"></p>
<p><button type="submit">Ingest</button></p>
</form>
</body>
</html>
`))

// Process runs the ingest pipeline for an uploaded file. The topic becomes
// the claim line ID.
type Process func(ctx context.Context, path, topic string) error

type Server struct {
	dataDir string
	process Process
}

func New(dataDir string, process Process) *Server {
	return &Server{
		dataDir: dataDir,
		process: process,
	}
}

func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/", s.handleIndex)
	r.Post("/upload", s.handleUpload)
	r.Get("/healthz", s.handleHealth)

	return r
}

func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:    addr,
		Handler: s.Handler(),
	}

	go func() {
		<-ctx.Done()
		srv.Shutdown(context.Background())
	}()

	cli.Infof("listening on %s", addr)

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}

	return nil
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.render(w, "")
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")

	if err != nil {
		http.Error(w, "file is required", http.StatusBadRequest)
		return
	}

	defer file.Close()

	if err := os.MkdirAll(s.dataDir, 0o755); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	name := filepath.Base(header.Filename)
	path := filepath.Join(s.dataDir, name)

	dst, err := os.Create(path)

	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if _, err := io.Copy(dst, file); err != nil {
		dst.Close()
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	dst.Close()

	topic := r.FormValue("topic")

	if err := s.process(r.Context(), path, topic); err != nil {
		s.render(w, fmt.Sprintf("Processing %s failed: %v", name, err))
		return
	}

	s.render(w, fmt.Sprintf("Processed %s.", name))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) render(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	page.Execute(w, struct {
		Message string
	}{Message: message})
}
