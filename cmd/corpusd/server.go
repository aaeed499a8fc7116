package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	corpus "github.com/nevindra/corpus"
	"github.com/nevindra/corpus/internal/config"
)

// service is the slice of the corpus Manager the HTTP layer consumes.
type service interface {
	Ingest(ctx context.Context, file corpus.FileConfig) ([]string, error)
	List(ctx context.Context) ([]corpus.IngestionRecord, error)
	Delete(ctx context.Context, sourcePath string) (bool, error)
	ResetIndex(ctx context.Context) error
}

type server struct {
	svc       service
	uploadDir string
	chunk     corpus.ChunkConfig
	logger    *slog.Logger
	mux       *http.ServeMux
}

func newServer(svc service, cfg config.Config, logger *slog.Logger) *server {
	s := &server{
		svc:       svc,
		uploadDir: cfg.Server.UploadDir,
		chunk:     corpus.ChunkConfig{Size: cfg.Chunk.Size, Overlap: cfg.Chunk.Overlap},
		logger:    logger,
		mux:       http.NewServeMux(),
	}
	s.mux.HandleFunc("POST /documents", s.handleIngest)
	s.mux.HandleFunc("GET /documents", s.handleList)
	s.mux.HandleFunc("DELETE /documents", s.handleDelete)
	s.mux.HandleFunc("POST /index/reset", s.handleReset)
	return s
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	s.mux.ServeHTTP(w, r)
	s.logger.Info("request", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
}

type ingestRequest struct {
	URL         string             `json:"url"`
	Name        string             `json:"name,omitempty"`
	ContentType string             `json:"content_type,omitempty"`
	Chunk       corpus.ChunkConfig `json:"chunk"`
}

// handleIngest accepts either a multipart file upload (field "file",
// optional "chunk_size"/"chunk_overlap" fields) or a JSON body naming a
// remote URL. Uploaded files are kept under the upload directory; their
// path there becomes the record's source path.
func (s *server) handleIngest(w http.ResponseWriter, r *http.Request) {
	var file corpus.FileConfig

	if ct := r.Header.Get("Content-Type"); len(ct) >= 19 && ct[:19] == "multipart/form-data" {
		fc, err := s.saveUpload(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		file = fc
	} else {
		var req ingestRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		if req.URL == "" {
			writeError(w, http.StatusBadRequest, errors.New("url is required"))
			return
		}
		name := req.Name
		if name == "" {
			name = req.URL
		}
		file = corpus.FileConfig{Name: name, Path: req.URL, ContentType: req.ContentType, Chunk: req.Chunk}
	}

	if file.Chunk.Size == 0 {
		file.Chunk.Size = s.chunk.Size
	}
	if file.Chunk.Overlap == 0 {
		file.Chunk.Overlap = s.chunk.Overlap
	}

	keys, err := s.svc.Ingest(r.Context(), file)
	if err != nil {
		writeError(w, ingestStatus(err), err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"source_path": file.Path,
		"chunk_keys":  keys,
		"count":       len(keys),
	})
}

// saveUpload persists the multipart file under the upload directory and
// returns the FileConfig pointing at it.
func (s *server) saveUpload(r *http.Request) (corpus.FileConfig, error) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		return corpus.FileConfig{}, err
	}
	f, header, err := r.FormFile("file")
	if err != nil {
		return corpus.FileConfig{}, err
	}
	defer f.Close()

	if err := os.MkdirAll(s.uploadDir, 0o755); err != nil {
		return corpus.FileConfig{}, err
	}
	name := filepath.Base(header.Filename)
	dest := filepath.Join(s.uploadDir, name)
	out, err := os.Create(dest)
	if err != nil {
		return corpus.FileConfig{}, err
	}
	defer out.Close()
	if _, err := io.Copy(out, f); err != nil {
		return corpus.FileConfig{}, err
	}

	file := corpus.FileConfig{
		Name:        name,
		Path:        dest,
		ContentType: r.FormValue("content_type"),
	}
	if v := r.FormValue("chunk_size"); v != "" {
		file.Chunk.Size, _ = strconv.Atoi(v)
	}
	if v := r.FormValue("chunk_overlap"); v != "" {
		file.Chunk.Overlap, _ = strconv.Atoi(v)
	}
	return file, nil
}

func (s *server) handleList(w http.ResponseWriter, r *http.Request) {
	records, err := s.svc.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if records == nil {
		records = []corpus.IngestionRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"documents": records})
}

func (s *server) handleDelete(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		writeError(w, http.StatusBadRequest, errors.New("path query parameter is required"))
		return
	}
	found, err := s.svc.Delete(r.Context(), path)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, errors.New("no ingestion found for "+path))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": path})
}

func (s *server) handleReset(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.ResetIndex(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ingestStatus maps ingestion failures to HTTP status codes.
func ingestStatus(err error) int {
	var unsupported *corpus.ErrUnsupportedContent
	var chunkCfg *corpus.ErrChunkConfig
	switch {
	case errors.As(err, &unsupported):
		return http.StatusUnsupportedMediaType
	case errors.As(err, &chunkCfg):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
