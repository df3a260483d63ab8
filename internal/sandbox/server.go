// Package sandbox is a development backend for the grid: it serves grid pages
// and the save/insert/delete endpoints over tables described by a YAML fixture.
package sandbox

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"gridedit/internal/client"
	"gridedit/internal/model"
)

const maxRequestBytes = 4 << 20

type Server struct {
	store  *Store
	logger *slog.Logger
	token  string
	router chi.Router
}

func NewServer(ctx context.Context, store *Store, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	token, err := store.CSRFToken(ctx)
	if err != nil {
		return nil, err
	}
	s := &Server{store: store, logger: logger, token: token}
	s.router = s.routes()
	return s, nil
}

func (s *Server) Handler() http.Handler { return s.router }

// Token is the anti-forgery token every POST must echo in X-CSRFToken.
func (s *Server) Token() string { return s.token }

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/tables/", http.StatusFound)
	})
	r.Get("/tables/", s.handleTables)
	r.Route("/tables/{table}", func(r chi.Router) {
		r.Get("/", s.handleGrid)
		r.Group(func(r chi.Router) {
			r.Use(s.requireCSRF)
			r.Post("/save/", s.handleSave)
			r.Post("/insert/", s.handleInsert)
			r.Post("/delete/", s.handleDelete)
		})
	})
	return r
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Info("request",
			"id", uuid.NewString(),
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"dur", time.Since(start),
		)
	})
}

func (s *Server) requireCSRF(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get(client.CSRFHeader) != s.token {
			s.logger.Warn("csrf rejected", "path", r.URL.Path)
			http.Error(w, "CSRF verification failed. Request aborted.", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) gridConfig(def TableDef) model.GridConfig {
	base := "/tables/" + url.PathEscape(def.Name) + "/"
	cfg := model.GridConfig{
		DBAlias:        "sandbox",
		SchemaName:     "public",
		TableName:      def.Name,
		PKColumns:      append([]string{}, def.PKColumns...),
		PKUsesSequence: append([]string{}, def.PKUsesSequence...),
		Columns:        def.Columns,
		SaveURL:        base + "save/",
		InsertURL:      base + "insert/",
		DeleteURL:      base + "delete/",
		CSRFToken:      s.token,
	}
	return cfg
}

// table resolves the {table} URL param, answering 400 for unknown tables.
func (s *Server) table(w http.ResponseWriter, r *http.Request) (TableDef, bool) {
	def, ok, err := s.store.Table(r.Context(), chi.URLParam(r, "table"))
	if err != nil {
		s.logger.Error("load table", "error", err)
		http.Error(w, "Could not load table metadata.", http.StatusBadGateway)
		return TableDef{}, false
	}
	if !ok {
		http.Error(w, "Unknown table", http.StatusBadRequest)
		return TableDef{}, false
	}
	return def, true
}

type tableEntry struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

func (s *Server) handleTables(w http.ResponseWriter, r *http.Request) {
	defs, err := s.store.Tables(r.Context())
	if err != nil {
		s.logger.Error("list tables", "error", err)
		http.Error(w, "Could not list tables.", http.StatusBadGateway)
		return
	}
	out := []tableEntry{}
	for _, d := range defs {
		out = append(out, tableEntry{Name: d.Name, URL: "/tables/" + url.PathEscape(d.Name) + "/"})
	}
	writeJSON(w, out)
}

func (s *Server) handleGrid(w http.ResponseWriter, r *http.Request) {
	def, ok := s.table(w, r)
	if !ok {
		return
	}
	rows, err := s.store.Rows(r.Context(), def.Name)
	if err != nil {
		s.logger.Error("load rows", "table", def.Name, "error", err)
		http.Error(w, "Could not load table data.", http.StatusBadGateway)
		return
	}
	writeJSON(w, buildPage(def, s.gridConfig(def), rows, parsePageQuery(def, r.URL.Query())))
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func fail(w http.ResponseWriter, msg string) {
	writeJSON(w, model.Result{OK: false, Error: msg})
}

// decodePayload reads a JSON object body, keeping numbers exact.
func decodePayload(w http.ResponseWriter, r *http.Request) (map[string]any, bool) {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	dec.UseNumber()
	var payload map[string]any
	if err := dec.Decode(&payload); err != nil || payload == nil {
		return nil, false
	}
	return payload, true
}
