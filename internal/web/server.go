// Package web provides the HTTP server and handlers for the prospector web UI
// and JSON API.
package web

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strconv"

	"github.com/evcraddock/prospector/internal/analyst"
	"github.com/evcraddock/prospector/internal/auth"
	"github.com/evcraddock/prospector/internal/company"
	"github.com/evcraddock/prospector/internal/logging"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

// Server is the web UI and API HTTP server.
type Server struct {
	companies *company.Repository
	apiKeys   *auth.APIKeyStore
	analyst   *analyst.Client // nil when not configured
	templates *template.Template
	mux       *http.ServeMux
	handler   http.Handler
}

// NewServer creates a web server over the company repository. analystClient
// may be nil, in which case the analyst endpoint answers 503.
func NewServer(companies *company.Repository, apiKeys *auth.APIKeyStore, analystClient *analyst.Client) (*Server, error) {
	funcMap := template.FuncMap{
		"formatYear": tmplFormatYear,
		"formatStr":  tmplFormatStr,
		"contains":   tmplContains,
		"row":        tmplRow,
	}

	tmpl, err := template.New("").Funcs(funcMap).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parsing templates: %w", err)
	}

	s := &Server{
		companies: companies,
		apiKeys:   apiKeys,
		analyst:   analystClient,
		templates: tmpl,
		mux:       http.NewServeMux(),
	}

	staticContent, err := fs.Sub(staticFS, "static")
	if err != nil {
		return nil, fmt.Errorf("creating static sub-fs: %w", err)
	}

	s.mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.FS(staticContent))))
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /{$}", s.handlePage)
	s.mux.HandleFunc("GET /filters", s.handleFilters)
	s.mux.HandleFunc("POST /companies/comment", s.handleCommentPost)
	s.mux.HandleFunc("GET /export.csv", s.handleExport)
	s.mux.HandleFunc("POST /analyst", s.handleAnalystPost)

	s.mux.HandleFunc("GET /api/regions", s.apiRegions)
	s.mux.HandleFunc("GET /api/departments", s.apiDepartments)
	s.mux.HandleFunc("GET /api/sizes", s.apiSizes)
	s.mux.HandleFunc("GET /api/sectors", s.apiSectors)
	s.mux.HandleFunc("GET /api/industries", s.apiIndustries)
	s.mux.HandleFunc("GET /api/years", s.apiYears)
	s.mux.HandleFunc("GET /api/companies", s.apiSearch)
	s.mux.HandleFunc("GET /api/map", s.apiMap)
	s.mux.HandleFunc("PUT /api/companies/comment", s.apiUpdateComment)
	s.mux.HandleFunc("POST /api/analyst", s.apiAnalyst)

	s.handler = logging.RequestLogger(auth.RequireAPIKey(apiKeys, s.mux))

	return s, nil
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	apiJSON(w, map[string]string{"status": "ok"}, http.StatusOK)
}

// Template helper functions

func tmplFormatYear(y *int64) string {
	if y == nil {
		return "—"
	}
	return strconv.FormatInt(*y, 10)
}

func tmplFormatStr(s string) string {
	if s == "" {
		return "—"
	}
	return s
}

func tmplRow(c *company.Company, query string) rowData {
	return rowData{Company: c, Query: query}
}

func tmplContains(values []string, v string) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}
