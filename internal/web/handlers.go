package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/evcraddock/prospector/internal/analyst"
	"github.com/evcraddock/prospector/internal/company"
	"github.com/evcraddock/prospector/internal/logging"
)

type pageData struct {
	Filter      company.Filter
	Query       string // encoded filter, carried through comment posts
	Regions     []string
	Departments []string
	Sizes       []string
	Sectors     []string
	Industries  []string

	Searched  bool
	Companies []*company.Company
	Map       company.MapView
	ExportURL string

	AnalystEnabled bool
	Analyst        analystData
}

// analystData is the chat panel: the conversation so far, carried between
// posts as JSON in a hidden field.
type analystData struct {
	Messages []analyst.Message
	History  string
	Query    string // encoded filter, so a plain post can redraw the page
	Error    string
}

type rowData struct {
	Company *company.Company
	Query   string
}

// loadCascade fills in the option lists for every level whose parent is set.
// A selection missing from its level's options (left over from a different
// parent) is cleared along with every level below it. The returned data
// carries the cleaned filter.
func (s *Server) loadCascade(ctx context.Context, f company.Filter) (d pageData, err error) {
	defer func() {
		d.Filter = f
		d.Query = f.Query().Encode()
	}()

	if d.Regions, err = s.companies.Regions(ctx); err != nil {
		return d, err
	}
	if !tmplContains(d.Regions, f.Region) {
		f.Region = ""
	}
	if f.Region == "" {
		f.Department, f.Sizes, f.Sector, f.Industry = "", nil, "", ""
		return d, nil
	}

	if d.Departments, err = s.companies.Departments(ctx, f.Region); err != nil {
		return d, err
	}
	if !tmplContains(d.Departments, f.Department) {
		f.Department = ""
	}
	if f.Department == "" {
		f.Sizes, f.Sector, f.Industry = nil, "", ""
		return d, nil
	}

	if d.Sizes, err = s.companies.Sizes(ctx); err != nil {
		return d, err
	}
	f.Sizes = keepKnown(f.Sizes, d.Sizes)
	if len(f.Sizes) == 0 {
		f.Sector, f.Industry = "", ""
		return d, nil
	}

	if d.Sectors, err = s.companies.Sectors(ctx, f.Region, f.Department, f.Sizes); err != nil {
		return d, err
	}
	if !tmplContains(d.Sectors, f.Sector) {
		f.Sector = ""
	}
	if f.Sector == "" {
		f.Industry = ""
		return d, nil
	}

	if d.Industries, err = s.companies.Industries(ctx, f); err != nil {
		return d, err
	}
	if !tmplContains(d.Industries, f.Industry) {
		f.Industry = ""
	}

	return d, nil
}

// keepKnown returns the selected values present in options, in selection order.
func keepKnown(selected, options []string) []string {
	var kept []string
	for _, v := range selected {
		if tmplContains(options, v) {
			kept = append(kept, v)
		}
	}
	return kept
}

// handlePage renders the full page: cascade form plus results once the
// cascade is complete.
func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	d, err := s.buildPage(r, company.ParseFilter(r.URL.Query()))
	if err != nil {
		http.Error(w, "Error "+err.Error(), statusFor(err))
		return
	}
	s.render(w, "page.html", d)
}

// buildPage loads the cascade for f and, when it is complete, the results.
func (s *Server) buildPage(r *http.Request, f company.Filter) (pageData, error) {
	d, err := s.loadCascade(r.Context(), f)
	if err != nil {
		slog.Error("loading filters", "error", err, "request_id", logging.RequestID(r.Context()), "filter", f)
		return d, fmt.Errorf("loading filters: %w", err)
	}
	d.AnalystEnabled = s.analyst != nil
	d.Analyst.Query = d.Query

	f = d.Filter
	if f.Complete() {
		companies, err := s.companies.Search(r.Context(), f)
		if err != nil {
			slog.Error("searching companies", "error", err, "request_id", logging.RequestID(r.Context()), "filter", f)
			return d, fmt.Errorf("loading companies: %w", err)
		}
		d.Searched = true
		d.Companies = companies
		d.Map = company.BuildMap(companies)
		d.ExportURL = "/export.csv?" + d.Query
	}

	return d, nil
}

// handleFilters re-renders only the cascade form (HTMX).
func (s *Server) handleFilters(w http.ResponseWriter, r *http.Request) {
	f := company.ParseFilter(r.URL.Query())

	d, err := s.loadCascade(r.Context(), f)
	if err != nil {
		slog.Error("loading filters", "error", err, "request_id", logging.RequestID(r.Context()), "filter", f)
		http.Error(w, fmt.Sprintf("Error loading filters: %v", err), http.StatusInternalServerError)
		return
	}

	s.renderPartial(w, "filters", d)
}

// handleCommentPost writes a comment back via HTMX or form POST.
func (s *Server) handleCommentPost(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}

	name := strings.TrimSpace(r.FormValue("name"))
	city := strings.TrimSpace(r.FormValue("city"))
	text := strings.TrimSpace(r.FormValue("comment"))
	query := r.FormValue("query")
	if name == "" {
		http.Error(w, "Company name is required", http.StatusBadRequest)
		return
	}

	if err := s.companies.UpdateComment(r.Context(), name, city, text); err != nil {
		slog.Error("updating comment", "error", err, "request_id", logging.RequestID(r.Context()), "name", name, "city", city)
		http.Error(w, fmt.Sprintf("Error updating comment: %v", err), statusFor(err))
		return
	}

	// If HTMX request, return just the updated table row
	if r.Header.Get("HX-Request") == "true" {
		matches, err := s.companies.Get(r.Context(), name, city)
		if err != nil || len(matches) == 0 {
			http.Error(w, "Error loading company", http.StatusInternalServerError)
			return
		}
		s.renderPartial(w, "company-row", rowData{Company: matches[0], Query: query})
		return
	}

	if _, err := url.ParseQuery(query); err != nil {
		query = ""
	}
	http.Redirect(w, r, "/?"+query, http.StatusSeeOther)
}

// handleAnalystPost sends one question to the analyst and redraws the chat
// panel (HTMX) or the whole page.
func (s *Server) handleAnalystPost(w http.ResponseWriter, r *http.Request) {
	if s.analyst == nil {
		http.Error(w, "Analyst not configured", http.StatusServiceUnavailable)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}

	data := analystData{Query: r.FormValue("query")}
	if h := r.FormValue("history"); h != "" {
		if err := json.Unmarshal([]byte(h), &data.Messages); err != nil {
			http.Error(w, "Invalid conversation history", http.StatusBadRequest)
			return
		}
	}

	question := strings.TrimSpace(r.FormValue("question"))
	if question == "" {
		data.Error = "Veuillez saisir une question."
	} else {
		history, _, err := s.analyst.Ask(r.Context(), data.Messages, question)
		if err != nil {
			slog.Error("asking analyst", "error", err, "request_id", logging.RequestID(r.Context()))
			data.Error = "Erreur de l'analyste : " + err.Error()
		} else {
			data.Messages = history
		}
	}

	if len(data.Messages) > 0 {
		history, err := json.Marshal(data.Messages)
		if err != nil {
			http.Error(w, fmt.Sprintf("Error encoding history: %v", err), http.StatusInternalServerError)
			return
		}
		data.History = string(history)
	}

	if r.Header.Get("HX-Request") == "true" {
		s.renderPartial(w, "analyst", data)
		return
	}

	query, err := url.ParseQuery(data.Query)
	if err != nil {
		query = url.Values{}
	}
	d, err := s.buildPage(r, company.ParseFilter(query))
	if err != nil {
		http.Error(w, "Error "+err.Error(), statusFor(err))
		return
	}
	data.Query = d.Query
	d.Analyst = data
	s.render(w, "page.html", d)
}

// handleExport streams the search results as a CSV attachment.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	f := company.ParseFilter(r.URL.Query())

	companies, err := s.companies.Search(r.Context(), f)
	if err != nil {
		slog.Error("exporting companies", "error", err, "request_id", logging.RequestID(r.Context()), "filter", f)
		http.Error(w, fmt.Sprintf("Error exporting companies: %v", err), statusFor(err))
		return
	}

	var buf bytes.Buffer
	if err := company.WriteCSV(&buf, companies); err != nil {
		http.Error(w, fmt.Sprintf("Error writing CSV: %v", err), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", company.ExportFilename))
	writeWithETag(w, r, "text/csv; charset=utf-8", buf.Bytes())
}

// writeWithETag writes body with a content-hash ETag, or 304 when the client
// already holds it.
func writeWithETag(w http.ResponseWriter, r *http.Request, contentType string, body []byte) {
	etag := `"` + strconv.FormatUint(xxhash.Sum64(body), 16) + `"`
	w.Header().Set("ETag", etag)

	if match := r.Header.Get("If-None-Match"); match != "" && match == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		slog.Warn("writing response", "error", err)
	}
}

// statusFor maps repository errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, company.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, company.ErrAmbiguousName):
		return http.StatusConflict
	case errors.Is(err, company.ErrIncompleteFilter):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// render executes a full-page template.
func (s *Server) render(w http.ResponseWriter, name string, data interface{}) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		http.Error(w, fmt.Sprintf("Error rendering template: %v", err), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := buf.WriteTo(w); err != nil {
		slog.Warn("writing page", "error", err)
	}
}

// renderPartial executes a named template block (no layout).
func (s *Server) renderPartial(w http.ResponseWriter, name string, data interface{}) {
	s.render(w, name, data)
}
