package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/evcraddock/prospector/internal/analyst"
	"github.com/evcraddock/prospector/internal/company"
	"github.com/evcraddock/prospector/internal/logging"
)

// apiError writes a JSON error response.
func apiError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	resp := map[string]string{"error": msg}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		http.Error(w, `{"error":"encode failed"}`, http.StatusInternalServerError)
	}
}

// apiJSON writes a JSON response with the given status code.
func apiJSON(w http.ResponseWriter, data interface{}, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, `{"error":"encode failed"}`, http.StatusInternalServerError)
	}
}

// apiOptions writes an option list, never null.
func apiOptions[T any](w http.ResponseWriter, r *http.Request, values []T, err error, what string) {
	if err != nil {
		slog.Error("listing options", "error", err, "request_id", logging.RequestID(r.Context()), "options", what)
		apiError(w, fmt.Sprintf("listing %s: %v", what, err), http.StatusInternalServerError)
		return
	}
	if values == nil {
		values = []T{}
	}
	apiJSON(w, values, http.StatusOK)
}

func (s *Server) apiRegions(w http.ResponseWriter, r *http.Request) {
	regions, err := s.companies.Regions(r.Context())
	apiOptions(w, r, regions, err, "regions")
}

func (s *Server) apiDepartments(w http.ResponseWriter, r *http.Request) {
	f := company.ParseFilter(r.URL.Query())
	if f.Region == "" {
		apiError(w, "region is required", http.StatusBadRequest)
		return
	}
	departments, err := s.companies.Departments(r.Context(), f.Region)
	apiOptions(w, r, departments, err, "departments")
}

func (s *Server) apiSizes(w http.ResponseWriter, r *http.Request) {
	sizes, err := s.companies.Sizes(r.Context())
	apiOptions(w, r, sizes, err, "sizes")
}

func (s *Server) apiSectors(w http.ResponseWriter, r *http.Request) {
	f := company.ParseFilter(r.URL.Query())
	if f.Region == "" || f.Department == "" {
		apiError(w, "region and department are required", http.StatusBadRequest)
		return
	}
	sectors, err := s.companies.Sectors(r.Context(), f.Region, f.Department, f.Sizes)
	apiOptions(w, r, sectors, err, "sectors")
}

func (s *Server) apiIndustries(w http.ResponseWriter, r *http.Request) {
	f := company.ParseFilter(r.URL.Query())
	if !f.Complete() {
		apiError(w, company.ErrIncompleteFilter.Error(), http.StatusBadRequest)
		return
	}
	industries, err := s.companies.Industries(r.Context(), f)
	apiOptions(w, r, industries, err, "industries")
}

func (s *Server) apiYears(w http.ResponseWriter, r *http.Request) {
	years, err := s.companies.Years(r.Context())
	apiOptions(w, r, years, err, "years")
}

// apiSearch returns the companies matching the filter in the query string.
func (s *Server) apiSearch(w http.ResponseWriter, r *http.Request) {
	f := company.ParseFilter(r.URL.Query())

	companies, err := s.companies.Search(r.Context(), f)
	if err != nil {
		if !errors.Is(err, company.ErrIncompleteFilter) {
			slog.Error("searching companies", "error", err, "request_id", logging.RequestID(r.Context()), "filter", f)
		}
		apiError(w, err.Error(), statusFor(err))
		return
	}
	if companies == nil {
		companies = []*company.Company{}
	}

	apiJSON(w, companies, http.StatusOK)
}

// apiMap returns the city-grouped map view for the filter, with an ETag.
func (s *Server) apiMap(w http.ResponseWriter, r *http.Request) {
	f := company.ParseFilter(r.URL.Query())

	view, err := s.companies.Map(r.Context(), f)
	if err != nil {
		if !errors.Is(err, company.ErrIncompleteFilter) {
			slog.Error("building map", "error", err, "request_id", logging.RequestID(r.Context()), "filter", f)
		}
		apiError(w, err.Error(), statusFor(err))
		return
	}

	body, err := json.Marshal(view)
	if err != nil {
		apiError(w, fmt.Sprintf("encoding map: %v", err), http.StatusInternalServerError)
		return
	}
	writeWithETag(w, r, "application/json", body)
}

type commentRequest struct {
	Name    string `json:"nom"`
	City    string `json:"ville,omitempty"`
	Comment string `json:"commentaires"`
}

// apiUpdateComment writes a comment back to the company table.
func (s *Server) apiUpdateComment(w http.ResponseWriter, r *http.Request) {
	var req commentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apiError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	req.City = strings.TrimSpace(req.City)
	if req.Name == "" {
		apiError(w, "nom is required", http.StatusBadRequest)
		return
	}

	if err := s.companies.UpdateComment(r.Context(), req.Name, req.City, req.Comment); err != nil {
		code := statusFor(err)
		if code == http.StatusInternalServerError {
			slog.Error("updating comment", "error", err, "request_id", logging.RequestID(r.Context()), "name", req.Name, "city", req.City)
		}
		apiError(w, err.Error(), code)
		return
	}

	matches, err := s.companies.Get(r.Context(), req.Name, req.City)
	if err != nil || len(matches) == 0 {
		apiError(w, "loading updated company", http.StatusInternalServerError)
		return
	}

	apiJSON(w, matches[0], http.StatusOK)
}

type analystRequest struct {
	Messages []analyst.Message `json:"messages"`
	Question string            `json:"question"`
}

type analystResponse struct {
	Messages    []analyst.Message `json:"messages"`
	Text        string            `json:"text"`
	Suggestions []string          `json:"suggestions,omitempty"`
	SQL         string            `json:"sql,omitempty"`
	RequestID   string            `json:"request_id,omitempty"`
}

// apiAnalyst forwards a chat turn to the analyst service.
func (s *Server) apiAnalyst(w http.ResponseWriter, r *http.Request) {
	if s.analyst == nil {
		apiError(w, "analyst not available (PROSPECTOR_ANALYST_URL not configured)", http.StatusServiceUnavailable)
		return
	}

	var req analystRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apiError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		apiError(w, "question is required", http.StatusBadRequest)
		return
	}

	history, resp, err := s.analyst.Ask(r.Context(), req.Messages, strings.TrimSpace(req.Question))
	if err != nil {
		slog.Error("asking analyst", "error", err, "request_id", logging.RequestID(r.Context()))
		code := http.StatusBadGateway
		var statusErr *analyst.StatusError
		if errors.As(err, &statusErr) && statusErr.Code < 500 {
			code = statusErr.Code
		}
		apiError(w, err.Error(), code)
		return
	}

	apiJSON(w, analystResponse{
		Messages:    history,
		Text:        resp.Text(),
		Suggestions: resp.Suggestions(),
		SQL:         resp.SQL(),
		RequestID:   resp.RequestID,
	}, http.StatusOK)
}
