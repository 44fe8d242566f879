package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/eumtools/siteprov-server/internal/http/response"
)

// handleListDivisions serves GET /api/v1/divisions.
func (s *Server) handleListDivisions(w http.ResponseWriter, r *http.Request) {
	divisions, err := s.metadataService.Divisions(r.Context())
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Success(w, divisions, s.logger)
}

// handleListSiteTemplates serves GET /api/v1/sitetemplates?divisionId=.
func (s *Server) handleListSiteTemplates(w http.ResponseWriter, r *http.Request) {
	divisionID := 0
	if raw := r.URL.Query().Get("divisionId"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			response.BadRequest(w, "divisionId must be an integer", s.logger)
			return
		}
		divisionID = parsed
	}

	templates, err := s.metadataService.SiteTemplates(r.Context(), divisionID)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Success(w, templates, s.logger)
}

// handleContentTypeFields serves GET /api/v1/contenttypes/{name}/fields.
// The office365Group query flag selects the group-vs-classic field set.
func (s *Server) handleContentTypeFields(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	office365Group := r.URL.Query().Get("office365Group") == "true"

	fields, err := s.metadataService.ContentTypeFields(r.Context(), name, office365Group)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Success(w, fields, s.logger)
}

// handleBlacklist serves GET /api/v1/blacklist.
func (s *Server) handleBlacklist(w http.ResponseWriter, r *http.Request) {
	phrases, err := s.metadataService.Blacklist(r.Context())
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	if phrases == nil {
		phrases = []string{}
	}
	response.Success(w, phrases, s.logger)
}

type aliasCheckRequest struct {
	Alias string `json:"alias" validate:"required,max=64"`
}

type aliasCheckResult struct {
	Alias     string `json:"alias"`
	Available bool   `json:"available"`
}

// handleCheckAlias serves GET /api/v1/aliases/check?alias=.
func (s *Server) handleCheckAlias(w http.ResponseWriter, r *http.Request) {
	alias := r.URL.Query().Get("alias")
	if err := s.validator.Validate(aliasCheckRequest{Alias: alias}); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	available, err := s.metadataService.CheckAlias(r.Context(), alias)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Success(w, aliasCheckResult{Alias: alias, Available: available}, s.logger)
}

// handleHealthCheck serves GET /health.
func (s *Server) handleHealthCheck(w http.ResponseWriter, _ *http.Request) {
	response.Success(w, map[string]string{"status": "ok"}, s.logger)
}
