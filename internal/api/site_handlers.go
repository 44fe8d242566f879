package api

import (
	"encoding/json/v2"
	"errors"
	"net/http"

	"github.com/eumtools/siteprov-server/internal/domain"
	domainerrors "github.com/eumtools/siteprov-server/internal/errors"
	"github.com/eumtools/siteprov-server/internal/http/response"
	"github.com/eumtools/siteprov-server/internal/service"
)

// handleListSites serves GET /Sites?parentUrl=. Returns the ordered site
// listing as a bare JSON array; any failure is a 400 with a flat message.
func (s *Server) handleListSites(w http.ResponseWriter, r *http.Request) {
	parentURL := r.URL.Query().Get("parentUrl")

	sites, err := s.siteService.ListSites(r.Context(), parentURL)
	if err != nil {
		response.PlainError(w, http.StatusBadRequest, flatMessage(err, service.MsgFailedRetrievingSites))
		return
	}

	// Empty listings are still an array, never null.
	if sites == nil {
		sites = []domain.SiteListItem{}
	}
	response.Raw(w, http.StatusOK, sites, s.logger)
}

// handleCreateSiteRequest serves POST /Sites. The body is a flat mapping of
// field internal name to field value; the response echoes the submitted body
// on success. The requestor identity comes from the authenticated caller.
func (s *Server) handleCreateSiteRequest(w http.ResponseWriter, r *http.Request) {
	var fields map[string]domain.FieldValue
	if err := json.UnmarshalRead(r.Body, &fields); err != nil {
		response.PlainError(w, http.StatusBadRequest, service.MsgFailedSavingRequest)
		return
	}

	username := getUsername(r.Context())
	if _, err := s.siteService.CreateSiteRequest(r.Context(), username, fields); err != nil {
		response.PlainError(w, http.StatusBadRequest, flatMessage(err, service.MsgFailedSavingRequest))
		return
	}

	response.Raw(w, http.StatusOK, fields, s.logger)
}

// flatMessage extracts the flat user-facing message from a domain error,
// falling back to the given default.
func flatMessage(err error, fallback string) string {
	var domainErr *domainerrors.Error
	if errors.As(err, &domainErr) {
		return domainErr.Message
	}
	return fallback
}
