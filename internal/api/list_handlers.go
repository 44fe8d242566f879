package api

import (
	"encoding/json/v2"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/eumtools/siteprov-server/internal/domain"
	"github.com/eumtools/siteprov-server/internal/http/response"
	"github.com/eumtools/siteprov-server/internal/listcodec"
	"github.com/eumtools/siteprov-server/internal/store"
)

// handleGetListItems serves GET /api/v1/lists/{list}/items. One page of raw
// items per call; callers follow the cursor themselves.
func (s *Server) handleGetListItems(w http.ResponseWriter, r *http.Request) {
	list := chi.URLParam(r, "list")

	q := store.Query{
		OrderBy:  domain.FieldTitle,
		PageSize: s.cfg.Store.PageSize,
		Cursor:   r.URL.Query().Get("cursor"),
	}
	if raw := r.URL.Query().Get("pageSize"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			response.BadRequest(w, "pageSize must be a positive integer", s.logger)
			return
		}
		q.PageSize = parsed
	}

	page, err := s.store.GetItems(r.Context(), list, q)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Success(w, page, s.logger)
}

// handleAddListItem serves POST /api/v1/lists/{list}/items, the store's own
// item-creation endpoint that direct-mode clients write native shapes to.
func (s *Server) handleAddListItem(w http.ResponseWriter, r *http.Request) {
	list := chi.URLParam(r, "list")

	var body map[string]any
	if err := json.UnmarshalRead(r.Body, &body); err != nil {
		response.BadRequest(w, "request body must be a JSON object", s.logger)
		return
	}

	native := listcodec.DecodeDirectItem(body)

	item, err := s.store.AddItem(r.Context(), list, native)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	s.logger.Info("direct list item created", "list", list, "id", item.ID, "requestor", getUsername(r.Context()))
	response.Created(w, item, s.logger)
}
