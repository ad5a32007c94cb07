package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/platinummonkey/forum/pkg/apperr"
	"github.com/platinummonkey/forum/pkg/audit"
	"github.com/platinummonkey/forum/pkg/forum"
	"github.com/platinummonkey/forum/pkg/httputil"
	"github.com/platinummonkey/forum/pkg/middleware"
)

// AdminHandlers handles runtime settings and the audit trail
type AdminHandlers struct {
	service  *forum.Service
	settings forum.Settings
	guards   *guards
}

// NewAdminHandlers creates a new admin handlers instance. settings may be nil.
func NewAdminHandlers(service *forum.Service, settings forum.Settings, g *guards) *AdminHandlers {
	return &AdminHandlers{service: service, settings: settings, guards: g}
}

// RegisterRoutes registers admin routes
func (h *AdminHandlers) RegisterRoutes(router *mux.Router) {
	admin := router.PathPrefix("/admin").Subrouter()
	admin.Use(h.guards.authenticated, h.guards.settings)

	admin.HandleFunc("/settings", h.getSettings).Methods("GET")
	admin.HandleFunc("/settings/auto-delete-days", h.setAutoDeleteDays).Methods("PUT")
	admin.HandleFunc("/audit", h.searchAudit).Methods("GET")
}

// getSettings handles GET /admin/settings
func (h *AdminHandlers) getSettings(w http.ResponseWriter, r *http.Request) {
	if h.settings == nil {
		httputil.WriteAppError(w, r, apperr.NotFound("settings"))
		return
	}

	view, err := h.service.GetSettings(r.Context(), middleware.Actor(r), h.settings)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, view)
}

// setAutoDeleteDays handles PUT /admin/settings/auto-delete-days
func (h *AdminHandlers) setAutoDeleteDays(w http.ResponseWriter, r *http.Request) {
	if h.settings == nil {
		httputil.WriteAppError(w, r, apperr.NotFound("settings"))
		return
	}

	var req forum.AutoDeleteInput
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	view, err := h.service.SetAutoDeleteDays(r.Context(), middleware.Actor(r), h.settings, req)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, view)
}

// searchAudit handles GET /admin/audit?event_type=&user_id=&limit=&offset=
func (h *AdminHandlers) searchAudit(w http.ResponseWriter, r *http.Request) {
	filter, err := parseAuditFilter(r)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}

	events, err := h.service.SearchAudit(r.Context(), middleware.Actor(r), filter)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}

	httputil.WriteSuccess(w, AuditResponse{
		Events: events,
		Limit:  filter.PageSize(),
		Offset: filter.Offset,
	})
}

func parseAuditFilter(r *http.Request) (audit.SearchFilter, error) {
	var filter audit.SearchFilter

	for _, et := range r.URL.Query()["event_type"] {
		if et != "" {
			filter.EventTypes = append(filter.EventTypes, audit.EventType(et))
		}
	}

	userID, err := httputil.ParseQueryInt64(r, "user_id", 0)
	if err != nil {
		return filter, err
	}
	if userID > 0 {
		filter.UserID = &userID
	}

	if filter.Limit, err = httputil.ParseQueryInt(r, "limit", 0); err != nil {
		return filter, err
	}
	if filter.Offset, err = httputil.ParseQueryInt(r, "offset", 0); err != nil {
		return filter, err
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	return filter, nil
}
