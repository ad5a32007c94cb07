package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/platinummonkey/forum/pkg/forum"
	"github.com/platinummonkey/forum/pkg/httputil"
	"github.com/platinummonkey/forum/pkg/middleware"
)

// NotificationHandlers serves the caller's inbox and topic subscriptions
type NotificationHandlers struct {
	service *forum.Service
	guards  *guards
}

// NewNotificationHandlers creates a new notification handlers instance
func NewNotificationHandlers(service *forum.Service, g *guards) *NotificationHandlers {
	return &NotificationHandlers{service: service, guards: g}
}

// RegisterRoutes registers notification routes. Every route needs a session.
func (h *NotificationHandlers) RegisterRoutes(router *mux.Router) {
	authed := h.guards.authenticated
	router.Handle("/notifications", protect(h.list(false), authed)).Methods("GET")
	router.Handle("/notifications/unread", protect(h.list(true), authed)).Methods("GET")
	router.Handle("/notifications/read-all", protect(h.markAllRead, authed)).Methods("PUT")
	router.Handle("/notifications/subscribe/{topicId}", protect(h.subscribe, authed)).Methods("POST")
	router.Handle("/notifications/subscribe/{topicId}", protect(h.unsubscribe, authed)).Methods("DELETE")
	router.Handle("/notifications/{id}/read", protect(h.markRead, authed)).Methods("PUT")
	router.Handle("/notifications/{id}", protect(h.delete, authed)).Methods("DELETE")
}

// list handles GET /notifications and GET /notifications/unread
func (h *NotificationHandlers) list(unreadOnly bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		inbox, err := h.service.Notifications(r.Context(), middleware.Actor(r), unreadOnly)
		if err != nil {
			httputil.WriteAppError(w, r, err)
			return
		}
		httputil.WriteSuccess(w, inbox)
	}
}

// markRead handles PUT /notifications/{id}/read
func (h *NotificationHandlers) markRead(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	if err := h.service.MarkNotificationRead(r.Context(), middleware.Actor(r), id); err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	httputil.WriteMessage(w, "Notification marked as read")
}

// markAllRead handles PUT /notifications/read-all
func (h *NotificationHandlers) markAllRead(w http.ResponseWriter, r *http.Request) {
	n, err := h.service.MarkAllNotificationsRead(r.Context(), middleware.Actor(r))
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, NotificationsReadResponse{Message: "All notifications marked as read", Updated: n})
}

// delete handles DELETE /notifications/{id}
func (h *NotificationHandlers) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	if err := h.service.DeleteNotification(r.Context(), middleware.Actor(r), id); err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	httputil.WriteNoContent(w)
}

// subscribe handles POST /notifications/subscribe/{topicId}
func (h *NotificationHandlers) subscribe(w http.ResponseWriter, r *http.Request) {
	topicID, ok := httputil.ParsePathInt64OrError(w, r, "topicId")
	if !ok {
		return
	}
	if err := h.service.Subscribe(r.Context(), middleware.Actor(r), topicID); err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	httputil.WriteMessage(w, "Subscribed to topic")
}

// unsubscribe handles DELETE /notifications/subscribe/{topicId}
func (h *NotificationHandlers) unsubscribe(w http.ResponseWriter, r *http.Request) {
	topicID, ok := httputil.ParsePathInt64OrError(w, r, "topicId")
	if !ok {
		return
	}
	if err := h.service.Unsubscribe(r.Context(), middleware.Actor(r), topicID); err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	httputil.WriteNoContent(w)
}
