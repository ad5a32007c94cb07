package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/platinummonkey/forum/pkg/apperr"
	"github.com/platinummonkey/forum/pkg/forum"
	"github.com/platinummonkey/forum/pkg/httputil"
	"github.com/platinummonkey/forum/pkg/middleware"
)

// TopicHandlers handles topics and their moderation flags
type TopicHandlers struct {
	service *forum.Service
	guards  *guards
}

// NewTopicHandlers creates a new topic handlers instance
func NewTopicHandlers(service *forum.Service, g *guards) *TopicHandlers {
	return &TopicHandlers{service: service, guards: g}
}

// RegisterRoutes registers topic routes
func (h *TopicHandlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/topics", h.listTopics).Methods("GET")
	router.HandleFunc("/topics/{id}", h.getTopic).Methods("GET")

	router.Handle("/topics", protect(h.createTopic, h.guards.authenticated)).Methods("POST")
	router.Handle("/topics/{id}", protect(h.updateTopic, h.guards.authenticated)).Methods("PUT")
	router.Handle("/topics/{id}", protect(h.deleteTopic, h.guards.authenticated)).Methods("DELETE")

	router.Handle("/topics/{id}/pin", protect(h.pinTopic, h.guards.authenticated, h.guards.staff)).Methods("PATCH")
	router.Handle("/topics/{id}/lock", protect(h.lockTopic, h.guards.authenticated, h.guards.staff)).Methods("PATCH")
}

// listTopics handles GET /topics?page=&limit=
func (h *TopicHandlers) listTopics(w http.ResponseWriter, r *http.Request) {
	page, limit, err := httputil.ParsePage(r)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}

	list, err := h.service.ListTopics(r.Context(), page, limit)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, list)
}

// getTopic handles GET /topics/{id}. Every successful read counts as a view.
func (h *TopicHandlers) getTopic(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	topic, err := h.service.GetTopic(r.Context(), id)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, topic)
}

// createTopic handles POST /topics
func (h *TopicHandlers) createTopic(w http.ResponseWriter, r *http.Request) {
	var req forum.TopicInput
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	created, err := h.service.CreateTopic(r.Context(), middleware.Actor(r), req)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}

	httputil.WriteCreated(w, TopicCreatedResponse{
		Message:      "Topic created successfully",
		CreatedTopic: *created,
	})
}

// updateTopic handles PUT /topics/{id}
func (h *TopicHandlers) updateTopic(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	var req forum.TopicUpdate
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	topic, err := h.service.UpdateTopic(r.Context(), middleware.Actor(r), id, req)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, TopicResponse{Message: "Topic updated", Topic: topic})
}

// deleteTopic handles DELETE /topics/{id}
func (h *TopicHandlers) deleteTopic(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	if err := h.service.DeleteTopic(r.Context(), middleware.Actor(r), id); err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	httputil.WriteMessage(w, "Topic deleted")
}

// pinTopic handles PATCH /topics/{id}/pin
func (h *TopicHandlers) pinTopic(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	var req PinRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if req.IsPinned == nil {
		httputil.WriteAppError(w, r, requiredFlag("is_pinned"))
		return
	}

	topic, err := h.service.SetPinned(r.Context(), middleware.Actor(r), id, *req.IsPinned)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}

	message := "Topic unpinned"
	if topic.IsPinned {
		message = "Topic pinned"
	}
	httputil.WriteSuccess(w, TopicResponse{Message: message, Topic: topic})
}

// lockTopic handles PATCH /topics/{id}/lock
func (h *TopicHandlers) lockTopic(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	var req LockRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if req.IsLocked == nil {
		httputil.WriteAppError(w, r, requiredFlag("is_locked"))
		return
	}

	topic, err := h.service.SetLocked(r.Context(), middleware.Actor(r), id, *req.IsLocked)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}

	message := "Topic unlocked"
	if topic.IsLocked {
		message = "Topic locked"
	}
	httputil.WriteSuccess(w, TopicResponse{Message: message, Topic: topic})
}

func requiredFlag(field string) error {
	return apperr.Validation("validation failed", apperr.FieldError{
		Field:   field,
		Rule:    "required",
		Message: field + " is required",
	})
}
