package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/platinummonkey/forum/pkg/forum"
	"github.com/platinummonkey/forum/pkg/httputil"
	"github.com/platinummonkey/forum/pkg/middleware"
)

// PostHandlers handles replies
type PostHandlers struct {
	service *forum.Service
	guards  *guards
}

// NewPostHandlers creates a new post handlers instance
func NewPostHandlers(service *forum.Service, g *guards) *PostHandlers {
	return &PostHandlers{service: service, guards: g}
}

// RegisterRoutes registers post routes
func (h *PostHandlers) RegisterRoutes(router *mux.Router) {
	router.Handle("/posts", protect(h.createPost, h.guards.authenticated)).Methods("POST")
	router.Handle("/posts/{id}", protect(h.updatePost, h.guards.authenticated)).Methods("PUT")
	router.Handle("/posts/{id}", protect(h.deletePost, h.guards.authenticated)).Methods("DELETE")
}

// createPost handles POST /posts
func (h *PostHandlers) createPost(w http.ResponseWriter, r *http.Request) {
	var req forum.PostInput
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	post, err := h.service.CreatePost(r.Context(), middleware.Actor(r), req)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}

	httputil.WriteCreated(w, PostResponse{
		Message: "Post created successfully",
		PostID:  post.ID,
		Post:    post,
	})
}

// updatePost handles PUT /posts/{id}
func (h *PostHandlers) updatePost(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	var req forum.PostUpdate
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	post, err := h.service.UpdatePost(r.Context(), middleware.Actor(r), id, req)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, PostResponse{Message: "Post updated", Post: post})
}

// deletePost handles DELETE /posts/{id}. First posts go with their topic.
func (h *PostHandlers) deletePost(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	if err := h.service.DeletePost(r.Context(), middleware.Actor(r), id); err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	httputil.WriteMessage(w, "Post deleted")
}
