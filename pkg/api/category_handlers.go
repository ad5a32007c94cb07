package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/platinummonkey/forum/pkg/forum"
	"github.com/platinummonkey/forum/pkg/httputil"
	"github.com/platinummonkey/forum/pkg/middleware"
)

// CategoryHandlers handles category reads and administration
type CategoryHandlers struct {
	service *forum.Service
	guards  *guards
}

// NewCategoryHandlers creates a new category handlers instance
func NewCategoryHandlers(service *forum.Service, g *guards) *CategoryHandlers {
	return &CategoryHandlers{service: service, guards: g}
}

// RegisterRoutes registers category routes
func (h *CategoryHandlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/categories", h.listCategories).Methods("GET")
	router.HandleFunc("/categories/{id}", h.getCategory).Methods("GET")

	// Admin only; the service checks the role
	router.Handle("/categories", protect(h.createCategory, h.guards.authenticated)).Methods("POST")
	router.Handle("/categories/{id}", protect(h.updateCategory, h.guards.authenticated)).Methods("PUT")
	router.Handle("/categories/{id}", protect(h.deleteCategory, h.guards.authenticated)).Methods("DELETE")
}

// listCategories handles GET /categories
func (h *CategoryHandlers) listCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.service.ListCategories(r.Context())
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, categories)
}

// getCategory handles GET /categories/{id}
func (h *CategoryHandlers) getCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	category, err := h.service.GetCategory(r.Context(), id)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, category)
}

// createCategory handles POST /categories
func (h *CategoryHandlers) createCategory(w http.ResponseWriter, r *http.Request) {
	var req forum.CategoryInput
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	category, err := h.service.CreateCategory(r.Context(), middleware.Actor(r), req)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}

	httputil.WriteCreated(w, CategoryResponse{
		Message:    "Category created",
		CategoryID: category.ID,
		Category:   category,
	})
}

// updateCategory handles PUT /categories/{id}
func (h *CategoryHandlers) updateCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	var req forum.CategoryUpdate
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	category, err := h.service.UpdateCategory(r.Context(), middleware.Actor(r), id, req)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}

	httputil.WriteSuccess(w, CategoryResponse{Message: "Category updated", Category: category})
}

// deleteCategory handles DELETE /categories/{id}
func (h *CategoryHandlers) deleteCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	if err := h.service.DeleteCategory(r.Context(), middleware.Actor(r), id); err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	httputil.WriteMessage(w, "Category deleted")
}
