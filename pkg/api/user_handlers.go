package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/platinummonkey/forum/pkg/auth"
	"github.com/platinummonkey/forum/pkg/forum"
	"github.com/platinummonkey/forum/pkg/httputil"
	"github.com/platinummonkey/forum/pkg/middleware"
)

// UserHandlers handles member profiles and account moderation
type UserHandlers struct {
	service *forum.Service
	guards  *guards
}

// NewUserHandlers creates a new user handlers instance
func NewUserHandlers(service *forum.Service, g *guards) *UserHandlers {
	return &UserHandlers{service: service, guards: g}
}

// RegisterRoutes registers user routes
func (h *UserHandlers) RegisterRoutes(router *mux.Router) {
	router.Handle("/users", protect(h.listUsers, h.guards.authenticated, h.guards.staff)).Methods("GET")
	router.Handle("/users/{id}", protect(h.getUser, h.guards.identified)).Methods("GET")
	router.Handle("/users/{id}", protect(h.updateUser, h.guards.authenticated)).Methods("PUT")
	router.Handle("/users/{id}", protect(h.deleteUser, h.guards.authenticated)).Methods("DELETE")

	router.Handle("/users/{id}/ban", protect(h.banUser, h.guards.authenticated, h.guards.staff)).Methods("PUT")
	router.Handle("/users/{id}/unban", protect(h.unbanUser, h.guards.authenticated, h.guards.staff)).Methods("PUT")
	router.Handle("/users/{id}/role", protect(h.changeRole, h.guards.authenticated)).Methods("PUT")
}

// listUsers handles GET /users
func (h *UserHandlers) listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.ListUsers(r.Context(), middleware.Actor(r))
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, users)
}

// getUser handles GET /users/{id}. Members looking at their own profile get the full account.
func (h *UserHandlers) getUser(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	var (
		user *auth.User
		err  error
	)
	if actor := middleware.Actor(r); actor != nil && actor.ID == id {
		user, err = h.service.Me(r.Context(), actor)
	} else {
		user, err = h.service.GetUser(r.Context(), id)
	}
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, user)
}

// updateUser handles PUT /users/{id}
func (h *UserHandlers) updateUser(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	var req forum.ProfileInput
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	user, err := h.service.UpdateProfile(r.Context(), middleware.Actor(r), id, req)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, UserResponse{Message: "Profile updated", User: user})
}

// banUser handles PUT /users/{id}/ban
func (h *UserHandlers) banUser(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	user, err := h.service.BanUser(r.Context(), middleware.Actor(r), id)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, UserResponse{Message: "User banned", User: user.Public()})
}

// unbanUser handles PUT /users/{id}/unban
func (h *UserHandlers) unbanUser(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	user, err := h.service.UnbanUser(r.Context(), middleware.Actor(r), id)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, UserResponse{Message: "User unbanned", User: user.Public()})
}

// changeRole handles PUT /users/{id}/role
func (h *UserHandlers) changeRole(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	var req forum.RoleInput
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	user, err := h.service.ChangeRole(r.Context(), middleware.Actor(r), id, req.Role)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, UserResponse{Message: "Role updated", User: user.Public()})
}

// deleteUser handles DELETE /users/{id}
func (h *UserHandlers) deleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	if err := h.service.DeleteUser(r.Context(), middleware.Actor(r), id); err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	httputil.WriteMessage(w, "User deleted")
}
