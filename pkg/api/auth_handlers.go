package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/platinummonkey/forum/pkg/forum"
	"github.com/platinummonkey/forum/pkg/httputil"
	"github.com/platinummonkey/forum/pkg/middleware"
)

// AuthHandlers handles registration, login and the current session
type AuthHandlers struct {
	service *forum.Service
	guards  *guards
}

// NewAuthHandlers creates a new auth handlers instance
func NewAuthHandlers(service *forum.Service, g *guards) *AuthHandlers {
	return &AuthHandlers{service: service, guards: g}
}

// RegisterRoutes registers authentication routes on a router mounted at /auth
func (h *AuthHandlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/register", h.register).Methods("POST")
	router.HandleFunc("/login", h.login).Methods("POST")
	router.Handle("/me", protect(h.me, h.guards.authenticated)).Methods("GET")
}

// register handles POST /auth/register
func (h *AuthHandlers) register(w http.ResponseWriter, r *http.Request) {
	var req forum.RegisterInput
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	user, err := h.service.Register(r.Context(), req)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}

	httputil.WriteCreated(w, RegisterResponse{
		Message: "User registered successfully",
		UserID:  user.ID,
	})
}

// login handles POST /auth/login
func (h *AuthHandlers) login(w http.ResponseWriter, r *http.Request) {
	var req forum.LoginInput
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	result, err := h.service.Login(r.Context(), req)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}

	httputil.WriteSuccess(w, LoginResponse{
		Message:   "Login successful",
		Token:     result.Token,
		ExpiresAt: result.ExpiresAt,
		User: SessionUser{
			ID:       result.User.ID,
			Username: result.User.Username,
			Role:     result.User.Role,
		},
	})
}

// me handles GET /auth/me
func (h *AuthHandlers) me(w http.ResponseWriter, r *http.Request) {
	user, err := h.service.Me(r.Context(), middleware.Actor(r))
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, user)
}
