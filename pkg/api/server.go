package api

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/platinummonkey/forum/pkg/auth"
	"github.com/platinummonkey/forum/pkg/forum"
	"github.com/platinummonkey/forum/pkg/httputil"
	"github.com/platinummonkey/forum/pkg/middleware"
	"github.com/platinummonkey/forum/pkg/observability"
	"github.com/platinummonkey/forum/pkg/rbac"
)

// DefaultMaxBodyBytes caps request bodies when Options.MaxBodyBytes is unset
const DefaultMaxBodyBytes int64 = 1 << 20

// Options wires a Server
type Options struct {
	Service *forum.Service
	// Settings backs the admin settings routes; nil answers them with 404
	Settings forum.Settings

	Logger  *observability.Logger
	Metrics *observability.Metrics

	// APILimiter applies to every route, AuthLimiter additionally to /auth/*.
	// Either may be nil to disable that tier.
	APILimiter  middleware.Limiter
	AuthLimiter middleware.Limiter

	CORSOrigins  []string
	MaxBodyBytes int64
}

// Server represents our API server
type Server struct {
	service *forum.Service
	router  *mux.Router
	handler http.Handler
	logger  *observability.Logger

	authHandlers     *AuthHandlers
	categoryHandlers *CategoryHandlers
	topicHandlers    *TopicHandlers
	postHandlers     *PostHandlers
	userHandlers     *UserHandlers
	adminHandlers    *AdminHandlers
	inboxHandlers    *NotificationHandlers
}

// guards are the per-route middlewares shared by the handler groups
type guards struct {
	authenticated func(http.Handler) http.Handler
	identified    func(http.Handler) http.Handler
	staff         func(http.Handler) http.Handler
	settings      func(http.Handler) http.Handler
}

// protect wraps fn in the given middlewares, outermost first
func protect(fn http.HandlerFunc, mws ...func(http.Handler) http.Handler) http.Handler {
	var h http.Handler = fn
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

// NewServer creates a new API server
func NewServer(opts Options) (*Server, error) {
	if opts.Service == nil {
		return nil, errors.New("api: forum service is required")
	}
	if opts.Logger == nil {
		opts.Logger = observability.NewLogger(observability.InfoLevel, nil)
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if len(opts.CORSOrigins) == 0 {
		opts.CORSOrigins = []string{"*"}
	}

	s := &Server{
		service: opts.Service,
		router:  mux.NewRouter(),
		logger:  opts.Logger,
	}

	g := &guards{
		authenticated: middleware.NewAuthMiddleware(opts.Service, false).Handler,
		identified:    middleware.NewAuthMiddleware(opts.Service, true).Handler,
		staff:         middleware.RequireRole(auth.RoleModerator, auth.RoleAdmin),
		settings:      rbac.NewPermissionMiddleware(opts.Service.Authorizer()).RequirePermission(rbac.PermManageSettings),
	}

	s.authHandlers = NewAuthHandlers(opts.Service, g)
	s.categoryHandlers = NewCategoryHandlers(opts.Service, g)
	s.topicHandlers = NewTopicHandlers(opts.Service, g)
	s.postHandlers = NewPostHandlers(opts.Service, g)
	s.userHandlers = NewUserHandlers(opts.Service, g)
	s.adminHandlers = NewAdminHandlers(opts.Service, opts.Settings, g)
	s.inboxHandlers = NewNotificationHandlers(opts.Service, g)

	s.setupRoutes(opts)

	s.handler = otelhttp.NewHandler(
		httputil.Chain(
			httputil.RequestIDMiddleware,
			httputil.LoggingMiddleware(opts.Logger),
			httputil.RecoveryMiddleware,
			httputil.CORSMiddleware(opts.CORSOrigins),
			httputil.MaxBytesMiddleware(opts.MaxBodyBytes),
			httputil.ContentTypeMiddleware,
		)(s.router),
		"forum-api",
	)

	return s, nil
}

func (s *Server) setupRoutes(opts Options) {
	if opts.Metrics != nil {
		s.router.Use(observability.HTTPMetricsMiddleware(opts.Metrics))
	}
	if opts.APILimiter != nil {
		s.router.Use(middleware.NewRateLimitMiddleware(opts.APILimiter, middleware.TierAPI, opts.Metrics).Handler)
	}

	authRouter := s.router.PathPrefix("/auth").Subrouter()
	if opts.AuthLimiter != nil {
		authRouter.Use(middleware.NewRateLimitMiddleware(opts.AuthLimiter, middleware.TierAuth, opts.Metrics).Handler)
	}
	s.authHandlers.RegisterRoutes(authRouter)

	s.categoryHandlers.RegisterRoutes(s.router)
	s.topicHandlers.RegisterRoutes(s.router)
	s.postHandlers.RegisterRoutes(s.router)
	s.userHandlers.RegisterRoutes(s.router)
	s.adminHandlers.RegisterRoutes(s.router)
	s.inboxHandlers.RegisterRoutes(s.router)

	s.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteErrorMessage(w, http.StatusNotFound, "route not found")
	})
	s.router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteErrorMessage(w, http.StatusMethodNotAllowed, "method not allowed")
	})
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// Router returns the bare router, without the outer middleware chain
func (s *Server) Router() *mux.Router {
	return s.router
}
