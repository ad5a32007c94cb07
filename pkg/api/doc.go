// Package api provides the HTTP REST API of the forum.
//
// # Overview
//
// Handlers are thin: they decode the request, call forum.Service with the
// authenticated actor and encode the result. Authorization, validation and
// auditing all happen in the service, so every error reaching a handler is
// written with httputil.WriteAppError.
//
// # Routes
//
// The API is built on gorilla/mux and organized into handler groups:
//
//   - Auth: POST /auth/register, POST /auth/login, GET /auth/me
//   - Categories: GET /categories, GET /categories/{id}; POST, PUT and DELETE for admins
//   - Topics: GET /topics?page=&limit=, GET /topics/{id}, POST /topics,
//     PUT and DELETE /topics/{id}, PATCH /topics/{id}/pin and /topics/{id}/lock
//   - Posts: POST /posts, PUT and DELETE /posts/{id}
//   - Users: GET /users, GET, PUT and DELETE /users/{id}, PUT /users/{id}/ban,
//     /users/{id}/unban and /users/{id}/role
//   - Admin: GET /admin/settings, PUT /admin/settings/auto-delete-days, GET /admin/audit
//   - Notifications: GET /notifications and /notifications/unread, PUT
//     /notifications/{id}/read and /notifications/read-all, DELETE /notifications/{id},
//     POST and DELETE /notifications/subscribe/{topicId}
//
// Mutating routes and every notification route require "Authorization: Bearer <token>". A missing token is
// answered with 401, a malformed or expired one with 403.
//
// # Middleware
//
// The outer chain runs for every request, matched or not: OpenTelemetry spans,
// request ids, access logging, panic recovery, CORS, body size limit and the JSON
// content type. Route metrics and the per-IP API rate limit are installed with
// router.Use so they see the matched route; /auth/* carries a second, stricter limit.
//
// # Usage
//
//	server, err := api.NewServer(api.Options{
//		Service:     svc,
//		Settings:    pruner,
//		Logger:      logger,
//		Metrics:     metrics,
//		APILimiter:  apiLimiter,
//		AuthLimiter: authLimiter,
//	})
//	if err != nil {
//		return err
//	}
//	http.ListenAndServe(":8080", server)
package api
