// Package httputil holds the HTTP plumbing shared by the API handlers.
//
// # Responses
//
// Handlers return domain errors and let WriteAppError pick the status:
//
//	topic, err := svc.GetTopic(r.Context(), id)
//	if err != nil {
//		httputil.WriteAppError(w, r, err)
//		return
//	}
//	httputil.WriteSuccess(w, topic)
//
// Every error body has the shape {"error": "...", "code": "...", "errors": [...]}, where
// errors lists field-level validation failures. Storage failures and anything that is
// not an *apperr.Error are logged and answered with a generic 500.
//
// # Requests
//
// ParseJSON rejects unknown fields and reports malformed bodies as validation errors.
// ParsePathInt64 and ParseQueryInt do the same for path and query parameters.
//
// # Middleware
//
//	handler := httputil.Chain(
//		httputil.RequestIDMiddleware,
//		httputil.LoggingMiddleware(logger),
//		httputil.RecoveryMiddleware,
//		httputil.CORSMiddleware([]string{"*"}),
//	)(router)
package httputil
