package httputil

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/platinummonkey/forum/pkg/apperr"
)

// ParseJSON decodes the request body into dest. Unknown fields are rejected.
func ParseJSON(r *http.Request, dest interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dest); err != nil {
		if errors.Is(err, io.EOF) {
			return apperr.Validation("request body is required")
		}
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return apperr.Validation(fmt.Sprintf("request body exceeds %d bytes", maxErr.Limit))
		}
		return apperr.Validation("invalid JSON: " + err.Error())
	}
	return nil
}

// ParseJSONOrError decodes JSON and writes an error response on failure
func ParseJSONOrError(w http.ResponseWriter, r *http.Request, dest interface{}) bool {
	if err := ParseJSON(r, dest); err != nil {
		WriteAppError(w, r, err)
		return false
	}
	return true
}

// ParsePathInt64 extracts a positive int64 path parameter
func ParsePathInt64(r *http.Request, key string) (int64, error) {
	str := mux.Vars(r)[key]
	if str == "" {
		return 0, apperr.Validation("missing path parameter: " + key)
	}
	val, err := strconv.ParseInt(str, 10, 64)
	if err != nil || val <= 0 {
		return 0, apperr.Validation(fmt.Sprintf("invalid %s: %s", key, str), apperr.FieldError{
			Field:   key,
			Rule:    "int",
			Message: key + " must be a positive integer",
		})
	}
	return val, nil
}

// ParsePathInt64OrError extracts an int64 path parameter and writes an error on failure
func ParsePathInt64OrError(w http.ResponseWriter, r *http.Request, key string) (int64, bool) {
	val, err := ParsePathInt64(r, key)
	if err != nil {
		WriteAppError(w, r, err)
		return 0, false
	}
	return val, true
}

// ParseQueryInt extracts an integer query parameter, returning defaultVal when absent
func ParseQueryInt(r *http.Request, key string, defaultVal int) (int, error) {
	str := r.URL.Query().Get(key)
	if str == "" {
		return defaultVal, nil
	}
	val, err := strconv.Atoi(str)
	if err != nil {
		return 0, apperr.Validation(fmt.Sprintf("invalid integer for query param %s: %s", key, str), apperr.FieldError{
			Field:   key,
			Rule:    "int",
			Message: key + " must be an integer",
		})
	}
	return val, nil
}

// ParseQueryInt64 extracts an int64 query parameter, returning defaultVal when absent
func ParseQueryInt64(r *http.Request, key string, defaultVal int64) (int64, error) {
	str := r.URL.Query().Get(key)
	if str == "" {
		return defaultVal, nil
	}
	val, err := strconv.ParseInt(str, 10, 64)
	if err != nil {
		return 0, apperr.Validation(fmt.Sprintf("invalid integer for query param %s: %s", key, str), apperr.FieldError{
			Field:   key,
			Rule:    "int",
			Message: key + " must be an integer",
		})
	}
	return val, nil
}

// ParsePage reads the page and limit query parameters. Missing values are
// returned as 0 and left for the caller to default.
func ParsePage(r *http.Request) (page, limit int, err error) {
	if page, err = ParseQueryInt(r, "page", 0); err != nil {
		return 0, 0, err
	}
	if limit, err = ParseQueryInt(r, "limit", 0); err != nil {
		return 0, 0, err
	}
	return page, limit, nil
}

// BearerToken returns the token of an "Authorization: Bearer" header, or ""
func BearerToken(r *http.Request) string {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
