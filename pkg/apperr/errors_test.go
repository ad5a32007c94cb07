package apperr

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", Validation("bad input"), http.StatusBadRequest},
		{"conflict", Conflict("username taken"), http.StatusBadRequest},
		{"missing token", MissingToken(), http.StatusUnauthorized},
		{"bad credentials", InvalidCredentials(), http.StatusUnauthorized},
		{"invalid token", InvalidOrExpiredToken(errors.New("expired")), http.StatusForbidden},
		{"forbidden", Forbidden("", "nope"), http.StatusForbidden},
		{"not found", NotFound("topic"), http.StatusNotFound},
		{"storage", Storage("insert topic", sql.ErrConnDone), http.StatusInternalServerError},
		{"unclassified", errors.New("boom"), http.StatusInternalServerError},
		{"wrapped", fmt.Errorf("handler: %w", NotFound("post")), http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.err))
		})
	}
}

func TestErrorIs(t *testing.T) {
	err := fmt.Errorf("wrap: %w", InvalidOrExpiredToken(nil))

	assert.True(t, errors.Is(err, &Error{Kind: KindAuth}))
	assert.True(t, errors.Is(err, &Error{Kind: KindAuth, Code: CodeInvalidOrExpiredToken}))
	assert.False(t, errors.Is(err, &Error{Kind: KindAuth, Code: CodeMissingToken}))
	assert.False(t, errors.Is(err, &Error{Kind: KindForbidden}))
}

func TestStorageUnwrap(t *testing.T) {
	err := Storage("create topic", sql.ErrTxDone)

	assert.ErrorIs(t, err, sql.ErrTxDone)
	assert.Equal(t, KindStorage, KindOf(err))
	assert.Contains(t, err.Error(), "failed to create topic")
}

func TestKindAndCode(t *testing.T) {
	assert.Equal(t, Kind(""), KindOf(errors.New("plain")))
	assert.Equal(t, "", CodeOf(nil))
	assert.True(t, IsKind(NotFound("user"), KindNotFound))
	assert.Equal(t, CodeNotAllowed, CodeOf(Forbidden("", "denied")))
	assert.Equal(t, CodeTopicLocked, CodeOf(Forbidden(CodeTopicLocked, "locked")))
}

func TestValidationFields(t *testing.T) {
	err := Validation("invalid input",
		FieldError{Field: "username", Rule: "min", Message: "username must be at least 3 characters"},
		FieldError{Field: "email", Rule: "email", Message: "email must be a valid email address"},
	)

	assert.Len(t, err.Fields, 2)
	assert.Equal(t, "username", err.Fields[0].Field)
}
