// Package validation checks decoded request payloads against struct tag rules.
//
// # Overview
//
// Request types declare their constraints with `validate` tags understood by
// go-playground/validator. Failures are reported as a single apperr validation error
// that lists every offending field by its JSON name:
//
//	type registerRequest struct {
//		Username string `json:"username" validate:"min=3,max=50"`
//		Email    string `json:"email" validate:"required,email"`
//		Password string `json:"password" validate:"min=6"`
//	}
//
//	v := validation.New()
//	validation.TrimSpace(&req.Username, &req.Email)
//	if err := v.Struct(req); err != nil {
//		return err // *apperr.Error, Kind == apperr.KindValidation
//	}
//
// # Messages
//
// Each field error carries the rule that failed (min, max, email, oneof, ...) and a
// readable message such as "title must be at least 5 characters".
package validation
