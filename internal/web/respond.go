// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Veril Contributors

package web

import (
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/samber/oops"

	"github.com/veril/veril/internal/auth"
	"github.com/veril/veril/pkg/errutil"
)

// writeJSON writes v as a JSON response with the given status.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}

// writeValidationErrors writes a field→message map, one entry per failed
// field, with status 400.
func (s *Server) writeValidationErrors(w http.ResponseWriter, fieldErrs validator.ValidationErrors) {
	errs := make(map[string]string, len(fieldErrs))
	for _, fe := range fieldErrs {
		errs[fe.Field()] = validationMessage(fe)
	}
	s.writeJSON(w, http.StatusBadRequest, map[string]any{"errors": errs})
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return "must be at least " + fe.Param() + " characters"
	default:
		return "is invalid"
	}
}

// writeError maps a service error to an HTTP response. Business errors carry
// one of the closed auth codes and surface with their own message; anything
// else is an infrastructure failure and stays opaque to the client.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError

	if oopsErr, ok := oops.AsOops(err); ok {
		switch oopsErr.Code() {
		case auth.CodeValidation, auth.CodeTokenInvalid:
			status = http.StatusBadRequest
		case auth.CodeConflict:
			status = http.StatusConflict
		case auth.CodeTokenExpired:
			status = http.StatusGone
		case auth.CodeNotActivated:
			status = http.StatusForbidden
		case auth.CodeInvalidCredentials:
			status = http.StatusUnauthorized
		}
	}

	if status == http.StatusInternalServerError {
		errutil.LogError(s.logger, "request failed", err)
		s.writeJSON(w, status, apiResponse{
			Message: "internal server error",
			Success: false,
		})
		return
	}

	s.writeJSON(w, status, apiResponse{
		Message: err.Error(),
		Success: false,
	})
}
