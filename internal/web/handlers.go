// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Veril Contributors

package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/veril/veril/internal/auth"
)

// validate checks request DTOs before they reach the service; the service
// still enforces its own validation, this just gives field-level errors in
// one response instead of one at a time.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report errors under the JSON field names clients actually sent.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// signupRequest is the signup request body.
type signupRequest struct {
	Username    string `json:"username" validate:"required"`
	DisplayName string `json:"displayName" validate:"required"`
	Email       string `json:"email" validate:"required,email"`
	Phone       string `json:"phone" validate:"required"`
	Password    string `json:"password" validate:"required,min=8"`
}

// loginRequest is the login request body.
type loginRequest struct {
	UsernameOrEmail string `json:"usernameOrEmail" validate:"required"`
	Password        string `json:"password" validate:"required"`
}

// authResponse mirrors the operation results for API consumers.
type authResponse struct {
	Message  string `json:"message"`
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
	Token    string `json:"token,omitempty"`
}

// apiResponse is the envelope for verify and error responses.
type apiResponse struct {
	Message string `json:"message"`
	Success bool   `json:"success"`
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if !s.decodeAndValidate(w, r, &req) {
		s.recordOperation("signup", "error")
		return
	}

	result, err := s.service.Signup(r.Context(), auth.SignupParams{
		Username:    req.Username,
		DisplayName: req.DisplayName,
		Email:       req.Email,
		Phone:       req.Phone,
		Password:    req.Password,
	})
	if err != nil {
		s.recordOperation("signup", "error")
		s.writeError(w, err)
		return
	}

	s.recordOperation("signup", "ok")
	s.writeJSON(w, http.StatusCreated, authResponse{
		Message:  result.Message,
		Username: result.Username,
		Email:    result.Email,
	})
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		s.recordOperation("verify", "error")
		s.writeJSON(w, http.StatusBadRequest, apiResponse{
			Message: "Required parameter 'token' is missing",
			Success: false,
		})
		return
	}

	result, err := s.service.VerifyEmail(r.Context(), token)
	if err != nil {
		s.recordOperation("verify", "error")
		s.writeError(w, err)
		return
	}

	s.recordOperation("verify", "ok")
	s.writeJSON(w, http.StatusOK, apiResponse{
		Message: result.Message,
		Success: true,
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !s.decodeAndValidate(w, r, &req) {
		s.recordOperation("login", "error")
		return
	}

	result, err := s.service.Login(r.Context(), req.UsernameOrEmail, req.Password)
	if err != nil {
		s.recordOperation("login", "error")
		s.writeError(w, err)
		return
	}

	s.recordOperation("login", "ok")
	s.writeJSON(w, http.StatusOK, authResponse{
		Message:  result.Message,
		Username: result.Username,
		Email:    result.Email,
		Token:    result.Token,
	})
}

// decodeAndValidate decodes the JSON body into dst and runs struct
// validation, writing the error response itself on failure.
func (s *Server) decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) bool {
	defer r.Body.Close() //nolint:errcheck // nothing useful to do with a body close error

	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		s.writeJSON(w, http.StatusBadRequest, apiResponse{
			Message: "invalid request body",
			Success: false,
		})
		return false
	}

	if err := validate.Struct(dst); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			s.writeValidationErrors(w, fieldErrs)
			return false
		}
		s.writeJSON(w, http.StatusBadRequest, apiResponse{
			Message: "invalid request body",
			Success: false,
		})
		return false
	}

	return true
}
