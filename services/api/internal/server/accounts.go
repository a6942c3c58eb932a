package server

import (
	"net/http"
	"net/url"
	"strings"

	"legalgen/pkg/domain"
	"legalgen/services/api/internal/app"
)

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if !s.allowRate(w, r, "register", "too many registration attempts") {
		s.audit(r, "user.register", "rate_limited")
		return
	}
	var req registerRequest
	if !decodeJSON(w, r, &req) {
		s.audit(r, "user.register", "fail", "reason", "invalid_json")
		return
	}
	user, err := s.app.Register(r.Context(), req.input())
	if err != nil {
		s.audit(r, "user.register", "fail")
		writeAppError(w, r, err)
		return
	}
	s.audit(r, "user.register", "success", "user_id", user.ID)
	writeData(w, http.StatusOK, "User registered successfully!", toProfileDTO(user))
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if !s.allowRate(w, r, "login", "too many login attempts") {
		s.audit(r, "user.login", "rate_limited")
		return
	}
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		s.audit(r, "user.login", "fail", "reason", "invalid_json")
		return
	}
	res, err := s.app.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		s.audit(r, "user.login", "fail")
		writeAppError(w, r, err)
		return
	}
	s.audit(r, "user.login", "success", "user_id", res.User.ID)
	writeData(w, http.StatusOK, "Login successful.", loginResponse{Token: res.Token, Expiration: res.Expires, UserID: res.User.ID})
}

// /api/user/forget-password/{email}
func (s *Server) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	raw := strings.TrimPrefix(r.URL.Path, "/api/user/forget-password/")
	email, err := url.PathUnescape(raw)
	if err != nil || email == "" || strings.Contains(email, "/") {
		http.NotFound(w, r)
		return
	}
	if !s.allowRate(w, r, "forgot-password", "too many password reset requests") {
		s.audit(r, "user.password.forgot", "rate_limited")
		return
	}
	if err := s.app.ForgotPassword(r.Context(), email); err != nil {
		s.audit(r, "user.password.forgot", "fail")
		writeAppError(w, r, err)
		return
	}
	s.audit(r, "user.password.forgot", "success")
	writeData(w, http.StatusOK, "Password reset token sent. Check your email.", nil)
}

func (s *Server) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if !s.allowRate(w, r, "reset-password", "too many password reset attempts") {
		s.audit(r, "user.password.reset", "rate_limited")
		return
	}
	var req resetPasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	err := s.app.ResetPassword(r.Context(), app.ResetPasswordInput{
		Email:           req.Email,
		Token:           req.Token,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
	})
	if err != nil {
		s.audit(r, "user.password.reset", "fail")
		writeAppError(w, r, err)
		return
	}
	s.audit(r, "user.password.reset", "success")
	writeData(w, http.StatusOK, "Password has been reset successfully.", nil)
}

func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request, user domain.User) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if !s.allowRate(w, r, "change-password", "too many password change attempts") {
		s.audit(r, "user.password.change", "rate_limited", "user_id", user.ID)
		return
	}
	var req changePasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	err := s.app.ChangePassword(r.Context(), user.ID, app.ChangePasswordInput{
		CurrentPassword: req.CurrentPassword,
		NewPassword:     req.NewPassword,
		ConfirmPassword: req.ConfirmPassword,
	})
	if err != nil {
		s.audit(r, "user.password.change", "fail", "user_id", user.ID)
		writeAppError(w, r, err)
		return
	}
	s.audit(r, "user.password.change", "success", "user_id", user.ID)
	writeData(w, http.StatusOK, "Password changed successfully.", nil)
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request, user domain.User) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	writeData(w, http.StatusOK, "Profile details.", toProfileDTO(user))
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request, user domain.User) {
	if r.Method != http.MethodPut {
		methodNotAllowed(w)
		return
	}
	var req profileDTO
	if !decodeJSON(w, r, &req) {
		return
	}
	updated, err := s.app.UpdateProfile(r.Context(), user.ID, req.input())
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "Profile updated successfully.", toProfileDTO(updated))
}

func (s *Server) handleUserID(w http.ResponseWriter, r *http.Request, user domain.User) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	writeData(w, http.StatusOK, "User id.", map[string]string{"userId": user.ID})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request, user domain.User) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	token, _ := bearerToken(r)
	if err := s.app.Logout(token); err != nil {
		writeAppError(w, r, err)
		return
	}
	s.audit(r, "user.logout", "success", "user_id", user.ID)
	writeData(w, http.StatusOK, "Logged out successfully!", nil)
}
