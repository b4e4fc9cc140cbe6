package server

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
)

type authRequest struct {
	Phone    string `json:"phone"`
	Code     string `json:"code,omitempty"`
	Password string `json:"password,omitempty"`
}

type authResponse struct {
	Success   bool    `json:"success"`
	Message   string  `json:"message"`
	SessionID *string `json:"session_id,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func (s *Server) handleRequestCode(w http.ResponseWriter, r *http.Request) {
	var req authRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeAuthError(w, err)
		return
	}

	s.logger.Info("Requesting code", zap.String("phone", req.Phone))

	if err := s.gateway.RequestCode(r.Context(), req.Phone); err != nil {
		s.writeAuthError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, authResponse{
		Success: true,
		Message: "Code sent! Check your SMS or email",
	})
}

func (s *Server) handleVerifyCode(w http.ResponseWriter, r *http.Request) {
	var req authRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeAuthError(w, err)
		return
	}

	s.logger.Info("Verifying code", zap.String("phone", req.Phone))

	sessionID, err := s.gateway.VerifyCode(r.Context(), req.Phone, req.Code)
	if err != nil {
		// The password-required case surfaces as an error message
		// too; the client follows up on /auth/verify-password.
		s.writeAuthError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, authResponse{
		Success:   true,
		Message:   "Authenticated successfully!",
		SessionID: &sessionID,
	})
}

func (s *Server) handleVerifyPassword(w http.ResponseWriter, r *http.Request) {
	var req authRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeAuthError(w, err)
		return
	}

	s.logger.Info("Verifying 2FA password", zap.String("phone", req.Phone))

	sessionID, err := s.gateway.VerifyPassword(r.Context(), req.Phone, req.Password)
	if err != nil {
		s.writeAuthError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, authResponse{
		Success:   true,
		Message:   "Authenticated successfully!",
		SessionID: &sessionID,
	})
}

func (s *Server) writeAuthError(w http.ResponseWriter, err error) {
	s.logger.Error("Auth request failed", zap.Error(err))
	s.writeJSON(w, http.StatusInternalServerError, authResponse{
		Success: false,
		Message: err.Error(),
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Failed to write response", zap.Error(err))
	}
}
