package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/ecomstack/storefront/internal/accounts"
	"github.com/ecomstack/storefront/pkg/models"
)

func (s *Server) handleSignup(role string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req accounts.SignupRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.respondWithError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		account, err := s.accounts.Signup(r.Context(), role, req)
		if err != nil {
			s.respondError(w, err)
			return
		}

		s.respondWithJSON(w, http.StatusCreated, map[string]interface{}{
			"success": true,
			"message": "Account created, verification code sent",
			"account": account,
		})
	}
}

func (s *Server) handleVerifySignup(role string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Email string `json:"email"`
			OTP   string `json:"otp"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.respondWithError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		if err := s.accounts.VerifySignup(r.Context(), role, req.Email, req.OTP); err != nil {
			s.respondError(w, err)
			return
		}

		s.respondWithJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"message": "Account verified",
		})
	}
}

func (s *Server) handleSignin(role string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.respondWithError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		tokens, account, err := s.accounts.Signin(r.Context(), role, req.Email, req.Password)
		if err != nil {
			s.respondError(w, err)
			return
		}

		http.SetCookie(w, &http.Cookie{
			Name:     "access_token",
			Value:    tokens.AccessToken,
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})

		s.respondWithJSON(w, http.StatusOK, map[string]interface{}{
			"success":       true,
			"access_token":  tokens.AccessToken,
			"refresh_token": tokens.RefreshToken,
			"account":       account,
		})
	}
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r)
	if err := s.accounts.Logout(r.Context(), actor.ID); err != nil {
		s.respondError(w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     "access_token",
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})

	s.respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Logged out",
	})
}

func (s *Server) handleForgotPassword(role string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Email string `json:"email"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.respondWithError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		if err := s.accounts.RequestPasswordReset(r.Context(), role, req.Email); err != nil {
			s.respondError(w, err)
			return
		}

		s.respondWithJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"message": "Reset code sent",
		})
	}
}

func (s *Server) handleResetPassword(role string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Email       string `json:"email"`
			OTP         string `json:"otp"`
			NewPassword string `json:"new_password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.respondWithError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		if err := s.accounts.ResetPassword(r.Context(), role, req.Email, req.OTP, req.NewPassword); err != nil {
			s.respondError(w, err)
			return
		}

		s.respondWithJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"message": "Password updated",
		})
	}
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r)
	account, err := s.accounts.Account(r.Context(), actor.ID)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondWithJSON(w, http.StatusOK, account)
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r)

	var patch models.AccountPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		s.respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	account, err := s.accounts.UpdateProfile(r.Context(), actor.ID, patch)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondWithJSON(w, http.StatusOK, account)
}
