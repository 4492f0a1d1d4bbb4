package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/campuskit/roombooking/internal/domain"
	"github.com/campuskit/roombooking/pkg/logger"
)

// Register handles account creation
func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	var req domain.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON format", "INVALID_INPUT")
		return
	}

	user, err := h.authService.Register(r.Context(), &req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"message": "Account created successfully",
		"userId":  user.ID,
	})
}

// Login handles authentication and establishes a session
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON format", "INVALID_INPUT")
		return
	}

	token, _, user, err := h.authService.Login(r.Context(), &req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	h.setSessionCookie(w, token)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Login successful",
		"user":    user.ToUserInfo(),
	})
}

// Logout destroys the current session
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.authService.Logout(r.Context(), h.sessionToken(r)); err != nil {
		logger.ErrorContext(r.Context(), "Failed to destroy session", "error", err)
		writeError(w, http.StatusInternalServerError, "Could not log out", "INTERNAL_ERROR")
		return
	}

	h.clearSessionCookie(w)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Logout successful",
	})
}

// CheckSession reports whether a live session exists. A missing session is
// a normal outcome, never an error status.
func (h *Handlers) CheckSession(w http.ResponseWriter, r *http.Request) {
	data, err := h.authService.CheckSession(r.Context(), h.sessionToken(r))
	if err != nil {
		logger.ErrorContext(r.Context(), "Session lookup failed", "error", err)
		data = nil
	}

	if data == nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success":  true,
			"loggedIn": false,
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"loggedIn": true,
		"user": map[string]interface{}{
			"userId": data.UserID,
			"email":  data.Email,
			"role":   data.Role,
			"name":   data.DisplayName,
		},
	})
}
