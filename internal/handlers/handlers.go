package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/campuskit/roombooking/internal/domain"
	"github.com/campuskit/roombooking/internal/service"
	"github.com/campuskit/roombooking/internal/session"
	"github.com/campuskit/roombooking/pkg/config"
	"github.com/campuskit/roombooking/pkg/logger"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ctxKey string

const ctxSession ctxKey = "session"

type Handlers struct {
	authService    service.AuthService
	bookingService service.BookingService
	pool           *pgxpool.Pool
	config         *config.Config
}

func New(
	authService service.AuthService,
	bookingService service.BookingService,
	pool *pgxpool.Pool,
	config *config.Config,
) *Handlers {
	return &Handlers{
		authService:    authService,
		bookingService: bookingService,
		pool:           pool,
		config:         config,
	}
}

// RequireSession resolves the session cookie into an authenticated identity
// and rejects the request when there is none.
func (h *Handlers) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := h.authService.CheckSession(r.Context(), h.sessionToken(r))
		if err != nil {
			logger.ErrorContext(r.Context(), "Session lookup failed", "error", err)
			writeError(w, http.StatusInternalServerError, "Internal server error", "INTERNAL_ERROR")
			return
		}
		if data == nil {
			writeError(w, http.StatusUnauthorized, "Authentication required", "UNAUTHORIZED")
			return
		}

		ctx := context.WithValue(r.Context(), ctxSession, data)
		ctx = context.WithValue(ctx, logger.UserIDKey, data.UserID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *Handlers) sessionToken(r *http.Request) string {
	cookie, err := r.Cookie(h.config.Session.CookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

func (h *Handlers) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.config.Session.CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.config.Session.TTL.Seconds()),
		HttpOnly: true,
		Secure:   h.config.Session.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handlers) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.config.Session.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.Session.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func sessionData(r *http.Request) *session.Data {
	if data, ok := r.Context().Value(ctxSession).(*session.Data); ok {
		return data
	}
	return nil
}

func actor(r *http.Request) service.Actor {
	data := sessionData(r)
	if data == nil {
		return service.Actor{}
	}
	return service.Actor{UserID: data.UserID, Role: data.Role}
}

// Health reports process and database health.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.pool.Ping(ctx); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"status":   "error",
			"database": "disconnected",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"database":  "connected",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, statusCode int, message, code string) {
	writeJSON(w, statusCode, map[string]interface{}{
		"success": false,
		"error":   message,
		"code":    code,
	})
}

// writeServiceError maps classified service errors onto HTTP statuses.
// Unclassified errors are logged and surface as a generic server error.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error(), "VALIDATION_ERROR")
	case errors.Is(err, domain.ErrDuplicateEmail):
		writeError(w, http.StatusConflict, "Email already exists", "DUPLICATE_EMAIL")
	case errors.Is(err, domain.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "Invalid email or password", "INVALID_CREDENTIALS")
	case errors.Is(err, domain.ErrChannelMismatch):
		writeError(w, http.StatusForbidden, err.Error(), "CHANNEL_MISMATCH")
	case errors.Is(err, domain.ErrSlotConflict):
		writeError(w, http.StatusConflict, "This time slot is already booked", "SLOT_CONFLICT")
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "Booking not found", "NOT_FOUND")
	case errors.Is(err, domain.ErrForbidden):
		writeError(w, http.StatusForbidden, err.Error(), "FORBIDDEN")
	default:
		logger.ErrorContext(r.Context(), "Unhandled service error", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error", "INTERNAL_ERROR")
	}
}
