package identity

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/pawtrait/platform/internal/httpserver"
	"github.com/pawtrait/platform/internal/signing"
)

// Handler exposes the Identity Service's HTTP surface (§6 "Identity endpoints").
type Handler struct {
	svc      *Service
	verifier *signing.Verifier
	cookies  CookieConfig
	logger   *slog.Logger
}

// NewHandler creates an identity Handler.
func NewHandler(svc *Service, verifier *signing.Verifier, cookies CookieConfig, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, verifier: verifier, cookies: cookies, logger: logger}
}

// Routes mounts the identity endpoints under /auth.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/register", h.handleRegister)
	r.Post("/login", h.handleLogin)
	r.Post("/refresh", h.handleRefresh)
	r.Post("/logout", h.handleLogout)
	r.Get("/verify", h.handleVerify)
	r.Put("/change-password", h.handleChangePassword)
	r.Delete("/delete", h.handleDelete)
	return r
}

type registerRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}

	id, pair, err := h.svc.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		h.respondDomainError(w, err)
		return
	}

	h.cookies.SetSessionCookies(w, pair)
	httpserver.Respond(w, http.StatusCreated, map[string]any{"user": id.Public()})
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}

	id, pair, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.respondDomainError(w, err)
		return
	}

	h.cookies.SetSessionCookies(w, pair)
	httpserver.Respond(w, http.StatusOK, map[string]any{"user": id.Public()})
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(refreshCookieName)
	if err != nil {
		httpserver.RespondError(w, http.StatusUnauthorized, "MISSING_TOKEN", "refresh token cookie is missing")
		return
	}

	id, pair, err := h.svc.Refresh(r.Context(), h.verifier, cookie.Value)
	if err != nil {
		h.respondDomainError(w, err)
		return
	}

	h.cookies.SetSessionCookies(w, pair)
	httpserver.Respond(w, http.StatusOK, map[string]any{"user": id.Public()})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(refreshCookieName); err == nil {
		h.svc.Logout(r.Context(), cookie.Value, h.verifier)
	}
	h.cookies.ClearSessionCookies(w)
	httpserver.Respond(w, http.StatusOK, map[string]bool{"logged_out": true})
}

func (h *Handler) handleVerify(w http.ResponseWriter, r *http.Request) {
	var token string
	if cookie, err := r.Cookie(accessCookieName); err == nil {
		token = cookie.Value
	}

	id, err := h.svc.Verify(r.Context(), h.verifier, token)
	if err != nil {
		h.respondDomainError(w, err)
		return
	}

	httpserver.Respond(w, http.StatusOK, map[string]any{"user": id.Public(), "valid": true})
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8"`
}

func (h *Handler) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.authenticatedUser(w, r)
	if !ok {
		return
	}

	var req changePasswordRequest
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}

	pair, err := h.svc.ChangePassword(r.Context(), userID, req.CurrentPassword, req.NewPassword)
	if err != nil {
		h.respondDomainError(w, err)
		return
	}

	h.cookies.SetSessionCookies(w, pair)
	httpserver.Respond(w, http.StatusOK, map[string]bool{"password_changed": true})
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.authenticatedUser(w, r)
	if !ok {
		return
	}

	summary, err := h.svc.DeleteSelf(r.Context(), userID)
	if err != nil {
		h.logger.Error("delete self", "error", err, "user_id", userID)
		httpserver.RespondError(w, http.StatusInternalServerError, "DELETION_FAILED", "failed to delete account")
		return
	}

	h.cookies.ClearSessionCookies(w)
	httpserver.Respond(w, http.StatusOK, summary)
}

// authenticatedUser verifies the access_token cookie and writes an error
// response on failure, returning ok=false.
func (h *Handler) authenticatedUser(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	cookie, err := r.Cookie(accessCookieName)
	if err != nil {
		httpserver.RespondError(w, http.StatusUnauthorized, "MISSING_TOKEN", "access token cookie is missing")
		return uuid.UUID{}, false
	}

	claims, err := h.verifier.VerifyAccessToken(cookie.Value)
	if err != nil {
		h.respondDomainError(w, mapTokenError(err))
		return uuid.UUID{}, false
	}

	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		httpserver.RespondError(w, http.StatusUnauthorized, "INVALID_TOKEN", "access token subject is invalid")
		return uuid.UUID{}, false
	}
	return userID, true
}

func (h *Handler) respondDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrEmailExists):
		httpserver.RespondError(w, http.StatusConflict, "EMAIL_ALREADY_EXISTS", "an account with this email already exists")
	case errors.Is(err, ErrInvalidCredentials):
		httpserver.RespondError(w, http.StatusUnauthorized, "INVALID_CREDENTIALS", "invalid email or password")
	case errors.Is(err, ErrAccountDisabled):
		httpserver.RespondError(w, http.StatusForbidden, "ACCOUNT_DISABLED", "this account has been disabled")
	case errors.Is(err, ErrMissingToken):
		httpserver.RespondError(w, http.StatusUnauthorized, "MISSING_TOKEN", "authentication token is missing")
	case errors.Is(err, signing.ErrTokenExpired):
		httpserver.RespondError(w, http.StatusUnauthorized, "TOKEN_EXPIRED", "token has expired")
	case errors.Is(err, ErrTokenRevoked):
		httpserver.RespondError(w, http.StatusUnauthorized, "TOKEN_REVOKED", "token has been revoked")
	case errors.Is(err, signing.ErrTokenInvalid):
		httpserver.RespondError(w, http.StatusUnauthorized, "INVALID_TOKEN", "token is invalid")
	case errors.Is(err, ErrDeletionFailed):
		httpserver.RespondError(w, http.StatusInternalServerError, "DELETION_FAILED", "failed to delete account")
	default:
		httpserver.RespondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", err.Error())
	}
}
