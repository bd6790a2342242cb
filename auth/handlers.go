// HTTP handlers for the auth endpoints. Handlers decode the request body,
// run presence checks that must yield a 400 before any store work, delegate
// to the Service, and shape the success envelope; every failure goes to the
// central Responder.
package auth

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/user/natours-go/apperror"
	"github.com/user/natours-go/config"
	"github.com/user/natours-go/validation"
)

// Handlers wraps the auth Service with HTTP plumbing.
type Handlers struct {
	service   *Service
	responder *apperror.Responder
	cookieTTL time.Duration
	secure    bool // secure cookie flag, enabled in production
}

// NewHandlers creates the auth Handlers.
func NewHandlers(service *Service, responder *apperror.Responder, cfg *config.AppConfig) *Handlers {
	return &Handlers{
		service:   service,
		responder: responder,
		cookieTTL: cfg.Auth.CookieExpiresIn,
		secure:    cfg.IsProduction(),
	}
}

// Envelope is the success response wrapper shared by every endpoint:
// {status, token?, results?, data?}.
type Envelope struct {
	Status  string `json:"status"`
	Token   string `json:"token,omitempty"`
	Results *int   `json:"results,omitempty"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

// WriteJSON serializes v with the given status code. Shared by all feature
// packages so the envelope stays uniform.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		if err := json.NewEncoder(w).Encode(v); err != nil {
			http.Error(w, `{"status":"error","message":"failed to encode response"}`, http.StatusInternalServerError)
		}
	}
}

// WriteSuccess writes a {status:"success", data:...} envelope.
func WriteSuccess(w http.ResponseWriter, status int, data any) {
	WriteJSON(w, status, Envelope{Status: "success", Data: data})
}

// setTokenCookie mirrors the issued session token into an HTTP-only cookie.
func (h *Handlers) setTokenCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(h.cookieTTL),
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// HandleSignup godoc
// @Summary Register a new user
// @Description Creates an account and returns a session token. The password never appears in the response.
// @Tags auth
// @Accept json
// @Produce json
// @Param signupBody body auth.SignupRequest true "Signup details"
// @Success 201 {object} auth.Envelope "User created"
// @Failure 400 {object} apperror.ErrorResponse "Invalid input"
// @Failure 409 {object} apperror.ErrorResponse "Email already registered"
// @Router /users/signup [post]
func (h *Handlers) HandleSignup() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SignupRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.responder.Write(w, r, apperror.NewBadRequestError("invalid request body", err))
			return
		}
		defer r.Body.Close()

		user, token, err := h.service.Signup(r.Context(), req)
		if err != nil {
			h.responder.Write(w, r, err)
			return
		}

		h.setTokenCookie(w, token)
		WriteJSON(w, http.StatusCreated, Envelope{
			Status: "success",
			Token:  token,
			Data:   map[string]any{"user": user},
		})
	}
}

// HandleLogin godoc
// @Summary Log in
// @Description Verifies credentials and returns a session token. Unknown email and wrong password yield the same 401.
// @Tags auth
// @Accept json
// @Produce json
// @Param loginBody body auth.LoginRequest true "Credentials"
// @Success 200 {object} auth.Envelope "Login successful"
// @Failure 400 {object} apperror.ErrorResponse "Missing email or password"
// @Failure 401 {object} apperror.ErrorResponse "Incorrect email or password"
// @Router /users/login [post]
func (h *Handlers) HandleLogin() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req LoginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.responder.Write(w, r, apperror.NewBadRequestError("invalid request body", err))
			return
		}
		defer r.Body.Close()

		if req.Email == "" || req.Password == "" {
			h.responder.Write(w, r, apperror.NewBadRequestError("Please provide email and password!", nil))
			return
		}

		user, token, err := h.service.Login(r.Context(), req)
		if err != nil {
			h.responder.Write(w, r, err)
			return
		}

		h.setTokenCookie(w, token)
		WriteJSON(w, http.StatusOK, Envelope{
			Status: "success",
			Token:  token,
			Data:   map[string]any{"user": user},
		})
	}
}

// HandleForgotPassword godoc
// @Summary Request a password reset token
// @Description Emails a one-time reset link to the given address.
// @Tags auth
// @Accept json
// @Produce json
// @Param forgotBody body auth.ForgotPasswordRequest true "Account email"
// @Success 200 {object} auth.Envelope "Token sent"
// @Failure 404 {object} apperror.ErrorResponse "No user with that email"
// @Failure 500 {object} apperror.ErrorResponse "Email delivery failed"
// @Router /users/forgotPassword [post]
func (h *Handlers) HandleForgotPassword() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ForgotPasswordRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.responder.Write(w, r, apperror.NewBadRequestError("invalid request body", err))
			return
		}
		defer r.Body.Close()

		if err := validation.Struct(req); err != nil {
			h.responder.Write(w, r, err)
			return
		}

		if err := h.service.ForgotPassword(r.Context(), req.Email, requestBaseURL(r)); err != nil {
			h.responder.Write(w, r, err)
			return
		}

		WriteJSON(w, http.StatusOK, Envelope{Status: "success", Message: "Token sent to email!"})
	}
}

// HandleResetPassword godoc
// @Summary Reset a forgotten password
// @Description Exchanges a valid reset token for a password change and a fresh session token.
// @Tags auth
// @Accept json
// @Produce json
// @Param token path string true "Plaintext reset token from the email"
// @Param resetBody body auth.ResetPasswordRequest true "New password"
// @Success 200 {object} auth.Envelope "Password reset, new token issued"
// @Failure 400 {object} apperror.ErrorResponse "Token invalid or expired"
// @Router /users/resetPassword/{token} [patch]
func (h *Handlers) HandleResetPassword() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ResetPasswordRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.responder.Write(w, r, apperror.NewBadRequestError("invalid request body", err))
			return
		}
		defer r.Body.Close()

		user, token, err := h.service.ResetPassword(r.Context(), chi.URLParam(r, "token"), req)
		if err != nil {
			h.responder.Write(w, r, err)
			return
		}

		h.setTokenCookie(w, token)
		WriteJSON(w, http.StatusOK, Envelope{
			Status: "success",
			Token:  token,
			Data:   map[string]any{"user": user},
		})
	}
}

// HandleUpdatePassword godoc
// @Summary Change the current user's password
// @Description Requires the current password even on an authenticated session.
// @Tags auth
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param updateBody body auth.UpdatePasswordRequest true "Current and new password"
// @Success 200 {object} auth.Envelope "Password changed, new token issued"
// @Failure 401 {object} apperror.ErrorResponse "Current password wrong"
// @Router /users/updateMyPassword [patch]
func (h *Handlers) HandleUpdatePassword() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := UserFromContext(r.Context())
		if !ok {
			h.responder.Write(w, r, apperror.NewAuthError(
				"You are not logged in! Please log in to get access.", nil))
			return
		}

		var req UpdatePasswordRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.responder.Write(w, r, apperror.NewBadRequestError("invalid request body", err))
			return
		}
		defer r.Body.Close()

		token, err := h.service.UpdatePassword(r.Context(), user.ID, req)
		if err != nil {
			h.responder.Write(w, r, err)
			return
		}

		h.setTokenCookie(w, token)
		WriteJSON(w, http.StatusOK, Envelope{Status: "success", Token: token})
	}
}

// requestBaseURL reconstructs the scheme://host prefix for links placed in
// outbound email.
func requestBaseURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}
