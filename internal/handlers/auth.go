package handlers

import (
	"encoding/base64"
	"errors"
	"log/slog"
	"net/http"

	"github.com/pquerna/otp/totp"
	qrcode "github.com/skip2/go-qrcode"

	"blogapi/internal/middleware"
	"blogapi/internal/models"
	"blogapi/internal/respond"
	"blogapi/internal/store"
)

// Auth groups all authentication-related HTTP handlers.
type Auth struct {
	users   UserRepository
	tokens  TokenIssuer
	revoker TokenRevoker
	appName string
}

// NewAuth creates a new Auth handler group. revoker may be nil, in which
// case logout only acknowledges the request.
func NewAuth(users UserRepository, tokens TokenIssuer, revoker TokenRevoker, appName string) *Auth {
	return &Auth{users: users, tokens: tokens, revoker: revoker, appName: appName}
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	Code     string `json:"code" validate:"omitempty,len=6,numeric"`
}

type registerRequest struct {
	Name     string `json:"name" validate:"required,min=3,max=100"`
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

type totpCodeRequest struct {
	Code string `json:"code" validate:"required,len=6,numeric"`
}

// Login checks credentials, and the TOTP code when 2FA is enabled, then
// returns the user with a fresh access token.
func (a *Auth) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !bind(w, r, &req) {
		return
	}

	user, err := a.users.FindByEmail(r.Context(), req.Email)
	if err != nil {
		respond.Internal(w, r, err)
		return
	}
	if user == nil || !a.users.CheckPassword(user, req.Password) {
		respond.Error(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	if user.TOTPEnabled {
		if req.Code == "" {
			respond.Error(w, http.StatusUnauthorized, "Two-factor code required")
			return
		}
		if user.TOTPSecret == nil || !totp.Validate(req.Code, *user.TOTPSecret) {
			respond.Error(w, http.StatusUnauthorized, "Invalid two-factor code")
			return
		}
	}

	token, _, err := a.tokens.Issue(user)
	if err != nil {
		respond.Internal(w, r, err)
		return
	}
	slog.Info("user logged in", "user_id", user.ID)
	respond.WithToken(w, http.StatusOK, "User logged in", user, token)
}

// Register creates a regular user account and logs it in.
func (a *Auth) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !bind(w, r, &req) {
		return
	}

	user, err := a.users.Create(r.Context(), store.NewUser{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     models.RoleUser,
	})
	if errors.Is(err, store.ErrConflict) {
		respond.Error(w, http.StatusBadRequest, "User already exists")
		return
	}
	if err != nil {
		respond.Internal(w, r, err)
		return
	}

	token, _, err := a.tokens.Issue(user)
	if err != nil {
		respond.Internal(w, r, err)
		return
	}
	slog.Info("user registered", "user_id", user.ID)
	respond.WithToken(w, http.StatusCreated, "User created", user, token)
}

// currentUser loads the authenticated user. A token whose user has since
// been deleted is answered with 401.
func (a *Auth) currentUser(w http.ResponseWriter, r *http.Request) (*models.User, bool) {
	claims := middleware.ClaimsFromCtx(r.Context())
	if claims == nil {
		respond.Error(w, http.StatusUnauthorized, "You must be logged in to access this resource")
		return nil, false
	}
	user, err := a.users.FindByID(r.Context(), claims.UserID)
	if err != nil {
		respond.Internal(w, r, err)
		return nil, false
	}
	if user == nil {
		respond.Error(w, http.StatusUnauthorized, "You must be logged in to access this resource")
		return nil, false
	}
	return user, true
}

// Profile returns the authenticated user.
func (a *Auth) Profile(w http.ResponseWriter, r *http.Request) {
	user, ok := a.currentUser(w, r)
	if !ok {
		return
	}
	respond.OK(w, http.StatusOK, "User profile", user)
}

// Logout revokes the presented token until it would have expired.
func (a *Auth) Logout(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromCtx(r.Context())
	if claims == nil {
		respond.Error(w, http.StatusUnauthorized, "You must be logged in to access this resource")
		return
	}
	if a.revoker != nil && claims.ExpiresAt != nil {
		if err := a.revoker.Revoke(r.Context(), claims.ID, claims.UserID, claims.ExpiresAt.Time); err != nil {
			respond.Internal(w, r, err)
			return
		}
	}
	respond.OK(w, http.StatusOK, "User logged out", nil)
}

type totpSetupResponse struct {
	Secret string `json:"secret"`
	URL    string `json:"url"`
	QRCode string `json:"qr_code"`
}

// TwoFASetup generates a TOTP secret for the caller and returns it with
// a base64 PNG QR code. 2FA stays disabled until TwoFAVerify succeeds.
func (a *Auth) TwoFASetup(w http.ResponseWriter, r *http.Request) {
	user, ok := a.currentUser(w, r)
	if !ok {
		return
	}
	if user.TOTPEnabled {
		respond.Error(w, http.StatusConflict, "Two-factor authentication is already enabled")
		return
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      a.appName,
		AccountName: user.Email,
	})
	if err != nil {
		respond.Internal(w, r, err)
		return
	}

	if err := a.users.SetTOTPSecret(r.Context(), user.ID, key.Secret()); err != nil {
		respond.Internal(w, r, err)
		return
	}

	png, err := qrcode.Encode(key.URL(), qrcode.Medium, 256)
	if err != nil {
		respond.Internal(w, r, err)
		return
	}

	respond.OK(w, http.StatusOK, "Scan the QR code and verify a code to enable two-factor authentication", totpSetupResponse{
		Secret: key.Secret(),
		URL:    key.URL(),
		QRCode: base64.StdEncoding.EncodeToString(png),
	})
}

// TwoFAVerify checks a code against the pending secret and enables 2FA.
func (a *Auth) TwoFAVerify(w http.ResponseWriter, r *http.Request) {
	var req totpCodeRequest
	if !bind(w, r, &req) {
		return
	}
	user, ok := a.currentUser(w, r)
	if !ok {
		return
	}

	if user.TOTPSecret == nil {
		respond.Error(w, http.StatusBadRequest, "Two-factor authentication has not been set up")
		return
	}
	if !totp.Validate(req.Code, *user.TOTPSecret) {
		respond.Error(w, http.StatusBadRequest, "Invalid two-factor code")
		return
	}

	if !user.TOTPEnabled {
		if err := a.users.EnableTOTP(r.Context(), user.ID); err != nil {
			respond.Internal(w, r, err)
			return
		}
		user.TOTPEnabled = true
		slog.Info("2fa enabled", "user_id", user.ID)
	}
	respond.OK(w, http.StatusOK, "Two-factor authentication enabled", user)
}
