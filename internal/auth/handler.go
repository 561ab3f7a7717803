package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noor-academy/backend/internal/identity"
	"github.com/noor-academy/backend/internal/models"
	"github.com/noor-academy/backend/pkg/apperr"
	"github.com/noor-academy/backend/pkg/response"
	"github.com/noor-academy/backend/pkg/utils"
)

// AccountEnsurer creates the profile row on first sign-in.
type AccountEnsurer interface {
	EnsureAccount(ctx context.Context, id *identity.Identity, fullName string) (*models.Account, error)
}

// RegisterRequest is the body for POST /auth/register.
type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	FullName string `json:"full_name" binding:"required"`
}

// LoginRequest is the body for POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// TokenResponse is the auth response with JWT.
type TokenResponse struct {
	Token   string         `json:"token"`
	Account models.Account `json:"account"`
}

// Handler handles auth HTTP endpoints.
type Handler struct {
	creds    CredentialStore
	jwt      *JWTService
	accounts AccountEnsurer
	logger   *zap.Logger
}

// NewHandler creates an auth handler.
func NewHandler(creds CredentialStore, jwt *JWTService, accounts AccountEnsurer, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{creds: creds, jwt: jwt, accounts: accounts, logger: logger}
}

// Register handles POST /auth/register. A contact address freed by account
// removal can be registered again and gets a fresh account id.
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))

	hash, err := utils.HashPassword(req.Password)
	if errors.Is(err, utils.ErrPasswordTooLong) {
		response.BadRequest(c, err.Error())
		return
	}
	if err != nil {
		response.Internal(c, "failed to hash password")
		return
	}
	cred := &models.Credential{AccountID: uuid.New(), Email: email, PasswordHash: hash}
	if err := h.creds.CreateCredential(c.Request.Context(), cred); err != nil {
		if apperr.Is(err, apperr.KindConflict) {
			response.Error(c, apperr.Conflict("email already registered"))
			return
		}
		response.Error(c, err)
		return
	}

	id := &identity.Identity{AccountID: cred.AccountID, Email: email}
	acc, err := h.accounts.EnsureAccount(c.Request.Context(), id, req.FullName)
	if err != nil {
		h.logger.Error("create account failed", zap.Error(err), zap.String("account_id", cred.AccountID.String()))
		// Without its profile row the credential could sign in but never
		// register again under this address.
		if derr := h.creds.DeleteCredential(c.Request.Context(), cred.AccountID); derr != nil {
			h.logger.Error("orphaned credential", zap.Error(derr), zap.String("account_id", cred.AccountID.String()))
		}
		response.Error(c, err)
		return
	}

	token, err := h.jwt.Generate(cred.AccountID, email)
	if err != nil {
		response.Internal(c, "failed to generate token")
		return
	}
	response.Created(c, TokenResponse{Token: token, Account: *acc})
}

// Login handles POST /auth/login.
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	cred, err := h.creds.GetCredentialByEmail(c.Request.Context(), strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			utils.BurnPasswordCheck(req.Password)
			response.Unauthorized(c, "invalid email or password")
			return
		}
		response.Error(c, err)
		return
	}
	if !utils.CheckPassword(req.Password, cred.PasswordHash) {
		response.Unauthorized(c, "invalid email or password")
		return
	}

	id := &identity.Identity{AccountID: cred.AccountID, Email: cred.Email}
	acc, err := h.accounts.EnsureAccount(c.Request.Context(), id, "")
	if err != nil {
		response.Error(c, err)
		return
	}
	if acc.Removed {
		// Removed but not yet revoked; see removal.Protocol.RetryRevocation.
		response.Unauthorized(c, "invalid email or password")
		return
	}

	token, err := h.jwt.Generate(cred.AccountID, cred.Email)
	if err != nil {
		response.Internal(c, "failed to generate token")
		return
	}
	response.OK(c, TokenResponse{Token: token, Account: *acc})
}
