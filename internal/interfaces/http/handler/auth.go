package handler

import (
	"errors"
	"time"

	"github.com/crm/dashboard/internal/infrastructure/auth"
	"github.com/crm/dashboard/internal/infrastructure/logger"
	"github.com/crm/dashboard/internal/interfaces/http/dto"
	"github.com/crm/dashboard/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// CredentialVerifier checks a username/password pair
type CredentialVerifier interface {
	Verify(username, password string) (*auth.Principal, error)
}

// TokenIssuer signs access tokens
type TokenIssuer interface {
	GenerateToken(username, role string) (*auth.IssuedToken, error)
}

// LoginRequest is the POST /api/login body. Fields are not validated here:
// any pair other than the configured one, empty included, answers 401.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginUser describes the authenticated user
type LoginUser struct {
	Username string `json:"username"`
	Role     string `json:"role"`
}

// LoginResponse is returned on successful login
type LoginResponse struct {
	Token     string    `json:"token"`
	TokenType string    `json:"token_type"`
	ExpiresAt time.Time `json:"expires_at"`
	User      LoginUser `json:"user"`
}

// AuthHandler handles the dashboard login
type AuthHandler struct {
	BaseHandler
	credentials CredentialVerifier
	tokens      TokenIssuer
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(credentials CredentialVerifier, tokens TokenIssuer) *AuthHandler {
	return &AuthHandler{
		credentials: credentials,
		tokens:      tokens,
	}
}

// Login handles POST /api/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	principal, err := h.credentials.Verify(req.Username, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			logger.GetGinLogger(c).Warn("Login rejected",
				zap.String("username", req.Username),
				zap.String("client_ip", c.ClientIP()),
			)
			h.Unauthorized(c, dto.ErrCodeInvalidCredentials, "Invalid username or password")
			return
		}
		h.HandleError(c, err)
		return
	}

	token, err := h.tokens.GenerateToken(principal.Username, principal.Role)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, LoginResponse{
		Token:     token.Token,
		TokenType: token.TokenType,
		ExpiresAt: token.ExpiresAt,
		User: LoginUser{
			Username: principal.Username,
			Role:     principal.Role,
		},
	})
}
