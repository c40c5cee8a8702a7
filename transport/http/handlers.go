package http

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/layer-3/walletauth/core"
	"github.com/layer-3/walletauth/ports"
	"github.com/layer-3/walletauth/service"
)

// AuthHandlers contains HTTP handlers for the auth endpoints of one realm
type AuthHandlers struct {
	authService *service.AuthService
	logger      *slog.Logger
}

// NewAuthHandlers creates new auth handlers
func NewAuthHandlers(authService *service.AuthService, logger *slog.Logger) *AuthHandlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthHandlers{
		authService: authService,
		logger:      logger.With("realm", authService.Realm().Name),
	}
}

type nonceRequest struct {
	WalletAddress string `json:"walletAddress" binding:"required"`
}

type nonceResponse struct {
	Nonce   string `json:"nonce"`
	Message string `json:"message"`
}

type verifyRequest struct {
	WalletAddress string `json:"walletAddress" binding:"required"`
	Signature     string `json:"signature" binding:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

type logoutRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type tokenResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type meResponse struct {
	UserID        string    `json:"userId"`
	WalletAddress string    `json:"walletAddress"`
	Role          core.Role `json:"role"`
}

// Nonce issues a login challenge for a wallet
func (h *AuthHandlers) Nonce(c *gin.Context) {
	var req nonceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	challenge, err := h.authService.GenerateNonce(c.Request.Context(), req.WalletAddress)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, nonceResponse{Nonce: challenge.Nonce, Message: challenge.Message})
}

// Verify checks the signed challenge and starts a session
func (h *AuthHandlers) Verify(c *gin.Context) {
	var req verifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	pair, err := h.authService.Login(c.Request.Context(), req.WalletAddress, req.Signature)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, tokenResponse{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken})
}

// Refresh rotates a refresh token into a new pair
func (h *AuthHandlers) Refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	pair, err := h.authService.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, tokenResponse{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken})
}

// Logout ends the caller's session. The body is optional.
func (h *AuthHandlers) Logout(c *gin.Context) {
	principal, ok := PrincipalFrom(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	// An empty body, chunked or not, means no refresh token
	var req logoutRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
	}

	if err := h.authService.Logout(c.Request.Context(), principal, req.RefreshToken); err != nil {
		h.fail(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// Me returns information about the authenticated user
func (h *AuthHandlers) Me(c *gin.Context) {
	principal, ok := PrincipalFrom(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	c.JSON(http.StatusOK, meResponse{
		UserID:        principal.User.ID,
		WalletAddress: principal.User.Address,
		Role:          principal.Claims.Role,
	})
}

// RevokeFamily lets an operator end a session family of this realm
func (h *AuthHandlers) RevokeFamily(c *gin.Context) {
	operator, ok := PrincipalFrom(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	if err := h.authService.RevokeFamily(c.Request.Context(), c.Param("familyId"), operator.User.ID); err != nil {
		h.fail(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// Health reports whether the session store answers
func Health(store ports.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := store.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

// fail writes err as a response. Every authentication failure produces the same body.
func (h *AuthHandlers) fail(c *gin.Context, err error) {
	status := statusFor(err)
	switch status {
	case http.StatusServiceUnavailable, http.StatusInternalServerError:
		h.logger.ErrorContext(c.Request.Context(), "request failed", "path", c.FullPath(), "error", err)
	default:
		h.logger.DebugContext(c.Request.Context(), "request rejected", "path", c.FullPath(), "error", err)
	}
	c.AbortWithStatusJSON(status, gin.H{"error": messageFor(status)})
}

func statusFor(err error) int {
	switch {
	case core.IsTransient(err):
		return http.StatusServiceUnavailable
	case errors.Is(err, core.ErrInvalidAddress):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrNonceExpiredOrMissing),
		errors.Is(err, core.ErrSignatureUnparseable),
		errors.Is(err, core.ErrSignatureAddressMismatch),
		errors.Is(err, core.ErrRefreshTokenInvalid),
		errors.Is(err, core.ErrRefreshTokenMalformed),
		errors.Is(err, core.ErrRefreshTokenRevoked),
		errors.Is(err, core.ErrFamilyInvalid),
		errors.Is(err, core.ErrReuseDetected),
		errors.Is(err, core.ErrFamilyHeadMoved),
		errors.Is(err, core.ErrAccessTokenInvalid),
		errors.Is(err, core.ErrTokenRevoked),
		errors.Is(err, core.ErrInsufficientRole),
		errors.Is(err, core.ErrUserInactive),
		errors.Is(err, core.ErrUserNotFound):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

func messageFor(status int) string {
	switch status {
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusBadRequest:
		return "invalid request"
	case http.StatusServiceUnavailable:
		return "service unavailable"
	default:
		return "internal error"
	}
}
