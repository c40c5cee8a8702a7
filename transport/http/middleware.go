package http

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/layer-3/walletauth/core"
	"github.com/layer-3/walletauth/service"
)

const principalKey = "walletauth.principal"

// AuthMiddleware creates middleware that admits only requests carrying a valid access token of the guard's realm
func AuthMiddleware(guard *service.Guard, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		principal, err := guard.Authenticate(c.Request.Context(), token)
		if err != nil {
			status := statusFor(err)
			if status == http.StatusServiceUnavailable {
				logger.ErrorContext(c.Request.Context(), "guard unavailable", "error", err)
			}
			c.AbortWithStatusJSON(status, gin.H{"error": messageFor(status)})
			return
		}

		c.Set(principalKey, principal)
		c.Next()
	}
}

// RequireRoles admits principals holding one of roles. Admins and super admins satisfy every requirement.
func RequireRoles(roles ...core.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := PrincipalFrom(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		role := principal.Claims.Role
		if role == core.RoleAdmin || role == core.RoleSuperAdmin {
			c.Next()
			return
		}
		for _, r := range roles {
			if role == r {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
	}
}

// PrincipalFrom returns the principal stored by AuthMiddleware
func PrincipalFrom(c *gin.Context) (*core.Principal, bool) {
	v, ok := c.Get(principalKey)
	if !ok {
		return nil, false
	}
	principal, ok := v.(*core.Principal)
	return principal, ok && principal != nil
}

// RequestLogger logs one line per request
func RequestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.InfoContext(c.Request.Context(), "http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
			"client_ip", c.ClientIP(),
		)
	}
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
