package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"portfolio/internal/auth"
)

const (
	subjectKey = "subject"
	claimsKey  = "claims"
)

// TokenValidator 校验身份提供方签发的访问令牌。
type TokenValidator interface {
	ValidateToken(token string) (*auth.Claims, error)
}

func abortUnauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
}

// AuthMiddleware 校验 Bearer 令牌并将 subject 注入上下文。
func AuthMiddleware(validator TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			abortUnauthorized(c)
			return
		}

		parts := strings.Fields(header)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			abortUnauthorized(c)
			return
		}

		claims, err := validator.ValidateToken(parts[1])
		if err != nil {
			LoggerFromContext(c).Debug("token rejected", "error", err)
			abortUnauthorized(c)
			return
		}

		c.Set(subjectKey, claims.Subject)
		c.Set(claimsKey, claims)
		c.Next()
	}
}

// RequireAdmin 只放行 role=admin 的令牌，必须挂在 AuthMiddleware 之后。
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		value, _ := c.Get(claimsKey)
		claims, _ := value.(*auth.Claims)
		if !claims.IsAdmin() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin role required"})
			return
		}
		c.Next()
	}
}

// GetSubject 返回已认证请求的 subject。
func GetSubject(c *gin.Context) string {
	if value, ok := c.Get(subjectKey); ok {
		if s, ok := value.(string); ok {
			return s
		}
	}
	return ""
}
