package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt"
	"go.uber.org/zap"

	"github.com/fatflowers/coursesub/pkg/logctx"
	"github.com/fatflowers/coursesub/pkg/response"
)

const (
	ContextKeyRole = "role"

	bearerPrefix = "Bearer "
)

// AccessClaims are issued by the account service. Subject holds the user id.
type AccessClaims struct {
	Role string `json:"role,omitempty"`
	jwt.StandardClaims
}

var errMissingToken = errors.New("missing bearer token")

// ParseAccessToken verifies an HS256 token and returns its claims.
func ParseAccessToken(tokenString string, secret []byte) (*AccessClaims, error) {
	if len(secret) == 0 {
		return nil, errors.New("jwt secret not configured")
	}
	claims := &AccessClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return nil, err
	}
	if claims.Subject == "" {
		return nil, errors.New("token has no subject")
	}
	return claims, nil
}

// AuthMiddleware rejects requests without a valid bearer token and stores the
// caller's user id in gin.Context, the request context and the request logger.
func AuthMiddleware(secret string, base *zap.SugaredLogger) gin.HandlerFunc {
	key := []byte(secret)
	return func(c *gin.Context) {
		claims, err := bearerClaims(c, key)
		if err != nil {
			logctx.FromGin(c, base).Infow("request rejected", "reason", err.Error())
			c.Set(ContextKeyErrorCode, string(response.ErrorCodeUnauthenticated))
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				response.FailT[any](response.APIResponseCodeBadRequest, response.ErrorCodeUnauthenticated, "authentication required", nil))
			return
		}

		c.Set(string(logctx.UserIDKey), claims.Subject)
		c.Set(ContextKeyRole, claims.Role)
		ctx := context.WithValue(c.Request.Context(), logctx.UserIDKey, claims.Subject)
		c.Request = c.Request.WithContext(ctx)
		if l, ok := c.Get(string(logctx.LoggerKey)); ok {
			if lg, ok := l.(*zap.SugaredLogger); ok && lg != nil {
				setLogger(c, lg.With("user_id", claims.Subject))
			}
		}

		c.Next()
	}
}

// RequireRole lets through only callers whose token carries role. It must run
// after AuthMiddleware.
func RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString(ContextKeyRole) != role {
			c.Set(ContextKeyErrorCode, string(response.ErrorCodeNotAuthorized))
			c.AbortWithStatusJSON(http.StatusForbidden,
				response.FailT[any](response.APIResponseCodeBadRequest, response.ErrorCodeNotAuthorized, "admin role required", nil))
			return
		}
		c.Next()
	}
}

// UserID returns the authenticated caller set by AuthMiddleware.
func UserID(c *gin.Context) string {
	return c.GetString(string(logctx.UserIDKey))
}

func bearerClaims(c *gin.Context, secret []byte) (*AccessClaims, error) {
	header := c.GetHeader("Authorization")
	if !strings.HasPrefix(header, bearerPrefix) {
		return nil, errMissingToken
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, bearerPrefix))
	if token == "" {
		return nil, errMissingToken
	}
	return ParseAccessToken(token, secret)
}
