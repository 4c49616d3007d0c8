package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"difal-service/internal/api/responses"
)

const (
	ContextKeyUsername = "username"
	ContextKeyRoles    = "roles"

	// APIKeyHeader carries the service key compared against the configured bcrypt hash.
	APIKeyHeader = "X-API-Key"
)

// AuthOptions holds the credentials accepted by Auth.
type AuthOptions struct {
	JWTSecret  []byte
	APIKeyHash []byte
}

// Enabled reports whether any credential is configured.
func (o AuthOptions) Enabled() bool {
	return len(o.JWTSecret) > 0 || len(o.APIKeyHash) > 0
}

// Auth accepts either a service API key or an HS256 bearer token issued by the
// gateway's login service. With nothing configured every request passes.
func Auth(opts AuthOptions) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !opts.Enabled() {
			c.Next()
			return
		}

		if key := c.GetHeader(APIKeyHeader); key != "" && len(opts.APIKeyHash) > 0 {
			if bcrypt.CompareHashAndPassword(opts.APIKeyHash, []byte(key)) != nil {
				responses.Error(c, http.StatusUnauthorized, "Chave de API inválida")
				return
			}
			c.Set(ContextKeyUsername, "api-key")
			c.Next()
			return
		}

		authHeader := c.GetHeader("Authorization")
		if len(opts.JWTSecret) == 0 || !strings.HasPrefix(authHeader, "Bearer ") {
			responses.Error(c, http.StatusUnauthorized, "Credenciais ausentes ou inválidas")
			return
		}

		claims := jwt.MapClaims{}
		_, err := jwt.ParseWithClaims(strings.TrimPrefix(authHeader, "Bearer "), claims,
			func(*jwt.Token) (interface{}, error) { return opts.JWTSecret, nil },
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithExpirationRequired(),
		)
		if err != nil {
			responses.Error(c, http.StatusUnauthorized, "Token inválido ou expirado")
			return
		}

		if username, ok := claims["username"].(string); ok {
			c.Set(ContextKeyUsername, username)
		}
		if roles, ok := claims["roles"].([]interface{}); ok {
			names := make([]string, 0, len(roles))
			for _, r := range roles {
				if s, ok := r.(string); ok {
					names = append(names, s)
				}
			}
			c.Set(ContextKeyRoles, names)
		}
		c.Next()
	}
}
