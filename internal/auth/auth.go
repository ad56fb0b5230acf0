// Package auth issues and verifies the bearer tokens that gate the order
// intake API. The credential table is an in-memory demo store standing in
// for an external identity provider.
package auth

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"

	"github.com/nataliethinks/o2c-integration-hub/config"
)

// Roles recognized by the API
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// ErrInvalidCredentials is returned for an unknown user or wrong password
var ErrInvalidCredentials = errors.New("invalid credentials")

// ErrInvalidToken is returned for a token that fails verification
var ErrInvalidToken = errors.New("invalid or expired token")

// User is one entry of the credential store
type User struct {
	Username string
	Password string
	Role     string
}

// Claims are the verified fields of a bearer token
type Claims struct {
	Subject string
	Role    string
}

// Service issues and verifies HS256 tokens
type Service struct {
	secret []byte
	ttl    time.Duration
	users  map[string]User
}

// DefaultUsers returns the demo credential table
func DefaultUsers() map[string]User {
	return map[string]User{
		"admin": {Username: "admin", Password: "admin123", Role: RoleAdmin},
		"user":  {Username: "user", Password: "user123", Role: RoleUser},
	}
}

// NewService creates an auth service with the demo credential store
func NewService(cfg config.AuthConfig) *Service {
	return &Service{
		secret: []byte(cfg.JWTSecret),
		ttl:    cfg.TokenTTL,
		users:  DefaultUsers(),
	}
}

// Authenticate checks a username/password pair against the store
func (s *Service) Authenticate(username, password string) (User, error) {
	user, ok := s.users[username]
	if !ok || user.Password != password {
		return User{}, ErrInvalidCredentials
	}
	return user, nil
}

// IssueToken signs a token carrying the user's identity and role
func (s *Service) IssueToken(user User) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  user.Username,
		"role": user.Role,
		"iat":  now.Unix(),
		"exp":  now.Add(s.ttl).Unix(),
	})
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", errors.Wrap(err, "failed to sign token")
	}
	return signed, nil
}

// VerifyToken parses and validates a bearer token
func (s *Service) VerifyToken(tokenString string) (*Claims, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}
	sub, _ := claims["sub"].(string)
	role, _ := claims["role"].(string)
	if sub == "" {
		return nil, ErrInvalidToken
	}

	return &Claims{Subject: sub, Role: role}, nil
}

// ClaimsKey is the gin context key the middleware stores claims under
const ClaimsKey = "authClaims"

// RequireRoles is gin middleware enforcing a valid bearer token whose role
// is in the allowed set. Missing or bad tokens get 401, a valid token with
// the wrong role gets 403.
func (s *Service) RequireRoles(roles ...string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(roles))
	for _, role := range roles {
		allowed[role] = true
	}

	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing Bearer token"})
			return
		}

		claims, err := s.VerifyToken(strings.TrimSpace(strings.TrimPrefix(header, "Bearer ")))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid/expired token"})
			return
		}

		if len(allowed) > 0 && !allowed[claims.Role] {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
			return
		}

		c.Set(ClaimsKey, claims)
		c.Next()
	}
}

// ClaimsFromContext returns the claims stored by RequireRoles
func ClaimsFromContext(c *gin.Context) *Claims {
	if v, ok := c.Get(ClaimsKey); ok {
		if claims, ok := v.(*Claims); ok {
			return claims
		}
	}
	return nil
}
