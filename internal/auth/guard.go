package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/imrishuroy/go-order-dashboard/internal/logging"
)

const (
	// CookieName is the cookie the dashboard page authenticates with.
	CookieName   = "admin_token"
	bearerPrefix = "bearer"
	subjectKey   = "auth_subject"
)

var (
	errMissingToken   = errors.New("missing token")
	errMissingSubject = errors.New("missing subject claim")
)

// Guard admits requests carrying a valid HS256 token. The token subject
// becomes the dashboard session id.
type Guard struct {
	secret []byte
	issuer string
}

// NewGuard returns a guard for tokens signed with secret. issuer is
// checked only when non-empty.
func NewGuard(secret, issuer string) *Guard {
	return &Guard{secret: []byte(secret), issuer: issuer}
}

// Middleware rejects unauthenticated requests with 401.
func (g *Guard) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		subject, err := g.authenticate(c)
		if err != nil {
			logging.FromContext(c.Request.Context()).Warn("unauthorized request", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "detail": err.Error()})
			return
		}
		c.Set(subjectKey, subject)
		c.Next()
	}
}

// Subject returns the authenticated subject set by Middleware.
func Subject(c *gin.Context) string {
	return c.GetString(subjectKey)
}

// Issue signs a token for subject valid for ttl.
func (g *Guard) Issue(subject string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		Issuer:    g.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(g.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func (g *Guard) authenticate(c *gin.Context) (string, error) {
	raw := extractToken(c)
	if raw == "" {
		return "", errMissingToken
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if g.issuer != "" {
		opts = append(opts, jwt.WithIssuer(g.issuer))
	}

	claims := &jwt.RegisteredClaims{}
	if _, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return g.secret, nil
	}, opts...); err != nil {
		return "", fmt.Errorf("parse token: %w", err)
	}
	if claims.Subject == "" {
		return "", errMissingSubject
	}
	return claims.Subject, nil
}

// extractToken reads the Authorization header, falling back to the cookie.
func extractToken(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); h != "" {
		parts := strings.SplitN(h, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], bearerPrefix) {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}
	if v, err := c.Cookie(CookieName); err == nil {
		return v
	}
	return ""
}
