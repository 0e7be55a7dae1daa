package middleware

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/evotehq/evote-backend/config"
	"github.com/evotehq/evote-backend/internal/models"
)

const principalKey = "principal"

func adminSecret() []byte {
	return []byte(config.GetEnv("JWT_ADMIN_SECRET", "secret"))
}

func voterSecret() []byte {
	return []byte(config.GetEnv("VOTER_SESSION_SECRET", "token_secret"))
}

func SignAdminToken(email string, roles []string) (string, error) {
	claims := jwt.MapClaims{
		"sub":   email,
		"type":  "admin",
		"roles": roles,
		"iss":   "evote-backend",
		"exp":   time.Now().Add(8 * time.Hour).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(adminSecret())
}

func SignVoterToken(voterID string) (string, error) {
	claims := jwt.MapClaims{
		"sub":  voterID,
		"type": "voter",
		"iss":  "evote-backend",
		"exp":  time.Now().Add(24 * time.Hour).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(voterSecret())
}

func parseToken(raw string, secret []byte, wantType string) (string, error) {
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil || !tok.Valid {
		return "", fmt.Errorf("invalid token")
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok || claims["type"] != wantType {
		return "", fmt.Errorf("invalid token")
	}
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return "", fmt.Errorf("invalid token")
	}
	return sub, nil
}

// AdminAuth guards admin routes with a Bearer token and attaches the admin
// principal.
func AdminAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "admin_auth_required"})
			return
		}
		raw := strings.TrimPrefix(header, "Bearer ")
		email, err := parseToken(raw, adminSecret(), "admin")
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid_admin_token"})
			return
		}
		c.Set(principalKey, models.Principal{Kind: models.KindAdmin, ID: email})
		c.Next()
	}
}

// VoterAuth guards voter session routes via the X-Voter-Token header.
func VoterAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader("X-Voter-Token")
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "voter_auth_required"})
			return
		}
		voterID, err := parseToken(raw, voterSecret(), "voter")
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid_voter_session"})
			return
		}
		c.Set(principalKey, models.Principal{Kind: models.KindVoter, ID: voterID})
		c.Next()
	}
}

// PrincipalFrom returns the authenticated principal set by AdminAuth or
// VoterAuth.
func PrincipalFrom(c *gin.Context) (models.Principal, bool) {
	v, ok := c.Get(principalKey)
	if !ok {
		return models.Principal{}, false
	}
	p, ok := v.(models.Principal)
	return p, ok
}
