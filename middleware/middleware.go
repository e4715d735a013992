package middleware

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is what the marketplace backend puts in its access tokens. The identity is a JSON
// object serialised into "sub"; flat user_id/role claims are read as well.
type Claims struct {
	UserID string `json:"user_id,omitempty"`
	Email  string `json:"email,omitempty"`
	Role   string `json:"role,omitempty"`
	Type   string `json:"type,omitempty"`
	jwt.RegisteredClaims
}

var ErrNotJWT = errors.New("token is not a JWT")

// ParseClaims decodes a bearer token without verifying its signature. The client never holds
// the signing key; it only needs exp and the identity to keep its own state consistent.
func ParseClaims(token string) (*Claims, error) {
	token = strings.TrimSpace(strings.TrimPrefix(token, "Bearer "))
	if token == "" || strings.Count(token, ".") != 2 {
		return nil, ErrNotJWT
	}
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotJWT, err)
	}
	if claims.UserID == "" && strings.HasPrefix(claims.Subject, "{") {
		var identity struct {
			UserID string `json:"user_id"`
			Email  string `json:"email"`
			Role   string `json:"role"`
		}
		if err := json.Unmarshal([]byte(claims.Subject), &identity); err == nil {
			claims.UserID, claims.Email = identity.UserID, identity.Email
			if claims.Role == "" {
				claims.Role = identity.Role
			}
		}
	}
	return claims, nil
}

// Expired reports whether token carries an exp claim at or before now. Opaque tokens and JWTs
// without exp are treated as live; the server has the final word through a 401.
func Expired(token string, now time.Time) bool {
	claims, err := ParseClaims(token)
	if err != nil || claims.ExpiresAt == nil {
		return false
	}
	return !now.Before(claims.ExpiresAt.Time)
}
