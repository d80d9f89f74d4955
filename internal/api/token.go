package api

import (
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// ErrNoEmailClaim is returned when a token carries no email.
var ErrNoEmailClaim = errors.New("api: token has no email claim")

// EmailFromToken reads the email claim of an access token. The signature
// is not verified; the result only namespaces local files.
func EmailFromToken(token string) (string, error) {
	token = strings.TrimSpace(strings.TrimPrefix(token, "Bearer "))
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return "", fmt.Errorf("api: parse token: %w", err)
	}
	email, _ := claims["email"].(string)
	if strings.TrimSpace(email) == "" {
		return "", ErrNoEmailClaim
	}
	return email, nil
}
