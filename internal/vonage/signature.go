package vonage

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

var ErrMissingSignature = errors.New("vonage: missing bearer token")

// VerifySignature checks the HS256 token Vonage attaches to webhook requests
// when signed callbacks are enabled for the account.
func VerifySignature(r *http.Request, secret string) error {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	tokenStr, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || strings.TrimSpace(tokenStr) == "" {
		return ErrMissingSignature
	}
	token, err := jwt.Parse(strings.TrimSpace(tokenStr), func(*jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithIssuedAt())
	if err != nil {
		return fmt.Errorf("vonage: verify signature: %w", err)
	}
	if !token.Valid {
		return fmt.Errorf("vonage: verify signature: invalid token")
	}
	return nil
}
