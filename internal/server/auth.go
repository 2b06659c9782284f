package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// ErrUnauthorized is returned when a signaling request carries no valid token.
var ErrUnauthorized = errors.New("unauthorized")

// TokenVerifier validates HS256 bearer tokens presented on the upgrade request.
type TokenVerifier struct {
	secret []byte
	parser *jwt.Parser
}

// NewTokenVerifier returns a verifier for tokens signed with secret. It returns
// nil when secret is empty, which disables authentication.
func NewTokenVerifier(secret string) *TokenVerifier {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil
	}
	return &TokenVerifier{
		secret: []byte(secret),
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithExpirationRequired(),
		),
	}
}

// Verify parses token and returns its claims.
func (v *TokenVerifier) Verify(token string) (*jwt.RegisteredClaims, error) {
	claims := &jwt.RegisteredClaims{}
	parsed, err := v.parser.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return v.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnauthorized, err)
	}
	if !parsed.Valid {
		return nil, ErrUnauthorized
	}
	return claims, nil
}

// Authenticate extracts the token from the Authorization header or, because
// browsers cannot set headers on a WebSocket handshake, the "token" query
// parameter, and verifies it.
func (v *TokenVerifier) Authenticate(r *http.Request) (*jwt.RegisteredClaims, error) {
	token := bearerToken(r)
	if token == "" {
		return nil, fmt.Errorf("%w: missing token", ErrUnauthorized)
	}
	return v.Verify(token)
}

func bearerToken(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		scheme, token, ok := strings.Cut(header, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
	}
	return strings.TrimSpace(r.URL.Query().Get("token"))
}

// SignToken issues an HS256 token for subject. It exists for tooling and
// tests that need to mint credentials the verifier accepts.
func SignToken(secret, subject string, claims jwt.RegisteredClaims) (string, error) {
	claims.Subject = subject
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
