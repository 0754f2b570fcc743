// Package auth validates bearer tokens and carries the caller's owner id
// in the request context.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type contextKey struct{}

var (
	ErrMissingToken = errors.New("missing bearer token")
	ErrInvalidToken = errors.New("invalid token")
)

// Authenticator verifies HS256 tokens whose subject is the owner id.
type Authenticator struct {
	secret []byte
	issuer string
	now    func() time.Time
}

// NewAuthenticator validates HS256 tokens signed with secret. An empty issuer is not checked.
func NewAuthenticator(secret, issuer string) *Authenticator {
	return &Authenticator{
		secret: []byte(secret),
		issuer: issuer,
		now:    time.Now,
	}
}

// Verify returns the owner id carried by tokenString.
func (a *Authenticator) Verify(tokenString string) (string, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(a.now),
	}
	if a.issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.issuer))
	}

	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	}, opts...)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	owner := strings.TrimSpace(claims.Subject)
	if owner == "" {
		return "", fmt.Errorf("%w: empty subject", ErrInvalidToken)
	}
	return owner, nil
}

// Issue signs a token for ownerID valid for ttl.
func (a *Authenticator) Issue(ownerID string, ttl time.Duration) (string, error) {
	now := a.now()
	claims := jwt.RegisteredClaims{
		Subject:   ownerID,
		Issuer:    a.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Middleware rejects requests without a valid bearer token with 401 and
// stores the owner id in the context of the rest.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := bearerToken(r)
		if err == nil {
			var owner string
			if owner, err = a.Verify(token); err == nil {
				next.ServeHTTP(w, r.WithContext(WithOwner(r.Context(), owner)))
				return
			}
		}

		slog.WarnContext(r.Context(), "Authentication failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err)
		writeChallenge(w, err)
	})
}

func bearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", ErrMissingToken
	}
	return strings.TrimSpace(token), nil
}

func writeChallenge(w http.ResponseWriter, err error) {
	challenge := `Bearer realm="finboard"`
	if errors.Is(err, ErrInvalidToken) {
		challenge += `, error="invalid_token"`
	}
	w.Header().Set("WWW-Authenticate", challenge)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error": "authentication required",
		"code":  "unauthenticated",
	})
}

// WithOwner returns a copy of ctx carrying ownerID.
func WithOwner(ctx context.Context, ownerID string) context.Context {
	return context.WithValue(ctx, contextKey{}, ownerID)
}

// OwnerFromContext returns the authenticated owner id, or "" when there is none.
func OwnerFromContext(ctx context.Context) string {
	owner, _ := ctx.Value(contextKey{}).(string)
	return owner
}
