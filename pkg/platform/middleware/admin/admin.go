// Package admin guards operator endpoints with HS256 bearer tokens that
// carry the admin role.
package admin

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"beneficiary/pkg/requestcontext"
)

const (
	// RoleAdmin is the only role accepted on admin routes.
	RoleAdmin = "admin"
	// Issuer is stamped on and required of every admin token.
	Issuer = "beneficiary"
)

var errNotAdmin = errors.New("token lacks admin role")

// Claims is the admin token payload.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// IssueToken signs an admin token for subject valid for ttl.
func IssueToken(secret []byte, subject string, ttl time.Duration, now time.Time) (string, error) {
	if len(secret) == 0 {
		return "", errors.New("signing secret is required")
	}
	if subject == "" {
		return "", errors.New("subject is required")
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Role: RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    Issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	})
	signed, err := token.SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("sign admin token: %w", err)
	}
	return signed, nil
}

// ParseToken verifies signature, algorithm, issuer, expiry and role. A
// verified token without the admin role is returned with errNotAdmin.
func ParseToken(secret []byte, tokenString string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims,
		func(*jwt.Token) (any, error) { return secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(Issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, err
	}
	if claims.Role != RoleAdmin {
		return claims, errNotAdmin
	}
	return claims, nil
}

// RequireAdmin rejects requests without a valid admin bearer token. The
// token subject is stored as the request actor.
func RequireAdmin(secret []byte, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || token == "" {
				logger.WarnContext(ctx, "admin access denied - missing token",
					"request_id", requestcontext.RequestID(ctx),
				)
				writeError(w, http.StatusUnauthorized, "unauthorized", "admin token required")
				return
			}

			claims, err := ParseToken(secret, token)
			if errors.Is(err, errNotAdmin) {
				logger.WarnContext(ctx, "admin access denied - role",
					"request_id", requestcontext.RequestID(ctx),
					"subject", claims.Subject,
				)
				writeError(w, http.StatusForbidden, "forbidden", "admin role required")
				return
			}
			if err != nil {
				logger.WarnContext(ctx, "admin access denied - invalid token",
					"request_id", requestcontext.RequestID(ctx),
					"error", err,
				)
				writeError(w, http.StatusUnauthorized, "unauthorized", "invalid or expired token")
				return
			}

			ctx = requestcontext.WithActor(ctx, claims.Subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func writeError(w http.ResponseWriter, status int, code, desc string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = fmt.Fprintf(w, `{"error":%q,"error_description":%q}`, code, desc)
}
