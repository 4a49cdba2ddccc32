package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

type contextKey string

const userContextKey contextKey = "user"

// User is the authenticated caller taken from the bearer token.
type User struct {
	ID    string
	Email string
}

// Claims are the JWT claims accepted by the API. The subject carries the user id.
type Claims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// JWTAuth rejects requests without a valid HS256 bearer token and stores the
// caller in the request context.
func JWTAuth(secret []byte, issuer string) func(http.Handler) http.Handler {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}
	parser := jwt.NewParser(opts...)
	keyFunc := func(*jwt.Token) (interface{}, error) { return secret, nil }

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || strings.TrimSpace(raw) == "" {
				respondError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
				return
			}

			claims := &Claims{}
			token, err := parser.ParseWithClaims(strings.TrimSpace(raw), claims, keyFunc)
			if err != nil || !token.Valid {
				respondError(w, http.StatusUnauthorized, "invalid_token", "invalid or expired token")
				return
			}
			if claims.Subject == "" {
				respondError(w, http.StatusUnauthorized, "invalid_token", "token has no subject")
				return
			}

			ctx := withUser(r.Context(), User{ID: claims.Subject, Email: claims.Email})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func withUser(ctx context.Context, u User) context.Context {
	return context.WithValue(ctx, userContextKey, u)
}

func getUserFromContext(ctx context.Context) User {
	if u, ok := ctx.Value(userContextKey).(User); ok {
		return u
	}
	return User{}
}
