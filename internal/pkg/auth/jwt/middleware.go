package jwt

import (
	"context"
	"net/http"
	"strings"

	"chatflow/internal/pkg/logx"
)

// contextKey is a private type for context keys, preventing collisions with other packages.
type contextKey string

const (
	// ContextAuthPayloadKey stores the parsed identity Payload in the request Context.
	ContextAuthPayloadKey contextKey = "auth_payload"
)

// IdentityExtractorMiddleware extracts and validates a JWT from the Authorization
// header and injects the Payload into the Context on success. It does not
// interrupt the request on failure; handlers that require an identity check for
// a nil payload and respond with ErrUnauthorized themselves.
func IdentityExtractorMiddleware(secretKey string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				next.ServeHTTP(w, r)
				return
			}

			// Expected format: "Bearer <token>"
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || parts[0] != "Bearer" {
				next.ServeHTTP(w, r)
				return
			}
			tokenString := parts[1]

			payload, err := ParseToken(tokenString, secretKey)
			if err != nil {
				logx.Warn("Invalid or expired JWT provided, treating as anonymous", "error", err)
				next.ServeHTTP(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), ContextAuthPayloadKey, payload)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetPayloadFromContext extracts the authenticated Payload from the request Context.
// A nil return means the request is anonymous.
func GetPayloadFromContext(r *http.Request) *Payload {
	payload, ok := r.Context().Value(ContextAuthPayloadKey).(*Payload)

	if !ok {
		return nil
	}

	return payload
}
