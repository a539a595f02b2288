package auth

import (
	"context"
	"net/http"
	"strings"
)

type userIDKey struct{}

// UserIDFromContext returns the verified caller identity set by Authenticate.
func UserIDFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(userIDKey{}).(string)
	return v, ok && v != ""
}

// Authenticate verifies the Authorization bearer token and stores the user ID
// in the request context. onError writes the rejection response.
func Authenticate(tokens *Tokens, onError func(w http.ResponseWriter, r *http.Request, status int, code string)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if tokens == nil {
				onError(w, r, http.StatusUnauthorized, "unauthorized")
				return
			}

			authz := r.Header.Get("Authorization")
			if authz == "" || !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
				onError(w, r, http.StatusUnauthorized, "unauthorized")
				return
			}

			userID, err := tokens.Verify(strings.TrimSpace(authz[len("Bearer "):]))
			if err != nil {
				onError(w, r, http.StatusUnauthorized, "unauthorized")
				return
			}

			ctx := context.WithValue(r.Context(), userIDKey{}, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
