package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/slotwise/slotwise/libs/auth"
)

type masterIDKey struct{}

// RequireMaster rejects requests without a valid bearer token and stashes the
// authenticated master id for the admin handlers.
func RequireMaster(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimSpace(r.Header.Get("Authorization"))
			token, ok := strings.CutPrefix(raw, "Bearer ")
			if !ok {
				http.Error(w, "missing bearer token", http.StatusUnauthorized)
				return
			}
			claims, err := auth.ParseAndVerifyHS256(strings.TrimSpace(token), secret)
			if err != nil || claims.MasterID == "" {
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}
			ctx := context.WithValue(r.Context(), masterIDKey{}, claims.MasterID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func masterIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(masterIDKey{}).(string)
	return id
}
