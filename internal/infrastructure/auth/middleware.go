package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/forbill/whatsapp-vtu/internal/infrastructure/redis"
)

type contextKey struct{}

// AdminFromContext returns the username stored by AuthMiddleware.
func AdminFromContext(ctx context.Context) (string, bool) {
	username, ok := ctx.Value(contextKey{}).(string)
	return username, ok && username != ""
}

func WithAdmin(ctx context.Context, username string) context.Context {
	return context.WithValue(ctx, contextKey{}, username)
}

func AuthMiddleware(redisClient redis.RedisClient, jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				http.Error(w, "authorization header missing", http.StatusUnauthorized)
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				http.Error(w, "invalid authorization header", http.StatusUnauthorized)
				return
			}

			tokenStr := parts[1]
			claims, err := ParseToken(tokenStr, jwtSecret)
			if err != nil {
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}

			// A new login replaces the cached token and revokes older ones.
			storedToken, err := redisClient.Get(r.Context(), TokenKey(claims.Username))
			if err != nil || storedToken != tokenStr {
				slog.Error("invalid or revoked token", "admin", claims.Username, "error", err)
				http.Error(w, "invalid or revoked token", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithAdmin(r.Context(), claims.Username)))
		})
	}
}
