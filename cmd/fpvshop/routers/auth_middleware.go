package routers

import (
	"context"
	"net/http"
	"strings"
)

type ctxKey struct{}

type TokenParser interface {
	ParseJWT(token string) (int64, error)
}

// AuthMiddleware кладёт id пользователя в контекст, если токен валиден.
// Решение об отказе принимает обработчик.
func AuthMiddleware(tokens TokenParser) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := tokenFromRequest(r)
			if token != "" {
				if userID, err := tokens.ParseJWT(token); err == nil {
					r = r.WithContext(context.WithValue(r.Context(), ctxKey{}, userID))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func tokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	if c, err := r.Cookie("jwt"); err == nil {
		return c.Value
	}
	return ""
}

func GetUserIDFromContext(ctx context.Context) (int64, bool) {
	userID, ok := ctx.Value(ctxKey{}).(int64)
	return userID, ok && userID > 0
}
