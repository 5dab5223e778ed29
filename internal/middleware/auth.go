package middleware

import (
	"net/http"
	"strings"

	"storefront-be/internal/utils"

	"github.com/golang-jwt/jwt/v5"
)

// Auth parses the bearer token and, when valid, attaches the caller's
// identity and the raw token to the request context. Requests without a
// valid token pass through anonymously; handlers decide what needs auth.
func Auth(secret string) func(http.Handler) http.Handler {
	key := []byte(secret)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				next.ServeHTTP(w, r)
				return
			}

			tokenStr := strings.TrimPrefix(authHeader, "Bearer ")
			token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
				return key, nil
			})

			if err != nil || !token.Valid {
				next.ServeHTTP(w, r)
				return
			}

			if claims, ok := token.Claims.(jwt.MapClaims); ok {
				userID, _ := claims["user_id"].(string)
				email, _ := claims["email"].(string)
				role, _ := claims["role"].(string)

				ctx := utils.SetUserContext(r.Context(), userID, email, role)
				ctx = utils.SetAuthToken(ctx, tokenStr)
				r = r.WithContext(ctx)
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireUser rejects requests that carry no authenticated user.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := utils.GetUserIDFromContext(r.Context()); !ok {
			utils.WriteJSONError(w, "authentication required", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
