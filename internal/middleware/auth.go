package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// TokenAuth requires the API token as "Authorization: Bearer <token>" or as
// the token query parameter. An empty token disables the check.
func TokenAuth(token string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if token == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !validToken(r, token) {
				w.Header().Set("WWW-Authenticate", `Bearer realm="keywatch"`)
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func validToken(r *http.Request, token string) bool {
	presented := r.URL.Query().Get("token")
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		presented = strings.TrimPrefix(auth, "Bearer ")
	}
	// Browsers cannot set headers on websocket upgrades, hence the query parameter.
	return presented != "" && subtle.ConstantTimeCompare([]byte(presented), []byte(token)) == 1
}
