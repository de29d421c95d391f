package auth

import (
	"crypto/subtle"
	"net/http"
)

// Middleware returns a handler that enforces the given auth mode before
// calling next.
//
// Behaviour:
//   - mode "basic": the request must carry basic-auth credentials equal to
//     user and secret.
//   - mode "apikey": header must equal secret.
//   - any other mode passes every request through.
//
// Failures respond 401 without calling next. An empty secret in basic or
// apikey mode rejects every request.
func Middleware(mode, user, header, secret string, next http.Handler) http.Handler {
	switch mode {
	case "basic":
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u, p, ok := r.BasicAuth()
			if !ok || secret == "" || !equal(u, user) || !equal(p, secret) {
				w.Header().Set("WWW-Authenticate", `Basic realm="findingrelay"`)
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	case "apikey":
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret == "" || !equal(r.Header.Get(header), secret) {
				http.Error(w, "invalid api key", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	default:
		return next
	}
}

func equal(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
