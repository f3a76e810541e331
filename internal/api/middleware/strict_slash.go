package middleware

import (
	"net/http"
	"strings"
)

// StripTrailingSlash serves "/api/v1/states/" as "/api/v1/states"
func StripTrailingSlash(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		if len(path) > 1 && strings.HasSuffix(path, "/") {
			r2 := r.Clone(r.Context())
			r2.URL.Path = strings.TrimRight(path, "/")
			if r2.URL.Path == "" {
				r2.URL.Path = "/"
			}
			r2.URL.RawPath = ""
			next.ServeHTTP(w, r2)
			return
		}
		next.ServeHTTP(w, r)
	})
}
