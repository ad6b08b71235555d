// Package middleware holds net/http middlewares shared by the probe server.
package middleware

import "net/http"

// Compose applies mws so that the first one is the outermost.
func Compose(mws ...func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		for i := len(mws) - 1; i >= 0; i-- {
			next = mws[i](next)
		}
		return next
	}
}
