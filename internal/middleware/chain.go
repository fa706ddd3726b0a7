package middleware

import (
	"net/http"
	"slices"
)

// Chain wraps h so that middlewares run in the order given:
//
//	Chain(mux, BearerAuth(tokens), RequestLogging)
//
// authenticates first, then logs with the identity in context.
func Chain(h http.Handler, middlewares ...func(http.Handler) http.Handler) http.Handler {
	for _, mw := range slices.Backward(middlewares) {
		h = mw(h)
	}
	return h
}
