package middleware

import (
	"net/http"

	"github.com/gorilla/handlers"
)

// CORSOptions configures cross-origin access to the API.
type CORSOptions struct {
	// Origins lists allowed origins; "*" allows any origin.
	Origins          []string
	Headers          []string
	AllowCredentials bool
}

var corsMethods = []string{
	http.MethodGet,
	http.MethodHead,
	http.MethodPost,
	http.MethodPut,
	http.MethodPatch,
	http.MethodDelete,
	http.MethodOptions,
}

// CORS wraps h with the configured cross-origin policy. Allowed origins are
// echoed back, so "*" still works with credentials.
func CORS(opts CORSOptions) func(http.Handler) http.Handler {
	allowAny := false
	allowed := make(map[string]struct{}, len(opts.Origins))
	for _, o := range opts.Origins {
		if o == "*" {
			allowAny = true
		}
		allowed[o] = struct{}{}
	}

	options := []handlers.CORSOption{
		handlers.AllowedMethods(corsMethods),
		handlers.AllowedHeaders(opts.Headers),
		handlers.AllowedOriginValidator(func(origin string) bool {
			if origin == "" {
				return false
			}
			if allowAny {
				return true
			}
			_, ok := allowed[origin]
			return ok
		}),
	}
	if opts.AllowCredentials {
		options = append(options, handlers.AllowCredentials())
	}
	return handlers.CORS(options...)
}
