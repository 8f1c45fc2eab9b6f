package jwt

import (
	"net/http"
	"strings"
)

// TokenExtractorFunc pulls a raw token out of the request.
type TokenExtractorFunc func(r *http.Request) (string, error)

// SkipFunc reports whether a request bypasses authentication.
type SkipFunc func(r *http.Request) bool

// MiddlewareConfig configures the authentication middleware.
type MiddlewareConfig struct {
	Service   *Service
	Extractor TokenExtractorFunc // defaults to BearerTokenExtractor
	Skip      SkipFunc
}

// Middleware authenticates requests with a Bearer token and stores the
// verified subject in the request context for downstream handlers.
func Middleware(service *Service) func(http.Handler) http.Handler {
	return MiddlewareWithConfig(MiddlewareConfig{Service: service})
}

// MiddlewareWithConfig is Middleware with a custom extractor or skip rule.
func MiddlewareWithConfig(cfg MiddlewareConfig) func(http.Handler) http.Handler {
	extract := cfg.Extractor
	if extract == nil {
		extract = BearerTokenExtractor
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cfg.Skip != nil && cfg.Skip(r) {
				next.ServeHTTP(w, r)
				return
			}

			token, err := extract(r)
			if err != nil {
				http.Error(w, err.Error(), http.StatusUnauthorized)
				return
			}

			subject, err := cfg.Service.Parse(token)
			if err != nil {
				http.Error(w, err.Error(), http.StatusUnauthorized)
				return
			}

			ctx := SetUserID(SetToken(r.Context(), token), subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// BearerTokenExtractor reads "Authorization: Bearer <token>".
func BearerTokenExtractor(r *http.Request) (string, error) {
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok || token == "" || strings.ContainsRune(token, ' ') {
		return "", ErrInvalidToken
	}
	return token, nil
}

// HeaderTokenExtractor reads the token from a custom header, for clients
// that cannot set an Authorization header.
func HeaderTokenExtractor(headerName string) TokenExtractorFunc {
	return func(r *http.Request) (string, error) {
		if token := r.Header.Get(headerName); token != "" {
			return token, nil
		}
		return "", ErrInvalidToken
	}
}
