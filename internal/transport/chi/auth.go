package chi

import (
	"net/http"
	"strings"

	"github.com/kailas-cloud/esgate/internal/domain/elastic"
)

// exemptPaths are routes that bypass authentication (health, metrics).
var exemptPaths = map[string]struct{}{
	"/health":  {},
	"/metrics": {},
}

// authSchemes are the accepted Authorization schemes. Elasticsearch clients
// send configured API keys as "ApiKey".
var authSchemes = []string{"Bearer ", "ApiKey "}

// BearerAuthMiddleware returns a middleware that validates API keys.
// If apiKeys is empty, authentication is disabled (pass-through).
func BearerAuthMiddleware(apiKeys []string) func(http.Handler) http.Handler {
	validKeys := make(map[string]struct{}, len(apiKeys))
	for _, k := range apiKeys {
		if k != "" {
			validKeys[k] = struct{}{}
		}
	}

	return func(next http.Handler) http.Handler {
		// Auth disabled, pass everything through
		if len(validKeys) == 0 {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := exemptPaths[r.URL.Path]; ok {
				next.ServeHTTP(w, r)
				return
			}

			auth := r.Header.Get("Authorization")
			if auth == "" {
				unauthorized(w, "missing authentication credentials for REST request ["+r.URL.Path+"]")
				return
			}

			token, ok := credentials(auth)
			if !ok {
				unauthorized(w, "authorization header must use Bearer or ApiKey scheme")
				return
			}
			if _, ok := validKeys[token]; !ok {
				unauthorized(w, "unable to authenticate with provided credentials")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func credentials(header string) (string, bool) {
	for _, scheme := range authSchemes {
		if strings.HasPrefix(header, scheme) {
			return header[len(scheme):], true
		}
	}
	return "", false
}

func unauthorized(w http.ResponseWriter, reason string) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="esgate"`)
	writeJSON(w, http.StatusUnauthorized, elastic.ErrorResponse{
		Status: http.StatusUnauthorized,
		Error:  elastic.ErrorCause{Type: "security_exception", Reason: reason},
	})
}
