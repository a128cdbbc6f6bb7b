package httpadapter

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/kirillkom/corporate-agent/internal/core/domain"
)

// bearerAuthMiddleware guards /v1 with API_AUTH_TOKEN. An empty token leaves
// the API open.
func bearerAuthMiddleware(next http.Handler, token string) http.Handler {
	if token == "" {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !isAuthorizedBearerHeader(r.Header.Get("Authorization"), token) {
			w.Header().Set("WWW-Authenticate", `Bearer realm="corporate-agent"`)
			writeError(w, r, domain.WrapError(domain.ErrUnauthorized, "authorize request", errors.New("missing or invalid bearer token")))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func isAuthorizedBearerHeader(headerValue, expectedToken string) bool {
	headerValue = strings.TrimSpace(headerValue)
	if headerValue == "" || expectedToken == "" {
		return false
	}
	const bearerPrefix = "Bearer "
	if !strings.HasPrefix(headerValue, bearerPrefix) {
		return false
	}
	token := strings.TrimSpace(strings.TrimPrefix(headerValue, bearerPrefix))
	return subtle.ConstantTimeCompare([]byte(token), []byte(expectedToken)) == 1
}

// resolveReferenceDir maps a client-supplied directory onto the configured
// reference root. Absolute paths and paths escaping the root are rejected.
func resolveReferenceDir(root, dir string) (string, error) {
	root = filepath.Clean(root)
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return root, nil
	}

	clean := filepath.Clean(filepath.FromSlash(dir))
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", domain.WrapError(domain.ErrInvalidInput, "resolve reference dir",
			errors.New("dir must be a relative path under the reference directory"))
	}
	return filepath.Join(root, clean), nil
}
