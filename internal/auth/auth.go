// Package auth guards the admin API with static bearer tokens.
package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/ignite/nondisposable/internal/config"
	"github.com/ignite/nondisposable/internal/pkg/httputil"
	"github.com/ignite/nondisposable/internal/pkg/logger"
)

// AuthManager checks admin credentials.
type AuthManager struct {
	tokens  [][sha256.Size]byte
	devMode bool
}

// NewAuthManager creates a manager accepting cfg.AdminTokens. Blank tokens
// are ignored; with none left every request is rejected unless DevMode.
func NewAuthManager(cfg config.AuthConfig) *AuthManager {
	am := &AuthManager{devMode: cfg.DevMode}
	for _, t := range cfg.AdminTokens {
		if strings.TrimSpace(t) == "" {
			continue
		}
		am.tokens = append(am.tokens, sha256.Sum256([]byte(t)))
	}
	return am
}

// Enabled reports whether any admin token is configured.
func (am *AuthManager) Enabled() bool { return len(am.tokens) > 0 }

// IsAuthenticated checks the request's bearer token against every
// configured token without short-circuiting.
func (am *AuthManager) IsAuthenticated(r *http.Request) bool {
	if am.devMode {
		return true
	}
	token, ok := bearerToken(r)
	if !ok {
		return false
	}
	sum := sha256.Sum256([]byte(token))

	match := 0
	for _, t := range am.tokens {
		match |= subtle.ConstantTimeCompare(sum[:], t[:])
	}
	return match == 1
}

// RequireAuth is middleware that rejects unauthenticated requests with 401.
func (am *AuthManager) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !am.IsAuthenticated(r) {
			logger.Warn("admin request rejected",
				"method", r.Method,
				"path", r.URL.Path,
				"remote_addr", r.RemoteAddr)
			w.Header().Set("WWW-Authenticate", `Bearer realm="nondisposable"`)
			httputil.ErrorCode(w, http.StatusUnauthorized, "unauthorized", "valid admin bearer token required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
