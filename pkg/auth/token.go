// Package auth authenticates operator requests. Staff consoles send
// "Authorization: Token <token>" with a static token; SSO deployments send
// "Authorization: Bearer <jwt>" validated against the facility's JWKS
// endpoint. The hardware bridges themselves are unauthenticated localhost
// services and never pass through this middleware.
package auth

import (
	"crypto/subtle"
	"net/http"
	"os"
	"strings"

	"go.uber.org/zap"

	apperrors "github.com/openjms/biometric-gateway/pkg/app/errors"
	apphttp "github.com/openjms/biometric-gateway/pkg/app/http"
	"github.com/openjms/biometric-gateway/pkg/config"
)

// Authenticator checks operator credentials on incoming requests.
type Authenticator struct {
	tokens    []string
	validator *JWTValidator
	logger    *zap.Logger
}

// NewAuthenticator creates an authenticator from configuration. Static
// tokens are read comma-separated from the environment variable named by
// cfg.TokensEnv.
func NewAuthenticator(cfg config.AuthConfig, logger *zap.Logger) *Authenticator {
	var tokens []string
	for _, token := range strings.Split(os.Getenv(cfg.TokensEnv), ",") {
		if token = strings.TrimSpace(token); token != "" {
			tokens = append(tokens, token)
		}
	}

	a := &Authenticator{
		tokens: tokens,
		logger: logger,
	}
	if cfg.JWKSURL != "" {
		a.validator = NewJWTValidator(cfg.JWKSURL, cfg.Issuer)
	}

	if len(tokens) == 0 && a.validator == nil {
		logger.Warn("No operator tokens or JWKS configured; operator endpoints are unauthenticated")
	}
	return a
}

// Enabled reports whether any credential check is configured.
func (a *Authenticator) Enabled() bool {
	return len(a.tokens) > 0 || a.validator != nil
}

// Middleware rejects requests without a valid operator credential. When no
// credentials are configured at all, requests pass through.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !a.Enabled() {
			next.ServeHTTP(w, r)
			return
		}

		scheme, credential, ok := splitAuthorization(r.Header.Get("Authorization"))
		if !ok {
			apphttp.DefaultErrorHandler(w, apperrors.UnAuthorizedError(nil, "missing credentials"))
			return
		}

		switch scheme {
		case "Token":
			if a.matchToken(credential) {
				next.ServeHTTP(w, r)
				return
			}
		case "Bearer":
			if a.validator != nil {
				if _, err := a.validator.ValidateToken(credential); err == nil {
					next.ServeHTTP(w, r)
					return
				} else {
					a.logger.Debug("JWT validation failed", zap.Error(err))
				}
			}
		}

		apphttp.DefaultErrorHandler(w, apperrors.UnAuthorizedError(nil, "invalid credentials"))
	})
}

func (a *Authenticator) matchToken(credential string) bool {
	for _, token := range a.tokens {
		if subtle.ConstantTimeCompare([]byte(token), []byte(credential)) == 1 {
			return true
		}
	}
	return false
}

func splitAuthorization(header string) (scheme, credential string, ok bool) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}
