package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/openjms/biometric-gateway/pkg/config"
)

func protectedHandler(t *testing.T) (http.Handler, *bool) {
	t.Helper()
	called := false
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	}), &called
}

func TestMiddlewareStaticToken(t *testing.T) {
	t.Setenv("TEST_OPERATOR_TOKENS", "alpha, bravo")

	a := NewAuthenticator(config.AuthConfig{TokensEnv: "TEST_OPERATOR_TOKENS"}, zap.NewNop())
	next, called := protectedHandler(t)
	handler := a.Middleware(next)

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"valid token", "Token alpha", http.StatusOK},
		{"second token trimmed", "Token bravo", http.StatusOK},
		{"wrong token", "Token charlie", http.StatusUnauthorized},
		{"missing header", "", http.StatusUnauthorized},
		{"bearer without jwks", "Bearer alpha", http.StatusUnauthorized},
		{"malformed header", "alpha", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			*called = false
			req := httptest.NewRequest(http.MethodGet, "/persons", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.status == http.StatusOK, *called)
			if tt.status == http.StatusUnauthorized {
				assert.JSONEq(t, `{"error":"invalid credentials","code":401}`, rec.Body.String())
			}
		})
	}
}

func TestMiddlewareMissingCredentials(t *testing.T) {
	t.Setenv("TEST_OPERATOR_TOKENS", "alpha")

	a := NewAuthenticator(config.AuthConfig{TokensEnv: "TEST_OPERATOR_TOKENS"}, zap.NewNop())
	next, _ := protectedHandler(t)

	rec := httptest.NewRecorder()
	a.Middleware(next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/persons", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"missing credentials","code":401}`, rec.Body.String())
}

func TestMiddlewarePassthroughWhenUnconfigured(t *testing.T) {
	t.Setenv("TEST_OPERATOR_TOKENS", "")

	a := NewAuthenticator(config.AuthConfig{TokensEnv: "TEST_OPERATOR_TOKENS"}, zap.NewNop())
	assert.False(t, a.Enabled())

	next, called := protectedHandler(t)
	rec := httptest.NewRecorder()
	a.Middleware(next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/persons", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, *called)
}

func TestJWTValidatorIsConfigured(t *testing.T) {
	assert.False(t, NewJWTValidator("", "").IsConfigured())
	assert.True(t, NewJWTValidator("https://sso.example.com/jwks.json", "sso").IsConfigured())
}

func TestJWTValidatorRejectsGarbage(t *testing.T) {
	v := NewJWTValidator("https://sso.example.com/jwks.json", "sso")
	_, err := v.ValidateToken("not-a-jwt")
	assert.Error(t, err)
}
