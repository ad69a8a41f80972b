package biometric

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	apperrors "github.com/openjms/biometric-gateway/pkg/app/errors"
	"github.com/openjms/biometric-gateway/pkg/config"
)

func newTestClient(t *testing.T, enrollURL, identifyURL string) *Client {
	t.Helper()
	return NewClient(config.BiometricConfig{
		EnrollURL:      enrollURL,
		IdentifyURL:    identifyURL,
		RequestTimeout: 5 * time.Second,
	}, zap.NewNop(), WithToken("test-token"))
}

func TestEnroll(t *testing.T) {
	var gotAuth string
	var gotReq EnrollmentRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(EnrollmentResult{ReferenceID: "ref-123"})
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, srv.URL)
	result, err := client.Enroll(context.Background(), EnrollmentRequest{
		Template: "dGVtcGxhdGU=",
		Type:     ModalityFingerprint,
		PersonID: "person-1",
	})
	require.NoError(t, err)

	assert.Equal(t, "ref-123", result.ReferenceID)
	assert.Equal(t, "Token test-token", gotAuth)
	assert.Equal(t, ModalityFingerprint, gotReq.Type)
	assert.Equal(t, "person-1", gotReq.PersonID)
}

func TestEnrollRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"message":"duplicate template"}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, srv.URL)
	_, err := client.Enroll(context.Background(), EnrollmentRequest{
		Template: "dGVtcGxhdGU=",
		Type:     ModalityIris,
		PersonID: "person-1",
	})
	require.Error(t, err)

	assert.True(t, apperrors.Is(err, apperrors.CategoryEnrollmentFailed))
	var svcErr *apperrors.ServiceError
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, "duplicate template", svcErr.Message)
}

func TestEnrollUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	client := newTestClient(t, srv.URL, srv.URL)
	_, err := client.Enroll(context.Background(), EnrollmentRequest{
		Template: "dGVtcGxhdGU=",
		Type:     ModalityFingerprint,
		PersonID: "person-1",
	})
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.CategoryDependencyFailure))
}

func TestIdentify(t *testing.T) {
	var gotReq IdentificationRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(IdentificationResult{PersonID: "person-42", Score: 0.98})
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, srv.URL)
	result, err := client.Identify(context.Background(), IdentificationRequest{
		Template: "cHJvYmU=",
		Type:     ModalityFace,
	})
	require.NoError(t, err)

	assert.Equal(t, "person-42", result.PersonID)
	assert.Equal(t, ModalityFace, gotReq.Type)
}

func TestIdentifyNoMatch(t *testing.T) {
	// The matching service signals "nothing found" with error statuses.
	// Every non-2xx must come back as a no-match, not a dependency failure.
	for _, status := range []int{http.StatusNotFound, http.StatusBadRequest, http.StatusInternalServerError} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"error":"no candidates"}`))
		}))

		client := newTestClient(t, srv.URL, srv.URL)
		_, err := client.Identify(context.Background(), IdentificationRequest{
			Template: "cHJvYmU=",
			Type:     ModalityFingerprint,
		})
		srv.Close()

		require.Error(t, err, "status %d", status)
		assert.True(t, apperrors.Is(err, apperrors.CategoryNoMatch), "status %d", status)
		assert.False(t, apperrors.Is(err, apperrors.CategoryDependencyFailure), "status %d", status)
	}
}

func TestIdentifyEmptyMatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, srv.URL)
	_, err := client.Identify(context.Background(), IdentificationRequest{
		Template: "cHJvYmU=",
		Type:     ModalityIris,
	})
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.CategoryNoMatch))
}

func TestIdentifyUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	client := newTestClient(t, srv.URL, srv.URL)
	_, err := client.Identify(context.Background(), IdentificationRequest{
		Template: "cHJvYmU=",
		Type:     ModalityFingerprint,
	})
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.CategoryDependencyFailure))
	assert.False(t, apperrors.Is(err, apperrors.CategoryNoMatch))
}

func TestExtractMessage(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		expected string
	}{
		{"message field", `{"message":"bad template"}`, "bad template"},
		{"error field", `{"error":"matcher offline"}`, "matcher offline"},
		{"message wins over error", `{"message":"primary","error":"secondary"}`, "primary"},
		{"plain text body", "upstream exploded", "upstream exploded"},
		{"empty body", "", "fallback"},
		{"whitespace body", "  \n ", "fallback"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, extractMessage([]byte(tc.body), "fallback"))
		})
	}
}
