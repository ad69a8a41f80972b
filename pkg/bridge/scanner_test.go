package bridge

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
	"github.com/openjms/biometric-gateway/pkg/biometric"
	"github.com/openjms/biometric-gateway/pkg/config"
)

func newScanner(t *testing.T, modality biometric.Modality, baseURL string) *ScannerClient {
	t.Helper()
	return NewScannerClient(modality, config.ScannerBridgeConfig{
		BaseURL:        baseURL,
		RequestTimeout: 5 * time.Second,
		ReleasePolicy:  config.ReleaseAfterCapture,
	}, zap.NewNop())
}

func TestScannerInfo(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/info", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(DeviceInfo{Model: "SecuGen HU20", Serial: "SG-001", Status: "ready"})
	}))
	defer srv.Close()

	scanner := newScanner(t, biometric.ModalityFingerprint, srv.URL)
	info, err := scanner.Info(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "SecuGen HU20", info.Model)
	assert.Equal(t, "SG-001", info.Serial)
}

func TestScannerInfoUnavailable(t *testing.T) {
	t.Run("non-2xx response", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"message":"device not attached"}`))
		}))
		defer srv.Close()

		scanner := newScanner(t, biometric.ModalityFingerprint, srv.URL)
		_, err := scanner.Info(context.Background())
		require.Error(t, err)

		assert.True(t, apperrors.Is(err, apperrors.CategoryDeviceUnavailable))
		var svcErr *apperrors.ServiceError
		require.ErrorAs(t, err, &svcErr)
		assert.Equal(t, "device not attached", svcErr.Message)
	})

	t.Run("network failure", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		srv.Close()

		scanner := newScanner(t, biometric.ModalityIris, srv.URL)
		_, err := scanner.Info(context.Background())
		require.Error(t, err)
		assert.True(t, apperrors.Is(err, apperrors.CategoryDeviceUnavailable))
	})
}

func TestScannerCapture(t *testing.T) {
	var gotOpts CaptureOptions
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/capture", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotOpts))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"template":"abc123","quality":87,"serial":"SG-001"}`))
	}))
	defer srv.Close()

	scanner := newScanner(t, biometric.ModalityFingerprint, srv.URL)
	result, err := scanner.Capture(context.Background(), CaptureOptions{Fingers: []string{"right_thumb", "right_index"}})
	require.NoError(t, err)

	assert.Equal(t, biometric.ModalityFingerprint, result.Modality)
	assert.Equal(t, "abc123", result.Template)
	assert.Equal(t, 87, result.Quality)
	assert.Equal(t, "SG-001", result.DeviceSerial)
	assert.False(t, result.CapturedAt.IsZero())
	assert.Equal(t, []string{"right_thumb", "right_index"}, gotOpts.Fingers)
}

func TestScannerCaptureFailed(t *testing.T) {
	t.Run("bridge error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"message":"no finger presented"}`))
		}))
		defer srv.Close()

		scanner := newScanner(t, biometric.ModalityIris, srv.URL)
		_, err := scanner.Capture(context.Background(), CaptureOptions{})
		require.Error(t, err)

		assert.True(t, apperrors.Is(err, apperrors.CategoryCaptureFailed))
		var svcErr *apperrors.ServiceError
		require.ErrorAs(t, err, &svcErr)
		assert.Equal(t, "no finger presented", svcErr.Message)
	})

	t.Run("incomplete payload", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"quality":12}`))
		}))
		defer srv.Close()

		scanner := newScanner(t, biometric.ModalityFingerprint, srv.URL)
		_, err := scanner.Capture(context.Background(), CaptureOptions{})
		require.Error(t, err)
		assert.True(t, apperrors.Is(err, apperrors.CategoryCaptureFailed))
	})

	t.Run("network failure", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		srv.Close()

		scanner := newScanner(t, biometric.ModalityFingerprint, srv.URL)
		_, err := scanner.Capture(context.Background(), CaptureOptions{})
		require.Error(t, err)
		assert.True(t, apperrors.Is(err, apperrors.CategoryCaptureFailed))
	})
}

func TestScannerReleaseDoesNotMutateCapture(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/capture":
			_, _ = w.Write([]byte(`{"template":"abc123","quality":87}`))
		case "/uninitdevice":
			_, _ = w.Write([]byte(`{"message":"released"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	scanner := newScanner(t, biometric.ModalityFingerprint, srv.URL)
	result, err := scanner.Capture(context.Background(), CaptureOptions{})
	require.NoError(t, err)
	snapshot := *result

	require.NoError(t, scanner.Release(context.Background()))

	assert.Equal(t, snapshot, *result)
}

func TestScannerReleaseUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	scanner := newScanner(t, biometric.ModalityIris, srv.URL)
	err := scanner.Release(context.Background())
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.CategoryDeviceUnavailable))
}
