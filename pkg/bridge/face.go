package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	apperrors "github.com/openjms/biometric-gateway/pkg/app/errors"
	"github.com/openjms/biometric-gateway/pkg/biometric"
	"github.com/openjms/biometric-gateway/pkg/config"
)

// FaceClient talks to the remote face-capture service. Unlike the scanner
// bridges it has no device session: the service is assumed always-ready and
// a capture is triggered by posting a start command. FaceClient deliberately
// implements only Device, not SessionDevice.
type FaceClient struct {
	cfg        config.FaceBridgeConfig
	logger     *zap.Logger
	httpClient *http.Client
}

var _ Device = (*FaceClient)(nil)

// NewFaceClient creates a client for the face-capture service.
func NewFaceClient(cfg config.FaceBridgeConfig, logger *zap.Logger, opts ...FaceOption) *FaceClient {
	c := &FaceClient{
		cfg:    cfg,
		logger: logger,
		httpClient: &http.Client{
			Timeout: cfg.RequestTimeout,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Modality implements Device.
func (c *FaceClient) Modality() biometric.Modality {
	return biometric.ModalityFace
}

// Capture implements Device by sending the start command to the capture
// service. CaptureOptions are ignored; face capture takes no parameters.
func (c *FaceClient) Capture(ctx context.Context, _ CaptureOptions) (*CaptureResult, error) {
	data, err := json.Marshal(map[string]string{"command": "start"})
	if err != nil {
		return nil, apperrors.GeneralError(fmt.Errorf("marshaling start command: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.CaptureURL, bytes.NewReader(data))
	if err != nil {
		return nil, apperrors.GeneralError(fmt.Errorf("creating request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.CaptureFailedError(
			fmt.Errorf("calling %s: %w", c.cfg.CaptureURL, err),
			"face capture failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBridgeResponseBytes))
	if err != nil {
		return nil, apperrors.CaptureFailedError(
			fmt.Errorf("reading capture response: %w", err),
			"face capture failed")
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := bridgeMessage(body, "face capture failed")
		return nil, apperrors.CaptureFailedError(
			fmt.Errorf("capture returned status %d: %s", resp.StatusCode, msg), msg)
	}

	var captured captureResponse
	if err := json.Unmarshal(body, &captured); err != nil {
		return nil, apperrors.CaptureFailedError(
			fmt.Errorf("decoding capture response: %w", err),
			"face service returned an unreadable capture payload")
	}
	if captured.Template == "" {
		return nil, apperrors.CaptureFailedError(nil,
			"face service returned incomplete capture data")
	}

	c.logger.Debug("Face captured", zap.Int("quality", captured.Quality))

	return &CaptureResult{
		Modality:   biometric.ModalityFace,
		Template:   captured.Template,
		Quality:    captured.Quality,
		CapturedAt: time.Now().UTC(),
	}, nil
}

// FaceOption customizes a FaceClient.
type FaceOption func(*FaceClient)

// WithFaceHTTPClient overrides the HTTP client used for capture calls.
func WithFaceHTTPClient(httpClient *http.Client) FaceOption {
	return func(c *FaceClient) {
		c.httpClient = httpClient
	}
}
