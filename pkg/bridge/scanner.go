package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	apperrors "github.com/openjms/biometric-gateway/pkg/app/errors"
	"github.com/openjms/biometric-gateway/pkg/biometric"
	"github.com/openjms/biometric-gateway/pkg/config"
)

// maxBridgeResponseBytes caps how much of a bridge response body is read.
const maxBridgeResponseBytes = 1 << 20

// ScannerClient talks to a local scanner bridge (fingerprint or iris).
// The bridge exposes three endpoints: POST /info, POST /uninitdevice and
// POST /capture. Bridges run on localhost and take no authentication.
type ScannerClient struct {
	modality   biometric.Modality
	cfg        config.ScannerBridgeConfig
	logger     *zap.Logger
	httpClient *http.Client
}

var _ SessionDevice = (*ScannerClient)(nil)

// NewScannerClient creates a client for a fingerprint or iris bridge.
func NewScannerClient(modality biometric.Modality, cfg config.ScannerBridgeConfig, logger *zap.Logger, opts ...ScannerOption) *ScannerClient {
	c := &ScannerClient{
		modality: modality,
		cfg:      cfg,
		logger:   logger,
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
func (c *ScannerClient) Modality() biometric.Modality {
	return c.modality
}

// ReleasePolicy implements SessionDevice.
func (c *ScannerClient) ReleasePolicy() config.ReleasePolicy {
	return c.cfg.ReleasePolicy
}

// Info implements SessionDevice. A bridge that cannot be reached or answers
// non-2xx is reported as device-unavailable.
func (c *ScannerClient) Info(ctx context.Context) (*DeviceInfo, error) {
	status, body, err := c.post(ctx, "/info", nil)
	if err != nil {
		return nil, apperrors.DeviceUnavailableError(err,
			fmt.Sprintf("%s scanner is not responding", c.modality))
	}
	if status < 200 || status > 299 {
		msg := bridgeMessage(body, fmt.Sprintf("%s scanner is not available", c.modality))
		return nil, apperrors.DeviceUnavailableError(
			fmt.Errorf("info returned status %d: %s", status, msg), msg)
	}

	info := &DeviceInfo{}
	if len(body) > 0 {
		if err := json.Unmarshal(body, info); err != nil {
			return nil, apperrors.DeviceUnavailableError(
				fmt.Errorf("decoding info response: %w", err),
				fmt.Sprintf("%s scanner returned an unreadable status", c.modality))
		}
	}
	return info, nil
}

// Release implements SessionDevice.
func (c *ScannerClient) Release(ctx context.Context) error {
	status, body, err := c.post(ctx, "/uninitdevice", nil)
	if err != nil {
		return apperrors.DeviceUnavailableError(err,
			fmt.Sprintf("%s scanner is not responding", c.modality))
	}
	if status < 200 || status > 299 {
		msg := bridgeMessage(body, fmt.Sprintf("%s scanner could not be released", c.modality))
		return apperrors.DeviceUnavailableError(
			fmt.Errorf("uninitdevice returned status %d: %s", status, msg), msg)
	}

	c.logger.Debug("Scanner released", zap.String("modality", string(c.modality)))
	return nil
}

// captureResponse is the bridge's capture payload.
type captureResponse struct {
	Template string `json:"template"`
	Quality  int    `json:"quality"`
	Serial   string `json:"serial"`
}

// Capture implements Device. Capture failures (timeout, nothing presented
// to the scanner, incomplete data) are distinct from device availability:
// the device answered, the acquisition did not succeed.
func (c *ScannerClient) Capture(ctx context.Context, opts CaptureOptions) (*CaptureResult, error) {
	var payload any
	if c.modality == biometric.ModalityFingerprint && len(opts.Fingers) > 0 {
		payload = opts
	}

	status, body, err := c.post(ctx, "/capture", payload)
	if err != nil {
		return nil, apperrors.CaptureFailedError(err,
			fmt.Sprintf("%s capture failed", c.modality))
	}
	if status < 200 || status > 299 {
		msg := bridgeMessage(body, fmt.Sprintf("%s capture failed", c.modality))
		return nil, apperrors.CaptureFailedError(
			fmt.Errorf("capture returned status %d: %s", status, msg), msg)
	}

	var resp captureResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, apperrors.CaptureFailedError(
			fmt.Errorf("decoding capture response: %w", err),
			fmt.Sprintf("%s bridge returned an unreadable capture payload", c.modality))
	}
	if resp.Template == "" {
		return nil, apperrors.CaptureFailedError(nil,
			fmt.Sprintf("%s bridge returned incomplete capture data", c.modality))
	}

	c.logger.Debug("Sample captured",
		zap.String("modality", string(c.modality)),
		zap.Int("quality", resp.Quality),
	)

	return &CaptureResult{
		Modality:     c.modality,
		Template:     resp.Template,
		Quality:      resp.Quality,
		DeviceSerial: resp.Serial,
		CapturedAt:   time.Now().UTC(),
	}, nil
}

func (c *ScannerClient) post(ctx context.Context, path string, payload any) (int, []byte, error) {
	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, fmt.Errorf("marshaling request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	url := strings.TrimRight(c.cfg.BaseURL, "/") + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, reqBody)
	if err != nil {
		return 0, nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("calling %s: %w", url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBridgeResponseBytes))
	if err != nil {
		return 0, nil, fmt.Errorf("reading response from %s: %w", url, err)
	}
	return resp.StatusCode, body, nil
}

// ScannerOption customizes a ScannerClient.
type ScannerOption func(*ScannerClient)

// WithScannerHTTPClient overrides the HTTP client used for bridge calls.
func WithScannerHTTPClient(httpClient *http.Client) ScannerOption {
	return func(c *ScannerClient) {
		c.httpClient = httpClient
	}
}

// bridgeMessage pulls a human-readable detail out of a bridge error body.
// Bridges report errors as {"message": ...} or {"error": ...}; anything
// else falls back to the raw body, then to fallback.
func bridgeMessage(body []byte, fallback string) string {
	var envelope struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil {
		if envelope.Message != "" {
			return envelope.Message
		}
		if envelope.Error != "" {
			return envelope.Error
		}
	}
	if text := strings.TrimSpace(string(body)); text != "" {
		return text
	}
	return fallback
}
