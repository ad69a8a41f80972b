// Package biometric implements the client for the central biometric
// matching service that performs template enrollment and one-to-many
// identification searches.
package biometric

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"go.uber.org/zap"

	apperrors "github.com/openjms/biometric-gateway/pkg/app/errors"
	"github.com/openjms/biometric-gateway/pkg/config"
)

// maxResponseBytes caps how much of an upstream response body is read when
// extracting error details.
const maxResponseBytes = 1 << 20

// Submitter submits captured templates to the matching service.
type Submitter interface {
	// Enroll registers a template under a person identifier.
	Enroll(ctx context.Context, req EnrollmentRequest) (*EnrollmentResult, error)

	// Identify runs a one-to-many search with a probe template. A search that
	// completes without finding a candidate returns a no-match error; only
	// transport-level failures surface as dependency errors.
	Identify(ctx context.Context, req IdentificationRequest) (*IdentificationResult, error)
}

// Client is the HTTP implementation of Submitter.
type Client struct {
	cfg        config.BiometricConfig
	token      string
	logger     *zap.Logger
	httpClient *http.Client
}

var _ Submitter = (*Client)(nil)

// NewClient creates a matching-service client. The service token is read
// from the environment variable named by cfg.TokenEnv; an empty token means
// requests are sent unauthenticated.
func NewClient(cfg config.BiometricConfig, logger *zap.Logger, opts ...ClientOption) *Client {
	c := &Client{
		cfg:    cfg,
		token:  os.Getenv(cfg.TokenEnv),
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

// Enroll implements Submitter.
func (c *Client) Enroll(ctx context.Context, req EnrollmentRequest) (*EnrollmentResult, error) {
	status, body, err := c.postJSON(ctx, c.cfg.EnrollURL, req)
	if err != nil {
		return nil, apperrors.DependencyError(err, "enrollment service unreachable")
	}

	if status < 200 || status > 299 {
		msg := extractMessage(body, "enrollment rejected")
		return nil, apperrors.EnrollmentFailedError(
			fmt.Errorf("enroll returned status %d: %s", status, msg), msg)
	}

	result := &EnrollmentResult{}
	if len(body) > 0 {
		if err := json.Unmarshal(body, result); err != nil {
			return nil, apperrors.DependencyError(
				fmt.Errorf("decoding enroll response: %w", err),
				"invalid response from enrollment service")
		}
	}

	c.logger.Debug("Template enrolled",
		zap.String("person_id", req.PersonID),
		zap.String("modality", string(req.Type)),
	)
	return result, nil
}

// Identify implements Submitter. Any non-2xx response from the matching
// service is reported as no-match: the upstream uses error statuses to say
// "nothing found", and the distinction that matters to callers is between
// an empty search result and a service that could not be asked at all.
func (c *Client) Identify(ctx context.Context, req IdentificationRequest) (*IdentificationResult, error) {
	status, body, err := c.postJSON(ctx, c.cfg.IdentifyURL, req)
	if err != nil {
		return nil, apperrors.DependencyError(err, "identification service unreachable")
	}

	if status < 200 || status > 299 {
		msg := extractMessage(body, "no matching record found")
		return nil, apperrors.NoMatchError(
			fmt.Errorf("identify returned status %d: %s", status, msg),
			"no matching record found")
	}

	result := &IdentificationResult{}
	if len(body) > 0 {
		if err := json.Unmarshal(body, result); err != nil {
			return nil, apperrors.DependencyError(
				fmt.Errorf("decoding identify response: %w", err),
				"invalid response from identification service")
		}
	}
	if result.PersonID == "" {
		return nil, apperrors.NoMatchError(nil, "no matching record found")
	}

	c.logger.Debug("Identification match",
		zap.String("person_id", result.PersonID),
		zap.String("modality", string(req.Type)),
	)
	return result, nil
}

func (c *Client) postJSON(ctx context.Context, url string, payload any) (int, []byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return 0, nil, fmt.Errorf("marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return 0, nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		httpReq.Header.Set("Authorization", "Token "+c.token)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return 0, nil, fmt.Errorf("calling %s: %w", url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return 0, nil, fmt.Errorf("reading response from %s: %w", url, err)
	}
	return resp.StatusCode, body, nil
}

// extractMessage pulls a human-readable detail out of an upstream error body.
// The matching service reports errors as {"message": ...} or {"error": ...};
// anything else falls back to the raw body, then to fallback.
func extractMessage(body []byte, fallback string) string {
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
