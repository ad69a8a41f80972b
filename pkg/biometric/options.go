package biometric

import "net/http"

// ClientOption customizes a Client.
type ClientOption func(*Client)

// WithHTTPClient overrides the HTTP client used for matching-service calls.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithToken overrides the service token instead of reading it from the
// environment.
func WithToken(token string) ClientOption {
	return func(c *Client) {
		c.token = token
	}
}
