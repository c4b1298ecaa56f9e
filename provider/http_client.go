package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultTimeout bounds every outbound provider call
const DefaultTimeout = 30 * time.Second

// maxResponseBytes caps how much of a provider response is read
const maxResponseBytes = 4 << 20

// HTTPClientConfig represents configuration for HTTP client
type HTTPClientConfig struct {
	BaseURL        string
	Timeout        time.Duration
	DefaultHeaders map[string]string
	Client         *http.Client
}

// BasicAuth holds HTTP basic credentials
type BasicAuth struct {
	Username string
	Password string
}

// HTTPRequest represents a standardized HTTP request
type HTTPRequest struct {
	Method      string
	Endpoint    string
	Headers     map[string]string
	Body        any
	Form        OrderedForm
	BasicAuth   *BasicAuth
	BearerToken string
}

// HTTPResponse represents a standardized HTTP response
type HTTPResponse struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
}

// IsSuccess reports a 2xx status
func (r *HTTPResponse) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Object decodes the body as a JSON object. Numbers are kept as json.Number.
func (r *HTTPResponse) Object() (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(r.Body))
	dec.UseNumber()

	var out map[string]any
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode response body: %w", err)
	}
	if out == nil {
		return nil, errors.New("response body is not a JSON object")
	}
	return out, nil
}

// ProviderHTTPClient provides standardized HTTP operations for payment providers
type ProviderHTTPClient struct {
	config *HTTPClientConfig
	client *http.Client
}

// NewProviderHTTPClient creates a new provider HTTP client
func NewProviderHTTPClient(config *HTTPClientConfig) *ProviderHTTPClient {
	if config.Timeout == 0 {
		config.Timeout = DefaultTimeout
	}

	var client *http.Client
	if config.Client != nil {
		c := *config.Client
		if c.Timeout == 0 || c.Timeout > config.Timeout {
			c.Timeout = config.Timeout
		}
		client = &c
	} else {
		client = &http.Client{Timeout: config.Timeout}
	}

	return &ProviderHTTPClient{
		config: config,
		client: client,
	}
}

// HTTPClient returns the underlying client, for SDKs that need their own transport
func (c *ProviderHTTPClient) HTTPClient() *http.Client {
	return c.client
}

// BaseURL returns the configured base URL
func (c *ProviderHTTPClient) BaseURL() string {
	return c.config.BaseURL
}

// SendJSON sends a JSON request and returns the response
func (c *ProviderHTTPClient) SendJSON(ctx context.Context, req *HTTPRequest) (*HTTPResponse, error) {
	return c.sendRequest(ctx, req, "application/json")
}

// SendForm sends a form-encoded request and returns the response
func (c *ProviderHTTPClient) SendForm(ctx context.Context, req *HTTPRequest) (*HTTPResponse, error) {
	return c.sendRequest(ctx, req, "application/x-www-form-urlencoded")
}

// sendRequest performs the call. Only network failures are errors; non-2xx
// responses are returned for the caller to interpret.
func (c *ProviderHTTPClient) sendRequest(ctx context.Context, req *HTTPRequest, contentType string) (*HTTPResponse, error) {
	fullURL := c.URL(req.Endpoint, nil)

	var body io.Reader
	switch contentType {
	case "application/x-www-form-urlencoded":
		if len(req.Form) > 0 {
			body = strings.NewReader(req.Form.Encode())
		}
	case "application/json":
		if req.Body != nil {
			jsonData, err := json.Marshal(req.Body)
			if err != nil {
				return nil, fmt.Errorf("failed to marshal JSON body: %w", err)
			}
			body = bytes.NewReader(jsonData)
		}
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, fullURL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}

	for key, value := range c.config.DefaultHeaders {
		httpReq.Header.Set(key, value)
	}
	for key, value := range req.Headers {
		httpReq.Header.Set(key, value)
	}
	httpReq.Header.Set("Content-Type", contentType)
	if req.BasicAuth != nil {
		httpReq.SetBasicAuth(req.BasicAuth.Username, req.BasicAuth.Password)
	}
	if req.BearerToken != "" {
		httpReq.Header.Set("Authorization", "Bearer "+req.BearerToken)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return &HTTPResponse{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       respBody,
	}, nil
}

func joinURL(base, endpoint string) string {
	if base == "" {
		return endpoint
	}
	if strings.HasSuffix(base, "/") && strings.HasPrefix(endpoint, "/") {
		return base + endpoint[1:]
	}
	if !strings.HasSuffix(base, "/") && !strings.HasPrefix(endpoint, "/") {
		return base + "/" + endpoint
	}
	return base + endpoint
}

// URL resolves endpoint against the base URL and appends query in its given
// order. Absolute endpoints are used as is.
func (c *ProviderHTTPClient) URL(endpoint string, query OrderedForm) string {
	fullURL := endpoint
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		fullURL = joinURL(c.config.BaseURL, endpoint)
	}

	if len(query) == 0 {
		return fullURL
	}

	sep := "?"
	if strings.Contains(fullURL, "?") {
		sep = "&"
	}
	return fullURL + sep + query.Encode()
}

// CreateHTTPClientConfig creates the standard client configuration for an adapter
func CreateHTTPClientConfig(baseURL string, opts Options) *HTTPClientConfig {
	return &HTTPClientConfig{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Timeout: DefaultTimeout,
		Client:  opts.HTTPClient,
		DefaultHeaders: map[string]string{
			"Accept":     "application/json",
			"User-Agent": "xboard-payments/1.0",
		},
	}
}

// DecodeObject decodes a provider response, turning an unreadable body into a TransportError
func DecodeObject(name Name, resp *HTTPResponse) (map[string]any, error) {
	body, err := resp.Object()
	if err != nil {
		return nil, TransportError(name, fmt.Sprintf("unreadable response (HTTP %d)", resp.StatusCode), err)
	}
	return body, nil
}
