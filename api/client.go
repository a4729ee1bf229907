package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
)

// Config holds configuration for creating a Client.
type Config struct {
	// BaseURL is the base URL of the backend service
	// (e.g., "http://localhost:5005").
	BaseURL string
	// HTTPClient is used for all requests. If nil, http.DefaultClient is
	// used. Clients talking to the identity service must supply an
	// http.Client with a cookie jar so the renewal cookie set by the
	// refresh endpoint is carried on subsequent calls.
	HTTPClient *http.Client
	// Logger is used for structured logging. If nil, slog.Default() is used.
	Logger *slog.Logger
}

// Client performs JSON request/response exchanges against one backend
// service. It holds the base URL and HTTP transport; gateways layer typed
// operations on top.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a new Client for the given service.
func NewClient(config Config) (*Client, error) {
	if config.BaseURL == "" {
		return nil, fmt.Errorf("api: BaseURL is required")
	}
	if _, err := url.Parse(config.BaseURL); err != nil {
		return nil, fmt.Errorf("api: invalid BaseURL %q: %w", config.BaseURL, err)
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		baseURL:    strings.TrimRight(config.BaseURL, "/"),
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

// Do performs an HTTP request and returns the response body. On 2xx the
// body is returned. On 4xx/5xx the body is parsed into a *Error. A
// non-empty token is sent as a bearer Authorization header. query may be
// nil for endpoints without query parameters.
func (c *Client) Do(ctx context.Context, method, path, token string, query url.Values, requestBody any) ([]byte, error) {
	requestURL := c.baseURL + path
	if len(query) > 0 {
		requestURL += "?" + query.Encode()
	}

	var bodyReader io.Reader
	if requestBody != nil {
		encoded, err := json.Marshal(requestBody)
		if err != nil {
			return nil, fmt.Errorf("api: encode request body: %w", err)
		}
		bodyReader = bytes.NewReader(encoded)
	}

	request, err := http.NewRequestWithContext(ctx, method, requestURL, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("api: create request: %w", err)
	}

	if requestBody != nil {
		request.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		request.Header.Set("Authorization", "Bearer "+token)
	}
	request.Header.Set("X-Request-ID", uuid.NewString())

	response, err := c.httpClient.Do(request)
	if err != nil {
		return nil, fmt.Errorf("api: request %s %s: %w", method, path, err)
	}
	defer response.Body.Close()

	responseBody, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, fmt.Errorf("api: read response body: %w", err)
	}

	if response.StatusCode >= 200 && response.StatusCode < 300 {
		return responseBody, nil
	}

	apiErr := &Error{StatusCode: response.StatusCode}
	if jsonErr := json.Unmarshal(responseBody, apiErr); jsonErr != nil || (apiErr.Code == "" && apiErr.Message == "") {
		// Non-JSON or empty error body. Keep the raw text so the failure
		// is still diagnosable from logs; callers never show it verbatim.
		apiErr.Message = strings.TrimSpace(string(responseBody))
	}

	c.logger.Debug("request rejected",
		"method", method,
		"path", path,
		"status", response.StatusCode,
	)

	return nil, apiErr
}
