package mistral

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	DefaultBaseURL = "https://api.mistral.ai"
	DefaultTimeout = 120 * time.Second

	// signed URLs stay valid for this many hours
	signedURLExpiry = 24
)

// APIError is returned for any non-2xx response
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	switch e.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Sprintf("mistral: authentication failed: %s", e.Message)
	case http.StatusTooManyRequests:
		return fmt.Sprintf("mistral: rate limited: %s", e.Message)
	default:
		return fmt.Sprintf("mistral: HTTP %d: %s", e.StatusCode, e.Message)
	}
}

// Client talks to the Mistral REST API
type Client struct {
	APIKey    string
	BaseURL   string // overridable for testing
	Timeout   time.Duration
	UserAgent string
	client    *http.Client
}

type Option func(*Client)

func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if baseURL != "" {
			c.BaseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.Timeout = timeout
		}
	}
}

func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.UserAgent = ua
	}
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.client = hc
	}
}

// NewClient creates a new Mistral API client
func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		APIKey:    apiKey,
		BaseURL:   DefaultBaseURL,
		Timeout:   DefaultTimeout,
		UserAgent: "mistral-ocr",
	}
	for _, o := range opts {
		o(c)
	}
	if c.client == nil {
		c.client = &http.Client{Timeout: c.Timeout}
	}
	return c
}

// UploadFile uploads a document for OCR and returns the stored file record
func (c *Client) UploadFile(ctx context.Context, name string, r io.Reader) (*File, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if err := mw.WriteField("purpose", "ocr"); err != nil {
		return nil, fmt.Errorf("mistral: failed to build upload: %w", err)
	}
	part, err := mw.CreateFormFile("file", name)
	if err != nil {
		return nil, fmt.Errorf("mistral: failed to build upload: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, fmt.Errorf("mistral: failed to read %s: %w", name, err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("mistral: failed to build upload: %w", err)
	}

	var file File
	if err := c.do(ctx, http.MethodPost, "/v1/files", mw.FormDataContentType(), &body, &file); err != nil {
		return nil, err
	}
	if file.ID == "" {
		return nil, fmt.Errorf("mistral: upload of %s returned no file id", name)
	}
	return &file, nil
}

// SignedURL returns a time-limited URL pointing at an uploaded file
func (c *Client) SignedURL(ctx context.Context, fileID string) (string, error) {
	path := fmt.Sprintf("/v1/files/%s/url?expiry=%d", url.PathEscape(fileID), signedURLExpiry)

	var resp signedURLResponse
	if err := c.do(ctx, http.MethodGet, path, "", nil, &resp); err != nil {
		return "", err
	}
	if resp.URL == "" {
		return "", fmt.Errorf("mistral: no signed URL returned for file %s", fileID)
	}
	return resp.URL, nil
}

// OCR runs the OCR model on a document or image
func (c *Client) OCR(ctx context.Context, req OCRRequest) (*OCRResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("mistral: failed to marshal request: %w", err)
	}

	var resp OCRResponse
	if err := c.do(ctx, http.MethodPost, "/v1/ocr", "application/json", bytes.NewReader(body), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) do(ctx context.Context, method, path, contentType string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("mistral: failed to create request: %w", err)
	}

	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("mistral: request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("mistral: failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{StatusCode: resp.StatusCode, Message: errorMessage(respBody)}
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("mistral: failed to parse response: %w", err)
	}
	return nil
}

// errorMessage pulls the most specific message out of an error body
func errorMessage(body []byte) string {
	var er errorResponse
	if err := json.Unmarshal(body, &er); err == nil {
		if er.Error.Message != "" {
			return er.Error.Message
		}
		if er.Message != "" {
			return er.Message
		}
		if s, ok := er.Detail.(string); ok && s != "" {
			return s
		}
	}
	return strings.TrimSpace(string(body))
}
