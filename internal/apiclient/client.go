// Package apiclient is the typed HTTP/JSON gateway to the CloudOps backend API.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
)

// DefaultErrorMessage is used when a failed response carries no usable message.
const DefaultErrorMessage = "API request failed"

// Envelope is the normalized shape of every backend response.
type Envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
	Message string          `json:"message,omitempty"`
}

// HasData reports whether the envelope carries a non-null data field.
func (e *Envelope) HasData() bool {
	d := bytes.TrimSpace(e.Data)
	return len(d) > 0 && !bytes.Equal(d, []byte("null"))
}

// Decode unmarshals data into v. It is a no-op when data is absent.
func (e *Envelope) Decode(v any) error {
	if !e.HasData() {
		return nil
	}
	if err := json.Unmarshal(e.Data, v); err != nil {
		return fmt.Errorf("decode response data: %w", err)
	}
	return nil
}

// APIError is returned for non-2xx responses.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return e.Message
}

// Client talks to the backend. A zero-timeout http.Client is used so calls
// only end when the server answers or the caller cancels ctx.
type Client struct {
	httpClient *http.Client
	baseURL    string
	logger     *slog.Logger
}

// ClientConfig configures a Client.
type ClientConfig struct {
	BaseURL    string
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// New creates a Client.
func New(cfg ClientConfig) *Client {
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		httpClient: hc,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		logger:     logger,
	}
}

// BaseURL returns the configured backend root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Do performs one request and returns the normalized envelope.
func (c *Client) Do(ctx context.Context, method, path string, body any) (*Envelope, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("API request error", "method", method, "path", path, "error", err)
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: extractErrorMessage(raw)}
		c.logger.Error("API request error", "method", method, "path", path, "status", resp.StatusCode, "error", apiErr.Message)
		return nil, apiErr
	}

	return Normalize(raw), nil
}

func (c *Client) get(ctx context.Context, path string) (*Envelope, error) {
	return c.Do(ctx, http.MethodGet, path, nil)
}

func (c *Client) post(ctx context.Context, path string, body any) (*Envelope, error) {
	return c.Do(ctx, http.MethodPost, path, body)
}

func (c *Client) put(ctx context.Context, path string, body any) (*Envelope, error) {
	return c.Do(ctx, http.MethodPut, path, body)
}

// Normalize turns a 2xx body into an Envelope. Objects carrying a "success"
// key are taken as-is; anything else becomes {success:true, data:<raw>}.
func Normalize(raw []byte) *Envelope {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return &Envelope{Success: true, Data: json.RawMessage("{}")}
	}
	if !json.Valid(trimmed) {
		text, _ := json.Marshal(string(raw))
		return &Envelope{Success: true, Data: text}
	}
	if trimmed[0] == '{' {
		var probe map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &probe); err == nil {
			if _, ok := probe["success"]; ok {
				var env Envelope
				if err := json.Unmarshal(trimmed, &env); err == nil {
					return &env
				}
				// Loosely typed envelope: keep success and data, ignore the rest.
				env = Envelope{Data: probe["data"]}
				_ = json.Unmarshal(probe["success"], &env.Success)
				return &env
			}
		}
	}
	return &Envelope{Success: true, Data: json.RawMessage(trimmed)}
}

// extractErrorMessage picks detail, error, then message from a JSON object body.
func extractErrorMessage(raw []byte) string {
	var body map[string]any
	if err := json.Unmarshal(raw, &body); err != nil {
		return DefaultErrorMessage
	}
	for _, key := range []string{"detail", "error", "message"} {
		if s, ok := body[key].(string); ok {
			return s
		}
	}
	return DefaultErrorMessage
}

func pathID(id string) string {
	return url.PathEscape(id)
}

func withQuery(path, key, value string) string {
	return path + "?" + url.Values{key: {value}}.Encode()
}

// decodeList decodes a list-shaped data field; absent data yields an empty slice.
func decodeList[T any](env *Envelope) ([]T, error) {
	out := []T{}
	if err := env.Decode(&out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []T{}
	}
	return out, nil
}

// decodeRequired decodes data into a fresh T, failing with missing when data is absent.
func decodeRequired[T any](env *Envelope, missing string) (*T, error) {
	if !env.HasData() {
		return nil, errors.New(missing)
	}
	var out T
	if err := env.Decode(&out); err != nil {
		return nil, err
	}
	return &out, nil
}
