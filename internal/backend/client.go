// Package backend calls the transactional REST API through one uniform
// request shape.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const maxBodySize = 4 * 1024 * 1024

// Request is one backend call. Endpoint may contain {name} placeholders
// that are filled from PathParams.
type Request struct {
	Method     string
	Endpoint   string
	PathParams map[string]string
	Params     map[string]any
	Token      string
}

// Result never carries a Go error; failures are described in Error
type Result struct {
	Success bool   `json:"success"`
	Status  int    `json:"status"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Caller is the backend call contract
type Caller interface {
	Call(ctx context.Context, req Request) *Result
}

// Client is the HTTP implementation of Caller
type Client struct {
	baseURL string
	http    *http.Client
	logger  zerolog.Logger
}

func NewClient(baseURL string, timeout time.Duration, logger zerolog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		logger:  logger.With().Str("component", "backend").Logger(),
	}
}

// SubstitutePath fills {name} placeholders; unresolved placeholders are an error
func SubstitutePath(endpoint string, pathParams map[string]string) (string, error) {
	out := endpoint
	for name, value := range pathParams {
		out = strings.ReplaceAll(out, "{"+name+"}", url.PathEscape(value))
	}
	if i := strings.Index(out, "{"); i != -1 && strings.Contains(out[i:], "}") {
		return "", fmt.Errorf("unresolved path parameter in %s", out)
	}
	return out, nil
}

// SplitPathParams moves the values named by placeholders out of params
func SplitPathParams(names []string, params map[string]any) (map[string]string, map[string]any) {
	path := make(map[string]string, len(names))
	rest := make(map[string]any, len(params))
	for k, v := range params {
		rest[k] = v
	}
	for _, name := range names {
		if v, ok := rest[name]; ok && v != nil {
			path[name] = fmt.Sprint(v)
			delete(rest, name)
		}
	}
	return path, rest
}

func (c *Client) Call(ctx context.Context, req Request) *Result {
	method := strings.ToUpper(req.Method)
	endpoint, err := SubstitutePath(req.Endpoint, req.PathParams)
	if err != nil {
		return &Result{Error: err.Error()}
	}

	target := c.baseURL + endpoint
	var body io.Reader
	if method == http.MethodGet || method == http.MethodDelete {
		if len(req.Params) > 0 {
			q := url.Values{}
			for k, v := range req.Params {
				if v != nil {
					q.Set(k, fmt.Sprint(v))
				}
			}
			target += "?" + q.Encode()
		}
	} else {
		payload, err := json.Marshal(req.Params)
		if err != nil {
			return &Result{Error: fmt.Sprintf("failed to marshal body: %v", err)}
		}
		body = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return &Result{Error: err.Error()}
	}
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if req.Token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+req.Token)
	}

	start := time.Now()
	res, err := c.http.Do(httpReq)
	if err != nil {
		c.logger.Warn().Err(err).Str("method", method).Str("endpoint", endpoint).Msg("backend call failed")
		return &Result{Error: err.Error()}
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(res.Body, maxBodySize))
	if err != nil {
		return &Result{Status: res.StatusCode, Error: fmt.Sprintf("failed to read response: %v", err)}
	}

	var data any
	if len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, &data); err != nil {
			data = string(raw)
		}
	}

	c.logger.Debug().
		Str("method", method).
		Str("endpoint", endpoint).
		Int("status", res.StatusCode).
		Dur("latency", time.Since(start)).
		Msg("backend call")

	result := &Result{
		Success: res.StatusCode >= 200 && res.StatusCode < 300,
		Status:  res.StatusCode,
		Data:    data,
	}
	if !result.Success {
		result.Error = ErrorText(data, res.Status)
	}
	return result
}

// ErrorText pulls a human-readable message out of an error payload
func ErrorText(data any, fallback string) string {
	switch v := data.(type) {
	case string:
		if strings.TrimSpace(v) != "" {
			return v
		}
	case map[string]any:
		for _, key := range []string{"detail", "message", "error", "error_message"} {
			switch inner := v[key].(type) {
			case string:
				if inner != "" {
					return inner
				}
			case map[string]any:
				if msg, ok := inner["message"].(string); ok && msg != "" {
					return msg
				}
			case []any:
				if len(inner) > 0 {
					if m, ok := inner[0].(map[string]any); ok {
						if msg, ok := m["msg"].(string); ok {
							return msg
						}
					}
				}
			}
		}
	}
	return fallback
}

// Records extracts the list of records from a lookup response. Lists may be
// returned bare or under data/items/results.
func Records(data any) []map[string]any {
	switch v := data.(type) {
	case []any:
		out := make([]map[string]any, 0, len(v))
		for _, item := range v {
			if m, ok := item.(map[string]any); ok {
				out = append(out, m)
			}
		}
		return out
	case []map[string]any:
		return v
	case map[string]any:
		for _, key := range []string{"data", "items", "results", "records"} {
			if inner, ok := v[key]; ok {
				if recs := Records(inner); len(recs) > 0 {
					return recs
				}
			}
		}
	}
	return nil
}
