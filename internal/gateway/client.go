// Package gateway is the HTTP client for the remote itinerary service. It
// holds no token state: authenticated calls take the bearer token per call.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rcliao/tripplan/internal/apperr"
	"github.com/rcliao/tripplan/internal/logging"
)

// maxResponseSize bounds how much of a response body is read.
const maxResponseSize = 8 << 20

// Config holds configuration for creating a Client.
type Config struct {
	// BaseURL is the service root, e.g. "http://localhost:8000".
	BaseURL string
	// HTTPClient is used for all requests. If nil, a client with Timeout is used.
	HTTPClient *http.Client
	// Timeout applies per request when HTTPClient is nil. Zero means none.
	Timeout time.Duration
	Logger  *zap.Logger
}

// Client calls the remote itinerary service.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// New creates a Client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("gateway: BaseURL is required")
	}
	u, err := url.Parse(cfg.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("gateway: invalid BaseURL %q", cfg.BaseURL)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: httpClient,
		logger:     logging.OrNop(cfg.Logger),
	}, nil
}

// BaseURL returns the service root the client talks to.
func (c *Client) BaseURL() string { return c.baseURL }

// request describes one call to the service.
type request struct {
	op     string
	method string
	path   string
	token  string
	body   io.Reader
	ctype  string
}

// response is a completed call with a non-transport outcome.
type response struct {
	status int
	body   []byte
}

// do sends req. A transport failure is returned as an apperr transport error;
// any HTTP response, successful or not, is returned as a response.
func (c *Client) do(ctx context.Context, req request) (*response, error) {
	httpReq, err := http.NewRequestWithContext(ctx, req.method, c.baseURL+req.path, req.body)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindTransport, req.op, err)
	}

	requestID := uuid.NewString()
	httpReq.Header.Set("X-Request-ID", requestID)
	httpReq.Header.Set("Accept", "application/json")
	if req.ctype != "" {
		httpReq.Header.Set("Content-Type", req.ctype)
	}
	if req.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+req.token)
	}

	log := c.logger.With(
		zap.String("op", req.op),
		zap.String("method", req.method),
		zap.String("path", req.path),
		zap.String("request_id", requestID),
	)

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		log.Debug("request failed", zap.Error(err))
		return nil, apperr.Wrap(apperr.KindTransport, req.op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, apperr.Wrap(apperr.KindTransport, req.op, fmt.Errorf("read response: %w", err))
	}

	log.Debug("request done",
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)))

	return &response{status: resp.StatusCode, body: body}, nil
}

func (c *Client) doJSON(ctx context.Context, op, method, path, token string, in any) (*response, error) {
	req := request{op: op, method: method, path: path, token: token}
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindValidation, op, fmt.Errorf("encode request: %w", err))
		}
		req.body = bytes.NewReader(b)
		req.ctype = "application/json"
	}
	return c.do(ctx, req)
}

func (r *response) ok() bool { return r.status >= 200 && r.status < 300 }

// decode unmarshals a successful response body into out.
func (r *response) decode(op string, out any) error {
	if err := json.Unmarshal(r.body, out); err != nil {
		return &apperr.Error{Kind: apperr.KindUnexpected, Op: op, Status: r.status,
			Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

// statusError maps a non-2xx response to an apperr using kinds, falling back to
// fallback for statuses not listed.
func (r *response) statusError(op string, kinds map[int]apperr.Kind, fallback apperr.Kind) error {
	kind, ok := kinds[r.status]
	if !ok {
		kind = fallback
	}
	return &apperr.Error{Kind: kind, Op: op, Status: r.status, Detail: detail(r.body)}
}

// detail extracts a FastAPI-style "detail" from an error body. It is either a
// string or a list of {"msg": ...} validation entries.
func detail(body []byte) string {
	var envelope struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || len(envelope.Detail) == 0 {
		s := strings.TrimSpace(string(body))
		if len(s) > 200 {
			s = s[:200]
		}
		return s
	}

	var s string
	if err := json.Unmarshal(envelope.Detail, &s); err == nil {
		return s
	}

	var items []struct {
		Msg string `json:"msg"`
		Loc []any  `json:"loc"`
	}
	if err := json.Unmarshal(envelope.Detail, &items); err == nil {
		msgs := make([]string, 0, len(items))
		for _, it := range items {
			if len(it.Loc) > 0 {
				msgs = append(msgs, fmt.Sprintf("%v: %s", it.Loc[len(it.Loc)-1], it.Msg))
			} else {
				msgs = append(msgs, it.Msg)
			}
		}
		return strings.Join(msgs, "; ")
	}
	return string(envelope.Detail)
}

// IsCanceled reports whether err came from a canceled or expired context.
func IsCanceled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
