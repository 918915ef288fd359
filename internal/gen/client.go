package gen

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

	"github.com/gorilla/websocket"

	"CanvasBoard/internal/logging"
)

const (
	editPath     = "/v1/images/edit"
	generatePath = "/v1/images/generate"
	modelsPath   = "/v1/models"
	videoPath    = "/v1/videos/stream"

	maxErrorBody = 4 << 10
)

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient sets the client used for JSON calls.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.http = hc }
}

// WithDialer sets the websocket dialer used for video jobs.
func WithDialer(d *websocket.Dialer) ClientOption {
	return func(c *Client) { c.dialer = d }
}

// Client is a Service backed by an HTTP generation server.
type Client struct {
	base   *url.URL
	token  string
	http   *http.Client
	dialer *websocket.Dialer
}

var _ Service = (*Client)(nil)

// NewClient creates a client for the backend at baseURL. An empty token
// sends no Authorization header.
func NewClient(baseURL, token string, opts ...ClientOption) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("gen: base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("gen: base url %q: scheme must be http or https", baseURL)
	}
	c := &Client{
		base:   u,
		token:  token,
		http:   &http.Client{Timeout: 2 * time.Minute},
		dialer: websocket.DefaultDialer,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Edit sends images and a prompt to the edit endpoint.
func (c *Client) Edit(ctx context.Context, req EditRequest) (Result, error) {
	var res Result
	if err := c.do(ctx, http.MethodPost, editPath, req, &res); err != nil {
		return Result{}, err
	}
	if res.Source() == "" {
		return Result{}, ErrEmptyResult
	}
	return res, nil
}

// Generate asks for a new image.
func (c *Client) Generate(ctx context.Context, req GenerateRequest) (Result, error) {
	var res Result
	if err := c.do(ctx, http.MethodPost, generatePath, req, &res); err != nil {
		return Result{}, err
	}
	if res.Source() == "" {
		return Result{}, ErrEmptyResult
	}
	return res, nil
}

// Models lists the backend's models.
func (c *Client) Models(ctx context.Context) ([]Model, error) {
	var out struct {
		Models []Model `json:"models"`
	}
	if err := c.do(ctx, http.MethodGet, modelsPath, nil, &out); err != nil {
		return nil, err
	}
	return out.Models, nil
}

func (c *Client) endpoint(path string) string {
	u := *c.base
	u.Path = strings.TrimRight(u.Path, "/") + path
	return u.String()
}

func (c *Client) header() http.Header {
	h := http.Header{}
	if c.token != "" {
		h.Set("Authorization", "Bearer "+c.token)
	}
	return h
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("gen: encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path), body)
	if err != nil {
		return fmt.Errorf("gen: %w", err)
	}
	req.Header = c.header()
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("gen: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	logging.Logger().Debug("generation call", "method", method, "path", path,
		"status", resp.StatusCode, "elapsed", time.Since(start))

	if err := statusError(resp); err != nil {
		return err
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("gen: decode %s response: %w", path, err)
	}
	return nil
}

// statusError maps a non-2xx response to ErrUnauthorized or a
// *ServiceError carrying the backend's message.
func statusError(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return fmt.Errorf("%w (%d)", ErrUnauthorized, resp.StatusCode)
	}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &ServiceError{Status: resp.StatusCode, Message: errorMessage(data, resp.Status)}
}

func errorMessage(data []byte, fallback string) string {
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal(data, &payload) == nil {
		if payload.Message != "" {
			return payload.Message
		}
		if payload.Error != "" {
			return payload.Error
		}
	}
	if s := strings.TrimSpace(string(data)); s != "" {
		return s
	}
	return fallback
}

type streamMessage struct {
	Type     string  `json:"type"`
	Percent  float64 `json:"percent,omitempty"`
	Message  string  `json:"message,omitempty"`
	VideoURL string  `json:"videoUrl,omitempty"`
}

// GenerateVideo opens the video stream, sends req and waits for the job to
// finish. onProgress, when set, is called from the calling goroutine for
// every progress message.
func (c *Client) GenerateVideo(ctx context.Context, req VideoRequest, onProgress func(Progress)) (VideoResult, error) {
	u := *c.base
	u.Scheme = map[string]string{"http": "ws", "https": "wss"}[u.Scheme]
	u.Path = strings.TrimRight(u.Path, "/") + videoPath

	conn, resp, err := c.dialer.DialContext(ctx, u.String(), c.header())
	if err != nil {
		if resp != nil {
			defer resp.Body.Close()
			if serr := statusError(resp); serr != nil {
				return VideoResult{}, serr
			}
		}
		return VideoResult{}, fmt.Errorf("gen: dial video stream: %w", err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	if err := conn.WriteJSON(req); err != nil {
		return VideoResult{}, fmt.Errorf("gen: send video request: %w", err)
	}
	for {
		var msg streamMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if ctx.Err() != nil {
				return VideoResult{}, ctx.Err()
			}
			return VideoResult{}, fmt.Errorf("gen: video stream: %w", err)
		}
		switch msg.Type {
		case "progress":
			if onProgress != nil {
				onProgress(Progress{Percent: msg.Percent, Message: msg.Message})
			}
		case "done":
			if msg.VideoURL == "" {
				return VideoResult{}, ErrEmptyResult
			}
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return VideoResult{VideoURL: msg.VideoURL}, nil
		case "error":
			if msg.Message == "unauthorized" {
				return VideoResult{}, ErrUnauthorized
			}
			return VideoResult{}, &ServiceError{Message: msg.Message}
		default:
			logging.Logger().Warn("unknown video stream message", "type", msg.Type)
		}
	}
}

// IsUnauthorized reports whether err is an authentication failure.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}
