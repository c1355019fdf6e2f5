// Package api provides the remote gateway: typed request/response calls to
// the distribution backend. Every domain fetch carries the opaque credential,
// the requested culture and the caller's stored checksum; the server answers
// 204 when the domain is unchanged.
package api

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

	"github.com/mobiorder/mobiorder/internal/model"
	"go.uber.org/zap"
)

// ErrNoChanges is returned by FetchDomain when the server reports the domain
// content is unchanged for the supplied checksum. It is a success signal, not
// a failure.
var ErrNoChanges = errors.New("no changes")

// Client talks to the remote API. Safe for concurrent use.
type Client struct {
	http    *http.Client
	baseURL string
	token   string
	log     *zap.Logger
}

// NewClient builds a client for baseURL. The timeout bounds every single
// call; the sync orchestrator additionally bounds the whole run.
func NewClient(baseURL string, timeout time.Duration, log *zap.Logger) *Client {
	return &Client{
		http: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				IdleConnTimeout:     90 * time.Second,
				MaxIdleConnsPerHost: 10,
			},
		},
		baseURL: strings.TrimRight(baseURL, "/"),
		log:     log,
	}
}

// SetToken installs the bearer token used on subsequent requests. Short or
// empty tokens are ignored, matching the app's login flow where an anonymous
// session has no token at all.
func (c *Client) SetToken(token string) {
	if len(token) > 12 {
		c.token = "Bearer " + token
	}
}

type domainRequest struct {
	Credential model.Credential `json:"credential"`
	Culture    string           `json:"culture"`
	Checksum   string           `json:"checksum"`
}

// FetchDomain posts a checksum-gated domain request and returns the raw JSON
// payload. A 204 response, or a 200 with an empty body, yields ErrNoChanges.
func (c *Client) FetchDomain(ctx context.Context, path string, cred model.Credential, culture, checksum string) (json.RawMessage, error) {
	body, err := c.post(ctx, path, domainRequest{
		Credential: cred,
		Culture:    culture,
		Checksum:   checksum,
	})
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, ErrNoChanges
	}
	return json.RawMessage(body), nil
}

type completeCartRequest struct {
	Credentials model.Credential `json:"credentials"`
	Order       model.Cart       `json:"order"`
}

type resultResponse struct {
	Result bool `json:"result"`
}

// CompleteCart submits a finished cart. Returns true only when the server
// explicitly acknowledged the order.
func (c *Client) CompleteCart(ctx context.Context, cred model.Credential, cart model.Cart) (bool, error) {
	body, err := c.post(ctx, "app/carts/complete", completeCartRequest{
		Credentials: cred,
		Order:       cart,
	})
	if err != nil {
		return false, err
	}

	var res resultResponse
	if err := json.Unmarshal(body, &res); err != nil {
		return false, fmt.Errorf("failed to decode cart response: %w", err)
	}
	return res.Result, nil
}

// CreateNote submits one visit note from the outbox.
func (c *Client) CreateNote(ctx context.Context, note model.UnsentVisitNote) (bool, error) {
	body, err := c.post(ctx, "app/notes/create", note)
	if err != nil {
		return false, err
	}

	var res resultResponse
	if err := json.Unmarshal(body, &res); err != nil {
		return false, fmt.Errorf("failed to decode note response: %w", err)
	}
	return res.Result, nil
}

func (c *Client) post(ctx context.Context, path string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	url := c.baseURL + "/" + strings.TrimLeft(path, "/")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request to %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return nil, ErrNoChanges
	}
	if resp.StatusCode != http.StatusOK {
		// Drain a little of the body for the log, then report the status.
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		c.log.Warn("unexpected status from remote",
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", snippet))
		return nil, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, path)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response from %s: %w", path, err)
	}
	return body, nil
}
