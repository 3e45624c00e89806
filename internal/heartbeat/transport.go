package heartbeat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/wans112/web-toko/internal/domain"
)

// Server routes used by the client.
const (
	IdentityPath = "/api/auth/me"
	PresencePath = "/api/users/presence"
)

// HTTPClientConfig configures an HTTPClient.
type HTTPClientConfig struct {
	ServerURL  string
	Token      string
	CookieName string

	// BeaconTimeout bounds a detached beacon request.
	// Default: 5 seconds
	BeaconTimeout time.Duration

	HTTP   *http.Client
	Logger *zap.Logger
}

// HTTPClient implements IdentityChecker and PresenceClient against the
// storefront API, presenting the session credential as a cookie.
type HTTPClient struct {
	serverURL     string
	token         string
	cookieName    string
	beaconTimeout time.Duration
	http          *http.Client
	logger        *zap.Logger

	inflight sync.WaitGroup
}

// NewHTTPClient builds a client.
func NewHTTPClient(cfg HTTPClientConfig) (*HTTPClient, error) {
	if cfg.ServerURL == "" {
		return nil, fmt.Errorf("%w: server url required", ErrInvalidConfig)
	}
	cookie := cfg.CookieName
	if cookie == "" {
		cookie = "token"
	}
	timeout := cfg.BeaconTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	client := cfg.HTTP
	if client == nil {
		client = &http.Client{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPClient{
		serverURL:     cfg.ServerURL,
		token:         cfg.Token,
		cookieName:    cookie,
		beaconTimeout: timeout,
		http:          client,
		logger:        logger.Named("presence_client"),
	}, nil
}

type identityResponse struct {
	Success bool            `json:"success"`
	User    domain.Identity `json:"user"`
}

type presenceRequest struct {
	IsOnline bool `json:"is_online"`
}

// CheckIdentity calls the identity-check endpoint.
func (c *HTTPClient) CheckIdentity(ctx context.Context) (domain.Identity, error) {
	if c.token == "" {
		return domain.Identity{}, fmt.Errorf("%w: no credential", ErrRejected)
	}

	req, err := c.newRequest(ctx, http.MethodGet, IdentityPath, nil)
	if err != nil {
		return domain.Identity{}, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return domain.Identity{}, fmt.Errorf("identity check: %w", err)
	}
	defer drain(resp.Body)

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return domain.Identity{}, ErrRejected
	case resp.StatusCode != http.StatusOK:
		return domain.Identity{}, fmt.Errorf("identity check: unexpected status %d", resp.StatusCode)
	}

	var body identityResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return domain.Identity{}, fmt.Errorf("identity check: decode: %w", err)
	}
	if !body.Success || body.User.ID == "" {
		return domain.Identity{}, ErrRejected
	}
	return body.User, nil
}

// SetPresence sends one presence assertion.
func (c *HTTPClient) SetPresence(ctx context.Context, online bool) error {
	payload, err := json.Marshal(presenceRequest{IsOnline: online})
	if err != nil {
		return err
	}
	req, err := c.newRequest(ctx, http.MethodPatch, PresencePath, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("presence: %w", err)
	}
	defer drain(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("presence: unexpected status %d", resp.StatusCode)
	}
	return nil
}

// Beacon dispatches SetPresence on its own goroutine with a context that is
// independent of any caller.
func (c *HTTPClient) Beacon(online bool) {
	c.inflight.Add(1)
	go func() {
		defer c.inflight.Done()
		ctx, cancel := context.WithTimeout(context.Background(), c.beaconTimeout)
		defer cancel()
		if err := c.SetPresence(ctx, online); err != nil {
			c.logger.Debug("beacon dropped", zap.Bool("online", online), zap.Error(err))
		}
	}()
}

// Flush waits for in-flight beacons or until ctx is done.
func (c *HTTPClient) Flush(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		c.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *HTTPClient) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.serverURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.AddCookie(&http.Cookie{Name: c.cookieName, Value: c.token})
	return req, nil
}

func drain(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, body)
	_ = body.Close()
}
