package interactions

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

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/ziadkadry99/opbot/internal/logging"
)

// DefaultBaseURL is the platform API root.
const DefaultBaseURL = "https://discord.com/api/v10"

// Callback kinds reported to the OnCallback hook.
const (
	KindCallback = "callback"
	KindEdit     = "edit"
	KindFollowup = "followup"
	KindDelete   = "delete"
	KindUser     = "user"
)

// APIError is returned for non-2xx responses from the platform API.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}

// ClientConfig configures a Client.
type ClientConfig struct {
	BaseURL       string
	ApplicationID string
	BotToken      string
	Timeout       time.Duration
	// RatePerSecond paces outbound calls. Zero means unlimited.
	RatePerSecond float64
	Burst         int
	HTTPClient    *http.Client
}

// CallbackHook observes every outbound API call. status is 0 when the
// request never got a response.
type CallbackHook func(kind string, status int)

// Client delivers replies through the platform's HTTP API. Failed calls are
// returned to the caller and never retried.
type Client struct {
	baseURL    string
	appID      string
	botToken   string
	http       *http.Client
	limiter    *rate.Limiter
	logger     *zap.Logger
	onCallback CallbackHook
}

// NewClient creates a Client.
func NewClient(cfg ClientConfig, logger *zap.Logger) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	limit := rate.Inf
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	return &Client{
		baseURL:  baseURL,
		appID:    cfg.ApplicationID,
		botToken: cfg.BotToken,
		http:     httpClient,
		limiter:  rate.NewLimiter(limit, burst),
		logger:   logging.OrNop(logger),
	}
}

// OnCallback installs a hook called after every outbound request. It must be
// set before the client is shared.
func (c *Client) OnCallback(hook CallbackHook) { c.onCallback = hook }

// ApplicationID returns the configured application id.
func (c *Client) ApplicationID() string { return c.appID }

// Callback sends the initial response for an interaction.
func (c *Client) Callback(ctx context.Context, id, token string, resp Response) error {
	resp.Data = resp.Data.normalize()
	path := "/interactions/" + id + "/" + token + "/callback"
	return c.do(ctx, KindCallback, http.MethodPost, path, resp, nil)
}

// EditOriginal replaces the original response, finalising a deferred one.
func (c *Client) EditOriginal(ctx context.Context, token string, msg *Message) error {
	return c.editOriginal(ctx, c.appID, token, msg)
}

// Followup posts an additional message after the initial response.
func (c *Client) Followup(ctx context.Context, token string, msg *Message) error {
	return c.followup(ctx, c.appID, token, msg)
}

// DeleteOriginal removes the original response.
func (c *Client) DeleteOriginal(ctx context.Context, token string) error {
	return c.deleteOriginal(ctx, c.appID, token)
}

func (c *Client) editOriginal(ctx context.Context, appID, token string, msg *Message) error {
	if appID == "" {
		return errors.New("editing original response: application id not set")
	}
	path := "/webhooks/" + appID + "/" + token + "/messages/@original"
	return c.do(ctx, KindEdit, http.MethodPatch, path, msg.normalize(), nil)
}

func (c *Client) deleteOriginal(ctx context.Context, appID, token string) error {
	if appID == "" {
		return errors.New("deleting original response: application id not set")
	}
	path := "/webhooks/" + appID + "/" + token + "/messages/@original"
	return c.do(ctx, KindDelete, http.MethodDelete, path, nil, nil)
}

func (c *Client) followup(ctx context.Context, appID, token string, msg *Message) error {
	if appID == "" {
		return errors.New("sending followup: application id not set")
	}
	path := "/webhooks/" + appID + "/" + token
	return c.do(ctx, KindFollowup, http.MethodPost, path, msg.normalize(), nil)
}

// FetchUser looks up a user by id. It requires a bot token.
func (c *Client) FetchUser(ctx context.Context, userID string) (*User, error) {
	if c.botToken == "" {
		return nil, errors.New("fetching user: bot token not configured")
	}
	var u User
	if err := c.do(ctx, KindUser, http.MethodGet, "/users/"+userID, nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *Client) do(ctx context.Context, kind, method, path string, body, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("waiting for rate limiter: %w", err)
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling %s body: %w", kind, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("creating %s request: %w", kind, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.botToken != "" {
		req.Header.Set("Authorization", "Bot "+c.botToken)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.report(kind, 0)
		return fmt.Errorf("sending %s request: %w", kind, err)
	}
	defer resp.Body.Close()
	c.report(kind, resp.StatusCode)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{
			Method:     method,
			Path:       redactToken(path),
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(msg)),
		}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decoding %s response: %w", kind, err)
		}
	}
	return nil
}

func (c *Client) report(kind string, status int) {
	if c.onCallback != nil {
		c.onCallback(kind, status)
	}
	c.logger.Debug("platform api call", zap.String("kind", kind), zap.Int("status", status))
}

// redactToken hides interaction tokens in paths that end up in logs.
func redactToken(path string) string {
	parts := strings.Split(path, "/")
	switch {
	case len(parts) >= 4 && parts[1] == "interactions":
		parts[3] = "***"
	case len(parts) >= 4 && parts[1] == "webhooks":
		parts[3] = "***"
	}
	return strings.Join(parts, "/")
}
