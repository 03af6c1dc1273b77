// Package webhook delivers the outbound decision call to the external
// system. Fire-and-forget: responses are logged, never required for the
// local transaction to succeed.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/flexcrm/engage/internal/domain/model"
	"github.com/flexcrm/engage/pkg/logger"
)

const defaultTimeout = 5 * time.Second

// payload mirrors the wire format of the decision endpoint.
type payload struct {
	NotificationID string `json:"notificationId"`
	EntityID       string `json:"entityId"`
	Decision       string `json:"decision"`
	ActorEmail     string `json:"actorEmail,omitempty"`
	ActorName      string `json:"actorName,omitempty"`
	RelatedName    string `json:"relatedName,omitempty"`
}

// Client posts decision payloads to a configured URL.
type Client struct {
	url    string
	client *http.Client
	log    logger.Logger
}

// Option applies a configuration option to the Client.
type Option func(*Client)

// WithTimeout sets the request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.client.Timeout = timeout
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.client = hc
		}
	}
}

// WithLogger sets a custom logger for the client.
func WithLogger(l logger.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// New creates a Client. An empty url yields a no-op client that
// silently discards sends, for deployments without a decision endpoint.
func New(url string, opts ...Option) *Client {
	c := &Client{
		url:    url,
		client: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = logger.Get().Named("webhook")
	}
	return c
}

// Send posts the decision. The response body is discarded; only the
// status is inspected and logged.
func (c *Client) Send(ctx context.Context, n model.Notification, decision model.Decision) error {
	if c.url == "" {
		return nil
	}

	body, err := json.Marshal(payload{
		NotificationID: n.ID,
		EntityID:       n.EntityID,
		Decision:       string(decision),
		ActorEmail:     n.ActorEmail,
		ActorName:      n.ActorName,
		RelatedName:    n.RelatedName,
	})
	if err != nil {
		return fmt.Errorf("encode decision payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build decision request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("post decision: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("decision endpoint returned %d", resp.StatusCode)
	}
	c.log.Debug(ctx, "decision delivered",
		logger.String("notificationID", n.ID),
		logger.Int("status", resp.StatusCode),
	)
	return nil
}
