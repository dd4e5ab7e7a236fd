// Package formsapi queries a structured responder-status endpoint.
package formsapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/formwatch/formwatch/internal/watch"
)

// Config controls the structured API client.
type Config struct {
	URL     string
	Token   string
	Timeout time.Duration
}

// Client implements watch.VerdictSource against a JSON status endpoint.
// Every internal failure is swallowed: the caller falls through to the
// textual classifier.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *zap.Logger
}

type statusResponse struct {
	AcceptingResponses *bool `json:"accepting_responses"`
}

// New creates a Client.
func New(cfg Config, logger *zap.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

// Lookup returns an accepting snapshot when the endpoint reports the
// form open, and nil for everything else, including all errors.
func (c *Client) Lookup(ctx context.Context) *watch.Snapshot {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.URL, nil)
	if err != nil {
		c.logger.Debug("forms api request build failed", zap.Error(err))
		return nil
	}
	req.Header.Set("Accept", "application/json")
	if c.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Debug("forms api request failed", zap.Error(err))
		return nil
	}
	defer resp.Body.Close() //nolint:errcheck // best-effort close

	if resp.StatusCode != http.StatusOK {
		c.logger.Debug("forms api non-200", zap.Int("status", resp.StatusCode))
		return nil
	}

	var status statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		c.logger.Debug("forms api decode failed", zap.Error(err))
		return nil
	}
	if status.AcceptingResponses == nil || !*status.AcceptingResponses {
		// The endpoint only short-circuits on a positive signal; a
		// negative or absent field falls back to the page heuristics.
		return nil
	}
	return &watch.Snapshot{
		Verdict:    watch.VerdictAccepting,
		ReasonCode: "forms-api:accepting",
		Source:     fmt.Sprintf("api:%s", c.cfg.URL),
	}
}
