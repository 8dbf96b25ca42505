// Package pricing talks to the external price-comparison service and ranks its offers.
package pricing

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/SigNoz/pcparts-store/internal/models"
	"go.uber.org/zap"
)

// Client fetches offers from the price-comparison service. Requests are never retried.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// NewClient creates a client for the service at baseURL
func NewClient(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: timeout},
		Logger:     logger,
	}
}

// Offers requests GET {BaseURL}/api/components/{id}/prices
func (c *Client) Offers(ctx context.Context, componentID string) ([]models.PriceOffer, error) {
	endpoint := fmt.Sprintf("%s/api/components/%s/prices", c.BaseURL, url.PathEscape(componentID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build price request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		c.Logger.Error("Price request failed",
			zap.String("component_id", componentID),
			zap.Error(err))
		return nil, fmt.Errorf("price request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read price response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		c.Logger.Warn("Price service returned an error",
			zap.String("component_id", componentID),
			zap.Int("status_code", resp.StatusCode),
			zap.String("response", string(body)))
		return nil, fmt.Errorf("price service returned %d", resp.StatusCode)
	}

	var offers []models.PriceOffer
	if err := json.Unmarshal(body, &offers); err != nil {
		return nil, fmt.Errorf("failed to decode price response: %w", err)
	}

	c.Logger.Debug("Fetched price offers",
		zap.String("component_id", componentID),
		zap.Int("count", len(offers)))
	return offers, nil
}

// Compare fetches offers and ranks them. Any failure yields an unavailable comparison.
func (c *Client) Compare(ctx context.Context, componentID string) Comparison {
	offers, err := c.Offers(ctx, componentID)
	if err != nil {
		return Unavailable(componentID)
	}
	return Compare(componentID, offers)
}
