package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"SentinelAI/internal/ports"
)

// Client talks to an external geocoding service. The service contract is
// GET /geocode?city=&country= returning coordinates or found=false.
type Client struct {
	endpoint string
	apiKey   string
	http     *http.Client
}

var _ ports.Geocoder = (*Client)(nil)

// NewClient creates a reusable HTTP client.
func NewClient(endpoint, apiKey string) *Client {
	return &Client{
		endpoint: endpoint,
		apiKey:   apiKey,
		http:     &http.Client{Timeout: 10 * time.Second},
	}
}

// Geocode resolves (city, country) to coordinates. A place the service
// does not know is found=false, not an error.
func (c *Client) Geocode(ctx context.Context, city, country string) (lat, lon float64, found bool, err error) {
	if c.http == nil || c.endpoint == "" {
		return 0, 0, false, fmt.Errorf("geocoder misconfigured")
	}

	params := url.Values{}
	params.Set("city", city)
	params.Set("country", country)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"/geocode?"+params.Encode(), nil)
	if err != nil {
		return 0, 0, false, fmt.Errorf("new request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, 0, false, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return 0, 0, false, nil
	}
	if resp.StatusCode != http.StatusOK {
		return 0, 0, false, fmt.Errorf("geocoder returned %s", resp.Status)
	}

	var payload struct {
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
		Found     bool    `json:"found"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return 0, 0, false, fmt.Errorf("decode response: %w", err)
	}
	if !payload.Found {
		return 0, 0, false, nil
	}

	return payload.Latitude, payload.Longitude, true, nil
}
