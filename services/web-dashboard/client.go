package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// ChannelDTO is one entry of home-api's GET /api/channels.
type ChannelDTO struct {
	Key    string `json:"key"`
	Topic  string `json:"topic"`
	Target string `json:"target"`
	Suffix string `json:"suffix"`

	// Value is nil when the station has not reported this channel yet.
	Value   *string `json:"value"`
	Display string  `json:"display"`
}

// HistoryPoint is one point of a history chart.
type HistoryPoint struct {
	Time  time.Time `json:"t"`
	Value float64   `json:"v"`
}

// APIClient talks to home-api. Handlers never deal with URLs or decoding.
type APIClient struct {
	BaseURL    string
	httpClient *http.Client
}

// NewAPIClient always sets a timeout; the default http.Client has none.
func NewAPIClient(baseURL string) *APIClient {
	return &APIClient{
		BaseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

// GetChannels calls GET /api/channels.
func (c *APIClient) GetChannels(ctx context.Context) ([]ChannelDTO, error) {
	var channels []ChannelDTO
	if err := c.getJSON(ctx, c.BaseURL+"/api/channels", &channels); err != nil {
		return nil, err
	}
	return channels, nil
}

// GetHistory calls GET /api/channels/{key}/history?range=...
func (c *APIClient) GetHistory(ctx context.Context, key, rangeStr string) ([]HistoryPoint, error) {
	u := fmt.Sprintf("%s/api/channels/%s/history?range=%s", c.BaseURL, url.PathEscape(key), url.QueryEscape(rangeStr))

	var points []HistoryPoint
	if err := c.getJSON(ctx, u, &points); err != nil {
		return nil, err
	}
	return points, nil
}

func (c *APIClient) getJSON(ctx context.Context, u string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("call home-api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("home-api returned status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode home-api response: %w", err)
	}
	return nil
}

// seedValues maps home-api channels onto display texts keyed by target.
func seedValues(channels []ChannelDTO) map[string]string {
	out := make(map[string]string, len(channels))
	for _, ch := range channels {
		if ch.Value == nil || ch.Display == "" {
			continue
		}
		out[ch.Target] = ch.Display
	}
	return out
}
