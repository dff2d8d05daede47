package meeting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"tutorslot/internal/logger"
)

// Client asks the conferencing collaborator for a meeting room. A booking
// without a link is still a valid booking, so every failure here is soft.
type Client struct {
	baseURL string
	client  *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 5 * time.Second},
	}
}

type provisionResponse struct {
	URL string `json:"url"`
}

func (c *Client) Provision(ctx context.Context, bookingID int) (string, error) {
	if c.baseURL == "" {
		return "", fmt.Errorf("meeting provisioner not configured")
	}

	body, err := json.Marshal(map[string]int{"booking_id": bookingID})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/rooms", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("provisioner returned %d", resp.StatusCode)
	}

	var out provisionResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	if out.URL == "" {
		return "", fmt.Errorf("provisioner returned empty url")
	}

	logger.Debugf("Provisioned meeting room for booking %d", bookingID)
	return out.URL, nil
}
