package itn

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Client calls an external Polish inverse-text-normalization service over
// HTTP. The service contract is POST /normalize with {"text": ...} and the
// same shape back.
type Client struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

// NewClient creates an ITN client for the given base URL.
func NewClient(baseURL string, timeout time.Duration, log *zap.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		logger:  log,
	}
}

type normalizePayload struct {
	Text string `json:"text"`
}

// Normalize converts spoken-form Polish (number words, dates) into written
// form. Errors are returned to the caller, which keeps the text unchanged.
func (c *Client) Normalize(ctx context.Context, text string) (string, error) {
	body, err := json.Marshal(normalizePayload{Text: text})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/normalize", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("itn request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("itn service returned status %d", resp.StatusCode)
	}

	var out normalizePayload
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("itn response decode failed: %w", err)
	}
	return out.Text, nil
}
