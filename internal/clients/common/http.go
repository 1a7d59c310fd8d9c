package common

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	DefaultTimeout = 60 * time.Second
)

type ClientConfig struct {
	Timeout time.Duration
	Headers map[string]string
}

func DefaultConfig() ClientConfig {
	return ClientConfig{
		Timeout: DefaultTimeout,
		Headers: make(map[string]string),
	}
}

func NewHTTPClient(config ClientConfig) *http.Client {
	return &http.Client{
		Timeout: config.Timeout,
	}
}

func NewRequest(ctx context.Context, method, url string, body []byte, config ClientConfig) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewBuffer(body))
	if err != nil {
		return nil, err
	}

	// Set common headers
	for key, value := range config.Headers {
		req.Header.Set(key, value)
	}

	return req, nil
}

// PostJSON marshals payload, sends it and returns the status code and raw body.
func PostJSON(ctx context.Context, client *http.Client, url string, payload any, config ClientConfig) (int, []byte, error) {
	requestBody, err := json.Marshal(payload)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := NewRequest(ctx, http.MethodPost, url, requestBody, config)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return resp.StatusCode, body, nil
}
