package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// APIClient talks to a running hostbot daemon over its HTTP query surface.
type APIClient struct {
	baseURL string
	client  *http.Client
}

func NewAPIClient(baseURL string, timeout time.Duration) *APIClient {
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &APIClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

// Status fetches one script's status, or all statuses when name is empty,
// and returns the pretty-printed JSON body.
func (c *APIClient) Status(name string) (string, error) {
	u := c.baseURL + "/status"
	if name != "" {
		u += "?name=" + url.QueryEscape(name)
	}
	resp, err := c.client.Get(u)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", apiError(resp.StatusCode, body)
	}
	var pretty any
	if err := json.Unmarshal(body, &pretty); err != nil {
		return string(body), nil
	}
	out, err := json.MarshalIndent(pretty, "", "  ")
	if err != nil {
		return string(body), nil
	}
	return string(out), nil
}

// Logs fetches the trailing run log bytes for a script.
func (c *APIClient) Logs(name string, maxBytes int64) ([]byte, error) {
	u := c.baseURL + "/logs?name=" + url.QueryEscape(name)
	if maxBytes > 0 {
		u += "&max=" + strconv.FormatInt(maxBytes, 10)
	}
	resp, err := c.client.Get(u)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, apiError(resp.StatusCode, body)
	}
	return body, nil
}

func apiError(status int, body []byte) error {
	var e struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &e); err == nil && e.Error != "" {
		return fmt.Errorf("API error: %s", e.Error)
	}
	return fmt.Errorf("API error: HTTP %d", status)
}
