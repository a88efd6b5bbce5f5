package webhookclient

import (
	"net/http"
	"time"
)

// Client is the timeout-bound HTTP client used for the external agent
// webhook. The bridge owns retries; this layer only bounds a single attempt.
type Client struct {
	httpClient *http.Client
}

func NewClient(timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

func (c *Client) Do(req *http.Request) (*http.Response, error) {
	return c.httpClient.Do(req)
}
