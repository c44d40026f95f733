package device

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPController starts cycles through a device gateway speaking REST.
type HTTPController struct {
	baseURL    string
	httpClient *http.Client
}

func NewHTTPController(baseURL string, timeout time.Duration) *HTTPController {
	return &HTTPController{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type gatewayResponse struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

func (c *HTTPController) StartCycle(ctx context.Context, machineID string) error {
	path := fmt.Sprintf("/machines/%s/start", machineID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("device request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("device POST %s: %w", path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("device read body: %w", err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("device HTTP %d: %s", resp.StatusCode, string(data))
	}
	var result gatewayResponse
	if err := json.Unmarshal(data, &result); err != nil {
		return fmt.Errorf("device decode: %w", err)
	}
	if result.Code != 0 {
		return fmt.Errorf("device error %d: %s", result.Code, result.Msg)
	}
	return nil
}
