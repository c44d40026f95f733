package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPProvider asks an external identity service whether a token is valid.
type HTTPProvider struct {
	baseURL    string
	httpClient *http.Client
}

func NewHTTPProvider(baseURL string, timeout time.Duration) *HTTPProvider {
	return &HTTPProvider{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type validateRequest struct {
	Token string `json:"token"`
}

type validateResponse struct {
	Valid bool `json:"valid"`
}

func (p *HTTPProvider) ValidateToken(ctx context.Context, token string) (bool, error) {
	body, err := json.Marshal(&validateRequest{Token: token})
	if err != nil {
		return false, fmt.Errorf("identity marshal: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v1/validate", bytes.NewReader(body))
	if err != nil {
		return false, fmt.Errorf("identity request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("identity POST /v1/validate: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return false, fmt.Errorf("identity read body: %w", err)
	}
	if resp.StatusCode >= 400 {
		return false, fmt.Errorf("identity HTTP %d: %s", resp.StatusCode, string(data))
	}
	var result validateResponse
	if err := json.Unmarshal(data, &result); err != nil {
		return false, fmt.Errorf("identity decode: %w", err)
	}
	return result.Valid, nil
}
