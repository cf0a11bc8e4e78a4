package webclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/smilecare-labs/clinic-push/internal/model"
	"github.com/smilecare-labs/clinic-push/internal/provision"
)

var _ provision.TokenWriter = (*GatewayClient)(nil)

// GatewayClient is a thin wrapper over the gateway's public token API.
type GatewayClient struct {
	baseURL *url.URL
	http    *http.Client
}

type envelope[T any] struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
	Data T      `json:"data"`
}

type registerBody struct {
	Token     string `json:"token"`
	Platform  string `json:"platform"`
	UserAgent string `json:"userAgent"`
}

// NewGatewayClient creates a client for the gateway at rawURL.
func NewGatewayClient(rawURL string, timeout time.Duration) (*GatewayClient, error) {
	if strings.TrimSpace(rawURL) == "" {
		return nil, fmt.Errorf("gateway url is required")
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("gateway url must include scheme and host")
	}
	parsed.Path = strings.TrimSuffix(parsed.Path, "/")
	return &GatewayClient{baseURL: parsed, http: &http.Client{Timeout: timeout}}, nil
}

// UpsertToken registers token with the gateway.
func (c *GatewayClient) UpsertToken(ctx context.Context, token string, meta model.TokenMetadata) error {
	body, err := json.Marshal(registerBody{Token: token, Platform: meta.Platform, UserAgent: meta.UserAgent})
	if err != nil {
		return err
	}
	_, err = do[model.TokenView](ctx, c, http.MethodPost, "/api/tokens", body)
	return err
}

// DeleteToken unregisters token, for example when the user opts out.
func (c *GatewayClient) DeleteToken(ctx context.Context, token string) error {
	_, err := do[any](ctx, c, http.MethodDelete, "/api/tokens/"+url.PathEscape(token), nil)
	return err
}

// Settings fetches the client settings the gateway was configured with.
func (c *GatewayClient) Settings(ctx context.Context) (*Settings, error) {
	s, err := do[Settings](ctx, c, http.MethodGet, "/api/client-config", nil)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func do[T any](ctx context.Context, c *GatewayClient, method, path string, body []byte) (T, error) {
	var zero T
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.String()+path, reader)
	if err != nil {
		return zero, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return zero, err
	}
	defer resp.Body.Close()

	var payload envelope[T]
	decodeErr := json.NewDecoder(resp.Body).Decode(&payload)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if decodeErr == nil && payload.Msg != "" {
			return zero, fmt.Errorf("%s %s: %s: %s", method, path, resp.Status, payload.Msg)
		}
		return zero, fmt.Errorf("%s %s: %s", method, path, resp.Status)
	}
	if decodeErr != nil {
		return zero, fmt.Errorf("decode %s response: %w", path, decodeErr)
	}
	return payload.Data, nil
}
