package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// WebhookGateway POSTs alerts as JSON to an HTTP endpoint (mail relay, chat bot).
type WebhookGateway struct {
	url        string
	httpClient *http.Client
}

func NewWebhookGateway(url string, timeout time.Duration) *WebhookGateway {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &WebhookGateway{
		url: url,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

func (g *WebhookGateway) AlertAdmin(ctx context.Context, alert Alert) error {
	body, err := json.Marshal(map[string]interface{}{
		"to":      alert.AdminAddress,
		"subject": alert.Title(),
		"message": alert.Message(),
		"alert":   alert,
	})
	if err != nil {
		return fmt.Errorf("marshal alert: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", alert.ID)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("webhook request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("webhook returned %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}
