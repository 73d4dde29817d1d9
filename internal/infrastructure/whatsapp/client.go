// Package whatsapp talks to the Meta WhatsApp Cloud API.
package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/forbill/whatsapp-vtu/internal/infrastructure/observability"
	"github.com/forbill/whatsapp-vtu/internal/models"
)

const (
	vendorName     = "whatsapp"
	DefaultBaseURL = "https://graph.facebook.com"
	maxButtons     = 3
	maxButtonTitle = 20
)

type Client struct {
	BaseURL       string
	APIVersion    string
	PhoneNumberID string
	AccessToken   string
	HTTPClient    *http.Client
}

func NewClient(baseURL, apiVersion, phoneNumberID, accessToken string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		BaseURL:       strings.TrimRight(baseURL, "/"),
		APIVersion:    apiVersion,
		PhoneNumberID: phoneNumberID,
		AccessToken:   accessToken,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("whatsapp error (status %d): %s", e.StatusCode, e.Message)
}

func (c *Client) SendText(ctx context.Context, to, text string) error {
	payload := map[string]any{
		"messaging_product": "whatsapp",
		"recipient_type":    "individual",
		"to":                to,
		"type":              "text",
		"text": map[string]any{
			"preview_url": false,
			"body":        text,
		},
	}
	return c.post(ctx, "send_text", payload)
}

// SendInteractive sends body with up to three reply buttons; extra buttons
// are dropped.
func (c *Client) SendInteractive(ctx context.Context, to, body string, buttons []models.Button) error {
	if len(buttons) > maxButtons {
		buttons = buttons[:maxButtons]
	}
	replies := make([]map[string]any, 0, len(buttons))
	for _, b := range buttons {
		title := b.Title
		if len([]rune(title)) > maxButtonTitle {
			title = string([]rune(title)[:maxButtonTitle])
		}
		replies = append(replies, map[string]any{
			"type":  "reply",
			"reply": map[string]string{"id": b.ID, "title": title},
		})
	}

	payload := map[string]any{
		"messaging_product": "whatsapp",
		"recipient_type":    "individual",
		"to":                to,
		"type":              "interactive",
		"interactive": map[string]any{
			"type":   "button",
			"body":   map[string]string{"text": body},
			"action": map[string]any{"buttons": replies},
		},
	}
	return c.post(ctx, "send_interactive", payload)
}

func (c *Client) MarkRead(ctx context.Context, messageID string) error {
	payload := map[string]any{
		"messaging_product": "whatsapp",
		"status":            "read",
		"message_id":        messageID,
	}
	return c.post(ctx, "mark_read", payload)
}

func (c *Client) messagesURL() string {
	return fmt.Sprintf("%s/%s/%s/messages", c.BaseURL, c.APIVersion, c.PhoneNumberID)
}

func (c *Client) post(ctx context.Context, operation string, payload any) (err error) {
	start := time.Now()
	defer func() {
		observability.ObserveVendorCall(vendorName, operation, start, err)
	}()

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s payload: %w", operation, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.messagesURL(), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.AccessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s request failed: %w", operation, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errResp struct {
			Error struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		msg := http.StatusText(resp.StatusCode)
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Error.Message != "" {
			msg = errResp.Error.Message
		}
		return &APIError{StatusCode: resp.StatusCode, Message: msg}
	}

	slog.Debug("whatsapp message accepted", "operation", operation)
	return nil
}
