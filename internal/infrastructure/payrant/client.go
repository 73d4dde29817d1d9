// Package payrant is the client for the Payrant payment gateway: virtual
// account provisioning and funding webhook decoding.
package payrant

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/forbill/whatsapp-vtu/internal/infrastructure/observability"
	"github.com/forbill/whatsapp-vtu/internal/models"
	"github.com/forbill/whatsapp-vtu/pkg/phone"
	"github.com/shopspring/decimal"
)

const (
	vendorName      = "payrant"
	defaultBankName = "Payrant Bank"
	// SignatureHeader carries the hex HMAC-SHA256 of the raw webhook body.
	SignatureHeader = "X-Payrant-Signature"
)

type Client struct {
	BaseURL    string
	APIKey     string
	WebhookURL string
	// AccountPrefix starts every account reference, e.g. FORBILL-12-2222.
	AccountPrefix string
	HTTPClient    *http.Client
}

func NewClient(baseURL, apiKey, webhookURL, accountPrefix string) *Client {
	if accountPrefix == "" {
		accountPrefix = "FORBILL"
	}
	return &Client{
		BaseURL:       strings.TrimRight(baseURL, "/"),
		APIKey:        apiKey,
		WebhookURL:    webhookURL,
		AccountPrefix: accountPrefix,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type ErrorResponse struct {
	StatusCode int
	Message    string `json:"message"`
}

func (e *ErrorResponse) Error() string {
	return fmt.Sprintf("payrant error (status %d): %s", e.StatusCode, e.Message)
}

// AccountReference builds the reference that routes funding back to user.
func AccountReference(prefix string, userID int64, phoneNumber string) string {
	return fmt.Sprintf("%s-%d-%s", prefix, userID, phone.Last4(phoneNumber))
}

type createAccountRequest struct {
	AccountReference string `json:"account_reference"`
	AccountName      string `json:"account_name"`
	CustomerName     string `json:"customer_name"`
	CustomerPhone    string `json:"customer_phone"`
	CustomerEmail    string `json:"customer_email,omitempty"`
	WebhookURL       string `json:"webhook_url,omitempty"`
}

type createAccountResponse struct {
	AccountNumber    string `json:"account_number"`
	AccountName      string `json:"account_name"`
	BankName         string `json:"bank_name"`
	AccountReference string `json:"account_reference"`
}

func (c *Client) CreateVirtualAccount(ctx context.Context, user *models.User) (_ *models.VirtualAccount, err error) {
	start := time.Now()
	defer func() {
		observability.ObserveVendorCall(vendorName, "create_virtual_account", start, err)
	}()

	name := user.Name
	if name == "" {
		name = "ForBill-" + phone.Last4(user.PhoneNumber)
	}
	reqBody := createAccountRequest{
		AccountReference: AccountReference(c.AccountPrefix, user.ID, user.PhoneNumber),
		AccountName:      name,
		CustomerName:     name,
		CustomerPhone:    user.PhoneNumber,
		CustomerEmail:    user.Email,
		WebhookURL:       c.WebhookURL,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal virtual account request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/virtual-accounts", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.APIKey)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		slog.Error("payrant request failed", "user_id", user.ID, "error", err)
		return nil, fmt.Errorf("virtual account request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		errResp := &ErrorResponse{StatusCode: resp.StatusCode}
		if json.Unmarshal(respBody, errResp) != nil || errResp.Message == "" {
			errResp.Message = http.StatusText(resp.StatusCode)
		}
		slog.Error("payrant rejected virtual account", "user_id", user.ID, "status", resp.StatusCode, "message", errResp.Message)
		return nil, errResp
	}

	var out createAccountResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if out.AccountNumber == "" {
		return nil, &ErrorResponse{StatusCode: resp.StatusCode, Message: "response carried no account number"}
	}
	if out.BankName == "" {
		out.BankName = defaultBankName
	}
	if out.AccountReference == "" {
		out.AccountReference = reqBody.AccountReference
	}
	if out.AccountName == "" {
		out.AccountName = name
	}

	return &models.VirtualAccount{
		AccountNumber:    out.AccountNumber,
		AccountName:      out.AccountName,
		BankName:         out.BankName,
		AccountReference: out.AccountReference,
	}, nil
}

// VerifySignature reports whether signature is the hex HMAC-SHA256 of body
// under secret.
func VerifySignature(body []byte, signature, secret string) bool {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(strings.TrimSpace(signature))))
}

type webhookPayload struct {
	Event                string          `json:"event"`
	Type                 string          `json:"type"`
	Amount               decimal.Decimal `json:"amount"`
	Reference            string          `json:"reference"`
	TransactionReference string          `json:"transaction_reference"`
	AccountReference     string          `json:"account_reference"`
	Narration            string          `json:"narration"`
}

// ParseWebhook decodes a funding notification. The event name may arrive as
// event or type and the reference as reference or transaction_reference;
// fields may also be nested under data.
func ParseWebhook(body []byte) (models.PaymentEvent, error) {
	var outer struct {
		webhookPayload
		Data *webhookPayload `json:"data"`
	}
	if err := json.Unmarshal(body, &outer); err != nil {
		return models.PaymentEvent{}, fmt.Errorf("failed to decode payrant webhook: %w", err)
	}

	p := outer.webhookPayload
	if d := outer.Data; d != nil {
		p = merge(p, *d)
	}

	ev := models.PaymentEvent{
		Event:            first(p.Event, p.Type),
		Amount:           p.Amount,
		Reference:        first(p.Reference, p.TransactionReference),
		AccountReference: p.AccountReference,
		Narration:        p.Narration,
	}
	if ev.Event == "" {
		return ev, fmt.Errorf("payrant webhook has no event type")
	}
	return ev, nil
}

func merge(top, nested webhookPayload) webhookPayload {
	top.Event = first(top.Event, nested.Event)
	top.Type = first(top.Type, nested.Type)
	if top.Amount.IsZero() {
		top.Amount = nested.Amount
	}
	top.Reference = first(top.Reference, nested.Reference)
	top.TransactionReference = first(top.TransactionReference, nested.TransactionReference)
	top.AccountReference = first(top.AccountReference, nested.AccountReference)
	top.Narration = first(top.Narration, nested.Narration)
	return top
}

func first(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
