// Package topupmate is the client for the TopUpMate airtime, data and bills
// aggregator.
package topupmate

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

const vendorName = "topupmate"

var networkCodes = map[models.Network]string{
	models.NetworkMTN:     "1",
	models.NetworkGLO:     "2",
	models.NetworkAirtel:  "3",
	models.Network9Mobile: "4",
}

type Client struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// APIError is returned for non-2xx responses and for 2xx responses whose
// body reports success=false.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("topupmate error (status %d): %s", e.StatusCode, e.Message)
}

type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error"`
}

// text accepts a JSON string or number.
type text string

func (t *text) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*t = text(s)
		return nil
	}
	if string(b) == "null" {
		*t = ""
		return nil
	}
	*t = text(b)
	return nil
}

type vendResponse struct {
	Reference   text `json:"reference"`
	APIResponse text `json:"api_response"`
	Token       text `json:"token"`
	Units       text `json:"units"`
	Message     text `json:"message"`
}

func (r vendResponse) result(raw []byte) *models.VendResult {
	ref := string(r.APIResponse)
	if ref == "" {
		ref = string(r.Reference)
	}
	return &models.VendResult{
		Reference: ref,
		Token:     string(r.Token),
		Units:     string(r.Units),
		Message:   string(r.Message),
		Raw:       string(raw),
	}
}

func (c *Client) BuyAirtime(ctx context.Context, order models.AirtimeOrder) (*models.VendResult, error) {
	code, err := networkCode(order.Network)
	if err != nil {
		return nil, err
	}
	payload := map[string]any{
		"network":    code,
		"phone":      order.Phone,
		"amount":     order.Amount.IntPart(),
		"bypass":     false,
		"request_id": order.IdempotencyKey,
	}
	var resp vendResponse
	raw, err := c.do(ctx, "airtime", http.MethodPost, "/airtime", payload, &resp)
	if err != nil {
		return nil, err
	}
	return resp.result(raw), nil
}

func (c *Client) GetDataPlans(ctx context.Context, network models.Network) ([]models.DataPlan, error) {
	var resp struct {
		Plans []models.DataPlan `json:"plans"`
	}
	if _, err := c.do(ctx, "data_plans", http.MethodGet, "/data/plans", nil, &resp); err != nil {
		return nil, err
	}

	plans := make([]models.DataPlan, 0, len(resp.Plans))
	for _, p := range resp.Plans {
		if network == "" || strings.EqualFold(p.Network, string(network)) {
			plans = append(plans, p)
		}
	}
	return plans, nil
}

func (c *Client) BuyData(ctx context.Context, order models.DataOrder) (*models.VendResult, error) {
	code, err := networkCode(order.Network)
	if err != nil {
		return nil, err
	}
	payload := map[string]any{
		"network":    code,
		"phone":      order.Phone,
		"plan_id":    order.PlanID,
		"request_id": order.IdempotencyKey,
	}
	var resp vendResponse
	raw, err := c.do(ctx, "data", http.MethodPost, "/data", payload, &resp)
	if err != nil {
		return nil, err
	}
	return resp.result(raw), nil
}

func (c *Client) VerifyMeter(ctx context.Context, meterNumber, disco, meterType string) (*models.CustomerInfo, error) {
	payload := map[string]any{
		"meter_number": meterNumber,
		"disco":        disco,
		"type":         meterType,
	}
	var resp struct {
		CustomerName string `json:"customer_name"`
		Address      string `json:"address"`
	}
	if _, err := c.do(ctx, "verify_meter", http.MethodPost, "/electricity/verify", payload, &resp); err != nil {
		return nil, err
	}
	return &models.CustomerInfo{Name: resp.CustomerName, Address: resp.Address}, nil
}

func (c *Client) BuyElectricity(ctx context.Context, order models.ElectricityOrder) (*models.VendResult, error) {
	payload := map[string]any{
		"meter_number": order.MeterNumber,
		"amount":       order.Amount.IntPart(),
		"disco":        order.Disco,
		"type":         order.MeterType,
		"phone":        order.Phone,
		"request_id":   order.IdempotencyKey,
	}
	var resp vendResponse
	raw, err := c.do(ctx, "electricity", http.MethodPost, "/electricity", payload, &resp)
	if err != nil {
		return nil, err
	}
	return resp.result(raw), nil
}

func (c *Client) VerifySmartcard(ctx context.Context, smartcard string, provider models.CableProvider) (*models.CustomerInfo, error) {
	payload := map[string]any{
		"smartcard_number": smartcard,
		"service":          provider.Label(),
	}
	var resp struct {
		CustomerName string `json:"customer_name"`
	}
	if _, err := c.do(ctx, "verify_smartcard", http.MethodPost, "/cabletv/verify", payload, &resp); err != nil {
		return nil, err
	}
	return &models.CustomerInfo{Name: resp.CustomerName}, nil
}

func (c *Client) GetCablePackages(ctx context.Context, provider models.CableProvider) ([]models.CablePackage, error) {
	var resp struct {
		Packages []models.CablePackage `json:"packages"`
	}
	if _, err := c.do(ctx, "cable_packages", http.MethodGet, "/cabletv/packages/"+provider.Label(), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Packages, nil
}

func (c *Client) BuyCableTV(ctx context.Context, order models.CableOrder) (*models.VendResult, error) {
	payload := map[string]any{
		"smartcard_number": order.Smartcard,
		"package":          order.PackageCode,
		"service":          order.Provider.Label(),
		"phone":            order.Phone,
		"request_id":       order.IdempotencyKey,
	}
	var resp vendResponse
	raw, err := c.do(ctx, "cable", http.MethodPost, "/cabletv", payload, &resp)
	if err != nil {
		return nil, err
	}
	return resp.result(raw), nil
}

func networkCode(n models.Network) (string, error) {
	code, ok := networkCodes[n]
	if !ok {
		return "", fmt.Errorf("unsupported network %q", n)
	}
	return code, nil
}

// do sends one request and decodes the body into out. It returns the raw body
// so callers can keep the vendor response for the ledger.
func (c *Client) do(ctx context.Context, operation, method, path string, payload, out any) (raw []byte, err error) {
	start := time.Now()
	defer func() {
		observability.ObserveVendorCall(vendorName, operation, start, err)
		if err != nil {
			slog.Error("topupmate call failed", "operation", operation, "error", err)
		}
	}()

	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal %s request: %w", operation, err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s request: %w", operation, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s request failed: %w", operation, err)
	}
	defer resp.Body.Close()

	raw, err = io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s response: %w", operation, err)
	}

	var env envelope
	decodeErr := json.Unmarshal(raw, &env)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := env.message()
		if decodeErr != nil || msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return raw, &APIError{StatusCode: resp.StatusCode, Message: msg}
	}
	if decodeErr != nil {
		return raw, fmt.Errorf("failed to decode %s response: %w", operation, decodeErr)
	}
	if !env.Success {
		msg := env.message()
		if msg == "" {
			msg = operation + " failed"
		}
		return raw, &APIError{StatusCode: resp.StatusCode, Message: msg}
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return raw, fmt.Errorf("failed to decode %s response: %w", operation, err)
		}
	}
	return raw, nil
}

func (e envelope) message() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Error
}
