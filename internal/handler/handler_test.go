package handler

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/forbill/whatsapp-vtu/internal/infrastructure/auth"
	"github.com/forbill/whatsapp-vtu/internal/models"
	"github.com/forbill/whatsapp-vtu/internal/repository/memory"
	repositorymocks "github.com/forbill/whatsapp-vtu/internal/repository/mocks"
	service "github.com/forbill/whatsapp-vtu/internal/services"
	pkgerrors "github.com/forbill/whatsapp-vtu/pkg/errors"
	"github.com/golang/mock/gomock"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBot struct {
	got []models.InboundMessage
	err error
}

func (b *fakeBot) HandleMessage(_ context.Context, msg models.InboundMessage) error {
	b.got = append(b.got, msg)
	return b.err
}

type fakeFunding struct {
	service.FundingService
	got []models.PaymentEvent
	err error
}

func (f *fakeFunding) HandlePaymentEvent(_ context.Context, ev models.PaymentEvent) error {
	f.got = append(f.got, ev)
	return f.err
}

type fakeAdmin struct {
	service.AdminService
	admin  string
	amount decimal.Decimal
	err    error
}

func (a *fakeAdmin) Login(_ context.Context, username, password string) (string, error) {
	if username == "ops" && password == "s3cret" {
		return "token-1", nil
	}
	return "", pkgerrors.ErrInvalidCredentials
}

func (a *fakeAdmin) CreditUser(_ context.Context, admin string, userID int64, amount decimal.Decimal, _ string) (*models.Transaction, error) {
	a.admin, a.amount = admin, amount
	if a.err != nil {
		return nil, a.err
	}
	return &models.Transaction{ID: 9, UserID: userID, Type: models.TypeAdminCredit, Amount: amount}, nil
}

func (a *fakeAdmin) DebitUser(context.Context, string, int64, decimal.Decimal, string) (*models.Transaction, error) {
	return nil, pkgerrors.NewInsufficientBalanceError(decimal.NewFromInt(100), decimal.NewFromInt(250))
}

func (a *fakeAdmin) RefundTransaction(_ context.Context, _ string, txID int64, _ string) (*models.Transaction, error) {
	if txID == 404 {
		return nil, pkgerrors.ErrTransactionNotFound
	}
	return nil, pkgerrors.ErrTransactionAlreadyReversed
}

func (a *fakeAdmin) UserOverview(_ context.Context, userID int64) (*service.UserOverview, error) {
	return &service.UserOverview{User: &models.User{ID: userID, PhoneNumber: "2348011112222"}}, nil
}

const whatsappBody = `{"object":"whatsapp_business_account","entry":[{"changes":[{"value":{
	"contacts":[{"profile":{"name":"Ada"},"wa_id":"2348011112222"}],
	"messages":[{"id":"wamid.1","from":"2348011112222","timestamp":"1700000000","type":"text","text":{"body":"balance"}}]}}]}]}`

type harness struct {
	bot      *fakeBot
	funding  *fakeFunding
	admin    *fakeAdmin
	webhooks *memory.WebhookLogRepository
	router   *mux.Router
}

func newHarness(secrets Secrets) *harness {
	h := &harness{
		bot:      &fakeBot{},
		funding:  &fakeFunding{},
		admin:    &fakeAdmin{},
		webhooks: memory.NewWebhookLogRepository(memory.NewStore()),
		router:   mux.NewRouter(),
	}
	handler := NewHandler(h.bot, h.funding, h.admin, h.webhooks, secrets)
	handler.RegisterPublicRoutes(h.router)
	protected := h.router.PathPrefix("/admin").Subrouter()
	protected.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(auth.WithAdmin(r.Context(), "ops")))
		})
	})
	handler.RegisterProtectedRoutes(protected)
	return h
}

func (h *harness) do(method, target, body string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	return rec
}

func sign(body, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(body))
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifyWhatsApp(t *testing.T) {
	h := newHarness(Secrets{WhatsAppVerifyToken: "verify-me"})

	tests := []struct {
		name       string
		query      string
		wantStatus int
		wantBody   string
	}{
		{"valid", "hub.mode=subscribe&hub.verify_token=verify-me&hub.challenge=12345", http.StatusOK, "12345"},
		{"wrong token", "hub.mode=subscribe&hub.verify_token=nope&hub.challenge=12345", http.StatusForbidden, ""},
		{"wrong mode", "hub.mode=unsubscribe&hub.verify_token=verify-me&hub.challenge=12345", http.StatusForbidden, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := h.do(http.MethodGet, "/webhooks/whatsapp?"+tt.query, "", nil)
			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantBody != "" {
				assert.Equal(t, tt.wantBody, rec.Body.String())
			}
		})
	}
}

func TestWhatsAppWebhook(t *testing.T) {
	t.Run("dispatches messages", func(t *testing.T) {
		h := newHarness(Secrets{})
		rec := h.do(http.MethodPost, "/webhooks/whatsapp", whatsappBody, nil)

		assert.Equal(t, http.StatusOK, rec.Code)
		require.Len(t, h.bot.got, 1)
		assert.Equal(t, "balance", h.bot.got[0].Text)
		assert.Equal(t, "Ada", h.bot.got[0].Name)

		logged, ok := h.webhooks.Get(1)
		require.True(t, ok)
		assert.Equal(t, models.WebhookSourceWhatsApp, logged.Source)
		assert.True(t, logged.Processed)
		assert.Empty(t, logged.Error)
	})

	t.Run("bot failure still acknowledged", func(t *testing.T) {
		h := newHarness(Secrets{})
		h.bot.err = errors.New("db down")
		rec := h.do(http.MethodPost, "/webhooks/whatsapp", whatsappBody, nil)

		assert.Equal(t, http.StatusOK, rec.Code)
		logged, _ := h.webhooks.Get(1)
		assert.Contains(t, logged.Error, "db down")
	})

	t.Run("bad signature is not dispatched", func(t *testing.T) {
		h := newHarness(Secrets{WhatsAppAppSecret: "app-secret"})
		rec := h.do(http.MethodPost, "/webhooks/whatsapp", whatsappBody,
			map[string]string{"X-Hub-Signature-256": "sha256=deadbeef"})

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, h.bot.got)
		logged, _ := h.webhooks.Get(1)
		assert.Equal(t, errInvalidSignature.Error(), logged.Error)
	})

	t.Run("good signature", func(t *testing.T) {
		h := newHarness(Secrets{WhatsAppAppSecret: "app-secret"})
		h.do(http.MethodPost, "/webhooks/whatsapp", whatsappBody,
			map[string]string{"X-Hub-Signature-256": "sha256=" + sign(whatsappBody, "app-secret")})
		assert.Len(t, h.bot.got, 1)
	})

	t.Run("malformed body", func(t *testing.T) {
		h := newHarness(Secrets{})
		rec := h.do(http.MethodPost, "/webhooks/whatsapp", "{", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
		logged, _ := h.webhooks.Get(1)
		assert.NotEmpty(t, logged.Error)
	})
}

func TestPayrantWebhook(t *testing.T) {
	body := `{"event":"payment.success","amount":2000,"reference":"R1","account_reference":"FORBILL-1-2222"}`

	t.Run("applies event", func(t *testing.T) {
		h := newHarness(Secrets{PayrantSecret: "pay-secret"})
		rec := h.do(http.MethodPost, "/webhooks/payrant", body,
			map[string]string{"X-Payrant-Signature": sign(body, "pay-secret")})

		assert.Equal(t, http.StatusOK, rec.Code)
		require.Len(t, h.funding.got, 1)
		assert.Equal(t, "R1", h.funding.got[0].Reference)
		assert.True(t, h.funding.got[0].Amount.Equal(decimal.NewFromInt(2000)))

		logged, _ := h.webhooks.Get(1)
		assert.Equal(t, "payment.success", logged.EventType)
		assert.True(t, logged.Processed)
	})

	t.Run("rejects bad signature", func(t *testing.T) {
		h := newHarness(Secrets{PayrantSecret: "pay-secret"})
		rec := h.do(http.MethodPost, "/webhooks/payrant", body,
			map[string]string{"X-Payrant-Signature": "bogus"})

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Empty(t, h.funding.got)
	})

	t.Run("failure acknowledged", func(t *testing.T) {
		h := newHarness(Secrets{})
		h.funding.err = pkgerrors.ErrUserNotFound
		rec := h.do(http.MethodPost, "/webhooks/payrant", body, nil)

		assert.Equal(t, http.StatusOK, rec.Code)
		logged, _ := h.webhooks.Get(1)
		assert.Equal(t, pkgerrors.ErrUserNotFound.Error(), logged.Error)
	})
}

func TestAdminRoutes(t *testing.T) {
	h := newHarness(Secrets{})

	t.Run("login", func(t *testing.T) {
		rec := h.do(http.MethodPost, "/admin/login", `{"username":"ops","password":"s3cret"}`, nil)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"token":"token-1"}`, rec.Body.String())

		rec = h.do(http.MethodPost, "/admin/login", `{"username":"ops","password":"x"}`, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("credit", func(t *testing.T) {
		rec := h.do(http.MethodPost, "/admin/users/7/credit", `{"amount":"1500.50","description":"goodwill"}`, nil)
		assert.Equal(t, http.StatusCreated, rec.Code)
		assert.Equal(t, "ops", h.admin.admin)
		assert.Equal(t, "1500.5", h.admin.amount.String())

		var tx models.Transaction
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tx))
		assert.Equal(t, int64(7), tx.UserID)
	})

	t.Run("debit shortfall", func(t *testing.T) {
		rec := h.do(http.MethodPost, "/admin/users/7/debit", `{"amount":250}`, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), `"shortfall":"150.00"`)
	})

	t.Run("refund errors", func(t *testing.T) {
		rec := h.do(http.MethodPost, "/admin/transactions/404/refund", "", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)

		rec = h.do(http.MethodPost, "/admin/transactions/5/refund", `{"reason":"dup"}`, nil)
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("overview", func(t *testing.T) {
		rec := h.do(http.MethodGet, "/admin/users/7", "", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "2348011112222")
	})

	t.Run("internal errors are masked", func(t *testing.T) {
		h.admin.err = errors.New("pq: connection refused")
		rec := h.do(http.MethodPost, "/admin/users/7/credit", `{"amount":10}`, nil)
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.JSONEq(t, `{"error":"internal error"}`, rec.Body.String())
	})
}

func TestHealth(t *testing.T) {
	h := newHarness(Secrets{})
	rec := h.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestWebhooks_LogStoreFailures(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	webhooks := repositorymocks.NewMockWebhookLogRepository(ctrl)
	bot, funding := &fakeBot{}, &fakeFunding{}
	router := mux.NewRouter()
	NewHandler(bot, funding, &fakeAdmin{}, webhooks, Secrets{}).RegisterPublicRoutes(router)

	post := func(target, body string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, target, strings.NewReader(body)))
		return rec
	}

	t.Run("whatsapp still dispatched when the log cannot be stored", func(t *testing.T) {
		webhooks.EXPECT().Create(gomock.Any(), gomock.Any()).Return(int64(0), errors.New("db down"))

		rec := post("/webhooks/whatsapp", whatsappBody)
		assert.Equal(t, http.StatusOK, rec.Code)
		require.Len(t, bot.got, 1)
		assert.Equal(t, "balance", bot.got[0].Text)
	})

	t.Run("payrant applied when marking processed fails", func(t *testing.T) {
		webhooks.EXPECT().Create(gomock.Any(), gomock.Any()).Return(int64(3), nil)
		webhooks.EXPECT().MarkProcessed(gomock.Any(), int64(3), "").Return(errors.New("db down"))

		rec := post("/webhooks/payrant", `{"event":"payment.success","reference":"R1","amount":"500","account_reference":"FORBILL-1-2222"}`)
		assert.Equal(t, http.StatusOK, rec.Code)
		require.Len(t, funding.got, 1)
		assert.Equal(t, "R1", funding.got[0].Reference)
	})
}
