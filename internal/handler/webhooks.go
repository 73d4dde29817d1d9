package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/forbill/whatsapp-vtu/internal/infrastructure/payrant"
	"github.com/forbill/whatsapp-vtu/internal/infrastructure/whatsapp"
	"github.com/forbill/whatsapp-vtu/internal/models"
)

var errInvalidSignature = errors.New("invalid webhook signature")

// VerifyWhatsApp answers Meta's subscription handshake.
func (h *Handler) VerifyWhatsApp(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("hub.mode") != "subscribe" || h.secrets.WhatsAppVerifyToken == "" ||
		q.Get("hub.verify_token") != h.secrets.WhatsAppVerifyToken {
		slog.Warn("whatsapp webhook verification rejected", "mode", q.Get("hub.mode"))
		h.writeError(w, http.StatusForbidden, errors.New("verification failed"))
		return
	}
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, q.Get("hub.challenge"))
}

// WhatsAppWebhook always acknowledges with 200 so Meta does not redeliver;
// failures are logged and recorded on the webhook log row.
func (h *Handler) WhatsAppWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		slog.Error("failed to read whatsapp webhook", "error", err)
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		return
	}
	ctx := context.WithoutCancel(r.Context())
	logID := h.logWebhook(ctx, r, models.WebhookSourceWhatsApp, "messages", body)

	var procErr error
	defer func() { h.markProcessed(ctx, logID, procErr) }()

	if secret := h.secrets.WhatsAppAppSecret; secret != "" &&
		!whatsapp.VerifySignature(body, r.Header.Get(whatsapp.SignatureHeader), secret) {
		slog.Warn("whatsapp webhook signature mismatch", "webhook_log_id", logID)
		procErr = errInvalidSignature
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		return
	}

	messages, err := whatsapp.ParseWebhook(body)
	if err != nil {
		slog.Error("failed to parse whatsapp webhook", "webhook_log_id", logID, "error", err)
		procErr = err
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		return
	}

	var failures []string
	for _, msg := range messages {
		if err := h.bot.HandleMessage(ctx, msg); err != nil {
			slog.Error("failed to handle whatsapp message",
				"webhook_log_id", logID,
				"message_id", msg.ID,
				"error", err)
			failures = append(failures, msg.ID+": "+err.Error())
		}
	}
	if len(failures) > 0 {
		procErr = errors.New(strings.Join(failures, "; "))
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// PayrantWebhook rejects unsigned calls when a secret is configured and
// acknowledges everything else, including events that failed to apply.
func (h *Handler) PayrantWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}
	ctx := context.WithoutCancel(r.Context())

	if secret := h.secrets.PayrantSecret; secret != "" &&
		!payrant.VerifySignature(body, r.Header.Get(payrant.SignatureHeader), secret) {
		logID := h.logWebhook(ctx, r, models.WebhookSourcePayrant, "", body)
		h.markProcessed(ctx, logID, errInvalidSignature)
		slog.Warn("payrant webhook signature mismatch", "webhook_log_id", logID)
		h.writeError(w, http.StatusUnauthorized, errInvalidSignature)
		return
	}

	ev, err := payrant.ParseWebhook(body)
	logID := h.logWebhook(ctx, r, models.WebhookSourcePayrant, ev.Event, body)
	if err != nil {
		slog.Error("failed to parse payrant webhook", "webhook_log_id", logID, "error", err)
		h.markProcessed(ctx, logID, err)
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		return
	}

	err = h.funding.HandlePaymentEvent(ctx, ev)
	if err != nil {
		slog.Error("failed to apply payment event",
			"webhook_log_id", logID,
			"event", ev.Event,
			"reference", ev.Reference,
			"error", err)
	}
	h.markProcessed(ctx, logID, err)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// logWebhook stores the raw call and returns its id, or 0 when it could not
// be stored.
func (h *Handler) logWebhook(ctx context.Context, r *http.Request, source models.WebhookSource, eventType string, body []byte) int64 {
	headers, _ := json.Marshal(map[string]string{
		"Content-Type": r.Header.Get("Content-Type"),
		"User-Agent":   r.Header.Get("User-Agent"),
		"X-Request-ID": r.Header.Get("X-Request-ID"),
	})
	id, err := h.webhooks.Create(ctx, &models.WebhookLog{
		Source:    source,
		EventType: eventType,
		Method:    r.Method,
		Headers:   string(headers),
		Payload:   string(body),
	})
	if err != nil {
		slog.Error("failed to store webhook log", "source", source, "error", err)
		return 0
	}
	return id
}

func (h *Handler) markProcessed(ctx context.Context, id int64, procErr error) {
	if id == 0 {
		return
	}
	var msg string
	if procErr != nil {
		msg = procErr.Error()
	}
	if err := h.webhooks.MarkProcessed(ctx, id, msg); err != nil {
		slog.Warn("failed to mark webhook processed", "webhook_log_id", id, "error", err)
	}
}
