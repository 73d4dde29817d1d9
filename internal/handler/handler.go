package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/forbill/whatsapp-vtu/internal/repository"
	service "github.com/forbill/whatsapp-vtu/internal/services"
	pkgerrors "github.com/forbill/whatsapp-vtu/pkg/errors"
	"github.com/gorilla/mux"
)

// maxBodyBytes caps webhook and admin request bodies.
const maxBodyBytes = 1 << 20

// Secrets holds the shared secrets used to authenticate inbound webhooks.
// An empty secret disables the corresponding check.
type Secrets struct {
	WhatsAppVerifyToken string
	WhatsAppAppSecret   string
	PayrantSecret       string
}

type Handler struct {
	bot      service.BotService
	funding  service.FundingService
	admin    service.AdminService
	webhooks repository.WebhookLogRepository
	secrets  Secrets
}

func NewHandler(
	bot service.BotService,
	funding service.FundingService,
	admin service.AdminService,
	webhooks repository.WebhookLogRepository,
	secrets Secrets,
) *Handler {
	return &Handler{
		bot:      bot,
		funding:  funding,
		admin:    admin,
		webhooks: webhooks,
		secrets:  secrets,
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *Handler) writeError(w http.ResponseWriter, status int, err error) {
	if status == http.StatusInternalServerError {
		err = pkgerrors.ErrInternal
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("failed to write response", "error", err)
	}
}

// statusFor maps service errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, pkgerrors.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, pkgerrors.ErrUserNotFound),
		errors.Is(err, pkgerrors.ErrTransactionNotFound):
		return http.StatusNotFound
	case errors.Is(err, pkgerrors.ErrTransactionAlreadyReversed),
		errors.Is(err, pkgerrors.ErrInvalidStatusTransition),
		errors.Is(err, pkgerrors.ErrTransactionStatusConflict),
		errors.Is(err, pkgerrors.ErrDuplicateReference):
		return http.StatusConflict
	case errors.Is(err, pkgerrors.ErrInvalidInput),
		errors.Is(err, pkgerrors.ErrInvalidAmount),
		errors.Is(err, pkgerrors.ErrInvalidTransactionType),
		errors.Is(err, pkgerrors.ErrInsufficientFunds):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func (h *Handler) RegisterPublicRoutes(r *mux.Router) {
	r.HandleFunc("/health", h.Health).Methods("GET")
	r.HandleFunc("/webhooks/whatsapp", h.VerifyWhatsApp).Methods("GET")
	r.HandleFunc("/webhooks/whatsapp", h.WhatsAppWebhook).Methods("POST")
	r.HandleFunc("/webhooks/payrant", h.PayrantWebhook).Methods("POST")
	r.HandleFunc("/admin/login", h.Login).Methods("POST")
}

// RegisterProtectedRoutes expects r to sit behind the admin auth middleware.
func (h *Handler) RegisterProtectedRoutes(r *mux.Router) {
	r.HandleFunc("/users/{id:[0-9]+}", h.GetUser).Methods("GET")
	r.HandleFunc("/users/{id:[0-9]+}/credit", h.CreditUser).Methods("POST")
	r.HandleFunc("/users/{id:[0-9]+}/debit", h.DebitUser).Methods("POST")
	r.HandleFunc("/users/{id:[0-9]+}/deactivate", h.DeactivateUser).Methods("POST")
	r.HandleFunc("/transactions/{id:[0-9]+}/refund", h.RefundTransaction).Methods("POST")
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id <= 0 {
		return 0, pkgerrors.ErrInvalidInput
	}
	return id, nil
}
