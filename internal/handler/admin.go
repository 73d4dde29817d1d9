package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/forbill/whatsapp-vtu/internal/infrastructure/auth"
	"github.com/forbill/whatsapp-vtu/internal/models"
	pkgerrors "github.com/forbill/whatsapp-vtu/pkg/errors"
	"github.com/shopspring/decimal"
)

type adjustmentRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
}

type adjustFunc func(ctx context.Context, admin string, userID int64, amount decimal.Decimal, description string) (*models.Transaction, error)

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}

	token, err := h.admin.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		slog.Warn("admin login failed", "username", req.Username, "error", err)
		h.writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

// adminName returns the authenticated operator, writing 401 when absent.
func (h *Handler) adminName(w http.ResponseWriter, r *http.Request) (string, bool) {
	name, ok := auth.AdminFromContext(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, errors.New("admin not authenticated"))
	}
	return name, ok
}

func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}

	overview, err := h.admin.UserOverview(r.Context(), userID)
	if err != nil {
		h.writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, overview)
}

func (h *Handler) CreditUser(w http.ResponseWriter, r *http.Request) {
	h.adjust(w, r, h.admin.CreditUser)
}

func (h *Handler) DebitUser(w http.ResponseWriter, r *http.Request) {
	h.adjust(w, r, h.admin.DebitUser)
}

func (h *Handler) adjust(w http.ResponseWriter, r *http.Request, op adjustFunc) {
	admin, ok := h.adminName(w, r)
	if !ok {
		return
	}
	userID, err := pathID(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}
	var req adjustmentRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}

	tx, err := op(r.Context(), admin, userID, req.Amount, req.Description)
	if err != nil {
		var insufficient *pkgerrors.InsufficientBalanceError
		if errors.As(err, &insufficient) {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error":     err.Error(),
				"shortfall": insufficient.Shortfall.StringFixed(2),
			})
			return
		}
		h.writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusCreated, tx)
}

func (h *Handler) RefundTransaction(w http.ResponseWriter, r *http.Request) {
	admin, ok := h.adminName(w, r)
	if !ok {
		return
	}
	txID, err := pathID(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}
	var req struct {
		Reason string `json:"reason"`
	}
	if r.ContentLength != 0 {
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
			h.writeError(w, http.StatusBadRequest, err)
			return
		}
	}

	tx, err := h.admin.RefundTransaction(r.Context(), admin, txID, req.Reason)
	if err != nil {
		h.writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

func (h *Handler) DeactivateUser(w http.ResponseWriter, r *http.Request) {
	admin, ok := h.adminName(w, r)
	if !ok {
		return
	}
	userID, err := pathID(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}

	if err := h.admin.DeactivateUser(r.Context(), admin, userID); err != nil {
		h.writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deactivated"})
}
