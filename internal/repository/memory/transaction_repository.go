package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/forbill/whatsapp-vtu/internal/models"
	pkgerrors "github.com/forbill/whatsapp-vtu/pkg/errors"
	"github.com/shopspring/decimal"
)

type TransactionRepository struct {
	s *Store
}

func NewTransactionRepository(s *Store) *TransactionRepository {
	return &TransactionRepository{s: s}
}

func validateNew(tx *models.Transaction) error {
	if tx == nil {
		return pkgerrors.ErrNilTransaction
	}
	if !tx.Type.Valid() {
		return pkgerrors.ErrInvalidTransactionType
	}
	if !tx.Amount.IsPositive() {
		return pkgerrors.ErrInvalidAmount
	}
	if tx.Reference == "" {
		return fmt.Errorf("reference is required: %w", pkgerrors.ErrInvalidInput)
	}
	return nil
}

// insertLocked stores tx. The caller holds s.mu and has already checked the
// unique keys.
func (r *TransactionRepository) insertLocked(tx *models.Transaction) {
	r.s.nextTxID++
	now := time.Now().UTC()
	tx.ID = r.s.nextTxID
	tx.CreatedAt = now
	tx.UpdatedAt = now

	r.s.transactions[tx.ID] = copyTransaction(tx)
	r.s.txByRef[tx.Reference] = tx.ID
	if tx.IdempotencyKey != "" {
		r.s.txByIdemKey[tx.IdempotencyKey] = tx.ID
	}
	r.s.txOrder = append(r.s.txOrder, tx.ID)
}

func (r *TransactionRepository) duplicateLocked(tx *models.Transaction) bool {
	if _, ok := r.s.txByRef[tx.Reference]; ok {
		return true
	}
	if tx.IdempotencyKey != "" {
		if _, ok := r.s.txByIdemKey[tx.IdempotencyKey]; ok {
			return true
		}
	}
	return false
}

func (r *TransactionRepository) Credit(_ context.Context, tx *models.Transaction) error {
	if err := validateNew(tx); err != nil {
		return err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[tx.UserID]
	if !ok {
		return pkgerrors.ErrUserNotFound
	}
	if r.duplicateLocked(tx) {
		return pkgerrors.ErrDuplicateReference
	}

	now := time.Now().UTC()
	tx.Status = models.StatusCompleted
	tx.CompletedAt = &now
	tx.PreviousBalance = decimal.NewNullDecimal(u.Balance)
	u.Balance = u.Balance.Add(tx.Amount)
	u.UpdatedAt = now
	tx.NewBalance = decimal.NewNullDecimal(u.Balance)
	r.insertLocked(tx)
	return nil
}

func (r *TransactionRepository) Debit(_ context.Context, tx *models.Transaction) error {
	if err := validateNew(tx); err != nil {
		return err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[tx.UserID]
	if !ok {
		return pkgerrors.ErrUserNotFound
	}
	if u.Balance.LessThan(tx.Amount) {
		return pkgerrors.NewInsufficientBalanceError(u.Balance, tx.Amount)
	}
	if r.duplicateLocked(tx) {
		return pkgerrors.ErrDuplicateReference
	}

	tx.Status = models.StatusPending
	tx.CompletedAt = nil
	tx.PreviousBalance = decimal.NewNullDecimal(u.Balance)
	u.Balance = u.Balance.Sub(tx.Amount)
	u.UpdatedAt = time.Now().UTC()
	tx.NewBalance = decimal.NewNullDecimal(u.Balance)
	r.insertLocked(tx)
	return nil
}

func (r *TransactionRepository) UpdateStatus(_ context.Context, id int64, expected, next models.StatusType, upd models.StatusUpdate) (*models.Transaction, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	tx, ok := r.s.transactions[id]
	if !ok {
		return nil, pkgerrors.ErrTransactionNotFound
	}
	if tx.Status != expected {
		return nil, pkgerrors.ErrTransactionStatusConflict
	}

	now := time.Now().UTC()
	tx.Status = next
	if upd.ProviderResponse != "" {
		tx.ProviderResponse = upd.ProviderResponse
	}
	if upd.ProviderReference != "" {
		tx.ProviderReference = upd.ProviderReference
	}
	if upd.Token != "" {
		tx.Token = upd.Token
	}
	if upd.Units != "" {
		tx.Units = upd.Units
	}
	if next == models.StatusCompleted {
		tx.CompletedAt = &now
	}
	tx.UpdatedAt = now
	return copyTransaction(tx), nil
}

func (r *TransactionRepository) Reverse(_ context.Context, id int64, providerResponse string) (*models.Transaction, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	tx, ok := r.s.transactions[id]
	if !ok {
		return nil, pkgerrors.ErrTransactionNotFound
	}
	if tx.Status == models.StatusReversed {
		return nil, pkgerrors.ErrTransactionAlreadyReversed
	}
	if tx.Type.IsCredit() || !tx.Status.CanTransitionTo(models.StatusReversed) {
		return nil, fmt.Errorf("cannot reverse %s transaction: %w", tx.Status, pkgerrors.ErrInvalidStatusTransition)
	}
	u, ok := r.s.users[tx.UserID]
	if !ok {
		return nil, pkgerrors.ErrUserNotFound
	}

	now := time.Now().UTC()
	tx.Status = models.StatusReversed
	tx.ProviderResponse = providerResponse
	tx.UpdatedAt = now
	u.Balance = u.Balance.Add(tx.Amount)
	u.UpdatedAt = now
	return copyTransaction(tx), nil
}

func (r *TransactionRepository) GetByID(_ context.Context, id int64) (*models.Transaction, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	tx, ok := r.s.transactions[id]
	if !ok {
		return nil, pkgerrors.ErrTransactionNotFound
	}
	return copyTransaction(tx), nil
}

func (r *TransactionRepository) GetByReference(ctx context.Context, reference string) (*models.Transaction, error) {
	r.s.mu.Lock()
	id, ok := r.s.txByRef[reference]
	r.s.mu.Unlock()
	if !ok {
		return nil, pkgerrors.ErrTransactionNotFound
	}
	return r.GetByID(ctx, id)
}

func (r *TransactionRepository) userTransactionsLocked(userID int64) []*models.Transaction {
	var out []*models.Transaction
	for _, id := range r.s.txOrder {
		if tx := r.s.transactions[id]; tx.UserID == userID {
			out = append(out, tx)
		}
	}
	return out
}

func (r *TransactionRepository) ListByUser(_ context.Context, userID int64, limit, offset int) ([]*models.Transaction, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	txs := r.userTransactionsLocked(userID)
	// newest first; ids grow with insertion order
	sort.SliceStable(txs, func(i, j int) bool { return txs[i].ID > txs[j].ID })

	if offset >= len(txs) {
		return nil, nil
	}
	txs = txs[offset:]
	if limit > 0 && limit < len(txs) {
		txs = txs[:limit]
	}
	out := make([]*models.Transaction, 0, len(txs))
	for _, tx := range txs {
		out = append(out, copyTransaction(tx))
	}
	return out, nil
}

func (r *TransactionRepository) Summary(_ context.Context, userID int64) (*models.WalletSummary, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	summary := &models.WalletSummary{UserID: userID, TotalSpent: decimal.Zero, TotalFunded: decimal.Zero}
	for _, tx := range r.userTransactionsLocked(userID) {
		summary.TotalTransactions++
		switch tx.Status {
		case models.StatusCompleted:
			summary.CompletedTransactions++
			if tx.Type == models.TypeWalletFunding {
				summary.TotalFunded = summary.TotalFunded.Add(tx.Amount)
			} else if !tx.Type.IsCredit() {
				summary.TotalSpent = summary.TotalSpent.Add(tx.Amount)
			}
		case models.StatusPending, models.StatusProcessing:
			summary.PendingTransactions++
		case models.StatusFailed:
			summary.FailedTransactions++
		case models.StatusReversed:
		}
	}
	return summary, nil
}
