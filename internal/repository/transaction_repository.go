package repository

import (
	"context"

	"github.com/forbill/whatsapp-vtu/internal/models"
)

// TransactionRepository is the ledger store. Every balance mutation happens
// together with its ledger row in one atomic unit.
type TransactionRepository interface {
	// Credit adds tx.Amount to the owner's balance and records tx as
	// completed. A reused reference yields ErrDuplicateReference and leaves
	// the balance untouched.
	Credit(ctx context.Context, tx *models.Transaction) error
	// Debit subtracts tx.Amount only when the balance covers it and records
	// tx as pending. A shortfall yields *InsufficientBalanceError.
	Debit(ctx context.Context, tx *models.Transaction) error
	// UpdateStatus moves a transaction from expected to next. A row no longer
	// in the expected status yields ErrTransactionStatusConflict.
	UpdateStatus(ctx context.Context, id int64, expected, next models.StatusType, upd models.StatusUpdate) (*models.Transaction, error)
	// Reverse marks a refundable debit reversed and returns its amount to the
	// owner's balance.
	Reverse(ctx context.Context, id int64, providerResponse string) (*models.Transaction, error)
	GetByID(ctx context.Context, id int64) (*models.Transaction, error)
	GetByReference(ctx context.Context, reference string) (*models.Transaction, error)
	ListByUser(ctx context.Context, userID int64, limit, offset int) ([]*models.Transaction, error)
	// Summary fills every field of WalletSummary except CurrentBalance.
	Summary(ctx context.Context, userID int64) (*models.WalletSummary, error)
}
