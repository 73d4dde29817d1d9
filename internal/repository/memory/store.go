// Package memory implements the repository interfaces in process memory.
// It backs local development and the service tests.
package memory

import (
	"sync"

	"github.com/forbill/whatsapp-vtu/internal/models"
	"github.com/forbill/whatsapp-vtu/internal/repository"
)

var (
	_ repository.UserRepository        = (*UserRepository)(nil)
	_ repository.TransactionRepository = (*TransactionRepository)(nil)
	_ repository.PreferenceRepository  = (*PreferenceRepository)(nil)
	_ repository.WebhookLogRepository  = (*WebhookLogRepository)(nil)
	_ repository.AdminLogRepository    = (*AdminLogRepository)(nil)
)

// Store holds every table. Repositories created from the same Store share
// one lock, so ledger updates touch balances and rows atomically.
type Store struct {
	mu sync.Mutex

	users       map[int64]*models.User
	usersByTel  map[string]int64
	usersByCode map[string]int64
	nextUserID  int64

	transactions map[int64]*models.Transaction
	txByRef      map[string]int64
	txByIdemKey  map[string]int64
	txOrder      []int64
	nextTxID     int64

	prefs map[int64]*models.UserPreference

	webhookLogs   map[int64]*models.WebhookLog
	nextWebhookID int64
	adminLogs     []*models.AdminLog
}

func NewStore() *Store {
	return &Store{
		users:        make(map[int64]*models.User),
		usersByTel:   make(map[string]int64),
		usersByCode:  make(map[string]int64),
		transactions: make(map[int64]*models.Transaction),
		txByRef:      make(map[string]int64),
		txByIdemKey:  make(map[string]int64),
		prefs:        make(map[int64]*models.UserPreference),
		webhookLogs:  make(map[int64]*models.WebhookLog),
	}
}

func copyUser(u *models.User) *models.User {
	c := *u
	return &c
}

func copyTransaction(tx *models.Transaction) *models.Transaction {
	c := *tx
	return &c
}
