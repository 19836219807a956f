package inventory

import (
	"context"

	"github.com/erp/stockledger/internal/domain/alert"
	"github.com/erp/stockledger/internal/domain/inventory"
)

// TransactionScope provides transactional access to the ledger repositories.
// All repository calls made inside fn commit or roll back together.
type TransactionScope interface {
	// Execute runs fn within a database transaction.
	// If fn returns an error, the transaction is rolled back.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides access to all ledger repositories within a transaction.
//
//   - StockRecords: the StockRecord aggregate store (get / insert / compare-and-swap).
//   - Movements: append-only ledger; written only alongside a stock record write.
//   - Alerts: AlertState store; written only by alert evaluation and operator resolution.
type TransactionalRepositories interface {
	StockRecords() inventory.StockRecordRepository
	Movements() inventory.MovementRepository
	Alerts() alert.Repository
}

// NoOpTransactionScope runs fn directly against the given repositories without
// a transaction. Useful in tests with mock repositories.
type NoOpTransactionScope struct {
	records   inventory.StockRecordRepository
	movements inventory.MovementRepository
	alerts    alert.Repository
}

// NewNoOpTransactionScope creates a NoOpTransactionScope with the given repositories.
func NewNoOpTransactionScope(
	records inventory.StockRecordRepository,
	movements inventory.MovementRepository,
	alerts alert.Repository,
) *NoOpTransactionScope {
	return &NoOpTransactionScope{
		records:   records,
		movements: movements,
		alerts:    alerts,
	}
}

// Execute runs the function without a real transaction.
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

// StockRecords returns the stock record repository.
func (s *NoOpTransactionScope) StockRecords() inventory.StockRecordRepository {
	return s.records
}

// Movements returns the movement ledger repository.
func (s *NoOpTransactionScope) Movements() inventory.MovementRepository {
	return s.movements
}

// Alerts returns the alert repository.
func (s *NoOpTransactionScope) Alerts() alert.Repository {
	return s.alerts
}

var _ TransactionScope = (*NoOpTransactionScope)(nil)
var _ TransactionalRepositories = (*NoOpTransactionScope)(nil)
