// Package memstore is an in-memory implementation of the ledger repositories
// and transaction scope. Transactions are serialized and run against a staged
// copy of the state that replaces the live state only on success.
package memstore

import (
	"context"
	"sync"

	inventoryapp "github.com/erp/stockledger/internal/application/inventory"
	"github.com/erp/stockledger/internal/domain/alert"
	"github.com/erp/stockledger/internal/domain/inventory"
	"github.com/google/uuid"
)

type state struct {
	records   map[inventory.StockKey]inventory.StockRecord
	movements []inventory.MovementEntry
	alerts    map[uuid.UUID]alert.AlertState
}

func newState() *state {
	return &state{
		records: make(map[inventory.StockKey]inventory.StockRecord),
		alerts:  make(map[uuid.UUID]alert.AlertState),
	}
}

func (s *state) clone() *state {
	c := &state{
		records:   make(map[inventory.StockKey]inventory.StockRecord, len(s.records)),
		movements: make([]inventory.MovementEntry, len(s.movements)),
		alerts:    make(map[uuid.UUID]alert.AlertState, len(s.alerts)),
	}
	for k, v := range s.records {
		c.records[k] = v
	}
	copy(c.movements, s.movements)
	for k, v := range s.alerts {
		c.alerts[k] = v
	}
	return c
}

// access runs fn against some state. write reports whether fn mutates it.
type access interface {
	with(write bool, fn func(st *state) error) error
}

// Store holds the live state and implements inventoryapp.TransactionScope
type Store struct {
	mu sync.RWMutex
	st *state
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{st: newState()}
}

func (s *Store) with(write bool, fn func(st *state) error) error {
	if write {
		s.mu.Lock()
		defer s.mu.Unlock()
	} else {
		s.mu.RLock()
		defer s.mu.RUnlock()
	}
	return fn(s.st)
}

// Execute runs fn against a staged copy and publishes it only if fn succeeds
func (s *Store) Execute(ctx context.Context, fn func(repos inventoryapp.TransactionalRepositories) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &txState{st: s.st.clone()}
	if err := fn(repositories{tx}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.st = tx.st
	return nil
}

// StockRecords returns an auto-committing stock record repository
func (s *Store) StockRecords() inventory.StockRecordRepository {
	return &stockRecordRepository{a: s}
}

// Movements returns an auto-committing movement repository
func (s *Store) Movements() inventory.MovementRepository {
	return &movementRepository{a: s}
}

// Alerts returns an auto-committing alert repository
func (s *Store) Alerts() alert.Repository {
	return &alertRepository{a: s}
}

// txState is the staged state of one transaction; the store lock is held for its lifetime
type txState struct {
	st *state
}

func (t *txState) with(_ bool, fn func(st *state) error) error {
	return fn(t.st)
}

type repositories struct {
	a access
}

func (r repositories) StockRecords() inventory.StockRecordRepository {
	return &stockRecordRepository{a: r.a}
}

func (r repositories) Movements() inventory.MovementRepository {
	return &movementRepository{a: r.a}
}

func (r repositories) Alerts() alert.Repository {
	return &alertRepository{a: r.a}
}

var (
	_ inventoryapp.TransactionScope          = (*Store)(nil)
	_ inventoryapp.TransactionalRepositories = (*Store)(nil)
	_ inventoryapp.TransactionalRepositories = repositories{}
)
