// Package memrepo provides in-memory implementations of the domain
// repositories. They serialize every operation behind a mutex and back the
// service when no database is configured, as well as the test suites.
package memrepo

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"reelforge/internal/domain"
)

// Ledger keeps per-user balances plus an append-only transaction log. The
// mutex is the transactional boundary: read balance, validate, write balance,
// and append happen as one critical section.
type Ledger struct {
	mu       sync.Mutex
	balances map[string]*domain.CreditBalance
	log      []domain.CreditTransaction
}

// NewLedger constructs an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{balances: make(map[string]*domain.CreditBalance)}
}

// Balance returns the user's balance record, creating a zero-balance record
// on first use.
func (l *Ledger) Balance(ctx context.Context, userID string) (*domain.CreditBalance, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	balance := l.getOrCreateLocked(userID)
	copied := *balance
	return &copied, nil
}

// Debit atomically decrements the balance and appends a debit transaction.
func (l *Ledger) Debit(ctx context.Context, userID, jobID string, amount int, reason string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if amount <= 0 {
		return domain.ErrInvalidAmount
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	balance := l.getOrCreateLocked(userID)
	if balance.Balance < amount {
		return domain.ErrInsufficientCredits
	}
	balance.Balance -= amount
	balance.UpdatedAt = time.Now().UTC()
	l.appendLocked(userID, jobID, amount, domain.TransactionDebit, reason)
	return nil
}

// Refund atomically increments the balance and appends a refund transaction.
func (l *Ledger) Refund(ctx context.Context, userID, jobID string, amount int, reason string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if amount <= 0 {
		return domain.ErrInvalidAmount
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	balance := l.getOrCreateLocked(userID)
	balance.Balance += amount
	balance.UpdatedAt = time.Now().UTC()
	l.appendLocked(userID, jobID, amount, domain.TransactionRefund, reason)
	return nil
}

// Purchase atomically increments the balance and appends a purchase
// transaction.
func (l *Ledger) Purchase(ctx context.Context, userID string, amount int, reason string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if amount <= 0 {
		return domain.ErrInvalidAmount
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	balance := l.getOrCreateLocked(userID)
	balance.Balance += amount
	balance.UpdatedAt = time.Now().UTC()
	l.appendLocked(userID, "", amount, domain.TransactionPurchase, reason)
	return nil
}

// Transactions lists the user's ledger entries, newest first.
func (l *Ledger) Transactions(ctx context.Context, userID string) ([]domain.CreditTransaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	var items []domain.CreditTransaction
	for i := len(l.log) - 1; i >= 0; i-- {
		if l.log[i].UserID == userID {
			items = append(items, l.log[i])
		}
	}
	return items, nil
}

func (l *Ledger) getOrCreateLocked(userID string) *domain.CreditBalance {
	if balance, ok := l.balances[userID]; ok {
		return balance
	}
	balance := &domain.CreditBalance{UserID: userID, UpdatedAt: time.Now().UTC()}
	l.balances[userID] = balance
	return balance
}

func (l *Ledger) appendLocked(userID, jobID string, amount int, kind domain.TransactionKind, reason string) {
	l.log = append(l.log, domain.CreditTransaction{
		ID:        uuid.NewString(),
		UserID:    userID,
		JobID:     jobID,
		Amount:    amount,
		Kind:      kind,
		Reason:    reason,
		CreatedAt: time.Now().UTC(),
	})
}

var _ domain.Ledger = (*Ledger)(nil)
