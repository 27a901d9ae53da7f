package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"reelforge/internal/domain"
)

// LedgerPG implements domain.Ledger on PostgreSQL. Every posting runs inside
// a transaction that locks the user's balance row (SELECT ... FOR UPDATE), so
// the read-validate-write-append sequence is one atomic critical section and
// concurrent postings for the same user serialize on the row lock.
type LedgerPG struct {
	pool *pgxpool.Pool
}

// NewLedger creates a ledger backed by PostgreSQL.
func NewLedger(pool *pgxpool.Pool) *LedgerPG {
	return &LedgerPG{pool: pool}
}

// Balance returns the user's balance record, creating a zero-balance record
// on first use. The insert is idempotent under concurrent first use.
func (l *LedgerPG) Balance(ctx context.Context, userID string) (*domain.CreditBalance, error) {
	ensure := `
INSERT INTO credit_balances (user_id, balance)
VALUES ($1, 0)
ON CONFLICT (user_id) DO NOTHING;
`
	if _, err := l.pool.Exec(ctx, ensure, userID); err != nil {
		return nil, fmt.Errorf("ensure balance: %w", err)
	}
	query := `
SELECT user_id, balance, updated_at
FROM credit_balances
WHERE user_id = $1;
`
	var balance domain.CreditBalance
	if err := l.pool.QueryRow(ctx, query, userID).Scan(&balance.UserID, &balance.Balance, &balance.UpdatedAt); err != nil {
		return nil, err
	}
	return &balance, nil
}

// Debit atomically decrements the balance and appends a debit transaction.
func (l *LedgerPG) Debit(ctx context.Context, userID, jobID string, amount int, reason string) error {
	if amount <= 0 {
		return domain.ErrInvalidAmount
	}
	return l.post(ctx, userID, jobID, -amount, amount, domain.TransactionDebit, reason)
}

// Refund atomically increments the balance and appends a refund transaction.
func (l *LedgerPG) Refund(ctx context.Context, userID, jobID string, amount int, reason string) error {
	if amount <= 0 {
		return domain.ErrInvalidAmount
	}
	return l.post(ctx, userID, jobID, amount, amount, domain.TransactionRefund, reason)
}

// Purchase atomically increments the balance and appends a purchase
// transaction.
func (l *LedgerPG) Purchase(ctx context.Context, userID string, amount int, reason string) error {
	if amount <= 0 {
		return domain.ErrInvalidAmount
	}
	return l.post(ctx, userID, "", amount, amount, domain.TransactionPurchase, reason)
}

// Transactions lists the user's ledger entries, newest first.
func (l *LedgerPG) Transactions(ctx context.Context, userID string) ([]domain.CreditTransaction, error) {
	query := `
SELECT id, user_id, COALESCE(job_id::text, ''), amount, kind, reason, created_at
FROM credit_transactions
WHERE user_id = $1
ORDER BY created_at DESC, id DESC;
`
	rows, err := l.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []domain.CreditTransaction
	for rows.Next() {
		var txn domain.CreditTransaction
		if err := rows.Scan(&txn.ID, &txn.UserID, &txn.JobID, &txn.Amount, &txn.Kind, &txn.Reason, &txn.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, txn)
	}
	return items, rows.Err()
}

// post applies one balance delta plus its transaction append as a single
// database transaction.
func (l *LedgerPG) post(ctx context.Context, userID, jobID string, delta, amount int, kind domain.TransactionKind, reason string) error {
	tx, err := l.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin ledger tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	ensure := `
INSERT INTO credit_balances (user_id, balance)
VALUES ($1, 0)
ON CONFLICT (user_id) DO NOTHING;
`
	if _, err := tx.Exec(ctx, ensure, userID); err != nil {
		return fmt.Errorf("ensure balance: %w", err)
	}

	var balance int
	lock := `
SELECT balance
FROM credit_balances
WHERE user_id = $1
FOR UPDATE;
`
	if err := tx.QueryRow(ctx, lock, userID).Scan(&balance); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrNotFound
		}
		return err
	}
	if balance+delta < 0 {
		return domain.ErrInsufficientCredits
	}

	update := `
UPDATE credit_balances
SET balance = balance + $2,
    updated_at = NOW()
WHERE user_id = $1;
`
	if _, err := tx.Exec(ctx, update, userID, delta); err != nil {
		return fmt.Errorf("update balance: %w", err)
	}

	insert := `
INSERT INTO credit_transactions (id, user_id, job_id, amount, kind, reason)
VALUES ($1, $2, NULLIF($3, '')::uuid, $4, $5, $6);
`
	if _, err := tx.Exec(ctx, insert, uuid.NewString(), userID, jobID, amount, string(kind), reason); err != nil {
		return fmt.Errorf("append transaction: %w", err)
	}

	return tx.Commit(ctx)
}

var _ domain.Ledger = (*LedgerPG)(nil)
