package domain

import "context"

// JobRepository defines persistence for job records. Implementations must
// enforce the status order: UpdateStatus accepts only the legal successor of
// the stored status (ErrInvalidStateTransition otherwise, ErrJobTerminal for
// terminal records). The queued->running transition therefore commits at
// most once per job and serves as the execution claim.
type JobRepository interface {
	Create(ctx context.Context, job *Job) error
	GetByID(ctx context.Context, jobID string) (*Job, error)
	UpdateStatus(ctx context.Context, jobID string, status JobStatus, errorKind ErrorKind, errMsg string) error
	// NextQueued returns the oldest queued job not in exclude, or
	// ErrNotFound when no such job exists.
	NextQueued(ctx context.Context, exclude []string) (*Job, error)
}

// Ledger is the sole source of financial truth: per-user balance plus an
// immutable transaction log. The balance mutation and the transaction append
// of every operation are one atomic unit.
type Ledger interface {
	// Balance returns the user's balance record, creating a zero-balance
	// record on first use. Safe under concurrent first use.
	Balance(ctx context.Context, userID string) (*CreditBalance, error)
	// Debit fails with ErrInvalidAmount when amount <= 0 and with
	// ErrInsufficientCredits when the balance cannot cover the amount.
	Debit(ctx context.Context, userID, jobID string, amount int, reason string) error
	// Refund fails with ErrInvalidAmount when amount <= 0.
	Refund(ctx context.Context, userID, jobID string, amount int, reason string) error
	// Purchase posts a top-up, failing with ErrInvalidAmount when amount <= 0.
	Purchase(ctx context.Context, userID string, amount int, reason string) error
	// Transactions lists the user's ledger entries, newest first.
	Transactions(ctx context.Context, userID string) ([]CreditTransaction, error)
}
