package domain

import "time"

// TransactionKind enumerates the business reason for a ledger entry.
type TransactionKind string

const (
	TransactionPurchase TransactionKind = "purchase"
	TransactionDebit    TransactionKind = "debit"
	TransactionRefund   TransactionKind = "refund"
)

// CreditBalance is the derived per-user balance. It is updated whenever a
// transaction posts and never goes negative.
type CreditBalance struct {
	UserID    string
	Balance   int
	UpdatedAt time.Time
}

// CreditTransaction is an immutable, append-only ledger entry. Corrections
// are new transactions; past entries are never mutated or removed. For every
// user, balance = sum(purchase) + sum(refund) - sum(debit) over that user's
// transactions at every consistent observation point.
type CreditTransaction struct {
	ID        string
	UserID    string
	JobID     string
	Amount    int
	Kind      TransactionKind
	Reason    string
	CreatedAt time.Time
}
