package domain

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrInvalidAmount       = errors.New("amount must be positive")
)

// Transaction is a single income or expense record.
// Amount is always positive; Kind carries the sign.
type Transaction struct {
	ID         string          `json:"id"`
	UserID     string          `json:"user_id"`
	CategoryID string          `json:"category_id"`
	Kind       Kind            `json:"kind"`
	Amount     decimal.Decimal `json:"amount"`
	Note       string          `json:"note,omitempty"`
	OccurredAt time.Time       `json:"occurred_at"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
	DeletedAt  *time.Time      `json:"deleted_at,omitempty"`
}

// TransactionFilter narrows List queries.
type TransactionFilter struct {
	CategoryID string
	Kind       Kind
	Month      string // YYYY-MM, empty for all
	Limit      int
	Offset     int
}

// TransactionRepository defines the interface for transaction data access.
type TransactionRepository interface {
	Create(ctx context.Context, tx *Transaction) error
	GetByID(ctx context.Context, userID, id string) (*Transaction, error)
	List(ctx context.Context, userID string, filter TransactionFilter) ([]*Transaction, error)
	Update(ctx context.Context, tx *Transaction) error
	SoftDelete(ctx context.Context, userID, id string) error
	ListDeleted(ctx context.Context, userID string) ([]*Transaction, error)
	Restore(ctx context.Context, userID, id string) error
	Purge(ctx context.Context, userID, id string) error
	HasDeletedInCategory(ctx context.Context, userID, categoryID string) (bool, error)
	// SumByCategoryMonth totals active expense amounts for one category in a
	// YYYY-MM month. Used for budget status checks.
	SumByCategoryMonth(ctx context.Context, userID, categoryID, month string) (decimal.Decimal, error)
}
