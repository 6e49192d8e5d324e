package domain

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrBudgetNotFound = errors.New("budget not found")
	ErrBudgetExists   = errors.New("budget already exists for this category and month")
)

// Budget caps expense spending for one category in one month.
type Budget struct {
	ID         string          `json:"id"`
	UserID     string          `json:"user_id"`
	CategoryID string          `json:"category_id"`
	Month      string          `json:"month"` // YYYY-MM
	Amount     decimal.Decimal `json:"amount"`
	CreatedAt  time.Time       `json:"created_at"`
}

// BudgetStatus is the computed spend position against a budget.
type BudgetStatus struct {
	Budget    *Budget         `json:"budget"`
	Spent     decimal.Decimal `json:"spent"`
	Remaining decimal.Decimal `json:"remaining"`
	Exceeded  bool            `json:"exceeded"`
}

// BudgetRepository defines the interface for budget data access.
type BudgetRepository interface {
	Create(ctx context.Context, budget *Budget) error
	GetByID(ctx context.Context, userID, id string) (*Budget, error)
	GetByCategoryMonth(ctx context.Context, userID, categoryID, month string) (*Budget, error)
	List(ctx context.Context, userID string) ([]*Budget, error)
	Update(ctx context.Context, budget *Budget) error
	Delete(ctx context.Context, userID, id string) error
}
