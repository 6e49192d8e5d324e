package domain

import (
	"context"
	"errors"
	"time"
)

var (
	ErrCategoryNotFound = errors.New("category not found")
	ErrCategoryExists   = errors.New("category already exists")
	ErrCategoryInUse    = errors.New("category has deleted transactions referencing it")
	ErrNotDeleted       = errors.New("record is not in the trash")
)

// Kind distinguishes money coming in from money going out.
type Kind string

const (
	KindIncome  Kind = "income"
	KindExpense Kind = "expense"
)

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	return k == KindIncome || k == KindExpense
}

// Category groups transactions for a single user.
// DeletedAt is set when the category is moved to the trash; a nil value means
// the category is active.
type Category struct {
	ID        string     `json:"id"`
	UserID    string     `json:"user_id"`
	Name      string     `json:"name"`
	Kind      Kind       `json:"kind"`
	Color     string     `json:"color"`
	CreatedAt time.Time  `json:"created_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

// CategoryRepository defines the interface for category data access.
// List and GetByID only see active rows; deleted rows are reachable through
// ListDeleted until they are restored or purged.
type CategoryRepository interface {
	Create(ctx context.Context, category *Category) error
	GetByID(ctx context.Context, userID, id string) (*Category, error)
	List(ctx context.Context, userID string) ([]*Category, error)
	Update(ctx context.Context, category *Category) error
	SoftDelete(ctx context.Context, userID, id string) error
	ListDeleted(ctx context.Context, userID string) ([]*Category, error)
	Restore(ctx context.Context, userID, id string) error
	Purge(ctx context.Context, userID, id string) error
}
