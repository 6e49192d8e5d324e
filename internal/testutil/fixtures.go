package testutil

import (
	"fmt"
	"sync/atomic"
	"time"

	"fintrack/internal/domain"

	"github.com/shopspring/decimal"
)

// Counter for generating unique IDs
var idCounter atomic.Int64

// nextID generates a unique ID for test fixtures
func nextID(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, idCounter.Add(1))
}

// UserOptions allows customizing user fixture creation
type UserOptions struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// NewTestUser creates a test user with sensible defaults
// Pass options to override specific fields
func NewTestUser(opts ...func(*UserOptions)) *domain.User {
	o := &UserOptions{
		ID:           nextID("user"),
		Username:     fmt.Sprintf("testuser%d", idCounter.Load()),
		PasswordHash: "$2a$12$test.hash.for.testing.purposes.only", // bcrypt hash placeholder
	}

	for _, opt := range opts {
		opt(o)
	}

	if o.Email == "" {
		o.Email = o.Username + "@example.com"
	}
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now()
	}

	return &domain.User{
		ID:           o.ID,
		Username:     o.Username,
		Email:        o.Email,
		PasswordHash: o.PasswordHash,
		CreatedAt:    o.CreatedAt,
	}
}

// WithUserID sets the user ID
func WithUserID(id string) func(*UserOptions) {
	return func(o *UserOptions) {
		o.ID = id
	}
}

// WithUsername sets the username
func WithUsername(username string) func(*UserOptions) {
	return func(o *UserOptions) {
		o.Username = username
	}
}

// WithEmail sets the email
func WithEmail(email string) func(*UserOptions) {
	return func(o *UserOptions) {
		o.Email = email
	}
}

// NewTestSession creates a valid session for the given user
func NewTestSession(userID string) *domain.Session {
	return &domain.Session{
		ID:        nextID("session"),
		UserID:    userID,
		Token:     nextID("token"),
		ExpiresAt: time.Now().Add(time.Hour),
		CreatedAt: time.Now(),
	}
}

// NewTestCategory creates a test category owned by userID
func NewTestCategory(userID string, kind domain.Kind) *domain.Category {
	id := nextID("category")
	return &domain.Category{
		ID:        id,
		UserID:    userID,
		Name:      id,
		Kind:      kind,
		Color:     "#4caf50",
		CreatedAt: time.Now(),
	}
}

// TransactionOptions allows customizing transaction fixture creation
type TransactionOptions struct {
	ID         string
	CategoryID string
	Kind       domain.Kind
	Amount     decimal.Decimal
	Note       string
	OccurredAt time.Time
}

// NewTestTransaction creates a test expense with sensible defaults
func NewTestTransaction(userID, categoryID string, opts ...func(*TransactionOptions)) *domain.Transaction {
	o := &TransactionOptions{
		ID:         nextID("tx"),
		CategoryID: categoryID,
		Kind:       domain.KindExpense,
		Amount:     decimal.NewFromFloat(25.50),
		OccurredAt: time.Now(),
	}

	for _, opt := range opts {
		opt(o)
	}

	return &domain.Transaction{
		ID:         o.ID,
		UserID:     userID,
		CategoryID: o.CategoryID,
		Kind:       o.Kind,
		Amount:     o.Amount,
		Note:       o.Note,
		OccurredAt: o.OccurredAt,
		CreatedAt:  time.Now(),
	}
}

// WithAmount sets the transaction amount
func WithAmount(amount decimal.Decimal) func(*TransactionOptions) {
	return func(o *TransactionOptions) {
		o.Amount = amount
	}
}

// WithKind sets the transaction kind
func WithKind(kind domain.Kind) func(*TransactionOptions) {
	return func(o *TransactionOptions) {
		o.Kind = kind
	}
}

// WithOccurredAt sets when the transaction happened
func WithOccurredAt(at time.Time) func(*TransactionOptions) {
	return func(o *TransactionOptions) {
		o.OccurredAt = at
	}
}

// NewTestBudget creates a test budget for a category and month
func NewTestBudget(userID, categoryID, month string, amount decimal.Decimal) *domain.Budget {
	return &domain.Budget{
		ID:         nextID("budget"),
		UserID:     userID,
		CategoryID: categoryID,
		Month:      month,
		Amount:     amount,
		CreatedAt:  time.Now(),
	}
}
