package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"

	"fintrack/internal/domain"
)

// BudgetRepository implements domain.BudgetRepository for PostgreSQL
type BudgetRepository struct {
	db *sql.DB
}

// NewBudgetRepository creates a new PostgreSQL budget repository
func NewBudgetRepository(db *sql.DB) *BudgetRepository {
	return &BudgetRepository{db: db}
}

func (r *BudgetRepository) Create(ctx context.Context, budget *domain.Budget) error {
	query := `
		INSERT INTO budgets (user_id, category_id, month, amount)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`
	err := r.db.QueryRowContext(ctx, query,
		budget.UserID,
		budget.CategoryID,
		budget.Month,
		budget.Amount.String(),
	).Scan(&budget.ID, &budget.CreatedAt)

	if err != nil {
		if IsUniqueViolation(err, "budgets_user_id_category_id_month_key") {
			return domain.ErrBudgetExists
		}
		if IsForeignKeyViolation(err, "budgets_category_id_fkey") {
			return domain.ErrCategoryNotFound
		}
		return fmt.Errorf("failed to create budget: %w", err)
	}
	return nil
}

func (r *BudgetRepository) GetByID(ctx context.Context, userID, id string) (*domain.Budget, error) {
	query := `
		SELECT id, user_id, category_id, month, amount, created_at
		FROM budgets
		WHERE id = $1 AND user_id = $2
	`
	return scanBudget(r.db.QueryRowContext(ctx, query, id, userID))
}

func (r *BudgetRepository) GetByCategoryMonth(ctx context.Context, userID, categoryID, month string) (*domain.Budget, error) {
	query := `
		SELECT id, user_id, category_id, month, amount, created_at
		FROM budgets
		WHERE user_id = $1 AND category_id = $2 AND month = $3
	`
	return scanBudget(r.db.QueryRowContext(ctx, query, userID, categoryID, month))
}

func (r *BudgetRepository) List(ctx context.Context, userID string) ([]*domain.Budget, error) {
	query := `
		SELECT id, user_id, category_id, month, amount, created_at
		FROM budgets
		WHERE user_id = $1
		ORDER BY month DESC, created_at DESC
	`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list budgets: %w", err)
	}
	defer rows.Close()

	var budgets []*domain.Budget
	for rows.Next() {
		budget := &domain.Budget{}
		var amount string
		if err := rows.Scan(
			&budget.ID,
			&budget.UserID,
			&budget.CategoryID,
			&budget.Month,
			&amount,
			&budget.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan budget: %w", err)
		}
		if budget.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("failed to parse budget amount %q: %w", amount, err)
		}
		budgets = append(budgets, budget)
	}
	return budgets, rows.Err()
}

func (r *BudgetRepository) Update(ctx context.Context, budget *domain.Budget) error {
	query := `
		UPDATE budgets SET amount = $1
		WHERE id = $2 AND user_id = $3
	`
	result, err := r.db.ExecContext(ctx, query, budget.Amount.String(), budget.ID, budget.UserID)
	if err != nil {
		return fmt.Errorf("failed to update budget: %w", err)
	}
	return requireRow(result, domain.ErrBudgetNotFound)
}

func (r *BudgetRepository) Delete(ctx context.Context, userID, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM budgets WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete budget: %w", err)
	}
	return requireRow(result, domain.ErrBudgetNotFound)
}

func scanBudget(row *sql.Row) (*domain.Budget, error) {
	budget := &domain.Budget{}
	var amount string
	err := row.Scan(
		&budget.ID,
		&budget.UserID,
		&budget.CategoryID,
		&budget.Month,
		&amount,
		&budget.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, domain.ErrBudgetNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get budget: %w", err)
	}

	if budget.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("failed to parse budget amount %q: %w", amount, err)
	}
	return budget, nil
}
