package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"fintrack/internal/domain"
)

// TransactionRepository implements domain.TransactionRepository for
// PostgreSQL. Amounts are stored as NUMERIC and scanned through strings so
// no precision is lost on the way in or out.
type TransactionRepository struct {
	db *sql.DB
}

// NewTransactionRepository creates a new PostgreSQL transaction repository
func NewTransactionRepository(db *sql.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

const transactionColumns = `id, user_id, category_id, kind, amount, note, occurred_at, created_at, updated_at, deleted_at`

func (r *TransactionRepository) Create(ctx context.Context, tx *domain.Transaction) error {
	query := `
		INSERT INTO transactions (user_id, category_id, kind, amount, note, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRowContext(ctx, query,
		tx.UserID,
		tx.CategoryID,
		tx.Kind,
		tx.Amount.String(),
		tx.Note,
		tx.OccurredAt,
	).Scan(&tx.ID, &tx.CreatedAt, &tx.UpdatedAt)

	if err != nil {
		if IsForeignKeyViolation(err, "transactions_category_id_fkey") {
			return domain.ErrCategoryNotFound
		}
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	return nil
}

func (r *TransactionRepository) GetByID(ctx context.Context, userID, id string) (*domain.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE id = $1 AND user_id = $2 AND deleted_at IS NULL
	`
	return scanTransaction(r.db.QueryRowContext(ctx, query, id, userID))
}

func (r *TransactionRepository) List(ctx context.Context, userID string, filter domain.TransactionFilter) ([]*domain.Transaction, error) {
	var sb strings.Builder
	sb.WriteString(`SELECT ` + transactionColumns + ` FROM transactions WHERE user_id = $1 AND deleted_at IS NULL`)

	args := []any{userID}
	if filter.CategoryID != "" {
		args = append(args, filter.CategoryID)
		sb.WriteString(` AND category_id = $` + strconv.Itoa(len(args)))
	}
	if filter.Kind != "" {
		args = append(args, filter.Kind)
		sb.WriteString(` AND kind = $` + strconv.Itoa(len(args)))
	}
	if filter.Month != "" {
		args = append(args, filter.Month)
		sb.WriteString(` AND to_char(occurred_at, 'YYYY-MM') = $` + strconv.Itoa(len(args)))
	}

	sb.WriteString(` ORDER BY occurred_at DESC, created_at DESC`)

	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	args = append(args, limit)
	sb.WriteString(` LIMIT $` + strconv.Itoa(len(args)))
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		sb.WriteString(` OFFSET $` + strconv.Itoa(len(args)))
	}

	return r.queryMany(ctx, sb.String(), args...)
}

func (r *TransactionRepository) Update(ctx context.Context, tx *domain.Transaction) error {
	query := `
		UPDATE transactions
		SET category_id = $1, kind = $2, amount = $3, note = $4, occurred_at = $5, updated_at = NOW()
		WHERE id = $6 AND user_id = $7 AND deleted_at IS NULL
	`
	result, err := r.db.ExecContext(ctx, query,
		tx.CategoryID,
		tx.Kind,
		tx.Amount.String(),
		tx.Note,
		tx.OccurredAt,
		tx.ID,
		tx.UserID,
	)
	if err != nil {
		if IsForeignKeyViolation(err, "transactions_category_id_fkey") {
			return domain.ErrCategoryNotFound
		}
		return fmt.Errorf("failed to update transaction: %w", err)
	}
	return requireRow(result, domain.ErrTransactionNotFound)
}

func (r *TransactionRepository) SoftDelete(ctx context.Context, userID, id string) error {
	query := `
		UPDATE transactions SET deleted_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND user_id = $2 AND deleted_at IS NULL
	`
	result, err := r.db.ExecContext(ctx, query, id, userID)
	if err != nil {
		return fmt.Errorf("failed to soft-delete transaction: %w", err)
	}
	return requireRow(result, domain.ErrTransactionNotFound)
}

func (r *TransactionRepository) ListDeleted(ctx context.Context, userID string) ([]*domain.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE user_id = $1 AND deleted_at IS NOT NULL
		ORDER BY deleted_at DESC
	`
	return r.queryMany(ctx, query, userID)
}

func (r *TransactionRepository) Restore(ctx context.Context, userID, id string) error {
	query := `
		UPDATE transactions SET deleted_at = NULL, updated_at = NOW()
		WHERE id = $1 AND user_id = $2 AND deleted_at IS NOT NULL
	`
	result, err := r.db.ExecContext(ctx, query, id, userID)
	if err != nil {
		return fmt.Errorf("failed to restore transaction: %w", err)
	}
	return requireRow(result, domain.ErrNotDeleted)
}

func (r *TransactionRepository) Purge(ctx context.Context, userID, id string) error {
	query := `
		DELETE FROM transactions
		WHERE id = $1 AND user_id = $2 AND deleted_at IS NOT NULL
	`
	result, err := r.db.ExecContext(ctx, query, id, userID)
	if err != nil {
		return fmt.Errorf("failed to purge transaction: %w", err)
	}
	return requireRow(result, domain.ErrNotDeleted)
}

func (r *TransactionRepository) HasDeletedInCategory(ctx context.Context, userID, categoryID string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM transactions
			WHERE user_id = $1 AND category_id = $2 AND deleted_at IS NOT NULL
		)
	`
	var exists bool
	if err := r.db.QueryRowContext(ctx, query, userID, categoryID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check deleted transactions: %w", err)
	}
	return exists, nil
}

func (r *TransactionRepository) SumByCategoryMonth(ctx context.Context, userID, categoryID, month string) (decimal.Decimal, error) {
	query := `
		SELECT COALESCE(SUM(amount), 0)
		FROM transactions
		WHERE user_id = $1 AND category_id = $2
		  AND kind = 'expense' AND deleted_at IS NULL
		  AND to_char(occurred_at, 'YYYY-MM') = $3
	`
	var sum string
	if err := r.db.QueryRowContext(ctx, query, userID, categoryID, month).Scan(&sum); err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum transactions: %w", err)
	}

	total, err := decimal.NewFromString(sum)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to parse transaction sum %q: %w", sum, err)
	}
	return total, nil
}

func (r *TransactionRepository) queryMany(ctx context.Context, query string, args ...any) ([]*domain.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	var transactions []*domain.Transaction
	for rows.Next() {
		tx, err := scanTransactionRows(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, tx)
	}
	return transactions, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFields(tx *domain.Transaction, amount *string) []any {
	return []any{
		&tx.ID,
		&tx.UserID,
		&tx.CategoryID,
		&tx.Kind,
		amount,
		&tx.Note,
		&tx.OccurredAt,
		&tx.CreatedAt,
		&tx.UpdatedAt,
		&tx.DeletedAt,
	}
}

func scanTransaction(row *sql.Row) (*domain.Transaction, error) {
	tx := &domain.Transaction{}
	var amount string
	err := row.Scan(scanFields(tx, &amount)...)
	if err == sql.ErrNoRows {
		return nil, domain.ErrTransactionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return finishTransaction(tx, amount)
}

func scanTransactionRows(rows rowScanner) (*domain.Transaction, error) {
	tx := &domain.Transaction{}
	var amount string
	if err := rows.Scan(scanFields(tx, &amount)...); err != nil {
		return nil, fmt.Errorf("failed to scan transaction: %w", err)
	}
	return finishTransaction(tx, amount)
}

func finishTransaction(tx *domain.Transaction, amount string) (*domain.Transaction, error) {
	parsed, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("failed to parse amount %q: %w", amount, err)
	}
	tx.Amount = parsed
	return tx, nil
}
