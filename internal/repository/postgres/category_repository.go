package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"fintrack/internal/domain"
)

// CategoryRepository implements domain.CategoryRepository for PostgreSQL.
// Soft delete is a deleted_at timestamp: active queries filter on
// deleted_at IS NULL, trash queries on deleted_at IS NOT NULL.
type CategoryRepository struct {
	db *sql.DB
}

// NewCategoryRepository creates a new PostgreSQL category repository
func NewCategoryRepository(db *sql.DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

func (r *CategoryRepository) Create(ctx context.Context, category *domain.Category) error {
	query := `
		INSERT INTO categories (user_id, name, kind, color)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`
	err := r.db.QueryRowContext(ctx, query,
		category.UserID,
		category.Name,
		category.Kind,
		category.Color,
	).Scan(&category.ID, &category.CreatedAt)

	if err != nil {
		if IsUniqueViolation(err, "categories_user_id_name_key") {
			return domain.ErrCategoryExists
		}
		return fmt.Errorf("failed to create category: %w", err)
	}
	return nil
}

func (r *CategoryRepository) GetByID(ctx context.Context, userID, id string) (*domain.Category, error) {
	query := `
		SELECT id, user_id, name, kind, color, created_at, deleted_at
		FROM categories
		WHERE id = $1 AND user_id = $2 AND deleted_at IS NULL
	`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id, userID))
}

func (r *CategoryRepository) List(ctx context.Context, userID string) ([]*domain.Category, error) {
	query := `
		SELECT id, user_id, name, kind, color, created_at, deleted_at
		FROM categories
		WHERE user_id = $1 AND deleted_at IS NULL
		ORDER BY name
	`
	return r.scanMany(ctx, query, userID)
}

func (r *CategoryRepository) Update(ctx context.Context, category *domain.Category) error {
	query := `
		UPDATE categories
		SET name = $1, kind = $2, color = $3
		WHERE id = $4 AND user_id = $5 AND deleted_at IS NULL
	`
	result, err := r.db.ExecContext(ctx, query,
		category.Name,
		category.Kind,
		category.Color,
		category.ID,
		category.UserID,
	)
	if err != nil {
		if IsUniqueViolation(err, "categories_user_id_name_key") {
			return domain.ErrCategoryExists
		}
		return fmt.Errorf("failed to update category: %w", err)
	}
	return requireRow(result, domain.ErrCategoryNotFound)
}

func (r *CategoryRepository) SoftDelete(ctx context.Context, userID, id string) error {
	query := `
		UPDATE categories SET deleted_at = NOW()
		WHERE id = $1 AND user_id = $2 AND deleted_at IS NULL
	`
	result, err := r.db.ExecContext(ctx, query, id, userID)
	if err != nil {
		return fmt.Errorf("failed to soft-delete category: %w", err)
	}
	return requireRow(result, domain.ErrCategoryNotFound)
}

func (r *CategoryRepository) ListDeleted(ctx context.Context, userID string) ([]*domain.Category, error) {
	query := `
		SELECT id, user_id, name, kind, color, created_at, deleted_at
		FROM categories
		WHERE user_id = $1 AND deleted_at IS NOT NULL
		ORDER BY deleted_at DESC
	`
	return r.scanMany(ctx, query, userID)
}

func (r *CategoryRepository) Restore(ctx context.Context, userID, id string) error {
	query := `
		UPDATE categories SET deleted_at = NULL
		WHERE id = $1 AND user_id = $2 AND deleted_at IS NOT NULL
	`
	result, err := r.db.ExecContext(ctx, query, id, userID)
	if err != nil {
		return fmt.Errorf("failed to restore category: %w", err)
	}
	return requireRow(result, domain.ErrNotDeleted)
}

func (r *CategoryRepository) Purge(ctx context.Context, userID, id string) error {
	query := `
		DELETE FROM categories
		WHERE id = $1 AND user_id = $2 AND deleted_at IS NOT NULL
	`
	result, err := r.db.ExecContext(ctx, query, id, userID)
	if err != nil {
		if IsForeignKeyViolation(err, "") {
			return domain.ErrCategoryInUse
		}
		return fmt.Errorf("failed to purge category: %w", err)
	}
	return requireRow(result, domain.ErrNotDeleted)
}

func (r *CategoryRepository) scanOne(row *sql.Row) (*domain.Category, error) {
	category := &domain.Category{}
	err := row.Scan(
		&category.ID,
		&category.UserID,
		&category.Name,
		&category.Kind,
		&category.Color,
		&category.CreatedAt,
		&category.DeletedAt,
	)
	if err == sql.ErrNoRows {
		return nil, domain.ErrCategoryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get category: %w", err)
	}
	return category, nil
}

func (r *CategoryRepository) scanMany(ctx context.Context, query string, args ...any) ([]*domain.Category, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer rows.Close()

	var categories []*domain.Category
	for rows.Next() {
		category := &domain.Category{}
		if err := rows.Scan(
			&category.ID,
			&category.UserID,
			&category.Name,
			&category.Kind,
			&category.Color,
			&category.CreatedAt,
			&category.DeletedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, category)
	}
	return categories, rows.Err()
}

// requireRow maps "no rows affected" onto the given sentinel error.
func requireRow(result sql.Result, notFound error) error {
	count, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if count == 0 {
		return notFound
	}
	return nil
}
