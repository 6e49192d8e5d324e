package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"fintrack/internal/domain"
)

// InsightRepository implements domain.InsightRepository for PostgreSQL
type InsightRepository struct {
	db *sql.DB
}

// NewInsightRepository creates a new PostgreSQL insight repository
func NewInsightRepository(db *sql.DB) *InsightRepository {
	return &InsightRepository{db: db}
}

func (r *InsightRepository) Create(ctx context.Context, insight *domain.Insight) error {
	query := `
		INSERT INTO insights (user_id, month, status)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`
	insight.Status = domain.InsightPending
	err := r.db.QueryRowContext(ctx, query,
		insight.UserID,
		insight.Month,
		insight.Status,
	).Scan(&insight.ID, &insight.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create insight: %w", err)
	}
	return nil
}

func (r *InsightRepository) GetByID(ctx context.Context, userID, id string) (*domain.Insight, error) {
	query := `
		SELECT id, user_id, month, summary, status, error, created_at, completed_at
		FROM insights
		WHERE id = $1 AND user_id = $2
	`
	insight := &domain.Insight{}
	err := r.db.QueryRowContext(ctx, query, id, userID).Scan(
		&insight.ID,
		&insight.UserID,
		&insight.Month,
		&insight.Summary,
		&insight.Status,
		&insight.Error,
		&insight.CreatedAt,
		&insight.CompletedAt,
	)
	if err == sql.ErrNoRows {
		return nil, domain.ErrInsightNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get insight: %w", err)
	}
	return insight, nil
}

func (r *InsightRepository) List(ctx context.Context, userID string) ([]*domain.Insight, error) {
	query := `
		SELECT id, user_id, month, summary, status, error, created_at, completed_at
		FROM insights
		WHERE user_id = $1
		ORDER BY created_at DESC
	`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list insights: %w", err)
	}
	defer rows.Close()

	var insights []*domain.Insight
	for rows.Next() {
		insight := &domain.Insight{}
		if err := rows.Scan(
			&insight.ID,
			&insight.UserID,
			&insight.Month,
			&insight.Summary,
			&insight.Status,
			&insight.Error,
			&insight.CreatedAt,
			&insight.CompletedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan insight: %w", err)
		}
		insights = append(insights, insight)
	}
	return insights, rows.Err()
}

// Complete marks a pending insight ready. Results arriving for an insight
// that is no longer pending are dropped by the WHERE clause, which keeps the
// consumer idempotent under redelivery.
func (r *InsightRepository) Complete(ctx context.Context, id, summary string) error {
	query := `
		UPDATE insights SET summary = $1, status = $2, completed_at = NOW()
		WHERE id = $3 AND status = $4
	`
	result, err := r.db.ExecContext(ctx, query, summary, domain.InsightReady, id, domain.InsightPending)
	if err != nil {
		return fmt.Errorf("failed to complete insight: %w", err)
	}
	return requireRow(result, domain.ErrInsightNotFound)
}

// Fail marks a pending insight failed with the worker's reason.
func (r *InsightRepository) Fail(ctx context.Context, id, reason string) error {
	query := `
		UPDATE insights SET error = $1, status = $2, completed_at = NOW()
		WHERE id = $3 AND status = $4
	`
	result, err := r.db.ExecContext(ctx, query, reason, domain.InsightFailed, id, domain.InsightPending)
	if err != nil {
		return fmt.Errorf("failed to mark insight failed: %w", err)
	}
	return requireRow(result, domain.ErrInsightNotFound)
}
