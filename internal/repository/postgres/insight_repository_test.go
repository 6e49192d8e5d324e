package postgres

import (
	"context"
	"regexp"
	"testing"
	"time"

	"fintrack/internal/domain"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInsightRepository_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewInsightRepository(db)

	createdAt := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO insights (user_id, month, status)")).
		WithArgs("user-1", "2026-03", domain.InsightPending).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow("insight-1", createdAt))

	insight := &domain.Insight{UserID: "user-1", Month: "2026-03"}

	err = repo.Create(context.Background(), insight)
	require.NoError(t, err)
	assert.Equal(t, "insight-1", insight.ID)
	assert.Equal(t, domain.InsightPending, insight.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsightRepository_Complete(t *testing.T) {
	t.Run("pending_insight", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		repo := NewInsightRepository(db)

		mock.ExpectExec(regexp.QuoteMeta("UPDATE insights SET summary = $1, status = $2, completed_at = NOW()")).
			WithArgs("You spent mostly on groceries.", domain.InsightReady, "insight-1", domain.InsightPending).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err = repo.Complete(context.Background(), "insight-1", "You spent mostly on groceries.")
		assert.NoError(t, err)
	})

	t.Run("already_settled", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		repo := NewInsightRepository(db)

		// A redelivered result finds no pending row to update.
		mock.ExpectExec(regexp.QuoteMeta("UPDATE insights SET summary = $1, status = $2, completed_at = NOW()")).
			WithArgs("duplicate", domain.InsightReady, "insight-1", domain.InsightPending).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err = repo.Complete(context.Background(), "insight-1", "duplicate")
		assert.ErrorIs(t, err, domain.ErrInsightNotFound)
	})
}

func TestInsightRepository_Fail(t *testing.T) {
	t.Run("pending_insight", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		repo := NewInsightRepository(db)

		mock.ExpectExec(regexp.QuoteMeta("UPDATE insights SET error = $1, status = $2, completed_at = NOW()")).
			WithArgs("provider unavailable", domain.InsightFailed, "insight-1", domain.InsightPending).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err = repo.Fail(context.Background(), "insight-1", "provider unavailable")
		assert.NoError(t, err)
	})

	t.Run("already_settled", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		repo := NewInsightRepository(db)

		mock.ExpectExec(regexp.QuoteMeta("UPDATE insights SET error = $1, status = $2, completed_at = NOW()")).
			WithArgs("late failure", domain.InsightFailed, "insight-1", domain.InsightPending).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err = repo.Fail(context.Background(), "insight-1", "late failure")
		assert.ErrorIs(t, err, domain.ErrInsightNotFound)
	})
}

func TestInsightRepository_GetByID(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewInsightRepository(db)

	createdAt := time.Now()
	completedAt := createdAt.Add(5 * time.Second)
	columns := []string{"id", "user_id", "month", "summary", "status", "error", "created_at", "completed_at"}

	mock.ExpectQuery(regexp.QuoteMeta("WHERE id = $1 AND user_id = $2")).
		WithArgs("insight-1", "user-1").
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow("insight-1", "user-1", "2026-03", "A quiet month.", "ready", "", createdAt, completedAt))

	insight, err := repo.GetByID(context.Background(), "user-1", "insight-1")
	require.NoError(t, err)
	assert.Equal(t, domain.InsightReady, insight.Status)
	assert.Equal(t, "A quiet month.", insight.Summary)
	require.NotNil(t, insight.CompletedAt)
}

func TestInsightRepository_GetByID_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewInsightRepository(db)

	columns := []string{"id", "user_id", "month", "summary", "status", "error", "created_at", "completed_at"}
	mock.ExpectQuery(regexp.QuoteMeta("WHERE id = $1 AND user_id = $2")).
		WithArgs("insight-missing", "user-1").
		WillReturnRows(sqlmock.NewRows(columns))

	_, err = repo.GetByID(context.Background(), "user-1", "insight-missing")
	assert.ErrorIs(t, err, domain.ErrInsightNotFound)
}
