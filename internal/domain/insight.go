package domain

import (
	"context"
	"errors"
	"time"
)

var ErrInsightNotFound = errors.New("insight not found")

// InsightStatus tracks the async lifecycle of a generated insight.
type InsightStatus string

const (
	InsightPending InsightStatus = "pending"
	InsightReady   InsightStatus = "ready"
	InsightFailed  InsightStatus = "failed"
)

// Insight is an AI-generated summary of one month of activity.
// It is created as pending when the request is enqueued and completed by the
// worker via the result consumer.
type Insight struct {
	ID          string        `json:"id"`
	UserID      string        `json:"user_id"`
	Month       string        `json:"month"` // YYYY-MM
	Summary     string        `json:"summary,omitempty"`
	Status      InsightStatus `json:"status"`
	Error       string        `json:"error,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	CompletedAt *time.Time    `json:"completed_at,omitempty"`
}

// InsightRepository defines the interface for insight data access.
type InsightRepository interface {
	Create(ctx context.Context, insight *Insight) error
	GetByID(ctx context.Context, userID, id string) (*Insight, error)
	List(ctx context.Context, userID string) ([]*Insight, error)
	Complete(ctx context.Context, id, summary string) error
	Fail(ctx context.Context, id, reason string) error
}
