package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"fintrack/internal/domain"
	"fintrack/internal/messaging"

	"github.com/shopspring/decimal"
)

// InsightPublisher enqueues generation work for the worker process.
type InsightPublisher interface {
	PublishInsightRequest(ctx context.Context, req *messaging.InsightRequest) error
}

// InsightService creates pending insights and hands the generation work to
// the worker over the queue. The digest is computed here so the worker runs
// without database access.
type InsightService struct {
	insightRepo  domain.InsightRepository
	txRepo       domain.TransactionRepository
	categoryRepo domain.CategoryRepository
	publisher    InsightPublisher
}

func NewInsightService(
	insightRepo domain.InsightRepository,
	txRepo domain.TransactionRepository,
	categoryRepo domain.CategoryRepository,
	publisher InsightPublisher,
) *InsightService {
	return &InsightService{
		insightRepo:  insightRepo,
		txRepo:       txRepo,
		categoryRepo: categoryRepo,
		publisher:    publisher,
	}
}

// Request creates a pending insight for the month and enqueues it. The
// insight row is the durable record; if publishing fails the row is marked
// failed immediately rather than left pending forever.
func (s *InsightService) Request(ctx context.Context, userID, month string) (*domain.Insight, error) {
	if !isMonth(month) {
		return nil, domain.ErrInvalidInput
	}

	digest, err := s.buildDigest(ctx, userID, month)
	if err != nil {
		return nil, err
	}

	insight := &domain.Insight{
		UserID: userID,
		Month:  month,
	}
	if err := s.insightRepo.Create(ctx, insight); err != nil {
		return nil, err
	}

	req := &messaging.InsightRequest{
		InsightID: insight.ID,
		UserID:    userID,
		Month:     month,
		Digest:    digest,
		Timestamp: time.Now().Unix(),
	}
	if err := s.publisher.PublishInsightRequest(ctx, req); err != nil {
		if failErr := s.insightRepo.Fail(ctx, insight.ID, "could not enqueue generation request"); failErr != nil {
			return nil, fmt.Errorf("failed to publish insight request: %w", err)
		}
		return nil, fmt.Errorf("failed to publish insight request: %w", err)
	}

	return insight, nil
}

func (s *InsightService) GetInsight(ctx context.Context, userID, id string) (*domain.Insight, error) {
	return s.insightRepo.GetByID(ctx, userID, id)
}

func (s *InsightService) ListInsights(ctx context.Context, userID string) ([]*domain.Insight, error) {
	return s.insightRepo.List(ctx, userID)
}

// buildDigest renders the month's per-category totals as one line per
// category, expenses negative, so the prompt carries no raw transactions.
func (s *InsightService) buildDigest(ctx context.Context, userID, month string) (string, error) {
	transactions, err := s.txRepo.List(ctx, userID, domain.TransactionFilter{Month: month})
	if err != nil {
		return "", err
	}
	if len(transactions) == 0 {
		return "No transactions recorded this month.", nil
	}

	categories, err := s.categoryRepo.List(ctx, userID)
	if err != nil {
		return "", err
	}
	names := make(map[string]string, len(categories))
	for _, c := range categories {
		names[c.ID] = c.Name
	}

	totals := make(map[string]decimal.Decimal)
	for _, tx := range transactions {
		amount := tx.Amount
		if tx.Kind == domain.KindExpense {
			amount = amount.Neg()
		}
		totals[tx.CategoryID] = totals[tx.CategoryID].Add(amount)
	}

	lines := make([]string, 0, len(totals))
	for categoryID, total := range totals {
		name := names[categoryID]
		if name == "" {
			name = "Uncategorized"
		}
		lines = append(lines, fmt.Sprintf("%s: %s", name, total.StringFixed(2)))
	}
	sort.Strings(lines)

	return strings.Join(lines, "\n"), nil
}
