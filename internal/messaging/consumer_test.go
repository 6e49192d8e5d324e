package messaging

import (
	"context"
	"testing"

	"fintrack/internal/domain"
	"fintrack/internal/notify"
	"fintrack/internal/testutil"
)

func seedPendingInsight(insights *testutil.MockInsightRepository, id string) {
	insights.Insights[id] = &domain.Insight{
		ID:     id,
		UserID: "user-1",
		Month:  "2026-03",
		Status: domain.InsightPending,
	}
}

func TestResultConsumer_ProcessResult_Success(t *testing.T) {
	insights := testutil.NewMockInsightRepository()
	seedPendingInsight(insights, "insight-1")

	consumer := NewResultConsumer(nil, notify.NewHub(), insights)

	consumer.processResult(context.Background(), &InsightResult{
		InsightID: "insight-1",
		UserID:    "user-1",
		Month:     "2026-03",
		Summary:   "Groceries dominated your spending.",
	})

	insight := insights.Insights["insight-1"]
	testutil.AssertEqual(t, insight.Status, domain.InsightReady)
	testutil.AssertEqual(t, insight.Summary, "Groceries dominated your spending.")
	testutil.AssertNotNil(t, insight.CompletedAt)
}

func TestResultConsumer_ProcessResult_Failure(t *testing.T) {
	insights := testutil.NewMockInsightRepository()
	seedPendingInsight(insights, "insight-1")

	consumer := NewResultConsumer(nil, notify.NewHub(), insights)

	consumer.processResult(context.Background(), &InsightResult{
		InsightID: "insight-1",
		UserID:    "user-1",
		Month:     "2026-03",
		Error:     "Could not generate a summary for this month",
	})

	insight := insights.Insights["insight-1"]
	testutil.AssertEqual(t, insight.Status, domain.InsightFailed)
	testutil.AssertEqual(t, insight.Error, "Could not generate a summary for this month")
}

func TestResultConsumer_ProcessResult_DuplicateDelivery(t *testing.T) {
	insights := testutil.NewMockInsightRepository()
	seedPendingInsight(insights, "insight-1")

	consumer := NewResultConsumer(nil, notify.NewHub(), insights)

	result := &InsightResult{
		InsightID: "insight-1",
		UserID:    "user-1",
		Month:     "2026-03",
		Summary:   "First delivery wins.",
	}

	consumer.processResult(context.Background(), result)

	// Redelivery with a different summary must not overwrite the settled row.
	duplicate := *result
	duplicate.Summary = "Second delivery must be ignored."
	consumer.processResult(context.Background(), &duplicate)

	testutil.AssertEqual(t, insights.Insights["insight-1"].Summary, "First delivery wins.")
}

func TestResultConsumer_ProcessResult_UnknownInsight(t *testing.T) {
	insights := testutil.NewMockInsightRepository()
	consumer := NewResultConsumer(nil, notify.NewHub(), insights)

	// Must not panic on results for rows this instance never saw.
	consumer.processResult(context.Background(), &InsightResult{
		InsightID: "insight-missing",
		UserID:    "user-1",
		Month:     "2026-03",
		Summary:   "orphaned",
	})
}
