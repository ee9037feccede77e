package analytics

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/soline/banter/internal/store"
	_ "modernc.org/sqlite"
)

func testAggregator(t *testing.T) (*Aggregator, *store.Store) {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open in-memory db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	st, err := store.New(db, logger)
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	return New(st, logger), st
}

func seedTurn(t *testing.T, st *store.Store, userID, intent, label, strategy string, success bool) {
	t.Helper()
	rec := store.TurnRecord{
		UserID:             userID,
		RawText:            "some message",
		Intent:             intent,
		IntentConfidence:   0.8,
		SentimentLabel:     label,
		Polarity:           0.2,
		StrategyUsed:       strategy,
		StrategyConfidence: 0.8,
		Success:            success,
	}
	if label == "negative" {
		rec.Polarity = -0.5
		rec.Emotions = []string{"anger"}
	}
	if err := st.AppendTurn(context.Background(), rec); err != nil {
		t.Fatalf("AppendTurn: %v", err)
	}
}

func TestStats_EmptyStore(t *testing.T) {
	a, _ := testAggregator(t)

	stats, err := a.Stats(context.Background(), 7)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.TotalTurns != 0 || stats.SuccessRate != 0 || stats.AvgPerUser != 0 {
		t.Errorf("empty store stats = %+v, want all zeroes", stats)
	}
}

func TestStats_Counts(t *testing.T) {
	a, st := testAggregator(t)

	seedTurn(t, st, "alice", "question", "neutral", "generative_ai", true)
	seedTurn(t, st, "alice", "question", "neutral", "generative_ai", true)
	seedTurn(t, st, "bob", "greeting", "positive", "rule_based", false)

	stats, err := a.Stats(context.Background(), 7)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.TotalTurns != 3 {
		t.Errorf("TotalTurns = %d, want 3", stats.TotalTurns)
	}
	if stats.UniqueUsers != 2 {
		t.Errorf("UniqueUsers = %d, want 2", stats.UniqueUsers)
	}
	if got := stats.SuccessRate; got < 66 || got > 67 {
		t.Errorf("SuccessRate = %f, want ~66.7", got)
	}
	if stats.AvgPerUser != 1.5 {
		t.Errorf("AvgPerUser = %f, want 1.5", stats.AvgPerUser)
	}

	today := time.Now().UTC().Format("2006-01-02")
	if stats.DailyActivity[today] != 3 {
		t.Errorf("DailyActivity[%s] = %d, want 3", today, stats.DailyActivity[today])
	}
	hourly := 0
	for _, c := range stats.HourlyActivity {
		hourly += c
	}
	if hourly != 3 {
		t.Errorf("hourly activity sums to %d, want 3", hourly)
	}
}

func TestIntentBreakdown_SortedByVolume(t *testing.T) {
	a, st := testAggregator(t)

	seedTurn(t, st, "alice", "greeting", "neutral", "rule_based", true)
	seedTurn(t, st, "alice", "question", "neutral", "generative_ai", true)
	seedTurn(t, st, "alice", "question", "neutral", "generative_ai", false)

	breakdown, err := a.IntentBreakdown(context.Background())
	if err != nil {
		t.Fatalf("IntentBreakdown: %v", err)
	}
	if len(breakdown) != 2 {
		t.Fatalf("got %d intents, want 2", len(breakdown))
	}
	if breakdown[0].Intent != "question" {
		t.Errorf("top intent = %q, want question", breakdown[0].Intent)
	}
	if breakdown[0].SuccessRate != 50 {
		t.Errorf("question success rate = %f, want 50", breakdown[0].SuccessRate)
	}
}

func TestSentiment_TopEmotions(t *testing.T) {
	a, st := testAggregator(t)

	seedTurn(t, st, "alice", "complaint", "negative", "fallback", false)
	seedTurn(t, st, "bob", "complaint", "negative", "fallback", false)
	seedTurn(t, st, "carol", "greeting", "positive", "rule_based", true)

	trends, err := a.Sentiment(context.Background(), 7)
	if err != nil {
		t.Fatalf("Sentiment: %v", err)
	}
	if trends.Total != 3 {
		t.Errorf("Total = %d, want 3", trends.Total)
	}
	if trends.Distribution["negative"] != 2 {
		t.Errorf("negative count = %d, want 2", trends.Distribution["negative"])
	}
	if got := trends.Percentages["negative"]; got < 66 || got > 67 {
		t.Errorf("negative percentage = %f, want ~66.7", got)
	}
	if len(trends.TopEmotions) == 0 || trends.TopEmotions[0].Emotion != "anger" {
		t.Errorf("TopEmotions = %v, want anger first", trends.TopEmotions)
	}
	if trends.AvgPolarity >= 0 {
		t.Errorf("AvgPolarity = %f, want negative", trends.AvgPolarity)
	}
}

func TestStrategyEffectiveness(t *testing.T) {
	a, st := testAggregator(t)

	seedTurn(t, st, "alice", "question", "neutral", "generative_ai", true)
	seedTurn(t, st, "alice", "question", "neutral", "generative_ai", false)
	seedTurn(t, st, "bob", "greeting", "neutral", "rule_based", true)

	stats, err := a.StrategyEffectiveness(context.Background())
	if err != nil {
		t.Fatalf("StrategyEffectiveness: %v", err)
	}
	if len(stats) != 2 {
		t.Fatalf("got %d strategies, want 2", len(stats))
	}
	if stats[0].Strategy != "generative_ai" || stats[0].SuccessRate != 50 {
		t.Errorf("top strategy = %+v, want generative_ai at 50%%", stats[0])
	}
}

func TestEngagement_Retention(t *testing.T) {
	a, st := testAggregator(t)

	seedTurn(t, st, "alice", "question", "neutral", "generative_ai", true)
	seedTurn(t, st, "alice", "question", "neutral", "generative_ai", true)
	seedTurn(t, st, "bob", "greeting", "neutral", "rule_based", true)

	m, err := a.Engagement(context.Background())
	if err != nil {
		t.Fatalf("Engagement: %v", err)
	}
	if m.TotalUsers != 2 || m.ReturningUsers != 1 {
		t.Errorf("metrics = %+v, want 2 users 1 returning", m)
	}
	if m.TotalMessages != 3 || m.AvgPerUser != 1.5 {
		t.Errorf("metrics = %+v, want 3 messages at 1.5 per user", m)
	}
	if m.RetentionRate != 50 {
		t.Errorf("RetentionRate = %f, want 50", m.RetentionRate)
	}
	if m.ActiveLast7d != 2 {
		t.Errorf("ActiveLast7d = %d, want 2", m.ActiveLast7d)
	}
	if len(m.TopUsers) == 0 || m.TopUsers[0].UserID != "alice" {
		t.Errorf("TopUsers = %v, want alice first", m.TopUsers)
	}
}

func TestInsights_EmptyStoreIsHealthy(t *testing.T) {
	a, _ := testAggregator(t)

	insights, err := a.Insights(context.Background())
	if err != nil {
		t.Fatalf("Insights: %v", err)
	}
	if len(insights) != 0 {
		t.Errorf("insights on empty store = %v, want none", insights)
	}
}

func TestInsights_LowSuccessRate(t *testing.T) {
	a, st := testAggregator(t)

	for i := 0; i < 10; i++ {
		seedTurn(t, st, fmt.Sprintf("user%d", i), "question", "neutral", "generative_ai", i < 3)
	}

	insights, err := a.Insights(context.Background())
	if err != nil {
		t.Fatalf("Insights: %v", err)
	}
	found := false
	for _, in := range insights {
		if strings.Contains(in.Message, "success rate") {
			found = true
		}
	}
	if !found {
		t.Errorf("insights = %v, want low success rate warning", insights)
	}
}

func TestInsights_NegativeSentiment(t *testing.T) {
	a, st := testAggregator(t)

	seedTurn(t, st, "alice", "complaint", "negative", "fallback", true)
	seedTurn(t, st, "bob", "complaint", "negative", "fallback", true)
	seedTurn(t, st, "carol", "greeting", "positive", "rule_based", true)

	insights, err := a.Insights(context.Background())
	if err != nil {
		t.Fatalf("Insights: %v", err)
	}
	found := false
	for _, in := range insights {
		if strings.Contains(in.Message, "negative sentiment") {
			found = true
		}
	}
	if !found {
		t.Errorf("insights = %v, want negative sentiment warning", insights)
	}
}

func TestInsights_MostCommonIntent(t *testing.T) {
	a, st := testAggregator(t)

	seedTurn(t, st, "alice", "question", "neutral", "generative_ai", true)
	seedTurn(t, st, "alice", "question", "neutral", "generative_ai", true)
	seedTurn(t, st, "bob", "greeting", "positive", "rule_based", true)

	insights, err := a.Insights(context.Background())
	if err != nil {
		t.Fatalf("Insights: %v", err)
	}
	found := false
	for _, in := range insights {
		if in.Type == "info" && in.Priority == "low" && strings.Contains(in.Message, `"question"`) {
			found = true
		}
	}
	if !found {
		t.Errorf("insights = %v, want most common intent info", insights)
	}
}

func TestReport_RendersMarkdown(t *testing.T) {
	a, st := testAggregator(t)
	seedTurn(t, st, "alice", "question", "neutral", "generative_ai", true)

	report, err := a.Report(context.Background(), 7)
	if err != nil {
		t.Fatalf("Report: %v", err)
	}
	for _, want := range []string{"# Conversation Report", "## Volume", "## Intents", "## Strategies", "question"} {
		if !strings.Contains(report, want) {
			t.Errorf("report missing %q", want)
		}
	}
}

func TestReport_EmptyStore(t *testing.T) {
	a, _ := testAggregator(t)

	report, err := a.Report(context.Background(), 7)
	if err != nil {
		t.Fatalf("Report on empty store: %v", err)
	}
	if !strings.Contains(report, "No intents recorded yet") {
		t.Error("empty report missing placeholder text")
	}
}

func TestStats_RespectsWindow(t *testing.T) {
	a, st := testAggregator(t)

	old := store.TurnRecord{
		UserID: "alice", RawText: "old", Intent: "question", IntentConfidence: 0.8,
		SentimentLabel: "neutral", StrategyUsed: "generative_ai", StrategyConfidence: 0.8,
		Success: true, Timestamp: time.Now().AddDate(0, 0, -30),
	}
	if err := st.AppendTurn(context.Background(), old); err != nil {
		t.Fatalf("AppendTurn: %v", err)
	}
	seedTurn(t, st, "alice", "question", "neutral", "generative_ai", true)

	stats, err := a.Stats(context.Background(), 7)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.TotalTurns != 1 {
		t.Errorf("TotalTurns = %d, want 1 inside the 7-day window", stats.TotalTurns)
	}
}
