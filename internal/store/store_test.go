package store

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	_ "modernc.org/sqlite"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open in-memory db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	s, err := New(db, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func sampleTurn(userID, text string, success bool) TurnRecord {
	return TurnRecord{
		UserID:             userID,
		RawText:            text,
		Intent:             "question",
		IntentConfidence:   0.9,
		SentimentLabel:     "neutral",
		Polarity:           0.1,
		Emotions:           []string{"joy"},
		StrategyUsed:       "generative_ai",
		StrategyConfidence: 0.9,
		Success:            success,
	}
}

func TestAppendTurn_AssignsIDAndTimestamp(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	if err := s.AppendTurn(ctx, sampleTurn("alice", "what is ai", true)); err != nil {
		t.Fatalf("AppendTurn: %v", err)
	}

	turns, err := s.RecentTurns(ctx, "alice", 10)
	if err != nil {
		t.Fatalf("RecentTurns: %v", err)
	}
	if len(turns) != 1 {
		t.Fatalf("got %d turns, want 1", len(turns))
	}
	if turns[0].ID == "" {
		t.Error("turn ID not assigned")
	}
	if turns[0].Timestamp.IsZero() {
		t.Error("timestamp not assigned")
	}
	if len(turns[0].Emotions) != 1 || turns[0].Emotions[0] != "joy" {
		t.Errorf("Emotions = %v, want [joy]", turns[0].Emotions)
	}
}

func TestUserProfile_Aggregates(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		rec := sampleTurn("bob", fmt.Sprintf("message %d", i), true)
		if i == 2 {
			rec.Intent = "greeting"
		}
		if err := s.AppendTurn(ctx, rec); err != nil {
			t.Fatalf("AppendTurn: %v", err)
		}
	}

	p, err := s.UserProfile(ctx, "bob")
	if err != nil {
		t.Fatalf("UserProfile: %v", err)
	}
	if p == nil {
		t.Fatal("profile is nil for known user")
	}
	if p.MessageCount != 3 {
		t.Errorf("MessageCount = %d, want 3", p.MessageCount)
	}
	if p.IntentFrequency["question"] != 2 || p.IntentFrequency["greeting"] != 1 {
		t.Errorf("IntentFrequency = %v", p.IntentFrequency)
	}
	if len(p.SentimentHistory) != 3 {
		t.Errorf("SentimentHistory has %d entries, want 3", len(p.SentimentHistory))
	}
	if len(p.RecentTurns) != 3 {
		t.Errorf("RecentTurns has %d entries, want 3", len(p.RecentTurns))
	}
}

func TestUserProfile_UnknownUser(t *testing.T) {
	s := testStore(t)

	p, err := s.UserProfile(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("UserProfile: %v", err)
	}
	if p != nil {
		t.Errorf("profile = %+v, want nil for unknown user", p)
	}
}

func TestAppendTurn_PrunesSentimentHistory(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	for i := 0; i < maxSentimentPerUser+10; i++ {
		if err := s.AppendTurn(ctx, sampleTurn("carol", fmt.Sprintf("msg %d", i), true)); err != nil {
			t.Fatalf("AppendTurn: %v", err)
		}
	}

	p, err := s.UserProfile(ctx, "carol")
	if err != nil {
		t.Fatalf("UserProfile: %v", err)
	}
	if len(p.SentimentHistory) != maxSentimentPerUser {
		t.Errorf("SentimentHistory has %d entries, want %d", len(p.SentimentHistory), maxSentimentPerUser)
	}
	// The message count keeps the true total even after pruning.
	if p.MessageCount != maxSentimentPerUser+10 {
		t.Errorf("MessageCount = %d, want %d", p.MessageCount, maxSentimentPerUser+10)
	}
}

func TestAppendTurn_PrunesFailedOutcomes(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	for i := 0; i < maxFailedOutcomes+20; i++ {
		if err := s.AppendTurn(ctx, sampleTurn("dave", fmt.Sprintf("msg %d", i), false)); err != nil {
			t.Fatalf("AppendTurn: %v", err)
		}
	}

	outcomes, err := s.StrategyOutcomes(ctx, 0)
	if err != nil {
		t.Fatalf("StrategyOutcomes: %v", err)
	}
	failed := 0
	for _, o := range outcomes {
		if !o.Success {
			failed++
		}
	}
	if failed != maxFailedOutcomes {
		t.Errorf("failed outcomes = %d, want %d", failed, maxFailedOutcomes)
	}
}

func TestStrategyOutcomes_CarrySentiment(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	if err := s.AppendTurn(ctx, sampleTurn("erin", "hmm", true)); err != nil {
		t.Fatalf("AppendTurn: %v", err)
	}

	outcomes, err := s.StrategyOutcomes(ctx, 0)
	if err != nil {
		t.Fatalf("StrategyOutcomes: %v", err)
	}
	if len(outcomes) != 1 {
		t.Fatalf("got %d outcomes, want 1", len(outcomes))
	}
	if outcomes[0].Sentiment != "neutral" {
		t.Errorf("Sentiment = %q, want neutral", outcomes[0].Sentiment)
	}
}

func TestIntentCounters(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	ok := sampleTurn("erin", "what is go", true)
	bad := sampleTurn("erin", "what is rust", false)
	for _, rec := range []TurnRecord{ok, ok, bad} {
		if err := s.AppendTurn(ctx, rec); err != nil {
			t.Fatalf("AppendTurn: %v", err)
		}
	}

	counters, err := s.IntentCounters(ctx)
	if err != nil {
		t.Fatalf("IntentCounters: %v", err)
	}
	c, found := counters["question"]
	if !found {
		t.Fatal("no counter for question intent")
	}
	if c.Total != 3 || c.Successful != 2 {
		t.Errorf("counter = %+v, want total 3 successful 2", c)
	}
	if got := c.AvgConfidence(); got < 0.89 || got > 0.91 {
		t.Errorf("AvgConfidence = %f, want ~0.9", got)
	}
}

func TestAvgConfidence_ZeroTotal(t *testing.T) {
	var c IntentCounter
	if got := c.AvgConfidence(); got != 0 {
		t.Errorf("AvgConfidence on empty counter = %f, want 0", got)
	}
}

func TestCorpusRoundTrip(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	got, err := s.LoadCorpus(ctx)
	if err != nil {
		t.Fatalf("LoadCorpus on empty store: %v", err)
	}
	if got != nil {
		t.Errorf("LoadCorpus = %q, want nil before first save", got)
	}

	payload := []byte(`{"patterns": ["hello world"]}`)
	if err := s.SaveCorpus(ctx, payload); err != nil {
		t.Fatalf("SaveCorpus: %v", err)
	}
	got, err = s.LoadCorpus(ctx)
	if err != nil {
		t.Fatalf("LoadCorpus: %v", err)
	}
	if string(got) != string(payload) {
		t.Errorf("LoadCorpus = %q, want %q", got, payload)
	}

	// Second save replaces, not appends.
	if err := s.SaveCorpus(ctx, []byte(`{}`)); err != nil {
		t.Fatalf("SaveCorpus replace: %v", err)
	}
	got, _ = s.LoadCorpus(ctx)
	if string(got) != `{}` {
		t.Errorf("LoadCorpus after replace = %q, want {}", got)
	}
}

func TestTurnsSince(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	old := sampleTurn("frank", "ancient history", true)
	old.Timestamp = time.Now().AddDate(0, 0, -10)
	recent := sampleTurn("frank", "fresh news", true)

	if err := s.AppendTurn(ctx, old); err != nil {
		t.Fatalf("AppendTurn old: %v", err)
	}
	if err := s.AppendTurn(ctx, recent); err != nil {
		t.Fatalf("AppendTurn recent: %v", err)
	}

	turns, err := s.TurnsSince(ctx, time.Now().AddDate(0, 0, -7))
	if err != nil {
		t.Fatalf("TurnsSince: %v", err)
	}
	if len(turns) != 1 {
		t.Fatalf("got %d turns, want 1", len(turns))
	}
	if turns[0].RawText != "fresh news" {
		t.Errorf("RawText = %q, want fresh news", turns[0].RawText)
	}
}

func TestCleanupOldData(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	old := sampleTurn("grace", "stale", true)
	old.Timestamp = time.Now().AddDate(0, 0, -60)
	if err := s.AppendTurn(ctx, old); err != nil {
		t.Fatalf("AppendTurn: %v", err)
	}
	if err := s.AppendTurn(ctx, sampleTurn("henry", "current", true)); err != nil {
		t.Fatalf("AppendTurn: %v", err)
	}

	deleted, err := s.CleanupOldData(ctx, 30)
	if err != nil {
		t.Fatalf("CleanupOldData: %v", err)
	}
	if deleted != 1 {
		t.Errorf("deleted = %d, want 1", deleted)
	}

	// Grace had only the stale turn, so her profile goes too.
	p, err := s.UserProfile(ctx, "grace")
	if err != nil {
		t.Fatalf("UserProfile: %v", err)
	}
	if p != nil {
		t.Error("expired user still has a profile")
	}

	counters, err := s.AggregateCounters(ctx)
	if err != nil {
		t.Fatalf("AggregateCounters: %v", err)
	}
	if counters.TotalTurns != 1 || counters.TotalUsers != 1 {
		t.Errorf("counters = %+v, want 1 turn 1 user", counters)
	}
}

func TestSentimentsSince(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	rec := sampleTurn("ivy", "wonderful day", true)
	rec.SentimentLabel = "positive"
	rec.Polarity = 0.8
	rec.Emotions = []string{"joy", "gratitude"}
	if err := s.AppendTurn(ctx, rec); err != nil {
		t.Fatalf("AppendTurn: %v", err)
	}

	records, err := s.SentimentsSince(ctx, time.Now().AddDate(0, 0, -1))
	if err != nil {
		t.Fatalf("SentimentsSince: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}
	if records[0].Label != "positive" || records[0].PrimaryEmotion != "joy" {
		t.Errorf("record = %+v, want positive/joy", records[0])
	}
}
