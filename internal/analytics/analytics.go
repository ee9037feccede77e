// Package analytics computes read-only aggregate views over the outcome
// store. Every function tolerates an empty store: zero counts produce
// zero-valued summaries, never errors or division panics.
package analytics

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/soline/banter/internal/store"
)

// Aggregator answers analytics queries against the outcome store.
type Aggregator struct {
	store   *store.Store
	logger  *slog.Logger
	nowFunc func() time.Time
}

// New creates an aggregator over the given store.
func New(st *store.Store, logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{store: st, logger: logger, nowFunc: time.Now}
}

// ConversationStats summarizes turn volume and success over a window,
// with per-day and per-hour activity histograms.
type ConversationStats struct {
	WindowDays     int
	TotalTurns     int
	UniqueUsers    int
	SuccessfulHits int
	SuccessRate    float64 // percent
	AvgPerUser     float64
	DailyActivity  map[string]int // YYYY-MM-DD → turns
	HourlyActivity map[int]int    // hour of day (UTC) → turns
}

// Stats computes conversation statistics over the last windowDays days.
func (a *Aggregator) Stats(ctx context.Context, windowDays int) (ConversationStats, error) {
	cutoff := a.nowFunc().AddDate(0, 0, -windowDays)
	turns, err := a.store.TurnsSince(ctx, cutoff)
	if err != nil {
		return ConversationStats{}, fmt.Errorf("conversation stats: %w", err)
	}

	stats := ConversationStats{
		WindowDays:     windowDays,
		TotalTurns:     len(turns),
		DailyActivity:  make(map[string]int),
		HourlyActivity: make(map[int]int),
	}
	users := make(map[string]bool)
	for _, t := range turns {
		users[t.UserID] = true
		if t.Success {
			stats.SuccessfulHits++
		}
		ts := t.Timestamp.UTC()
		stats.DailyActivity[ts.Format("2006-01-02")]++
		stats.HourlyActivity[ts.Hour()]++
	}
	stats.UniqueUsers = len(users)
	if stats.TotalTurns > 0 {
		stats.SuccessRate = 100 * float64(stats.SuccessfulHits) / float64(stats.TotalTurns)
	}
	if stats.UniqueUsers > 0 {
		stats.AvgPerUser = float64(stats.TotalTurns) / float64(stats.UniqueUsers)
	}
	return stats, nil
}

// IntentStat is the per-intent slice of the breakdown.
type IntentStat struct {
	Intent        string
	Total         int
	Successful    int
	SuccessRate   float64 // percent
	AvgConfidence float64
}

// IntentBreakdown returns per-intent totals sorted by volume, most
// common first.
func (a *Aggregator) IntentBreakdown(ctx context.Context) ([]IntentStat, error) {
	counters, err := a.store.IntentCounters(ctx)
	if err != nil {
		return nil, fmt.Errorf("intent breakdown: %w", err)
	}

	out := make([]IntentStat, 0, len(counters))
	for intent, c := range counters {
		stat := IntentStat{
			Intent:        intent,
			Total:         c.Total,
			Successful:    c.Successful,
			AvgConfidence: c.AvgConfidence(),
		}
		if c.Total > 0 {
			stat.SuccessRate = 100 * float64(c.Successful) / float64(c.Total)
		}
		out = append(out, stat)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Total != out[j].Total {
			return out[i].Total > out[j].Total
		}
		return out[i].Intent < out[j].Intent
	})
	return out, nil
}

// SentimentTrends summarizes the emotional tone of a window.
type SentimentTrends struct {
	WindowDays   int
	Total        int
	Distribution map[string]int     // label → count
	Percentages  map[string]float64 // label → percent of records
	AvgPolarity  float64
	TopEmotions  []EmotionCount // at most 5, by frequency
}

// EmotionCount pairs an emotion with its observation count.
type EmotionCount struct {
	Emotion string
	Count   int
}

// Sentiment computes sentiment trends over the last windowDays days.
func (a *Aggregator) Sentiment(ctx context.Context, windowDays int) (SentimentTrends, error) {
	cutoff := a.nowFunc().AddDate(0, 0, -windowDays)
	records, err := a.store.SentimentsSince(ctx, cutoff)
	if err != nil {
		return SentimentTrends{}, fmt.Errorf("sentiment trends: %w", err)
	}

	trends := SentimentTrends{
		WindowDays:   windowDays,
		Total:        len(records),
		Distribution: make(map[string]int),
		Percentages:  make(map[string]float64),
	}
	emotions := make(map[string]int)
	polaritySum := 0.0
	for _, r := range records {
		trends.Distribution[r.Label]++
		polaritySum += r.Polarity
		for _, e := range r.Emotions {
			emotions[e]++
		}
	}
	if trends.Total > 0 {
		trends.AvgPolarity = polaritySum / float64(trends.Total)
		for label, count := range trends.Distribution {
			trends.Percentages[label] = 100 * float64(count) / float64(trends.Total)
		}
	}
	trends.TopEmotions = topEmotions(emotions, 5)
	return trends, nil
}

func topEmotions(counts map[string]int, n int) []EmotionCount {
	out := make([]EmotionCount, 0, len(counts))
	for e, c := range counts {
		out = append(out, EmotionCount{Emotion: e, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Emotion < out[j].Emotion
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// StrategyStat reports how one strategy is performing.
type StrategyStat struct {
	Strategy      string
	Attempts      int
	Successes     int
	SuccessRate   float64 // percent; 0 when never attempted
	AvgConfidence float64
}

// StrategyEffectiveness returns per-strategy outcome rates sorted by
// attempt volume. Strategies never attempted simply do not appear.
func (a *Aggregator) StrategyEffectiveness(ctx context.Context) ([]StrategyStat, error) {
	outcomes, err := a.store.StrategyOutcomes(ctx, 0)
	if err != nil {
		return nil, fmt.Errorf("strategy effectiveness: %w", err)
	}

	byStrategy := make(map[string]*StrategyStat)
	confSums := make(map[string]float64)
	for _, o := range outcomes {
		stat := byStrategy[o.Strategy]
		if stat == nil {
			stat = &StrategyStat{Strategy: o.Strategy}
			byStrategy[o.Strategy] = stat
		}
		stat.Attempts++
		if o.Success {
			stat.Successes++
		}
		confSums[o.Strategy] += o.Confidence
	}

	out := make([]StrategyStat, 0, len(byStrategy))
	for name, stat := range byStrategy {
		stat.SuccessRate = 100 * float64(stat.Successes) / float64(stat.Attempts)
		stat.AvgConfidence = confSums[name] / float64(stat.Attempts)
		out = append(out, *stat)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Attempts != out[j].Attempts {
			return out[i].Attempts > out[j].Attempts
		}
		return out[i].Strategy < out[j].Strategy
	})
	return out, nil
}

// EngagementMetrics measures how users stick with the agent.
type EngagementMetrics struct {
	TotalUsers     int
	TotalMessages  int
	AvgPerUser     float64
	ReturningUsers int
	RetentionRate  float64 // percent of users with more than one message
	ActiveLast7d   int
	TopUsers       []UserActivity // at most 5, by message count
}

// UserActivity pairs a user with their message count.
type UserActivity struct {
	UserID   string
	Messages int
}

// Engagement computes retention and activity metrics across all users.
func (a *Aggregator) Engagement(ctx context.Context) (EngagementMetrics, error) {
	// Turn records are the source of truth here rather than the users
	// table so the 7-day window and per-user counts agree.
	turns, err := a.store.TurnsSince(ctx, time.Time{})
	if err != nil {
		return EngagementMetrics{}, fmt.Errorf("engagement metrics: %w", err)
	}

	weekAgo := a.nowFunc().AddDate(0, 0, -7)
	counts := make(map[string]int)
	active := make(map[string]bool)
	for _, t := range turns {
		counts[t.UserID]++
		if t.Timestamp.After(weekAgo) {
			active[t.UserID] = true
		}
	}

	m := EngagementMetrics{TotalUsers: len(counts), TotalMessages: len(turns), ActiveLast7d: len(active)}
	for _, c := range counts {
		if c > 1 {
			m.ReturningUsers++
		}
	}
	if m.TotalUsers > 0 {
		m.RetentionRate = 100 * float64(m.ReturningUsers) / float64(m.TotalUsers)
		m.AvgPerUser = float64(m.TotalMessages) / float64(m.TotalUsers)
	}

	top := make([]UserActivity, 0, len(counts))
	for u, c := range counts {
		top = append(top, UserActivity{UserID: u, Messages: c})
	}
	sort.Slice(top, func(i, j int) bool {
		if top[i].Messages != top[j].Messages {
			return top[i].Messages > top[j].Messages
		}
		return top[i].UserID < top[j].UserID
	})
	if len(top) > 5 {
		top = top[:5]
	}
	m.TopUsers = top
	return m, nil
}

// Insight is one threshold-triggered observation about system health.
type Insight struct {
	Type     string `json:"type"` // "warning" or "info"
	Title    string `json:"title"`
	Message  string `json:"message"`
	Priority string `json:"priority"` // high, medium, low
}

// Insights evaluates the fixed health thresholds and returns any that
// fire. An empty slice means everything looks healthy.
func (a *Aggregator) Insights(ctx context.Context) ([]Insight, error) {
	var out []Insight

	stats, err := a.Stats(ctx, 30)
	if err != nil {
		return nil, err
	}
	if stats.TotalTurns > 0 && stats.SuccessRate < 70 {
		out = append(out, Insight{
			Type:     "warning",
			Title:    "Low Response Success Rate",
			Message:  fmt.Sprintf("success rate %.1f%% is below 70%%, review failing strategies", stats.SuccessRate),
			Priority: "high",
		})
	}

	trends, err := a.Sentiment(ctx, 30)
	if err != nil {
		return nil, err
	}
	if trends.Percentages["negative"] > 30 {
		out = append(out, Insight{
			Type:     "warning",
			Title:    "High Negative Sentiment",
			Message:  fmt.Sprintf("negative sentiment at %.1f%% of messages, users may be frustrated", trends.Percentages["negative"]),
			Priority: "medium",
		})
	}

	engagement, err := a.Engagement(ctx)
	if err != nil {
		return nil, err
	}
	if engagement.TotalUsers > 0 && engagement.RetentionRate < 30 {
		out = append(out, Insight{
			Type:     "info",
			Title:    "Low User Retention",
			Message:  fmt.Sprintf("retention rate %.1f%% is low, most users do not return", engagement.RetentionRate),
			Priority: "medium",
		})
	}

	intents, err := a.IntentBreakdown(ctx)
	if err != nil {
		return nil, err
	}
	if len(intents) > 0 {
		top := intents[0]
		out = append(out, Insight{
			Type:     "info",
			Title:    "Most Common Intent",
			Message:  fmt.Sprintf("most common intent is %q with %d messages", top.Intent, top.Total),
			Priority: "low",
		})
	}

	counters, err := a.store.AggregateCounters(ctx)
	if err != nil {
		return nil, err
	}
	if counters.FailedOutcomes > 50 {
		out = append(out, Insight{
			Type:     "warning",
			Title:    "High Failure Rate",
			Message:  fmt.Sprintf("%d failed responses recorded, consider retraining", counters.FailedOutcomes),
			Priority: "high",
		})
	}

	return out, nil
}

// Report renders a markdown summary of the main analytics views.
func (a *Aggregator) Report(ctx context.Context, windowDays int) (string, error) {
	stats, err := a.Stats(ctx, windowDays)
	if err != nil {
		return "", err
	}
	intents, err := a.IntentBreakdown(ctx)
	if err != nil {
		return "", err
	}
	trends, err := a.Sentiment(ctx, windowDays)
	if err != nil {
		return "", err
	}
	strategies, err := a.StrategyEffectiveness(ctx)
	if err != nil {
		return "", err
	}
	engagement, err := a.Engagement(ctx)
	if err != nil {
		return "", err
	}
	insights, err := a.Insights(ctx)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Conversation Report (last %d days)\n\n", windowDays)
	fmt.Fprintf(&b, "## Volume\n\n")
	fmt.Fprintf(&b, "- Turns: %d\n", stats.TotalTurns)
	fmt.Fprintf(&b, "- Unique users: %d\n", stats.UniqueUsers)
	fmt.Fprintf(&b, "- Success rate: %.1f%%\n", stats.SuccessRate)
	fmt.Fprintf(&b, "- Average turns per user: %.1f\n\n", stats.AvgPerUser)

	b.WriteString("## Intents\n\n")
	if len(intents) == 0 {
		b.WriteString("No intents recorded yet.\n\n")
	} else {
		b.WriteString("| Intent | Total | Success rate | Avg confidence |\n")
		b.WriteString("|---|---|---|---|\n")
		for _, s := range intents {
			fmt.Fprintf(&b, "| %s | %d | %.1f%% | %.2f |\n", s.Intent, s.Total, s.SuccessRate, s.AvgConfidence)
		}
		b.WriteString("\n")
	}

	b.WriteString("## Sentiment\n\n")
	fmt.Fprintf(&b, "- Average polarity: %.2f\n", trends.AvgPolarity)
	for _, label := range []string{"positive", "neutral", "negative"} {
		if c := trends.Distribution[label]; c > 0 {
			fmt.Fprintf(&b, "- %s: %d (%.1f%%)\n", label, c, trends.Percentages[label])
		}
	}
	if len(trends.TopEmotions) > 0 {
		b.WriteString("- Top emotions:")
		for _, e := range trends.TopEmotions {
			fmt.Fprintf(&b, " %s (%d)", e.Emotion, e.Count)
		}
		b.WriteString("\n")
	}
	b.WriteString("\n## Strategies\n\n")
	if len(strategies) == 0 {
		b.WriteString("No strategy outcomes recorded yet.\n")
	} else {
		b.WriteString("| Strategy | Attempts | Success rate | Avg confidence |\n")
		b.WriteString("|---|---|---|---|\n")
		for _, s := range strategies {
			fmt.Fprintf(&b, "| %s | %d | %.1f%% | %.2f |\n", s.Strategy, s.Attempts, s.SuccessRate, s.AvgConfidence)
		}
	}

	fmt.Fprintf(&b, "\n## Engagement\n\n")
	fmt.Fprintf(&b, "- Users: %d (%d returning, %.1f%% retention)\n",
		engagement.TotalUsers, engagement.ReturningUsers, engagement.RetentionRate)
	fmt.Fprintf(&b, "- Messages: %d (%.1f per user)\n", engagement.TotalMessages, engagement.AvgPerUser)
	fmt.Fprintf(&b, "- Active in last 7 days: %d\n", engagement.ActiveLast7d)

	b.WriteString("\n## Insights\n\n")
	if len(insights) == 0 {
		b.WriteString("All health checks passing.\n")
	} else {
		for _, in := range insights {
			fmt.Fprintf(&b, "- **%s** (%s): %s\n", in.Title, in.Priority, in.Message)
		}
	}

	return b.String(), nil
}
