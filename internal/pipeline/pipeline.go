// Package pipeline wires the fixed processing chain: clean the message,
// classify intent, score sentiment, decide a strategy, render the reply,
// persist the outcome, and feed the learner. The pipeline never returns
// an error for a user message; any internal panic degrades to an
// apologetic fallback recorded as a failed turn.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/soline/banter/internal/analytics"
	"github.com/soline/banter/internal/classify"
	"github.com/soline/banter/internal/decision"
	"github.com/soline/banter/internal/genai"
	"github.com/soline/banter/internal/learning"
	"github.com/soline/banter/internal/normalize"
	"github.com/soline/banter/internal/respond"
	"github.com/soline/banter/internal/sentiment"
	"github.com/soline/banter/internal/store"
)

// Result is the outward-facing outcome of one processed turn.
type Result struct {
	Reply      string            `json:"reply"`
	Intent     string            `json:"intent"`
	Confidence float64           `json:"confidence"`
	Sentiment  string            `json:"sentiment"`
	Emotions   []string          `json:"emotions,omitempty"`
	Strategy   decision.Strategy `json:"strategy"`
	Reasoning  string            `json:"reasoning"`
	Success    bool              `json:"success"`
	Degraded   bool              `json:"degraded,omitempty"`
}

// Pipeline orchestrates one agent instance. Safe for concurrent use.
type Pipeline struct {
	classifier *classify.Classifier
	engine     *decision.Engine
	responder  *respond.Responder
	store      *store.Store
	learner    *learning.Learner
	analytics  *analytics.Aggregator
	backend    *genai.Client
	logger     *slog.Logger

	maxHistory    int
	retentionDays int

	mu      sync.Mutex
	windows map[string][]genai.Message
}

// Options configures a pipeline.
type Options struct {
	Classifier *classify.Classifier
	Engine     *decision.Engine
	Responder  *respond.Responder
	Store      *store.Store
	Learner    *learning.Learner
	Analytics  *analytics.Aggregator
	// Backend is optional; nil disables the generative health probe.
	Backend       *genai.Client
	Logger        *slog.Logger
	MaxHistory    int
	RetentionDays int
}

// New assembles a pipeline from its stages.
func New(opts Options) *Pipeline {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.MaxHistory <= 0 {
		opts.MaxHistory = 10
	}
	if opts.RetentionDays <= 0 {
		opts.RetentionDays = 30
	}
	return &Pipeline{
		classifier:    opts.Classifier,
		engine:        opts.Engine,
		responder:     opts.Responder,
		store:         opts.Store,
		learner:       opts.Learner,
		analytics:     opts.Analytics,
		backend:       opts.Backend,
		logger:        opts.Logger,
		maxHistory:    opts.MaxHistory,
		retentionDays: opts.RetentionDays,
		windows:       make(map[string][]genai.Message),
	}
}

// Process runs one message through the full chain. It always returns a
// usable Result; panics inside any stage degrade to an apology.
func (p *Pipeline) Process(ctx context.Context, userID, text string) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("pipeline panic", "user", userID, "panic", fmt.Sprint(r))
			result = Result{
				Reply:    "I'm sorry, something went wrong on my end. Could you try that again?",
				Intent:   "error",
				Strategy: decision.StrategyFallback,
				Success:  false,
			}
		}
	}()

	start := time.Now()
	pre := normalize.Preprocess(text)
	cls := p.classifier.Classify(pre.Cleaned)
	sent := sentiment.Analyze(pre.Cleaned)
	history := p.history(userID)

	dec := p.engine.Decide(pre.Cleaned, cls.Intent, cls.Confidence, sent, decision.Context{
		HistoryDepth: len(history) / 2,
	})

	resp := p.responder.Respond(ctx, respond.Request{
		Text:      text,
		Intent:    cls.Intent,
		Sentiment: sent,
		Decision:  dec,
		History:   history,
	})

	success := respond.EvaluateSuccess(dec.Strategy, dec.Confidence, resp.Degraded)

	p.remember(userID, text, resp.Text)
	p.persist(ctx, store.TurnRecord{
		UserID:             userID,
		RawText:            text,
		Intent:             cls.Intent,
		IntentConfidence:   cls.Confidence,
		SentimentLabel:     string(sent.Label),
		Polarity:           sent.Polarity,
		Emotions:           sent.Emotions,
		StrategyUsed:       string(dec.Strategy),
		StrategyConfidence: dec.Confidence,
		Success:            success,
	})

	if p.learner != nil {
		p.learner.LearnFromTurn(ctx, learning.Turn{
			UserID:   userID,
			Text:     pre.Cleaned,
			Intent:   cls.Intent,
			Strategy: string(dec.Strategy),
			Success:  success,
		})
	}

	p.logger.Info("turn processed",
		"user", userID,
		"intent", cls.Intent,
		"sentiment", sent.Label,
		"strategy", dec.Strategy,
		"success", success,
		"duration", time.Since(start).Round(time.Millisecond))

	return Result{
		Reply:      resp.Text,
		Intent:     cls.Intent,
		Confidence: cls.Confidence,
		Sentiment:  string(sent.Label),
		Emotions:   sent.Emotions,
		Strategy:   dec.Strategy,
		Reasoning:  dec.Reasoning,
		Success:    success,
		Degraded:   resp.Degraded,
	}
}

// persist writes the turn record; storage failures are logged and
// swallowed so the user still gets their reply.
func (p *Pipeline) persist(ctx context.Context, rec store.TurnRecord) {
	if p.store == nil {
		return
	}
	if err := p.store.AppendTurn(ctx, rec); err != nil {
		p.logger.Error("persist turn", "user", rec.UserID, "error", err)
	}
}

// history returns a copy of the user's conversation window.
func (p *Pipeline) history(userID string) []genai.Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]genai.Message(nil), p.windows[userID]...)
}

// remember appends the exchange to the user's window and trims it to
// the configured depth (counted in exchanges, two messages each).
func (p *Pipeline) remember(userID, userText, reply string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	w := append(p.windows[userID],
		genai.Message{Role: "user", Content: userText},
		genai.Message{Role: "assistant", Content: reply})
	if over := len(w) - 2*p.maxHistory; over > 0 {
		w = append([]genai.Message(nil), w[over:]...)
	}
	p.windows[userID] = w
}

// History returns the user's stored recent turns.
func (p *Pipeline) History(ctx context.Context, userID string, limit int) ([]store.TurnRecord, error) {
	if limit <= 0 {
		limit = p.maxHistory
	}
	return p.store.RecentTurns(ctx, userID, limit)
}

// Profile returns the user's aggregate profile, or nil when unknown.
func (p *Pipeline) Profile(ctx context.Context, userID string) (*store.UserProfile, error) {
	return p.store.UserProfile(ctx, userID)
}

// Feedback records an explicit rating for the learner.
func (p *Pipeline) Feedback(ctx context.Context, fb learning.FeedbackEntry) {
	if p.learner != nil {
		p.learner.AddFeedback(ctx, fb)
	}
}

// OptimizeReport summarizes one optimization pass.
type OptimizeReport struct {
	Suggestions  []learning.Suggestion `json:"suggestions"`
	Retrained    bool                  `json:"retrained"`
	TurnsExpired int64                 `json:"turns_expired"`
}

// Optimize runs the improvement cycle: generate suggestions, retrain
// the classifier if the corpus is large enough, expire old data.
func (p *Pipeline) Optimize(ctx context.Context) (OptimizeReport, error) {
	var report OptimizeReport
	if p.learner != nil {
		report.Suggestions = p.learner.GenerateSuggestions(ctx)
		report.Retrained = p.learner.ImproveClassifier(ctx)
	}
	if p.store != nil {
		expired, err := p.store.CleanupOldData(ctx, p.retentionDays)
		if err != nil {
			return report, fmt.Errorf("optimize cleanup: %w", err)
		}
		report.TurnsExpired = expired
	}
	p.logger.Info("optimization pass complete",
		"suggestions", len(report.Suggestions),
		"retrained", report.Retrained,
		"turns_expired", report.TurnsExpired)
	return report, nil
}

// Health reports component status and the running totals.
type Health struct {
	Status        string         `json:"status"` // "ok" or "degraded"
	Backend       string         `json:"backend"`
	TotalTurns    int            `json:"total_turns"`
	TotalUsers    int            `json:"total_users"`
	ActiveWindows int            `json:"active_windows"`
	Learning      map[string]any `json:"learning,omitempty"`
}

// CheckHealth probes the stages that can fail at runtime.
func (p *Pipeline) CheckHealth(ctx context.Context) Health {
	h := Health{Status: "ok", Backend: "disabled"}

	if p.backend != nil {
		probe, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		if err := p.backend.Ping(probe); err != nil {
			h.Backend = "unreachable"
			h.Status = "degraded"
		} else {
			h.Backend = "ok"
		}
	}

	if p.store != nil {
		counters, err := p.store.AggregateCounters(ctx)
		if err != nil {
			h.Status = "degraded"
		} else {
			h.TotalTurns = counters.TotalTurns
			h.TotalUsers = counters.TotalUsers
		}
	}

	if p.learner != nil {
		s := p.learner.Insights()
		h.Learning = map[string]any{
			"accuracy": s.OverallAccuracy,
			"patterns": s.PatternsLearned,
			"feedback": s.FeedbackCount,
		}
	}

	p.mu.Lock()
	h.ActiveWindows = len(p.windows)
	p.mu.Unlock()
	return h
}

// Statistics returns the analytics views for the given window.
func (p *Pipeline) Statistics(ctx context.Context, windowDays int) (map[string]any, error) {
	stats, err := p.analytics.Stats(ctx, windowDays)
	if err != nil {
		return nil, err
	}
	intents, err := p.analytics.IntentBreakdown(ctx)
	if err != nil {
		return nil, err
	}
	trends, err := p.analytics.Sentiment(ctx, windowDays)
	if err != nil {
		return nil, err
	}
	strategies, err := p.analytics.StrategyEffectiveness(ctx)
	if err != nil {
		return nil, err
	}
	engagement, err := p.analytics.Engagement(ctx)
	if err != nil {
		return nil, err
	}

	return map[string]any{
		"conversations": stats,
		"intents":       intents,
		"sentiment":     trends,
		"strategies":    strategies,
		"engagement":    engagement,
	}, nil
}

// Report renders the markdown analytics report.
func (p *Pipeline) Report(ctx context.Context, windowDays int) (string, error) {
	return p.analytics.Report(ctx, windowDays)
}

// Insights returns the analytics health insights.
func (p *Pipeline) Insights(ctx context.Context) ([]analytics.Insight, error) {
	return p.analytics.Insights(ctx)
}

// LearningSummary returns the learner's self-report.
func (p *Pipeline) LearningSummary() learning.Summary {
	if p.learner == nil {
		return learning.Summary{}
	}
	return p.learner.Insights()
}
