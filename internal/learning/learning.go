// Package learning maintains the adaptation corpus: patterns mined from
// successful and failed turns, explicit user feedback, and the accuracy
// history. Every mutation checkpoints the corpus into the outcome store
// so a restart resumes where the last run stopped.
package learning

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/soline/banter/internal/classify"
	"github.com/soline/banter/internal/store"
)

// Corpus bounds. Oldest entries are evicted first. The successful and
// failed pattern bounds apply per intent, not across the whole corpus,
// so a noisy intent cannot evict another intent's signal.
const (
	maxPatternsPerTurn = 10
	maxSuccessful      = 50
	maxFailed          = 20
	maxFeedback        = 500
	maxDiscoveries     = 200
	maxSnapshots       = 90
)

// retrainThreshold is the combined example count above which a
// classifier retrain is worth attempting.
const retrainThreshold = 50

// strategyWindow bounds how far back strategy analysis looks. Only the
// most recent outcomes feed the suggestion rates, so an old losing
// streak cannot depress a strategy forever.
const strategyWindow = 100

// Store is the slice of the outcome store the learner needs.
type Store interface {
	SaveCorpus(ctx context.Context, payload []byte) error
	LoadCorpus(ctx context.Context) ([]byte, error)
	StrategyOutcomes(ctx context.Context, limit int) ([]store.StrategyOutcome, error)
}

// Retrainer rebuilds an intent model from examples. Retrain returns
// false when it declines (corpus too small).
type Retrainer interface {
	Retrain(examples []classify.Example) bool
}

// TrainingExample is a pattern mined from a successful turn.
type TrainingExample struct {
	Pattern   string    `json:"pattern"`
	Timestamp time.Time `json:"timestamp"`
}

// FailedPattern is a pattern mined from a failed turn.
type FailedPattern struct {
	Pattern   string    `json:"pattern"`
	Intent    string    `json:"intent"`
	Strategy  string    `json:"strategy"`
	Timestamp time.Time `json:"timestamp"`
}

// IntentImprovement is one intent's slice of the corpus: its mined
// patterns plus any standing retrain suggestions.
type IntentImprovement struct {
	Successful  []TrainingExample `json:"successful"`
	Failed      []FailedPattern   `json:"failed"`
	Suggestions []string          `json:"suggestions,omitempty"`
}

// FeedbackEntry is one explicit user rating of a response.
type FeedbackEntry struct {
	UserID    string    `json:"user_id"`
	Message   string    `json:"message"`
	Response  string    `json:"response"`
	Rating    int       `json:"rating"` // 1..5
	Comment   string    `json:"comment,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Positive reports whether the rating counts as a success.
func (f FeedbackEntry) Positive() bool { return f.Rating >= 3 }

// PatternDiscovery tracks a recurring pattern and how often it appears.
// The (Pattern, Intent) pair is unique within the corpus.
type PatternDiscovery struct {
	Pattern   string    `json:"pattern"`
	Intent    string    `json:"intent"`
	Frequency int       `json:"frequency"`
	FirstSeen time.Time `json:"first_seen"`
}

// IntentTally is one intent's share of a day.
type IntentTally struct {
	Total      int `json:"total"`
	Successful int `json:"successful"`
}

// AccuracySnapshot holds one day's turn counts. Totals cover that day
// only; the 90-entry history is a daily trend, not a running average.
type AccuracySnapshot struct {
	Date       string                 `json:"date"` // YYYY-MM-DD
	PerIntent  map[string]IntentTally `json:"per_intent"`
	Total      int                    `json:"total"`
	Successful int                    `json:"successful"`
	Accuracy   float64                `json:"accuracy"` // percent
}

// Suggestion is one improvement recommendation.
type Suggestion struct {
	Priority string `json:"priority"` // high, medium, low
	Category string `json:"category"`
	Message  string `json:"message"`
}

// corpus is the serialized learner state.
type corpus struct {
	TotalTurns      int                           `json:"total_turns"`
	SuccessfulTurns int                           `json:"successful_turns"`
	Intents         map[string]*IntentImprovement `json:"intents"`
	Feedback        []FeedbackEntry               `json:"feedback"`
	Discoveries     []PatternDiscovery            `json:"discoveries"`
	Snapshots       []AccuracySnapshot            `json:"snapshots"`
	Suggestions     []Suggestion                  `json:"suggestions"`
}

// improvement returns the named intent's corpus slice, creating it on
// first use. Caller holds the lock.
func (c *corpus) improvement(intent string) *IntentImprovement {
	if c.Intents == nil {
		c.Intents = make(map[string]*IntentImprovement)
	}
	imp := c.Intents[intent]
	if imp == nil {
		imp = &IntentImprovement{}
		c.Intents[intent] = imp
	}
	return imp
}

// Turn is the slice of a processed turn the learner consumes.
type Turn struct {
	UserID   string
	Text     string
	Intent   string
	Strategy string
	Success  bool
}

// Learner accumulates the corpus and drives adaptation. Safe for
// concurrent use.
type Learner struct {
	mu          sync.Mutex
	corpus      corpus
	store       Store
	classifier  Retrainer
	seedIntents map[string][]string
	logger      *slog.Logger
	nowFunc     func() time.Time
}

// New creates a learner. store may be nil, in which case the corpus
// lives only in memory. seedIntents is the configured intent keyword
// table; it anchors retraining and suppresses redundant new-intent
// suggestions.
func New(st Store, classifier Retrainer, seedIntents map[string][]string, logger *slog.Logger) *Learner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Learner{
		store:       st,
		classifier:  classifier,
		seedIntents: seedIntents,
		logger:      logger,
		nowFunc:     time.Now,
	}
}

// Restore loads the last checkpointed corpus. A missing checkpoint is
// not an error; the learner starts empty.
func (l *Learner) Restore(ctx context.Context) error {
	if l.store == nil {
		return nil
	}
	payload, err := l.store.LoadCorpus(ctx)
	if err != nil {
		return fmt.Errorf("restore learning corpus: %w", err)
	}
	if payload == nil {
		return nil
	}

	var c corpus
	if err := json.Unmarshal(payload, &c); err != nil {
		return fmt.Errorf("decode learning corpus: %w", err)
	}

	l.mu.Lock()
	l.corpus = c
	l.mu.Unlock()
	l.logger.Info("learning corpus restored",
		"intents", len(c.Intents), "feedback", len(c.Feedback), "discoveries", len(c.Discoveries))
	return nil
}

// LearnFromTurn folds one processed turn into the corpus: mines
// patterns into the turn's intent bucket, updates discoveries and the
// daily accuracy snapshot, and checkpoints. It never fails; checkpoint
// errors are logged and the in-memory corpus stays authoritative.
func (l *Learner) LearnFromTurn(ctx context.Context, turn Turn) {
	now := l.nowFunc()
	patterns := ExtractPatterns(turn.Text)

	l.mu.Lock()
	c := &l.corpus
	c.TotalTurns++
	imp := c.improvement(turn.Intent)
	if turn.Success {
		c.SuccessfulTurns++
		for _, p := range patterns {
			imp.Successful = append(imp.Successful, TrainingExample{Pattern: p, Timestamp: now})
		}
		trimOldest(&imp.Successful, maxSuccessful)
	} else {
		for _, p := range patterns {
			imp.Failed = append(imp.Failed, FailedPattern{
				Pattern: p, Intent: turn.Intent, Strategy: turn.Strategy, Timestamp: now,
			})
		}
		trimOldest(&imp.Failed, maxFailed)
		if len(imp.Failed) > 5 {
			msg := fmt.Sprintf("intent %q is accumulating failed patterns, retrain with more examples", turn.Intent)
			if !containsString(imp.Suggestions, msg) {
				imp.Suggestions = append(imp.Suggestions, msg)
			}
		}
	}

	for _, p := range patterns {
		l.recordDiscovery(p, turn.Intent, now)
	}
	l.snapshotAccuracy(now, turn.Intent, turn.Success)
	l.mu.Unlock()

	l.checkpoint(ctx)
}

// AddFeedback records an explicit rating. Ratings of 3 and above count
// as positive.
func (l *Learner) AddFeedback(ctx context.Context, fb FeedbackEntry) {
	if fb.Timestamp.IsZero() {
		fb.Timestamp = l.nowFunc()
	}

	l.mu.Lock()
	l.corpus.Feedback = append(l.corpus.Feedback, fb)
	trimOldest(&l.corpus.Feedback, maxFeedback)
	l.mu.Unlock()

	l.logger.Debug("feedback recorded", "user", fb.UserID, "rating", fb.Rating)
	l.checkpoint(ctx)
}

// recordDiscovery increments an existing (pattern, intent) discovery or
// appends a new one. Caller holds the lock.
func (l *Learner) recordDiscovery(pattern, intent string, now time.Time) {
	for i := range l.corpus.Discoveries {
		d := &l.corpus.Discoveries[i]
		if d.Pattern == pattern && d.Intent == intent {
			d.Frequency++
			return
		}
	}
	l.corpus.Discoveries = append(l.corpus.Discoveries, PatternDiscovery{
		Pattern: pattern, Intent: intent, Frequency: 1, FirstSeen: now,
	})
	trimOldest(&l.corpus.Discoveries, maxDiscoveries)
}

// snapshotAccuracy folds one turn into today's snapshot, starting a
// fresh one when the date rolls over. Accuracy is recomputed from the
// day's per-intent tallies alone. Caller holds the lock.
func (l *Learner) snapshotAccuracy(now time.Time, intent string, success bool) {
	c := &l.corpus
	today := now.UTC().Format("2006-01-02")

	n := len(c.Snapshots)
	if n == 0 || c.Snapshots[n-1].Date != today {
		c.Snapshots = append(c.Snapshots, AccuracySnapshot{
			Date:      today,
			PerIntent: make(map[string]IntentTally),
		})
		trimOldest(&c.Snapshots, maxSnapshots)
	}
	snap := &c.Snapshots[len(c.Snapshots)-1]
	if snap.PerIntent == nil {
		snap.PerIntent = make(map[string]IntentTally)
	}

	tally := snap.PerIntent[intent]
	tally.Total++
	if success {
		tally.Successful++
	}
	snap.PerIntent[intent] = tally

	snap.Total, snap.Successful = 0, 0
	for _, t := range snap.PerIntent {
		snap.Total += t.Total
		snap.Successful += t.Successful
	}
	snap.Accuracy = 0
	if snap.Total > 0 {
		snap.Accuracy = 100 * float64(snap.Successful) / float64(snap.Total)
	}
}

// checkpoint writes the corpus through to the store. Failures are
// logged, not returned: losing a checkpoint must never break a turn.
func (l *Learner) checkpoint(ctx context.Context) {
	if l.store == nil {
		return
	}

	l.mu.Lock()
	payload, err := json.Marshal(l.corpus)
	l.mu.Unlock()
	if err != nil {
		l.logger.Error("encode learning corpus", "error", err)
		return
	}
	if err := l.store.SaveCorpus(ctx, payload); err != nil {
		l.logger.Error("checkpoint learning corpus", "error", err)
	}
}

// GenerateSuggestions runs the improvement analyzers and replaces the
// stored suggestion list with the result.
func (l *Learner) GenerateSuggestions(ctx context.Context) []Suggestion {
	var suggestions []Suggestion

	type intentCounts struct {
		name       string
		successful int
		failed     int
	}

	l.mu.Lock()
	intents := make([]intentCounts, 0, len(l.corpus.Intents))
	for name, imp := range l.corpus.Intents {
		intents = append(intents, intentCounts{name, len(imp.Successful), len(imp.Failed)})
	}
	discoveries := make([]PatternDiscovery, len(l.corpus.Discoveries))
	copy(discoveries, l.corpus.Discoveries)
	l.mu.Unlock()

	sort.Slice(intents, func(i, j int) bool { return intents[i].name < intents[j].name })
	for _, in := range intents {
		if in.failed > 10 {
			suggestions = append(suggestions, Suggestion{
				Priority: "high",
				Category: "intent_improvement",
				Message:  fmt.Sprintf("retrain intent %q, %d failed patterns accumulated", in.name, in.failed),
			})
		}
		if in.successful > 50 && in.failed < 5 {
			suggestions = append(suggestions, Suggestion{
				Priority: "low",
				Category: "intent_optimization",
				Message:  fmt.Sprintf("intent %q is performing well, use it as a template for weaker intents", in.name),
			})
		}
	}

	suggestions = append(suggestions, l.strategySuggestions(ctx)...)
	suggestions = append(suggestions, l.newIntentSuggestions(discoveries)...)

	l.mu.Lock()
	l.corpus.Suggestions = suggestions
	l.mu.Unlock()
	l.checkpoint(ctx)
	return suggestions
}

// strategySuggestions flags strategies that have at least 10 samples in
// the recent outcome window and perform outside the healthy band.
func (l *Learner) strategySuggestions(ctx context.Context) []Suggestion {
	if l.store == nil {
		return nil
	}
	outcomes, err := l.store.StrategyOutcomes(ctx, strategyWindow)
	if err != nil {
		l.logger.Warn("strategy outcomes unavailable for suggestions", "error", err)
		return nil
	}

	attempts := make(map[string]int)
	successes := make(map[string]int)
	for _, o := range outcomes {
		attempts[o.Strategy]++
		if o.Success {
			successes[o.Strategy]++
		}
	}

	names := make([]string, 0, len(attempts))
	for name := range attempts {
		names = append(names, name)
	}
	sort.Strings(names)

	var out []Suggestion
	for _, name := range names {
		n := attempts[name]
		if n < 10 {
			continue
		}
		rate := 100 * float64(successes[name]) / float64(n)
		switch {
		case rate < 60:
			out = append(out, Suggestion{
				Priority: "high",
				Category: "strategy_performance",
				Message:  fmt.Sprintf("strategy %s succeeding only %.1f%% of the time over %d attempts", name, rate, n),
			})
		case rate > 90:
			out = append(out, Suggestion{
				Priority: "low",
				Category: "strategy_performance",
				Message:  fmt.Sprintf("strategy %s at %.1f%% success, could handle more traffic", name, rate),
			})
		}
	}
	return out
}

// newIntentSuggestions proposes intents for patterns whose cumulative
// frequency across discoveries exceeds 10, skipping patterns already
// covered by a configured intent keyword.
func (l *Learner) newIntentSuggestions(discoveries []PatternDiscovery) []Suggestion {
	freq := make(map[string]int)
	for _, d := range discoveries {
		freq[d.Pattern] += d.Frequency
	}

	patterns := make([]string, 0, len(freq))
	for p := range freq {
		patterns = append(patterns, p)
	}
	sort.Strings(patterns)

	var out []Suggestion
	for _, p := range patterns {
		if freq[p] <= 10 || l.patternCovered(p) {
			continue
		}
		out = append(out, Suggestion{
			Priority: "medium",
			Category: "new_intent",
			Message:  fmt.Sprintf("pattern %q seen %d times with no covering intent, consider a dedicated intent", p, freq[p]),
		})
	}
	return out
}

// patternCovered reports whether any configured intent keyword already
// appears in the pattern.
func (l *Learner) patternCovered(pattern string) bool {
	for _, keywords := range l.seedIntents {
		for _, kw := range keywords {
			if strings.Contains(pattern, kw) {
				return true
			}
		}
	}
	return false
}

// FallbackReport summarizes what the agent is failing on.
type FallbackReport struct {
	FailedCount   int
	CommonIntents []string // sorted by failed-pattern count
	RecentFailed  []FailedPattern
}

// AnalyzeFallbacks reports on the failed-pattern corpus across all
// intents.
func (l *Learner) AnalyzeFallbacks() FallbackReport {
	l.mu.Lock()
	defer l.mu.Unlock()

	var report FallbackReport
	counts := make(map[string]int)
	var all []FailedPattern
	for intent, imp := range l.corpus.Intents {
		if len(imp.Failed) == 0 {
			continue
		}
		counts[intent] = len(imp.Failed)
		report.FailedCount += len(imp.Failed)
		all = append(all, imp.Failed...)
	}

	for intent := range counts {
		report.CommonIntents = append(report.CommonIntents, intent)
	}
	sort.Slice(report.CommonIntents, func(i, j int) bool {
		a, b := report.CommonIntents[i], report.CommonIntents[j]
		if counts[a] != counts[b] {
			return counts[a] > counts[b]
		}
		return a < b
	})

	sort.Slice(all, func(i, j int) bool { return all[i].Timestamp.Before(all[j].Timestamp) })
	start := len(all) - 5
	if start < 0 {
		start = 0
	}
	report.RecentFailed = append(report.RecentFailed, all[start:]...)
	return report
}

// ImproveClassifier retrains the intent model when enough examples have
// accumulated: mined successful patterns per intent, positively rated
// feedback messages, and the original seed keyword sets so a retrain
// never forgets the base vocabulary. Returns true when a retrain
// actually happened.
func (l *Learner) ImproveClassifier(ctx context.Context) bool {
	if l.classifier == nil {
		return false
	}

	l.mu.Lock()
	var examples []classify.Example
	for _, intent := range sortedKeys(l.corpus.Intents) {
		for _, ex := range l.corpus.Intents[intent].Successful {
			examples = append(examples, classify.Example{Text: ex.Pattern, Label: intent})
		}
	}
	for _, fb := range l.corpus.Feedback {
		if fb.Positive() && fb.Message != "" {
			examples = append(examples, classify.Example{Text: fb.Message, Label: "general"})
		}
	}
	l.mu.Unlock()

	for _, intent := range sortedKeys(l.seedIntents) {
		for _, phrase := range l.seedIntents[intent] {
			examples = append(examples, classify.Example{Text: phrase, Label: intent})
		}
	}

	if len(examples) <= retrainThreshold {
		l.logger.Debug("not enough examples to retrain", "examples", len(examples))
		return false
	}

	if !l.classifier.Retrain(examples) {
		return false
	}
	l.logger.Info("classifier improved from corpus", "examples", len(examples))
	l.checkpoint(ctx)
	return true
}

// Summary is the learner's self-report.
type Summary struct {
	TotalTurns      int
	SuccessfulTurns int
	OverallAccuracy float64 // percent
	PatternsLearned int
	FailedPatterns  int
	FeedbackCount   int
	AvgRating       float64
	Discoveries     int
	Suggestions     []Suggestion
}

// Insights summarizes the corpus state.
func (l *Learner) Insights() Summary {
	l.mu.Lock()
	defer l.mu.Unlock()

	c := l.corpus
	s := Summary{
		TotalTurns:      c.TotalTurns,
		SuccessfulTurns: c.SuccessfulTurns,
		FeedbackCount:   len(c.Feedback),
		Discoveries:     len(c.Discoveries),
		Suggestions:     append([]Suggestion(nil), c.Suggestions...),
	}
	for _, imp := range c.Intents {
		s.PatternsLearned += len(imp.Successful)
		s.FailedPatterns += len(imp.Failed)
	}
	if c.TotalTurns > 0 {
		s.OverallAccuracy = 100 * float64(c.SuccessfulTurns) / float64(c.TotalTurns)
	}
	if len(c.Feedback) > 0 {
		total := 0
		for _, fb := range c.Feedback {
			total += fb.Rating
		}
		s.AvgRating = float64(total) / float64(len(c.Feedback))
	}
	return s
}

// ExtractPatterns mines up to 10 candidate patterns from a message's
// raw lowercased words: unigrams longer than 3 characters, bigrams
// longer than 6, trigrams longer than 10.
func ExtractPatterns(text string) []string {
	words := strings.Fields(strings.ToLower(text))

	var patterns []string
	add := func(p string, minLen int) bool {
		if len(patterns) >= maxPatternsPerTurn {
			return false
		}
		if len(p) > minLen {
			patterns = append(patterns, p)
		}
		return true
	}

	for _, w := range words {
		if !add(w, 3) {
			return patterns
		}
	}
	for i := 0; i+1 < len(words); i++ {
		if !add(words[i]+" "+words[i+1], 6) {
			return patterns
		}
	}
	for i := 0; i+2 < len(words); i++ {
		if !add(words[i]+" "+words[i+1]+" "+words[i+2], 10) {
			return patterns
		}
	}
	return patterns
}

// trimOldest drops leading entries until the slice fits the bound.
func trimOldest[T any](s *[]T, max int) {
	if over := len(*s) - max; over > 0 {
		*s = append([]T(nil), (*s)[over:]...)
	}
}

func containsString(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
