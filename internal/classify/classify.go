// Package classify assigns an intent label and confidence to each user
// message. Fixed priority rules handle the unambiguous cases (greetings,
// goodbyes, questions); a retrainable keyword model covers the rest.
package classify

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/soline/banter/internal/normalize"
)

// Example is one labeled training sample.
type Example struct {
	Text  string
	Label string
}

// Result is a classification outcome.
type Result struct {
	Intent     string
	Confidence float64
}

// Classifier maps message text to an intent. Rule evaluation is
// stateless; the keyword model behind the rules can be retrained at
// runtime, so reads and retrains are guarded by a lock.
type Classifier struct {
	mu     sync.RWMutex
	model  map[string]map[string]int // token → label → weight
	labels []string
	logger *slog.Logger
}

// New creates a classifier seeded from the given intent keyword sets.
func New(seed map[string][]string, logger *slog.Logger) *Classifier {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Classifier{logger: logger}

	var examples []Example
	for label, phrases := range seed {
		for _, p := range phrases {
			examples = append(examples, Example{Text: p, Label: label})
		}
	}
	c.train(examples)
	return c
}

var greetingWords = []string{"hello", "hi", "hey", "good morning", "good afternoon", "good evening", "greetings"}
var goodbyeWords = []string{"bye", "goodbye", "see you", "farewell", "exit", "quit"}
var complimentWords = []string{"thank", "thanks", "good job", "well done", "excellent", "amazing", "great"}
var helpPhrases = []string{"help me", "can you help", "need help", "assist me", "support me"}
var questionStarters = []string{"what is", "what are", "how does", "how do", "tell me about", "explain", "describe", "define"}
var questionWords = map[string]bool{
	"what": true, "how": true, "when": true, "where": true,
	"why": true, "who": true, "which": true,
}

// Classify returns the intent label and confidence for a message. It is
// total: unmatched input classifies as "general" with confidence 0.6.
func (c *Classifier) Classify(text string) Result {
	lower := strings.ToLower(strings.TrimSpace(text))

	// Greeting wins first, unless the message is really a question
	// that merely contains a greeting word.
	if matchesAny(lower, greetingWords) && !looksLikeQuestion(lower) {
		return Result{Intent: "greeting", Confidence: 0.95}
	}

	if matchesAny(lower, goodbyeWords) {
		return Result{Intent: "goodbye", Confidence: 0.9}
	}

	if matchesAny(lower, complimentWords) {
		return Result{Intent: "compliment", Confidence: 0.85}
	}

	if containsAny(lower, helpPhrases) {
		return Result{Intent: "help", Confidence: 0.9}
	}

	if containsAny(lower, questionStarters) || strings.Contains(text, "?") {
		return Result{Intent: "question", Confidence: 0.95}
	}
	if words := strings.Fields(lower); len(words) > 0 && questionWords[words[0]] {
		return Result{Intent: "question", Confidence: 0.9}
	}

	// Keyword model as a last resort before the general bucket.
	if intent, conf, ok := c.predict(lower); ok && conf > 0.7 {
		return Result{Intent: intent, Confidence: conf}
	}

	return Result{Intent: "general", Confidence: 0.6}
}

// Retrain rebuilds the keyword model from the combined example corpus.
// Returns false when the corpus is too small to bother (callers treat
// this as "declined", not an error).
func (c *Classifier) Retrain(examples []Example) bool {
	if len(examples) <= 50 {
		c.logger.Debug("retrain declined, corpus too small", "examples", len(examples))
		return false
	}

	c.train(examples)
	c.logger.Info("intent model retrained", "examples", len(examples), "labels", len(c.Labels()))
	return true
}

// Labels returns the labels currently known to the keyword model.
func (c *Classifier) Labels() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, len(c.labels))
	copy(out, c.labels)
	return out
}

func (c *Classifier) train(examples []Example) {
	model := make(map[string]map[string]int)
	seen := make(map[string]bool)
	var labels []string

	for _, ex := range examples {
		if !seen[ex.Label] {
			seen[ex.Label] = true
			labels = append(labels, ex.Label)
		}
		for _, tok := range normalize.Tokenize(ex.Text) {
			if model[tok] == nil {
				model[tok] = make(map[string]int)
			}
			model[tok][ex.Label]++
		}
	}

	c.mu.Lock()
	c.model = model
	c.labels = labels
	c.mu.Unlock()
}

// predict scores each label by summing per-token weights and returns
// the winner with its share of the total score as confidence.
func (c *Classifier) predict(text string) (string, float64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	scores := make(map[string]int)
	total := 0
	for _, tok := range normalize.Tokenize(text) {
		for label, w := range c.model[tok] {
			scores[label] += w
			total += w
		}
	}
	if total == 0 {
		return "", 0, false
	}

	best := ""
	bestScore := 0
	for _, label := range c.labels {
		if s := scores[label]; s > bestScore {
			best = label
			bestScore = s
		}
	}
	return best, float64(bestScore) / float64(total), true
}

func containsAny(text string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(text, n) {
			return true
		}
	}
	return false
}

// matchesAny matches single-word needles on word boundaries and
// multi-word needles as substrings. Plain substring matching would let
// "hi" fire inside "this".
func matchesAny(text string, needles []string) bool {
	words := strings.Fields(text)
	for i, w := range words {
		words[i] = strings.Trim(w, ".,!?-")
	}

	for _, n := range needles {
		if strings.ContainsRune(n, ' ') {
			if strings.Contains(text, n) {
				return true
			}
			continue
		}
		for _, w := range words {
			if w == n || strings.HasPrefix(w, n+"'") {
				return true
			}
		}
	}
	return false
}

func looksLikeQuestion(text string) bool {
	for w := range questionWords {
		if strings.Contains(text, w) {
			return true
		}
	}
	return strings.Contains(text, "?")
}
