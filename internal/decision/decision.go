// Package decision selects the response strategy for a turn. The
// engine is pure and total: the same signals always produce the same
// decision, every branch carries a human-readable reason, and there is
// no failure path — low-confidence situations are reported, not raised.
package decision

import (
	"fmt"
	"sort"
	"strings"

	"github.com/soline/banter/internal/sentiment"
)

// Strategy identifies a response-generation method.
type Strategy string

const (
	StrategyFAQ        Strategy = "faq"
	StrategyRuleBased  Strategy = "rule_based"
	StrategyGenerative Strategy = "generative_ai"
	StrategyFallback   Strategy = "fallback"
)

// PriorityOrder is the fixed precedence when multiple strategies are
// eligible. Earlier entries always win; confidence magnitude is never
// used as a tie-breaker. Tests assert this ordering directly.
var PriorityOrder = []Strategy{
	StrategyFAQ,
	StrategyRuleBased,
	StrategyGenerative,
	StrategyFallback,
}

// FallbackKind refines the fallback strategy by user state.
type FallbackKind string

const (
	FallbackEmpathetic FallbackKind = "empathetic"
	FallbackClarifying FallbackKind = "clarifying"
	FallbackFriendly   FallbackKind = "friendly"
)

// Context is the read-only conversation view the engine consults. The
// engine never mutates it.
type Context struct {
	// HistoryDepth is the number of prior turns in the current
	// conversation window. More than 2 signals a complex multi-turn
	// exchange worth routing to the generative backend.
	HistoryDepth int
}

// Decision is the routing outcome for one turn.
type Decision struct {
	Strategy   Strategy
	Confidence float64
	Reasoning  string
	// FAQAnswer carries the matched answer when Strategy is faq.
	FAQAnswer string
	// FallbackKind is set when Strategy is fallback.
	FallbackKind FallbackKind
}

// Engine holds the curated FAQ knowledge the first decision stage
// matches against. Engines are safe for concurrent use: all fields are
// read-only after construction.
type Engine struct {
	faq      map[string]string
	keyTerms map[string]string
}

// NewEngine creates a decision engine over the given FAQ and key-term
// tables. Nil maps are treated as empty.
func NewEngine(faq, keyTerms map[string]string) *Engine {
	if faq == nil {
		faq = map[string]string{}
	}
	if keyTerms == nil {
		keyTerms = map[string]string{}
	}
	return &Engine{faq: faq, keyTerms: keyTerms}
}

// ruleBasedIntents and generativeIntents gate stages 2 and 3 of the
// priority chain.
var ruleBasedIntents = map[string]bool{"greeting": true, "goodbye": true, "compliment": true}
var generativeIntents = map[string]bool{"question": true, "general": true, "help": true}

// Decide maps one turn's signals to a routing decision. It evaluates
// the stages of PriorityOrder in sequence and returns on the first
// match; the final fallback stage always matches, so Decide is total.
func (e *Engine) Decide(text, intent string, confidence float64, sent sentiment.Score, ctx Context) Decision {
	// Stage 1: FAQ. A match beats everything regardless of intent,
	// confidence, or sentiment.
	if answer, conf, reason := e.matchFAQ(text); answer != "" {
		return Decision{
			Strategy:   StrategyFAQ,
			Confidence: conf,
			Reasoning:  reason,
			FAQAnswer:  answer,
		}
	}

	// Stage 2: rule-based for high-confidence social intents, and as
	// the catch-all for low-confidence classifications.
	if ruleBasedIntents[intent] && confidence > 0.7 {
		return Decision{
			Strategy:   StrategyRuleBased,
			Confidence: confidence,
			Reasoning:  fmt.Sprintf("rule-based suitable for %s with confidence %.2f", intent, confidence),
		}
	}
	if confidence < 0.4 {
		return Decision{
			Strategy:   StrategyRuleBased,
			Confidence: confidence,
			Reasoning:  fmt.Sprintf("low classifier confidence %.2f, using rule-based catch-all", confidence),
		}
	}

	// Stage 3: generative for substantive intents, or any deep
	// multi-turn exchange.
	if generativeIntents[intent] && confidence > 0.6 {
		return Decision{
			Strategy:   StrategyGenerative,
			Confidence: confidence,
			Reasoning:  fmt.Sprintf("complex query suitable for generative backend: %s", intent),
		}
	}
	if ctx.HistoryDepth > 2 {
		return Decision{
			Strategy:   StrategyGenerative,
			Confidence: confidence,
			Reasoning:  fmt.Sprintf("deep conversation (%d prior turns), routing to generative backend", ctx.HistoryDepth),
		}
	}

	// Stage 4: fallback, flavored by user state.
	kind := fallbackKind(intent, sent)
	return Decision{
		Strategy:     StrategyFallback,
		Confidence:   confidence,
		Reasoning:    fmt.Sprintf("no primary strategy eligible, using %s fallback", kind),
		FallbackKind: kind,
	}
}

// matchFAQ tries exact match, then Jaccard similarity over word sets,
// then key-term substrings. Returns ("", 0, "") when nothing matches.
func (e *Engine) matchFAQ(text string) (answer string, confidence float64, reason string) {
	normalized := strings.ToLower(strings.TrimSpace(text))

	if a, ok := e.faq[normalized]; ok {
		return a, 0.95, "direct FAQ match"
	}

	// Iterate in sorted key order so equal similarity scores resolve
	// the same way on every call. Determinism is part of the contract.
	bestScore := 0.0
	bestAnswer := ""
	for _, key := range sortedKeys(e.faq) {
		if s := jaccard(normalized, key); s > 0.5 && s > bestScore {
			bestScore = s
			bestAnswer = e.faq[key]
		}
	}
	if bestAnswer != "" {
		return bestAnswer, bestScore, fmt.Sprintf("fuzzy FAQ match (similarity %.2f)", bestScore)
	}

	for _, term := range sortedKeys(e.keyTerms) {
		if strings.Contains(normalized, term) {
			return e.keyTerms[term], 0.8, fmt.Sprintf("key term match: %q", term)
		}
	}

	return "", 0, ""
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// jaccard computes word-set intersection over union for two strings.
func jaccard(a, b string) float64 {
	setA := wordSet(a)
	setB := wordSet(b)
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}

	intersection := 0
	for w := range setA {
		if setB[w] {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	return float64(intersection) / float64(union)
}

func wordSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range strings.Fields(s) {
		set[w] = true
	}
	return set
}

// fallbackKind picks the fallback flavor: frustrated users get empathy,
// questions get a clarifying redirect, everyone else a friendly nudge.
func fallbackKind(intent string, sent sentiment.Score) FallbackKind {
	if sent.Label == sentiment.Negative || hasEmotion(sent, "anger") {
		return FallbackEmpathetic
	}
	if intent == "question" {
		return FallbackClarifying
	}
	return FallbackFriendly
}

func hasEmotion(sent sentiment.Score, emotion string) bool {
	for _, e := range sent.Emotions {
		if e == emotion {
			return true
		}
	}
	return false
}
