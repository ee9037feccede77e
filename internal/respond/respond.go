// Package respond turns a routing decision into reply text. Template
// selection is seeded by the message text so the same input always
// produces the same reply; there is no randomness anywhere in the path.
package respond

import (
	"context"
	"fmt"
	"hash/fnv"
	"log/slog"
	"strings"

	"github.com/soline/banter/internal/decision"
	"github.com/soline/banter/internal/genai"
	"github.com/soline/banter/internal/sentiment"
)

// Generator produces text from the generative backend. Errors degrade
// the responder to enhanced rules, never surface to the user.
type Generator interface {
	Complete(ctx context.Context, messages []genai.Message) (string, error)
}

// Request carries everything the responder needs for one turn.
type Request struct {
	Text      string
	Intent    string
	Sentiment sentiment.Score
	Decision  decision.Decision
	// History is the recent conversation window, oldest first, for the
	// generative backend.
	History []genai.Message
}

// Response is a rendered reply.
type Response struct {
	Text     string
	Strategy decision.Strategy
	// Degraded is set when the generative backend failed and enhanced
	// rules produced the reply instead.
	Degraded bool
}

// Responder renders replies for every strategy.
type Responder struct {
	generator Generator
	logger    *slog.Logger
}

// New creates a responder. generator may be nil, in which case the
// generative strategy always degrades to enhanced rules.
func New(generator Generator, logger *slog.Logger) *Responder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Responder{generator: generator, logger: logger}
}

// Respond renders the reply for a decided turn.
func (r *Responder) Respond(ctx context.Context, req Request) Response {
	switch req.Decision.Strategy {
	case decision.StrategyFAQ:
		return Response{Text: frameFAQ(req.Decision.FAQAnswer, req.Sentiment), Strategy: decision.StrategyFAQ}
	case decision.StrategyRuleBased:
		return Response{Text: r.ruleBased(req), Strategy: decision.StrategyRuleBased}
	case decision.StrategyGenerative:
		return r.generative(ctx, req)
	default:
		return Response{Text: fallbackReply(req), Strategy: decision.StrategyFallback}
	}
}

// frameFAQ wraps a knowledge answer in sentiment-appropriate framing.
func frameFAQ(answer string, sent sentiment.Score) string {
	switch sent.Label {
	case sentiment.Negative:
		return "I understand this might be frustrating. " + answer
	case sentiment.Positive:
		return answer + " Glad I could help!"
	default:
		return answer
	}
}

var ruleTemplates = map[string][]string{
	"greeting": {
		"Hello! How can I help you today?",
		"Hi there! What can I do for you?",
		"Hey! Great to see you. What's on your mind?",
	},
	"goodbye": {
		"Goodbye! Have a great day!",
		"See you later! Feel free to come back anytime.",
		"Take care! It was nice chatting with you.",
	},
	"compliment": {
		"Thank you! That's very kind of you.",
		"I appreciate that! Happy to help anytime.",
		"You're welcome! Glad I could be useful.",
	},
	"complaint": {
		"I'm sorry to hear that. Let me see how I can help.",
		"That doesn't sound good. Tell me more so I can assist.",
	},
}

// ruleBased renders a deterministic template for social intents, with a
// tone adjustment when the user sounds upset or delighted.
func (r *Responder) ruleBased(req Request) string {
	templates := ruleTemplates[req.Intent]
	if len(templates) == 0 {
		templates = []string{"I see. Could you tell me a bit more about that?"}
	}
	reply := templates[pick(req.Text, len(templates))]

	if req.Sentiment.Label == sentiment.Negative && req.Intent != "complaint" {
		reply = "I sense some frustration. " + reply
	}
	if hasEmotion(req.Sentiment, "joy") && req.Intent == "greeting" {
		reply += " You sound like you're in a great mood!"
	}
	return reply
}

const systemPrompt = "You are a friendly, concise conversational assistant. " +
	"Answer helpfully in a few sentences. If you are unsure, say so honestly."

// generative asks the backend for a reply and degrades to enhanced
// rules when the backend is unavailable or errors.
func (r *Responder) generative(ctx context.Context, req Request) Response {
	if r.generator != nil {
		messages := make([]genai.Message, 0, len(req.History)+2)
		messages = append(messages, genai.Message{Role: "system", Content: systemPrompt})
		messages = append(messages, req.History...)
		messages = append(messages, genai.Message{Role: "user", Content: req.Text})

		reply, err := r.generator.Complete(ctx, messages)
		if err == nil {
			return Response{Text: reply, Strategy: decision.StrategyGenerative}
		}
		r.logger.Warn("generative backend failed, degrading to rules", "error", err)
	}

	return Response{
		Text:     enhancedRules(req.Text),
		Strategy: decision.StrategyGenerative,
		Degraded: true,
	}
}

// topicAnswers are the curated answers the degraded generative path
// serves for known subjects.
var topicAnswers = []struct {
	keywords []string
	answer   string
}{
	{[]string{"data science"}, "Data science combines statistics, programming, and domain knowledge to extract insights from data. It covers collection, cleaning, analysis, and communicating results."},
	{[]string{"machine learning", " ml "}, "Machine learning is a branch of AI where systems learn patterns from data instead of being explicitly programmed. Common kinds are supervised, unsupervised, and reinforcement learning."},
	{[]string{"artificial intelligence", " ai "}, "Artificial intelligence is the field of building systems that perform tasks normally requiring human intelligence, such as understanding language, recognizing images, and making decisions."},
	{[]string{"python"}, "Python is a versatile programming language popular for data work thanks to its readable syntax and libraries like pandas, NumPy, and scikit-learn."},
	{[]string{"decision tree"}, "A decision tree is a model that splits data by feature values into branches, making predictions at the leaves. It's easy to interpret but can overfit without pruning."},
	{[]string{"7 c", "seven c"}, "The 7 C's of communication are: clear, concise, concrete, correct, coherent, complete, and courteous."},
}

// enhancedRules is the offline stand-in for the generative backend.
func enhancedRules(text string) string {
	padded := " " + strings.ToLower(text) + " "
	for _, topic := range topicAnswers {
		for _, kw := range topic.keywords {
			if strings.Contains(padded, kw) {
				return topic.answer
			}
		}
	}
	return "That's an interesting question! I don't have a detailed answer right now, but I'd be happy to help with topics like data science, machine learning, or Python."
}

var fallbackTemplates = map[decision.FallbackKind][]string{
	decision.FallbackEmpathetic: {
		"I'm sorry, I didn't quite get that, and I can tell this matters to you. Could you rephrase it for me?",
		"I hear you. I'm not sure I understood though; could you say it another way?",
	},
	decision.FallbackClarifying: {
		"Good question! Could you give me a bit more detail so I can answer properly?",
		"I want to get this right. Can you clarify what you're asking about?",
	},
	decision.FallbackFriendly: {
		"Hmm, I'm not sure I follow. Mind rephrasing that?",
		"I didn't catch that one! Could you try asking differently?",
	},
}

func fallbackReply(req Request) string {
	kind := req.Decision.FallbackKind
	templates := fallbackTemplates[kind]
	if len(templates) == 0 {
		templates = fallbackTemplates[decision.FallbackFriendly]
	}
	return templates[pick(req.Text, len(templates))]
}

// pick seeds template choice with the message text so replies are
// reproducible.
func pick(text string, n int) int {
	if n <= 1 {
		return 0
	}
	h := fnv.New32a()
	h.Write([]byte(text))
	return int(h.Sum32() % uint32(n))
}

func hasEmotion(sent sentiment.Score, emotion string) bool {
	for _, e := range sent.Emotions {
		if e == emotion {
			return true
		}
	}
	return false
}

// EvaluateSuccess applies the per-strategy confidence bar to decide
// whether a turn counts as successful for learning purposes.
func EvaluateSuccess(strategy decision.Strategy, confidence float64, degraded bool) bool {
	if degraded {
		return confidence > 0.8
	}
	switch strategy {
	case decision.StrategyFAQ:
		return true
	case decision.StrategyRuleBased:
		return confidence > 0.6
	case decision.StrategyGenerative:
		return confidence > 0.7
	case decision.StrategyFallback:
		return confidence > 0.5
	default:
		return confidence > 0.8
	}
}

// String renders a short human-readable description of a response for
// logs.
func (r Response) String() string {
	degraded := ""
	if r.Degraded {
		degraded = " (degraded)"
	}
	return fmt.Sprintf("%s%s: %s", r.Strategy, degraded, truncate(r.Text, 60))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
