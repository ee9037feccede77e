// Package sentiment scores message polarity and detects emotions using
// a fixed lexicon. It is intentionally cheap: the decision engine only
// needs a coarse positive/negative/neutral signal plus emotion flags,
// not a calibrated model.
package sentiment

import (
	"sort"
	"strings"
)

// Label is the coarse sentiment classification of a message.
type Label string

const (
	Positive Label = "positive"
	Negative Label = "negative"
	Neutral  Label = "neutral"
)

// Score is the result of analyzing one message.
type Score struct {
	Polarity       float64  // -1..1
	Label          Label    // positive / negative / neutral
	Confidence     float64  // |polarity|, floored at 0.5 for weak signals
	Emotions       []string // detected emotion names, lexicon order
	PrimaryEmotion string   // highest-scoring emotion, "" if none
}

// polarity lexicon. Weights are coarse by design; the thresholds in
// classify() only care about which side of ±0.1 the sum lands on.
var positiveWords = map[string]float64{
	"good": 0.5, "great": 0.7, "excellent": 0.9, "amazing": 0.8,
	"wonderful": 0.8, "fantastic": 0.8, "love": 0.7, "like": 0.4,
	"happy": 0.6, "thanks": 0.5, "thank": 0.5, "awesome": 0.8,
	"nice": 0.5, "helpful": 0.6, "perfect": 0.9, "best": 0.7,
	"enjoy": 0.6, "pleased": 0.6, "glad": 0.5, "brilliant": 0.8,
}

var negativeWords = map[string]float64{
	"bad": -0.5, "terrible": -0.9, "awful": -0.8, "horrible": -0.8,
	"hate": -0.7, "angry": -0.6, "sad": -0.5, "disappointed": -0.6,
	"useless": -0.7, "broken": -0.5, "wrong": -0.4, "worst": -0.9,
	"annoyed": -0.5, "frustrated": -0.6, "stupid": -0.6, "problem": -0.3,
	"issue": -0.3, "fail": -0.5, "failed": -0.5, "poor": -0.5,
}

// negators invert the following word's polarity.
var negators = map[string]bool{
	"not": true, "no": true, "never": true, "cannot": true, "dont": true,
	"don't": true, "won't": true, "isn't": true, "wasn't": true,
}

// emotionOrder keeps Emotions output deterministic.
var emotionOrder = []string{"joy", "sadness", "anger", "fear", "surprise", "disgust"}

var emotionKeywords = map[string][]string{
	"joy":      {"happy", "excited", "great", "wonderful", "amazing", "fantastic", "love", "enjoy"},
	"sadness":  {"sad", "depressed", "unhappy", "disappointed", "upset", "down", "miserable"},
	"anger":    {"angry", "mad", "furious", "annoyed", "frustrated", "irritated", "hate"},
	"fear":     {"scared", "afraid", "worried", "anxious", "nervous", "terrified", "panic"},
	"surprise": {"surprised", "shocked", "amazed", "astonished", "unexpected", "wow"},
	"disgust":  {"disgusted", "sick", "revolted", "appalled", "repulsed", "gross"},
}

// Analyze scores a message. It never fails: unknown words contribute
// nothing and an empty message is neutral.
func Analyze(text string) Score {
	polarity := scorePolarity(text)

	label := Neutral
	switch {
	case polarity > 0.1:
		label = Positive
	case polarity < -0.1:
		label = Negative
	}

	confidence := polarity
	if confidence < 0 {
		confidence = -confidence
	}
	if confidence <= 0.1 {
		confidence = 0.5
	}

	emotions, primary := detectEmotions(text)

	return Score{
		Polarity:       polarity,
		Label:          label,
		Confidence:     confidence,
		Emotions:       emotions,
		PrimaryEmotion: primary,
	}
}

func scorePolarity(text string) float64 {
	words := strings.Fields(strings.ToLower(text))
	if len(words) == 0 {
		return 0
	}

	var sum float64
	var hits int
	negate := false
	for _, w := range words {
		w = strings.Trim(w, ".,!?-")
		if negators[w] {
			negate = true
			continue
		}

		var v float64
		var ok bool
		if v, ok = positiveWords[w]; !ok {
			v, ok = negativeWords[w]
		}
		if ok {
			if negate {
				v = -v
			}
			sum += v
			hits++
		}
		negate = false
	}

	if hits == 0 {
		return 0
	}
	avg := sum / float64(hits)
	if avg > 1 {
		avg = 1
	} else if avg < -1 {
		avg = -1
	}
	return avg
}

func detectEmotions(text string) (emotions []string, primary string) {
	lower := strings.ToLower(text)

	scores := make(map[string]float64)
	for _, emotion := range emotionOrder {
		keywords := emotionKeywords[emotion]
		var hits int
		for _, kw := range keywords {
			if strings.Contains(lower, kw) {
				hits++
			}
		}
		if hits > 0 {
			scores[emotion] = float64(hits) / float64(len(keywords))
			emotions = append(emotions, emotion)
		}
	}

	if len(scores) == 0 {
		return nil, ""
	}

	// Highest score wins; ties resolve by lexicon order for determinism.
	keys := make([]string, 0, len(scores))
	for k := range scores {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if scores[keys[i]] != scores[keys[j]] {
			return scores[keys[i]] > scores[keys[j]]
		}
		return emotionIndex(keys[i]) < emotionIndex(keys[j])
	})
	return emotions, keys[0]
}

func emotionIndex(name string) int {
	for i, e := range emotionOrder {
		if e == name {
			return i
		}
	}
	return len(emotionOrder)
}
