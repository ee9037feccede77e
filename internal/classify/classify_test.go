package classify

import (
	"fmt"
	"testing"

	"github.com/soline/banter/internal/config"
)

func testClassifier(t *testing.T) *Classifier {
	t.Helper()
	return New(config.DefaultIntents(), nil)
}

func TestClassify_PriorityRules(t *testing.T) {
	c := testClassifier(t)

	tests := []struct {
		in         string
		wantIntent string
		minConf    float64
	}{
		{"hello", "greeting", 0.95},
		{"hey there", "greeting", 0.95},
		{"goodbye for now", "goodbye", 0.9},
		{"thanks a lot", "compliment", 0.85},
		{"can you help me with this", "help", 0.9},
		{"what is machine learning", "question", 0.95},
		{"is this thing on?", "question", 0.95},
		{"where are we", "question", 0.9},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := c.Classify(tt.in)
			if got.Intent != tt.wantIntent {
				t.Errorf("Classify(%q).Intent = %q, want %q", tt.in, got.Intent, tt.wantIntent)
			}
			if got.Confidence < tt.minConf {
				t.Errorf("Classify(%q).Confidence = %f, want >= %f", tt.in, got.Confidence, tt.minConf)
			}
		})
	}
}

func TestClassify_GreetingNotQuestion(t *testing.T) {
	// "hi" inside a question must not short-circuit to greeting.
	c := testClassifier(t)
	r := c.Classify("what does hi mean in japanese?")
	if r.Intent != "question" {
		t.Errorf("intent = %q, want question", r.Intent)
	}
}

func TestClassify_GeneralFallback(t *testing.T) {
	c := testClassifier(t)

	got := c.Classify("zebra umbrella cactus")
	if got.Intent != "general" {
		t.Errorf("Intent = %q, want general", got.Intent)
	}
	if got.Confidence != 0.6 {
		t.Errorf("Confidence = %f, want 0.6", got.Confidence)
	}
}

func TestRetrain_DeclinesSmallCorpus(t *testing.T) {
	c := testClassifier(t)

	examples := []Example{{Text: "hello", Label: "greeting"}}
	if c.Retrain(examples) {
		t.Error("Retrain accepted a corpus of 1 example")
	}
}

func TestRetrain_AcceptsLargeCorpus(t *testing.T) {
	c := testClassifier(t)

	var examples []Example
	for i := 0; i < 30; i++ {
		examples = append(examples,
			Example{Text: fmt.Sprintf("order pizza number %d", i), Label: "order"},
			Example{Text: fmt.Sprintf("cancel booking %d", i), Label: "cancel"},
		)
	}

	if !c.Retrain(examples) {
		t.Fatal("Retrain declined a 60-example corpus")
	}

	labels := c.Labels()
	found := map[string]bool{}
	for _, l := range labels {
		found[l] = true
	}
	if !found["order"] || !found["cancel"] {
		t.Errorf("Labels = %v, want order and cancel", labels)
	}
}
