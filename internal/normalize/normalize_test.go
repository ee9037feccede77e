package normalize

import (
	"reflect"
	"testing"
)

func TestClean(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"lowercase", "HELLO There", "hello there"},
		{"contraction", "I can't do it", "i cannot do it"},
		{"whitespace", "too   many    spaces", "too many spaces"},
		{"special chars", "hello @#$ world!", "hello  world!"},
		{"keeps punctuation", "really? yes, ok.", "really? yes, ok."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Clean(tt.in); got != tt.want {
				t.Errorf("Clean(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestSpellCorrect(t *testing.T) {
	got := SpellCorrect("waht is teh answer")
	want := "what is the answer"
	if got != want {
		t.Errorf("SpellCorrect = %q, want %q", got, want)
	}
}

func TestTokenize_DropsSingleChars(t *testing.T) {
	got := Tokenize("I am a robot")
	want := []string{"am", "robot"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Tokenize = %v, want %v", got, want)
	}
}

func TestRemoveStopwords(t *testing.T) {
	got := RemoveStopwords([]string{"the", "quick", "fox", "is", "fast"})
	want := []string{"quick", "fox", "fast"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("RemoveStopwords = %v, want %v", got, want)
	}
}

func TestPreprocess(t *testing.T) {
	r := Preprocess("Waht is   Machine Learning?")

	if r.Cleaned != "what is machine learning?" {
		t.Errorf("Cleaned = %q", r.Cleaned)
	}
	if len(r.Tokens) == 0 {
		t.Fatal("no tokens")
	}
	for _, tok := range r.FilteredTokens {
		if tok == "is" {
			t.Error("stopword survived filtering")
		}
	}
}

func TestPreprocess_Empty(t *testing.T) {
	r := Preprocess("")
	if r.Cleaned != "" || len(r.Tokens) != 0 {
		t.Errorf("Preprocess(\"\") = %+v, want zero value", r)
	}
}

func TestStripHTML(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain passes through", "hello world", "hello world"},
		{"tags stripped", "<p>hello <b>world</b></p>", "hello world"},
		{"script dropped", "<script>alert(1)</script>hi", "hi"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StripHTML(tt.in); got != tt.want {
				t.Errorf("StripHTML(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
