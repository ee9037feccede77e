package sentiment

import "testing"

func TestAnalyze_Labels(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want Label
	}{
		{"positive", "this is great, thanks!", Positive},
		{"negative", "this is terrible and broken", Negative},
		{"neutral", "the sky has clouds today", Neutral},
		{"empty", "", Neutral},
		{"negated positive", "this is not good at all", Negative},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Analyze(tt.in)
			if got.Label != tt.want {
				t.Errorf("Analyze(%q).Label = %q (polarity %.2f), want %q",
					tt.in, got.Label, got.Polarity, tt.want)
			}
		})
	}
}

func TestAnalyze_PolarityRange(t *testing.T) {
	for _, in := range []string{"excellent perfect best amazing", "worst terrible awful hate", "meh"} {
		got := Analyze(in)
		if got.Polarity < -1 || got.Polarity > 1 {
			t.Errorf("Analyze(%q).Polarity = %f, out of [-1,1]", in, got.Polarity)
		}
	}
}

func TestAnalyze_WeakSignalConfidenceFloor(t *testing.T) {
	got := Analyze("nothing remarkable here")
	if got.Confidence != 0.5 {
		t.Errorf("neutral confidence = %f, want 0.5 floor", got.Confidence)
	}
}

func TestDetectEmotions(t *testing.T) {
	got := Analyze("I am so angry and frustrated about this")

	found := false
	for _, e := range got.Emotions {
		if e == "anger" {
			found = true
		}
	}
	if !found {
		t.Errorf("Emotions = %v, want anger present", got.Emotions)
	}
	if got.PrimaryEmotion != "anger" {
		t.Errorf("PrimaryEmotion = %q, want anger", got.PrimaryEmotion)
	}
}

func TestDetectEmotions_None(t *testing.T) {
	got := Analyze("what is the capital of france")
	if len(got.Emotions) != 0 {
		t.Errorf("Emotions = %v, want none", got.Emotions)
	}
	if got.PrimaryEmotion != "" {
		t.Errorf("PrimaryEmotion = %q, want empty", got.PrimaryEmotion)
	}
}
