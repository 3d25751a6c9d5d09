package prompt

import (
	"strings"
	"testing"

	"github.com/antoniostano/mira/internal/memory"
	"github.com/antoniostano/mira/internal/retrieval"
)

func TestBandForAge(t *testing.T) {
	cases := []struct {
		age  int
		want AgeBand
	}{
		{5, Band5to7},
		{7, Band5to7},
		{8, Band8to10},
		{10, Band8to10},
		{11, Band11to13},
		{13, Band11to13},
		{14, Band14to16},
		{16, Band14to16},
		{3, Band8to10},
		{20, Band8to10},
	}
	for _, tc := range cases {
		if got := BandForAge(tc.age); got != tc.want {
			t.Fatalf("BandForAge(%d) = %v, want %v", tc.age, got, tc.want)
		}
	}
}

func TestParseEmotionUnknown(t *testing.T) {
	e, ok := ParseEmotion("melancholic")
	if ok {
		t.Fatalf("ok = true, want false for unknown label")
	}
	if e != EmotionNeutral {
		t.Fatalf("emotion = %q, want neutral fallback", e)
	}
}

func TestBuildIncludesAllParts(t *testing.T) {
	a := NewAssembler(Options{})

	got := a.Build(BuildInput{
		Emotion:    EmotionHappy,
		Confidence: 0.85,
		Age:        9,
		Question:   "Why is the sky blue?",
		Memory: memory.Context{
			DisplayName:  "Alex",
			ConsentGiven: true,
		},
		Snippets: []retrieval.Snippet{
			{SourceID: "sky-blue", Text: "The sky appears blue because of Rayleigh scattering.", Relevance: 0.9, Length: 52},
		},
	})

	if got.AgeBand != Band8to10 {
		t.Fatalf("AgeBand = %v, want %v", got.AgeBand, Band8to10)
	}
	for _, want := range []string{
		Band8to10.Guideline(),
		EmotionHappy.Guidance(),
		"Alex",
		"Rayleigh scattering",
		"Why is the sky blue?",
	} {
		if !strings.Contains(got.Prompt, want) {
			t.Fatalf("prompt missing %q", want)
		}
	}
}

func TestBuildLowConfidenceSuppressesEmotion(t *testing.T) {
	a := NewAssembler(Options{})

	got := a.Build(BuildInput{
		Emotion:    EmotionExcited,
		Confidence: 0.3,
		Age:        9,
		Question:   "What is gravity?",
	})

	if got.Emotion != EmotionNeutral {
		t.Fatalf("Emotion = %q, want neutral below threshold", got.Emotion)
	}
	if strings.Contains(got.Prompt, EmotionExcited.Guidance()) {
		t.Fatalf("prompt should not carry excited guidance at low confidence")
	}
}

func TestBuildDeterministic(t *testing.T) {
	a := NewAssembler(Options{})
	in := BuildInput{
		Emotion:    EmotionConfused,
		Confidence: 0.8,
		Age:        12,
		Question:   "What is gravity?",
		Memory: memory.Context{
			DisplayName:  "Sam",
			Preferences:  map[string]string{"favorite_color": "blue", "favorite_subject": "science"},
			RecentTopics: []string{"space", "math"},
			ConsentGiven: true,
		},
		Snippets: []retrieval.Snippet{
			{SourceID: "gravity", Text: "Gravity attracts objects with mass.", Relevance: 0.8, Length: 35},
		},
	}

	first := a.Build(in)
	second := a.Build(in)
	if first.Prompt != second.Prompt {
		t.Fatalf("prompts differ across identical inputs")
	}
}

func TestBuildBudgetDropsSnippetsBeforeMemory(t *testing.T) {
	long := strings.Repeat("fact ", 200)
	a := NewAssembler(Options{MaxPromptChars: len(systemPrompt) + 600})

	got := a.Build(BuildInput{
		Emotion:    EmotionNeutral,
		Confidence: 0.9,
		Age:        9,
		Question:   "Why is the sky blue?",
		Memory: memory.Context{
			RecentTopics: []string{"space"},
			ConsentGiven: true,
		},
		Snippets: []retrieval.Snippet{
			{SourceID: "a", Text: long, Relevance: 0.9, Length: len(long)},
			{SourceID: "b", Text: long, Relevance: 0.5, Length: len(long)},
		},
	})

	if len(got.Prompt) > len(systemPrompt)+600 {
		t.Fatalf("prompt length = %d exceeds budget %d", len(got.Prompt), len(systemPrompt)+600)
	}
	if len(got.Snippets) == 2 {
		t.Fatalf("expected snippet trimming under budget pressure")
	}
	// The lowest-relevance snippet goes first.
	for _, s := range got.Snippets {
		if s.SourceID == "b" {
			t.Fatalf("lowest-relevance snippet should be dropped before %q", s.SourceID)
		}
	}
	if !strings.Contains(got.Prompt, "Why is the sky blue?") {
		t.Fatalf("question must never be truncated")
	}
}

func TestBuildBudgetNeverTruncatesQuestion(t *testing.T) {
	question := "Why do volcanoes erupt and where does the lava come from?"
	a := NewAssembler(Options{MaxPromptChars: len(systemPrompt) + 400})

	got := a.Build(BuildInput{
		Emotion:    EmotionNeutral,
		Confidence: 0.9,
		Age:        8,
		Question:   question,
		Memory: memory.Context{
			DisplayName:  "Alex",
			Preferences:  map[string]string{"favorite_color": "blue"},
			RecentTopics: []string{"space", "math", "science"},
			ConsentGiven: true,
		},
		Snippets: []retrieval.Snippet{
			{SourceID: "a", Text: strings.Repeat("x", 500), Relevance: 0.9, Length: 500},
		},
	})

	if !strings.Contains(got.Prompt, question) {
		t.Fatalf("question missing from trimmed prompt")
	}
}
