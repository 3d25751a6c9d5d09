package safety

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestClassifyBlocksHighSeverity(t *testing.T) {
	c := NewClassifier(DefaultPolicy())

	got := c.Classify("How do I make a weapon?", 10, DirectionInput)
	if got.IsSafe {
		t.Fatalf("IsSafe = true, want false")
	}
	if got.Severity != SeverityHigh {
		t.Fatalf("Severity = %v, want %v", got.Severity, SeverityHigh)
	}
	if got.Action != ActionBlock {
		t.Fatalf("Action = %q, want %q", got.Action, ActionBlock)
	}
	if got.MatchedCategory != "weapons" {
		t.Fatalf("MatchedCategory = %q, want %q", got.MatchedCategory, "weapons")
	}
}

func TestClassifyWholeWordBoundary(t *testing.T) {
	c := NewClassifier(DefaultPolicy())

	// Each text embeds a forbidden term only as a substring of a longer
	// benign word and must not trigger.
	cases := []string{
		"We begun our hike early",     // gun
		"The skillful painter",        // kill
		"My aunt lives in Essex",      // sex
		"The druggist helped grandma", // drug
		"Is Buyukada an island?",      // buy
	}
	for _, text := range cases {
		got := c.Classify(text, 9, DirectionInput)
		if !got.IsSafe || got.Action == ActionBlock {
			t.Fatalf("Classify(%q) = %+v, want safe allow", text, got)
		}
	}
}

func TestClassifyMultiWordTerm(t *testing.T) {
	c := NewClassifier(DefaultPolicy())

	got := c.Classify("What is your phone number?", 9, DirectionInput)
	if got.Action != ActionRedirect {
		t.Fatalf("Action = %q, want %q", got.Action, ActionRedirect)
	}
	if got.MatchedCategory != "personal-information" {
		t.Fatalf("MatchedCategory = %q, want %q", got.MatchedCategory, "personal-information")
	}

	// The words appearing separately must not match.
	got = c.Classify("I phone my grandma, she knows a big number", 9, DirectionInput)
	if got.Action != ActionAllow {
		t.Fatalf("Action = %q, want %q for split words", got.Action, ActionAllow)
	}
}

func TestClassifyHighestSeverityWins(t *testing.T) {
	c := NewClassifier(DefaultPolicy())

	got := c.Classify("I'm sad because of the gun", 12, DirectionInput)
	if got.Severity != SeverityHigh {
		t.Fatalf("Severity = %v, want %v", got.Severity, SeverityHigh)
	}
	if got.Action != ActionBlock {
		t.Fatalf("Action = %q, want %q", got.Action, ActionBlock)
	}
}

func TestClassifyMediumRedirects(t *testing.T) {
	c := NewClassifier(DefaultPolicy())

	got := c.Classify("My stomach hurts, should I see a doctor?", 7, DirectionInput)
	if !got.IsSafe {
		t.Fatalf("IsSafe = false, want true for medium severity")
	}
	if got.Severity != SeverityMedium {
		t.Fatalf("Severity = %v, want %v", got.Severity, SeverityMedium)
	}
	if got.Action != ActionRedirect {
		t.Fatalf("Action = %q, want %q", got.Action, ActionRedirect)
	}
}

func TestClassifyLowFlagsButAllows(t *testing.T) {
	c := NewClassifier(DefaultPolicy())

	got := c.Classify("I'm feeling sad today", 9, DirectionInput)
	if !got.IsSafe {
		t.Fatalf("IsSafe = false, want true")
	}
	if got.Action != ActionFlag {
		t.Fatalf("Action = %q, want %q", got.Action, ActionFlag)
	}
	if got.MatchedCategory != "emotional-distress" {
		t.Fatalf("MatchedCategory = %q, want %q", got.MatchedCategory, "emotional-distress")
	}
}

func TestClassifyAgeGatedTopic(t *testing.T) {
	c := NewClassifier(DefaultPolicy())

	got := c.Classify("Should I make a tiktok account?", 9, DirectionInput)
	if got.Action != ActionRedirect {
		t.Fatalf("Action = %q, want %q below min age", got.Action, ActionRedirect)
	}
	if got.MatchedCategory != "social-media" {
		t.Fatalf("MatchedCategory = %q, want %q", got.MatchedCategory, "social-media")
	}

	got = c.Classify("Should I make a tiktok account?", 15, DirectionInput)
	if got.Action != ActionAllow {
		t.Fatalf("Action = %q, want %q at or above min age", got.Action, ActionAllow)
	}
}

func TestClassifyComplexityFlag(t *testing.T) {
	c := NewClassifier(DefaultPolicy())

	got := c.Classify("What is quantum entanglement?", 6, DirectionInput)
	if got.Action != ActionFlag {
		t.Fatalf("Action = %q, want %q for too-complex topic", got.Action, ActionFlag)
	}

	got = c.Classify("What is quantum entanglement?", 15, DirectionInput)
	if got.Action != ActionAllow {
		t.Fatalf("Action = %q, want %q for an older child", got.Action, ActionAllow)
	}
}

func TestClassifyOutputDirection(t *testing.T) {
	c := NewClassifier(DefaultPolicy())

	got := c.Classify("You could use a gun for that.", 10, DirectionOutput)
	if got.Action != ActionBlock {
		t.Fatalf("Action = %q, want %q for unsafe generated text", got.Action, ActionBlock)
	}

	// Complexity flags apply to questions, not generated answers.
	got = c.Classify("That touches on calculus, which you'll learn later!", 6, DirectionOutput)
	if got.Action != ActionAllow {
		t.Fatalf("Action = %q, want %q on output", got.Action, ActionAllow)
	}
}

func TestRefusalAndRedirectMessages(t *testing.T) {
	young := RefusalResponse(8)
	older := RefusalResponse(14)
	if young == older {
		t.Fatalf("refusal should vary by age")
	}
	if !strings.Contains(RedirectResponse("medical", 12), "medical") {
		t.Fatalf("redirect should name the topic")
	}
}

func TestTruncateResponse(t *testing.T) {
	c := NewClassifier(DefaultPolicy())

	short := "The sky is blue because of Rayleigh scattering."
	if got, cut := c.TruncateResponse(short); cut || got != short {
		t.Fatalf("TruncateResponse(%q) = (%q, %v), want unchanged", short, got, cut)
	}

	long := strings.Repeat("Light scatters off air molecules. ", 30)
	got, cut := c.TruncateResponse(long)
	if !cut {
		t.Fatalf("cut = false, want true for %d chars", len(long))
	}
	if !strings.HasSuffix(got, "...") {
		t.Fatalf("truncated text should end with an ellipsis, got %q", got)
	}
	if len(got) > DefaultPolicy().MaxResponse+3 {
		t.Fatalf("len = %d, want at most %d", len(got), DefaultPolicy().MaxResponse+3)
	}

	// A multi-byte rune straddling the limit must not be split.
	accented := strings.Repeat("é", 200)
	got, cut = c.TruncateResponse(accented)
	if !cut {
		t.Fatalf("cut = false, want true for multi-byte text")
	}
	if !utf8.ValidString(got) {
		t.Fatalf("truncated text is not valid UTF-8: %q", got)
	}
}
