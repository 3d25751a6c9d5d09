package safety

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Verdict is the outcome of classifying one piece of text.
type Verdict struct {
	IsSafe          bool
	Severity        Severity
	MatchedCategory string
	Action          Action
}

// Classifier evaluates text against an immutable policy table. It is
// stateless and safe for concurrent use; audit logging belongs to callers.
type Classifier struct {
	policy Policy
}

func NewClassifier(policy Policy) *Classifier {
	return &Classifier{policy: policy}
}

// Classify checks text for a requester of the given age. The same taxonomy
// applies to both directions; output checks guard generated text before it
// reaches the child, so a block verdict there means the text must be
// replaced, never surfaced.
func (c *Classifier) Classify(text string, age int, direction Direction) Verdict {
	words := tokenize(text)

	best := Verdict{IsSafe: true, Severity: SeverityNone, Action: ActionAllow}

	for _, cat := range c.policy.Categories {
		if !matchesAny(words, cat.Terms) {
			continue
		}
		if cat.Severity > best.Severity {
			best.Severity = cat.Severity
			best.MatchedCategory = cat.Name
		}
	}

	// Topics gated on a minimum age escalate to a redirect below the
	// threshold regardless of keyword severity.
	if best.Severity < SeverityMedium {
		for _, gated := range c.policy.AgeGated {
			if age >= gated.MinAge {
				continue
			}
			if matchesAny(words, gated.Terms) {
				best.Severity = SeverityMedium
				best.MatchedCategory = gated.Topic
				break
			}
		}
	}

	if best.Severity == SeverityNone && direction == DirectionInput {
		for _, rule := range c.policy.Complexity {
			if age < rule.MinAge || age > rule.MaxAge {
				continue
			}
			if matchesAny(words, rule.Terms) {
				best.Severity = SeverityLow
				best.MatchedCategory = "complexity"
				break
			}
		}
	}

	switch best.Severity {
	case SeverityHigh:
		best.IsSafe = false
		best.Action = ActionBlock
	case SeverityMedium:
		best.Action = ActionRedirect
	case SeverityLow:
		best.Action = ActionFlag
	}
	return best
}

// TruncateResponse bounds generated text to the policy's maximum response
// length, cutting on a rune boundary and marking the cut with an ellipsis.
// The second return reports whether a cut was made.
func (c *Classifier) TruncateResponse(text string) (string, bool) {
	limit := c.policy.MaxResponse
	if limit <= 0 || len(text) <= limit {
		return text, false
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut] + "...", true
}

// tokenize lowercases text and splits it into word tokens. Matching on
// tokens rather than substrings keeps "gun" from firing inside "begun".
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r) && r != '-'
	})
}

// matchesAny reports whether any term appears in words as a complete token
// run. Multi-word terms must match consecutive tokens.
func matchesAny(words []string, terms []string) bool {
	for _, term := range terms {
		if matchesTerm(words, term) {
			return true
		}
	}
	return false
}

func matchesTerm(words []string, term string) bool {
	parts := tokenize(term)
	if len(parts) == 0 || len(parts) > len(words) {
		return false
	}
outer:
	for i := 0; i+len(parts) <= len(words); i++ {
		for j, p := range parts {
			if words[i+j] != p {
				continue outer
			}
		}
		return true
	}
	return false
}
