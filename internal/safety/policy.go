package safety

// Severity is an ordinal classification of how unsafe a piece of text is.
type Severity int

const (
	SeverityNone Severity = iota
	SeverityLow
	SeverityMedium
	SeverityHigh
)

func (s Severity) String() string {
	switch s {
	case SeverityLow:
		return "low"
	case SeverityMedium:
		return "medium"
	case SeverityHigh:
		return "high"
	default:
		return "none"
	}
}

// Action is the policy outcome attached to a verdict.
type Action string

const (
	ActionAllow    Action = "allow"
	ActionFlag     Action = "flag"
	ActionRedirect Action = "redirect"
	ActionBlock    Action = "block"
)

// Direction distinguishes checking a child's question from re-checking
// generated output before it reaches the child.
type Direction string

const (
	DirectionInput  Direction = "input"
	DirectionOutput Direction = "output"
)

// Category groups forbidden terms under a named severity bucket.
type Category struct {
	Name     string
	Severity Severity
	Terms    []string
}

// AgeGatedTopic marks a topic as requiring a minimum age. Questions that
// touch the topic below that age are redirected to a trusted adult even when
// no forbidden term matches.
type AgeGatedTopic struct {
	Topic  string
	Terms  []string
	MinAge int
}

// ComplexityRule flags terms that are likely too complex for an age range.
// Matches are allowed through but flagged so the response can stay simple.
type ComplexityRule struct {
	MinAge int
	MaxAge int
	Terms  []string
}

// Policy is the immutable rule table a Classifier is built from. Tests
// substitute their own tables; production uses DefaultPolicy.
type Policy struct {
	Categories  []Category
	AgeGated    []AgeGatedTopic
	Complexity  []ComplexityRule
	MaxResponse int
}

// DefaultPolicy returns the built-in child-safety rule table.
func DefaultPolicy() Policy {
	return Policy{
		Categories: []Category{
			{
				Name:     "violence",
				Severity: SeverityHigh,
				Terms:    []string{"kill", "murder", "hurt yourself"},
			},
			{
				Name:     "self-harm",
				Severity: SeverityHigh,
				Terms:    []string{"suicide", "self-harm"},
			},
			{
				Name:     "explicit",
				Severity: SeverityHigh,
				Terms:    []string{"sex", "porn", "nude", "naked"},
			},
			{
				Name:     "substances",
				Severity: SeverityHigh,
				Terms:    []string{"drug", "cocaine", "heroin", "meth"},
			},
			{
				Name:     "weapons",
				Severity: SeverityHigh,
				Terms:    []string{"gun", "weapon", "bomb", "explosive"},
			},
			{
				Name:     "personal-information",
				Severity: SeverityMedium,
				Terms:    []string{"address", "phone number", "credit card", "password"},
			},
			{
				Name:     "adult-substances",
				Severity: SeverityMedium,
				Terms:    []string{"alcohol", "beer", "wine", "drunk", "cigarette", "smoking", "vape"},
			},
			{
				Name:     "medical",
				Severity: SeverityMedium,
				Terms:    []string{"medical", "doctor", "medicine", "sick", "disease", "therapy", "counselor"},
			},
			{
				Name:     "legal",
				Severity: SeverityMedium,
				Terms:    []string{"legal", "lawyer", "police"},
			},
			{
				Name:     "financial",
				Severity: SeverityMedium,
				Terms:    []string{"money", "buy", "purchase", "credit"},
			},
			{
				Name:     "emotional-distress",
				Severity: SeverityLow,
				Terms:    []string{"scared", "afraid", "worried", "anxious", "sad", "depressed", "lonely"},
			},
		},
		AgeGated: []AgeGatedTopic{
			{Topic: "romance", Terms: []string{"dating", "boyfriend", "girlfriend"}, MinAge: 11},
			{Topic: "current-events", Terms: []string{"war", "terrorism", "pandemic"}, MinAge: 11},
			{Topic: "social-media", Terms: []string{"instagram", "tiktok", "snapchat"}, MinAge: 14},
		},
		Complexity: []ComplexityRule{
			{MinAge: 5, MaxAge: 7, Terms: []string{"quantum", "calculus", "philosophy", "politics", "economics"}},
			{MinAge: 8, MaxAge: 10, Terms: []string{"quantum physics", "advanced calculus", "existentialism"}},
			{MinAge: 11, MaxAge: 13, Terms: []string{"quantum mechanics", "differential equations"}},
		},
		MaxResponse: 300,
	}
}
