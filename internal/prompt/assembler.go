package prompt

import (
	"fmt"
	"sort"
	"strings"

	"github.com/antoniostano/mira/internal/memory"
	"github.com/antoniostano/mira/internal/retrieval"
)

// systemPrompt is Mira's persona and standing safety rules, sent with every
// request.
const systemPrompt = `You are Mira, a friendly and curious AI companion designed for children aged 5-16. Your role is to:

1. Be aware of the child's emotional state and respond with empathy
2. Use age-appropriate language and concepts
3. Encourage curiosity, learning, and positive thinking
4. Admit when you're uncertain or don't know something
5. Never pretend to be human or claim to have feelings
6. Redirect inappropriate questions to parents or teachers
7. Keep responses short, clear, and friendly (under 300 characters)

IMPORTANT SAFETY RULES:
- Never give medical, legal, or therapeutic advice
- Never discuss adult topics, violence, or harmful content
- Never ask for or store sensitive personal information
- Always encourage children to talk to trusted adults for serious matters
- If unsure, say "I'm not sure about that, but maybe you can ask a teacher or parent!"

Your personality: Playful, calm, supportive, and always learning alongside the child.`

const (
	defaultMaxPromptChars      = 4000
	defaultConfidenceThreshold = 0.5
)

// Options tunes the assembler.
type Options struct {
	// MaxPromptChars bounds the rendered prompt.
	MaxPromptChars int
	// ConfidenceThreshold is the emotion confidence below which tone falls
	// back to neutral.
	ConfidenceThreshold float64
}

// BuildInput carries everything one prompt is assembled from.
type BuildInput struct {
	Emotion    Emotion
	Confidence float64
	Age        int
	Question   string
	Memory     memory.Context
	Snippets   []retrieval.Snippet
}

// Context is the finished prompt plus the inputs it was assembled from,
// after budget trimming. It is built once per request and consumed exactly
// once by the model collaborator.
type Context struct {
	Emotion           Emotion
	Confidence        float64
	AgeBand           AgeBand
	Question          string
	InstructionHeader string
	Memory            memory.Context
	Snippets          []retrieval.Snippet
	Prompt            string
}

// Assembler renders bounded prompts. Build is a pure function of its
// input: identical inputs always produce an identical Context.
type Assembler struct {
	maxChars  int
	threshold float64
}

func NewAssembler(opts Options) *Assembler {
	maxChars := opts.MaxPromptChars
	if maxChars <= 0 {
		maxChars = defaultMaxPromptChars
	}
	threshold := opts.ConfidenceThreshold
	if threshold <= 0 {
		threshold = defaultConfidenceThreshold
	}
	return &Assembler{maxChars: maxChars, threshold: threshold}
}

// Build assembles the prompt. When the budget would be exceeded, snippets
// are dropped first (lowest relevance first), then memory topics (oldest
// first), then preferences and the name. The question is never truncated.
func (a *Assembler) Build(in BuildInput) Context {
	emotion := in.Emotion
	if in.Confidence < a.threshold {
		emotion = EmotionNeutral
	}

	band := BandForAge(in.Age)
	out := Context{
		Emotion:           emotion,
		Confidence:        in.Confidence,
		AgeBand:           band,
		Question:          in.Question,
		InstructionHeader: band.Guideline(),
		Memory:            cloneMemory(in.Memory),
		Snippets:          append([]retrieval.Snippet(nil), in.Snippets...),
	}

	// Keep snippets in relevance order so the cheapest drop is the tail.
	sort.SliceStable(out.Snippets, func(i, j int) bool {
		return out.Snippets[i].Relevance > out.Snippets[j].Relevance
	})

	out.Prompt = a.render(out, in.Age)
	for len(out.Prompt) > a.maxChars {
		if len(out.Snippets) > 0 {
			out.Snippets = out.Snippets[:len(out.Snippets)-1]
		} else if len(out.Memory.RecentTopics) > 0 {
			out.Memory.RecentTopics = out.Memory.RecentTopics[1:]
		} else if len(out.Memory.Preferences) > 0 {
			dropFirstPreference(out.Memory.Preferences)
		} else if out.Memory.DisplayName != "" {
			out.Memory.DisplayName = ""
		} else {
			break
		}
		out.Prompt = a.render(out, in.Age)
	}
	return out
}

func (a *Assembler) render(c Context, age int) string {
	var b strings.Builder
	b.WriteString(systemPrompt)
	b.WriteString("\n\n---\nCURRENT CONTEXT:\n")
	fmt.Fprintf(&b, "- Detected emotion: %s (confidence: %s)\n", c.Emotion, confidenceLabel(c.Confidence))
	fmt.Fprintf(&b, "- Emotion guidance: %s\n", c.Emotion.Guidance())
	fmt.Fprintf(&b, "- Child's age: %d years old\n", age)
	fmt.Fprintf(&b, "- Language guideline: %s\n", c.InstructionHeader)
	fmt.Fprintf(&b, "- %s\n", memoryLine(c.Memory))

	if len(c.Snippets) > 0 {
		b.WriteString("\n---\nRELEVANT FACTS:\n")
		for i, s := range c.Snippets {
			fmt.Fprintf(&b, "%d. %s\n", i+1, s.Text)
		}
	}

	b.WriteString("\n---\nCHILD'S MESSAGE:\n")
	b.WriteString(c.Question)
	b.WriteString("\n\n---\nYOUR RESPONSE (keep it under 300 characters, friendly and age-appropriate):")
	return b.String()
}

// memoryLine formats the consented profile and recent topics, or marks a
// fresh conversation.
func memoryLine(m memory.Context) string {
	var parts []string
	if m.DisplayName != "" {
		parts = append(parts, fmt.Sprintf("Child's name: %s", m.DisplayName))
	}
	for _, key := range sortedKeys(m.Preferences) {
		parts = append(parts, fmt.Sprintf("%s: %s", prettyKey(key), m.Preferences[key]))
	}
	if len(m.RecentTopics) > 0 {
		parts = append(parts, fmt.Sprintf("Recently discussed: %s", strings.Join(m.RecentTopics, ", ")))
	}
	if len(parts) == 0 {
		return "This is a new conversation with no previous context."
	}
	return "Previous context: " + strings.Join(parts, "; ")
}

func confidenceLabel(confidence float64) string {
	switch {
	case confidence >= 0.7:
		return "high"
	case confidence >= 0.5:
		return "moderate"
	default:
		return "low"
	}
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// prettyKey turns a preference key like "favorite_color" into
// "Favorite color".
func prettyKey(key string) string {
	key = strings.ReplaceAll(key, "_", " ")
	if key == "" {
		return key
	}
	return strings.ToUpper(key[:1]) + key[1:]
}

func dropFirstPreference(prefs map[string]string) {
	keys := sortedKeys(prefs)
	if len(keys) > 0 {
		delete(prefs, keys[0])
	}
}

func cloneMemory(m memory.Context) memory.Context {
	out := m
	if m.Preferences != nil {
		out.Preferences = make(map[string]string, len(m.Preferences))
		for k, v := range m.Preferences {
			out.Preferences[k] = v
		}
	}
	out.RecentTopics = append([]string(nil), m.RecentTopics...)
	return out
}
