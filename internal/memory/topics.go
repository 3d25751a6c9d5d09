package memory

import (
	"strings"
	"unicode"
)

// DefaultTopicVocabulary is the closed keyword set used to tag questions
// with discussion topics. Extraction is a lookup, not summarization, so the
// same question always yields the same topics.
func DefaultTopicVocabulary() []string {
	return []string{
		"space", "math", "science", "art", "music", "animals", "sports",
		"reading", "coding", "history", "geography",
	}
}

// ExtractTopics returns the vocabulary topics present in the question as
// whole words, in vocabulary order.
func ExtractTopics(question string, vocabulary []string) []string {
	words := make(map[string]bool)
	for _, w := range strings.FieldsFunc(strings.ToLower(question), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	}) {
		words[w] = true
	}

	var topics []string
	for _, topic := range vocabulary {
		if words[topic] {
			topics = append(topics, topic)
		}
	}
	return topics
}
