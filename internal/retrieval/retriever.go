package retrieval

import (
	"context"
	"log"
	"sort"
	"strings"
	"time"
	"unicode/utf8"
)

const defaultTimeout = 500 * time.Millisecond

// Options tunes result shaping.
type Options struct {
	// MinScore drops hits below this relevance cutoff.
	MinScore float64
	// Timeout bounds the collaborator call; expiry degrades to no results.
	Timeout time.Duration
}

// Retriever converts a question into a ranked, budget-constrained snippet
// set. Retrieval is an enhancement: any collaborator failure yields an
// empty set, never an error.
type Retriever struct {
	searcher Searcher
	minScore float64
	timeout  time.Duration
}

func NewRetriever(searcher Searcher, opts Options) *Retriever {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Retriever{
		searcher: searcher,
		minScore: opts.MinScore,
		timeout:  timeout,
	}
}

// Query searches and shapes results: dedupe by source, rank by relevance
// with a continuity-then-length tie-break, then greedily fill the character
// budget, truncating the final snippet rather than dropping it.
func (r *Retriever) Query(ctx context.Context, text string, topK, maxTotalChars int, recentTopics []string) []Snippet {
	if r == nil || r.searcher == nil || topK <= 0 || maxTotalChars <= 0 {
		return nil
	}

	searchCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	results, err := r.searcher.Search(searchCtx, text, topK)
	if err != nil {
		log.Printf("retrieval: search degraded to no results: %v", err)
		return nil
	}
	if len(results) == 0 {
		return nil
	}

	// Dedupe by source id, keeping the best score.
	bySource := make(map[string]Result, len(results))
	order := make([]string, 0, len(results))
	for _, res := range results {
		if res.Score < r.minScore || strings.TrimSpace(res.Text) == "" {
			continue
		}
		prev, ok := bySource[res.SourceID]
		if !ok {
			order = append(order, res.SourceID)
			bySource[res.SourceID] = res
			continue
		}
		if res.Score > prev.Score {
			bySource[res.SourceID] = res
		}
	}

	deduped := make([]Result, 0, len(order))
	for _, id := range order {
		deduped = append(deduped, bySource[id])
	}

	sort.SliceStable(deduped, func(i, j int) bool {
		a, b := deduped[i], deduped[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		ac, bc := mentionsAny(a.Text, recentTopics), mentionsAny(b.Text, recentTopics)
		if ac != bc {
			return ac
		}
		return len(a.Text) < len(b.Text)
	})

	// Greedy fill: include in rank order until the budget would overflow,
	// truncating the last included snippet instead of dropping it.
	var out []Snippet
	remaining := maxTotalChars
	for _, res := range deduped {
		if len(out) >= topK || remaining <= 0 {
			break
		}
		text := res.Text
		if len(text) > remaining {
			// Back off to a rune boundary so the cut never leaves
			// invalid UTF-8 in the prompt.
			cut := remaining
			for cut > 0 && !utf8.RuneStart(text[cut]) {
				cut--
			}
			text = text[:cut]
		}
		if text == "" {
			break
		}
		out = append(out, Snippet{
			SourceID:  res.SourceID,
			Text:      text,
			Relevance: res.Score,
			Length:    len(text),
		})
		remaining -= len(text)
	}
	return out
}

func mentionsAny(text string, topics []string) bool {
	if len(topics) == 0 {
		return false
	}
	lower := strings.ToLower(text)
	for _, topic := range topics {
		if topic != "" && strings.Contains(lower, strings.ToLower(topic)) {
			return true
		}
	}
	return false
}
