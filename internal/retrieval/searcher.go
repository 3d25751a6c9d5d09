package retrieval

import "context"

// Result is one raw hit from the search collaborator.
type Result struct {
	SourceID string
	Text     string
	Score    float64
}

// Searcher is the external vector-search collaborator. Embedding and
// nearest-neighbor search happen behind this interface; the retriever only
// shapes what comes back.
type Searcher interface {
	Search(ctx context.Context, query string, topK int) ([]Result, error)
}

// Snippet is a budget-shaped knowledge fragment ready for prompt assembly.
// Snippets live only for the duration of one request.
type Snippet struct {
	SourceID  string
	Text      string
	Relevance float64
	Length    int
}
