package retrieval

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"strings"
	"unicode"

	chromem "github.com/philippgille/chromem-go"
)

const collectionName = "knowledge_base"

// Fact is one knowledge-base entry.
type Fact struct {
	ID    string
	Text  string
	Topic string
}

// ChromemSearcher is an embedded vector-search collaborator backed by
// chromem-go. The embedding function is local and deterministic so the
// index needs no network and behaves identically across runs.
type ChromemSearcher struct {
	db         *chromem.DB
	collection *chromem.Collection
}

// NewChromemSearcher opens (or creates) the knowledge index. An empty path
// keeps the index in memory.
func NewChromemSearcher(path string) (*ChromemSearcher, error) {
	var (
		db  *chromem.DB
		err error
	)
	if strings.TrimSpace(path) == "" {
		db = chromem.NewDB()
	} else {
		db, err = chromem.NewPersistentDB(path, true)
		if err != nil {
			return nil, fmt.Errorf("open knowledge db: %w", err)
		}
	}

	col, err := db.GetOrCreateCollection(collectionName, nil, localEmbedding)
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}

	return &ChromemSearcher{db: db, collection: col}, nil
}

// AddFacts indexes facts, overwriting entries with the same id.
func (s *ChromemSearcher) AddFacts(ctx context.Context, facts []Fact) error {
	if len(facts) == 0 {
		return nil
	}

	docs := make([]chromem.Document, len(facts))
	for i, f := range facts {
		meta := map[string]string{}
		if f.Topic != "" {
			meta["topic"] = f.Topic
		}
		docs[i] = chromem.Document{
			ID:       f.ID,
			Content:  f.Text,
			Metadata: meta,
		}
	}
	if err := s.collection.AddDocuments(ctx, docs, 1); err != nil {
		return fmt.Errorf("index facts: %w", err)
	}
	return nil
}

func (s *ChromemSearcher) Count() int {
	return s.collection.Count()
}

func (s *ChromemSearcher) Search(ctx context.Context, query string, topK int) ([]Result, error) {
	if topK <= 0 {
		topK = 3
	}

	// chromem-go rejects nResults above the collection size.
	count := s.collection.Count()
	if count == 0 {
		return nil, nil
	}
	if topK > count {
		topK = count
	}

	hits, err := s.collection.Query(ctx, query, topK, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("knowledge query: %w", err)
	}

	results := make([]Result, len(hits))
	for i, h := range hits {
		results[i] = Result{
			SourceID: h.ID,
			Text:     h.Content,
			Score:    float64(h.Similarity),
		}
	}
	return results, nil
}

// embeddingStopWords are filler tokens excluded from the hash vector.
// Questions and facts share words like "the" and "is" regardless of topic,
// and in a 128-dim hash space those dominate the cosine similarity unless
// they are dropped.
var embeddingStopWords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {},
	"because": {}, "but": {}, "by": {}, "can": {}, "do": {}, "does": {},
	"for": {}, "from": {}, "how": {}, "if": {}, "in": {}, "into": {},
	"is": {}, "it": {}, "its": {}, "more": {}, "of": {}, "on": {}, "or": {},
	"s": {}, "than": {}, "that": {}, "the": {}, "they": {}, "this": {},
	"to": {}, "was": {}, "were": {}, "what": {}, "when": {}, "where": {},
	"which": {}, "who": {}, "why": {}, "with": {},
}

// localEmbedding maps text to a normalized bag-of-words hash vector. It is
// a stand-in for a real sentence-embedding model with the properties the
// pipeline needs: deterministic, cheap, and roughly topical. Stop words are
// dropped so the vector reflects the content words only.
func localEmbedding(_ context.Context, text string) ([]float32, error) {
	const dim = 128

	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	content := words[:0:0]
	for _, w := range words {
		if _, skip := embeddingStopWords[w]; !skip {
			content = append(content, w)
		}
	}
	// Pure-filler text still needs a deterministic vector.
	if len(content) == 0 {
		content = words
	}

	vec := make([]float32, dim)
	for _, w := range content {
		h := fnv.New32a()
		_, _ = h.Write([]byte(w))
		vec[h.Sum32()%dim]++
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		vec[0] = 1
		return vec, nil
	}
	scale := float32(1 / math.Sqrt(norm))
	for i := range vec {
		vec[i] *= scale
	}
	return vec, nil
}
