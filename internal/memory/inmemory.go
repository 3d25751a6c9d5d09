package memory

import (
	"context"
	"sync"
)

// InMemoryStore is a simple in-process document store for local/dev use.
type InMemoryStore struct {
	mu   sync.RWMutex
	docs map[string]Document
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{docs: make(map[string]Document)}
}

func (s *InMemoryStore) Load(_ context.Context, sessionID string) (Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[sessionID]
	if !ok {
		return Document{}, ErrNotFound
	}
	return cloneDocument(doc), nil
}

func (s *InMemoryStore) Save(_ context.Context, sessionID string, doc Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[sessionID] = cloneDocument(doc)
	return nil
}

func (s *InMemoryStore) Close() error { return nil }

// cloneDocument copies the document so callers never share mutable state
// with the store.
func cloneDocument(doc Document) Document {
	out := doc
	if doc.Profile.Preferences != nil {
		out.Profile.Preferences = make(map[string]string, len(doc.Profile.Preferences))
		for k, v := range doc.Profile.Preferences {
			out.Profile.Preferences[k] = v
		}
	}
	if doc.ShortTerm != nil {
		out.ShortTerm = make([]InteractionRecord, len(doc.ShortTerm))
		copy(out.ShortTerm, doc.ShortTerm)
		for i, rec := range out.ShortTerm {
			if rec.Topics != nil {
				topics := make([]string, len(rec.Topics))
				copy(topics, rec.Topics)
				out.ShortTerm[i].Topics = topics
			}
		}
	}
	return out
}
