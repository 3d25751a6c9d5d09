package memory

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

const defaultShortTermCapacity = 10

// ConsentToken is the capability returned by an affirmative GiveConsent
// call. Profile mutation requires one, so unconsented writes cannot be
// expressed by accident. The zero value is never valid.
type ConsentToken struct {
	sessionID string
	value     string
}

func (t ConsentToken) Valid() bool     { return t.value != "" }
func (t ConsentToken) Value() string   { return t.value }
func (t ConsentToken) Session() string { return t.sessionID }

// ProfileUpdate carries the fields of one profile mutation. Nil fields are
// left untouched; merge is last-write-wins per field.
type ProfileUpdate struct {
	DisplayName *string
	Age         *int
	Preferences map[string]string
}

// Context is the derived per-request memory view. Profile fields are
// present only under consent; it is regenerated per request and never
// persisted.
type Context struct {
	DisplayName  string
	Age          int
	Preferences  map[string]string
	RecentTopics []string
	ConsentGiven bool
}

// Options tunes a Manager.
type Options struct {
	// ShortTermCapacity bounds the per-session interaction window.
	ShortTermCapacity int
	// TopicVocabulary is the closed keyword set used for deterministic
	// topic extraction.
	TopicVocabulary []string
}

type sessionState struct {
	mu     sync.Mutex
	doc    Document
	loaded bool
	token  string
}

// Manager owns consent state, the bounded short-term window and the durable
// profile for every session. Writes are serialized per session; sessions
// never block each other.
type Manager struct {
	store    Store
	capacity int
	topics   []string

	mu       sync.Mutex
	sessions map[string]*sessionState
}

func NewManager(store Store, opts Options) *Manager {
	capacity := opts.ShortTermCapacity
	if capacity <= 0 {
		capacity = defaultShortTermCapacity
	}
	topics := opts.TopicVocabulary
	if len(topics) == 0 {
		topics = DefaultTopicVocabulary()
	}
	return &Manager{
		store:    store,
		capacity: capacity,
		topics:   topics,
		sessions: make(map[string]*sessionState),
	}
}

// state returns the session's guard, creating it on first use. The per
// session mutex is held by callers across load-mutate-save so interleaved
// writes cannot corrupt the window.
func (m *Manager) state(sessionID string) *sessionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.sessions[sessionID]
	if !ok {
		st = &sessionState{}
		m.sessions[sessionID] = st
	}
	return st
}

// ensureLoaded restores the last committed document. Reads fail open: a
// missing or unreadable document yields an empty one rather than failing
// the session.
func (m *Manager) ensureLoaded(ctx context.Context, sessionID string, st *sessionState) {
	if st.loaded {
		return
	}
	st.loaded = true
	doc, err := m.store.Load(ctx, sessionID)
	if err != nil {
		if err != ErrNotFound {
			log.Printf("memory: load for session %s failed, starting empty: %v", sessionID, err)
		}
		return
	}
	st.doc = doc
	m.trimShortTerm(&st.doc)
}

// GiveConsent sets the consent flag for a session. Granting returns a
// capability token for profile writes. Revoking purges the stored profile
// and short-term history synchronously and invalidates earlier tokens.
func (m *Manager) GiveConsent(ctx context.Context, sessionID string, granted bool) (ConsentToken, error) {
	st := m.state(sessionID)
	st.mu.Lock()
	defer st.mu.Unlock()
	m.ensureLoaded(ctx, sessionID, st)

	now := time.Now().UTC()
	if !granted {
		st.doc = Document{}
		st.token = ""
		if err := m.store.Save(ctx, sessionID, st.doc); err != nil {
			return ConsentToken{}, fmt.Errorf("purge on consent revocation: %w", err)
		}
		return ConsentToken{}, nil
	}

	if !st.doc.Profile.ConsentGiven {
		st.doc.Profile.ConsentGiven = true
		if st.doc.Profile.CreatedAt.IsZero() {
			st.doc.Profile.CreatedAt = now
		}
	}
	st.doc.Profile.UpdatedAt = now
	st.token = uuid.NewString()

	if err := m.store.Save(ctx, sessionID, st.doc); err != nil {
		return ConsentToken{}, fmt.Errorf("persist consent: %w", err)
	}
	return ConsentToken{sessionID: sessionID, value: st.token}, nil
}

// ResolveConsent maps a presented token value back to a capability. It is
// the bridge for callers that cross a serialization boundary, like the HTTP
// API.
func (m *Manager) ResolveConsent(sessionID, value string) (ConsentToken, error) {
	st := m.state(sessionID)
	st.mu.Lock()
	defer st.mu.Unlock()
	if value == "" || st.token == "" || st.token != value {
		return ConsentToken{}, ErrConsentRequired
	}
	return ConsentToken{sessionID: sessionID, value: value}, nil
}

// SetProfile merges fields into the stored profile. It requires a live
// consent token and re-checks the stored flag, so a stale capability cannot
// write after revocation.
func (m *Manager) SetProfile(ctx context.Context, token ConsentToken, update ProfileUpdate) error {
	if !token.Valid() {
		return ErrConsentRequired
	}
	st := m.state(token.sessionID)
	st.mu.Lock()
	defer st.mu.Unlock()
	m.ensureLoaded(ctx, token.sessionID, st)

	if st.token == "" || st.token != token.value || !st.doc.Profile.ConsentGiven {
		return ErrConsentRequired
	}
	if update.Age != nil && !ValidAge(*update.Age) {
		return ErrAgeOutOfRange
	}

	if update.DisplayName != nil {
		st.doc.Profile.DisplayName = *update.DisplayName
	}
	if update.Age != nil {
		st.doc.Profile.Age = *update.Age
	}
	if len(update.Preferences) > 0 {
		if st.doc.Profile.Preferences == nil {
			st.doc.Profile.Preferences = make(map[string]string, len(update.Preferences))
		}
		for k, v := range update.Preferences {
			st.doc.Profile.Preferences[k] = v
		}
	}
	st.doc.Profile.UpdatedAt = time.Now().UTC()

	if err := m.store.Save(ctx, token.sessionID, st.doc); err != nil {
		return fmt.Errorf("persist profile: %w", err)
	}
	return nil
}

// RecordInteraction appends a completed turn to the short-term window,
// evicting the oldest entry beyond capacity. The window is always kept in
// memory for multi-turn coherence; it is persisted only under consent. A
// persistence failure is returned for logging but the record stays in the
// live window.
func (m *Manager) RecordInteraction(ctx context.Context, sessionID string, record InteractionRecord) error {
	st := m.state(sessionID)
	st.mu.Lock()
	defer st.mu.Unlock()
	m.ensureLoaded(ctx, sessionID, st)

	if record.Timestamp.IsZero() {
		record.Timestamp = time.Now().UTC()
	}
	if len(record.Topics) == 0 {
		record.Topics = ExtractTopics(record.Question, m.topics)
	}

	st.doc.ShortTerm = append(st.doc.ShortTerm, record)
	m.trimShortTerm(&st.doc)

	if !st.doc.Profile.ConsentGiven {
		return nil
	}
	if err := m.store.Save(ctx, sessionID, st.doc); err != nil {
		return fmt.Errorf("persist interaction: %w", err)
	}
	return nil
}

// Snapshot builds the derived memory context for one request.
func (m *Manager) Snapshot(ctx context.Context, sessionID string) Context {
	st := m.state(sessionID)
	st.mu.Lock()
	defer st.mu.Unlock()
	m.ensureLoaded(ctx, sessionID, st)

	out := Context{RecentTopics: recentTopics(st.doc.ShortTerm, 3)}
	if !st.doc.Profile.ConsentGiven {
		return out
	}

	out.ConsentGiven = true
	out.DisplayName = st.doc.Profile.DisplayName
	out.Age = st.doc.Profile.Age
	if len(st.doc.Profile.Preferences) > 0 {
		out.Preferences = make(map[string]string, len(st.doc.Profile.Preferences))
		for k, v := range st.doc.Profile.Preferences {
			out.Preferences[k] = v
		}
	}
	return out
}

// EndSession releases the in-memory state. Without consent the short-term
// buffer is discarded with it; consented history stays durable either way.
func (m *Manager) EndSession(sessionID string) {
	m.mu.Lock()
	delete(m.sessions, sessionID)
	m.mu.Unlock()
}

func (m *Manager) trimShortTerm(doc *Document) {
	if len(doc.ShortTerm) > m.capacity {
		doc.ShortTerm = append(doc.ShortTerm[:0:0], doc.ShortTerm[len(doc.ShortTerm)-m.capacity:]...)
	}
}

// recentTopics walks the window oldest first and keeps the last n distinct
// topics in discussion order.
func recentTopics(window []InteractionRecord, n int) []string {
	var ordered []string
	seen := make(map[string]bool)
	for _, rec := range window {
		for _, topic := range rec.Topics {
			if seen[topic] {
				continue
			}
			seen[topic] = true
			ordered = append(ordered, topic)
		}
	}
	if len(ordered) > n {
		ordered = ordered[len(ordered)-n:]
	}
	return ordered
}
