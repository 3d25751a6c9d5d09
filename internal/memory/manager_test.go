package memory

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func strPtr(s string) *string { return &s }
func intPtr(n int) *int       { return &n }

func TestConsentRoundTrip(t *testing.T) {
	ctx := context.Background()
	m := NewManager(NewInMemoryStore(), Options{})

	token, err := m.GiveConsent(ctx, "s1", true)
	if err != nil {
		t.Fatalf("GiveConsent() error = %v", err)
	}
	if !token.Valid() {
		t.Fatalf("token should be valid after granting consent")
	}

	if err := m.SetProfile(ctx, token, ProfileUpdate{DisplayName: strPtr("Alex")}); err != nil {
		t.Fatalf("SetProfile() error = %v", err)
	}

	snap := m.Snapshot(ctx, "s1")
	if snap.DisplayName != "Alex" {
		t.Fatalf("DisplayName = %q, want %q", snap.DisplayName, "Alex")
	}
	if !snap.ConsentGiven {
		t.Fatalf("ConsentGiven = false, want true")
	}

	if _, err := m.GiveConsent(ctx, "s1", false); err != nil {
		t.Fatalf("GiveConsent(false) error = %v", err)
	}
	snap = m.Snapshot(ctx, "s1")
	if snap.DisplayName != "" || snap.ConsentGiven {
		t.Fatalf("profile should be purged after revocation, got %+v", snap)
	}
}

func TestSetProfileRequiresConsent(t *testing.T) {
	ctx := context.Background()
	m := NewManager(NewInMemoryStore(), Options{})

	err := m.SetProfile(ctx, ConsentToken{}, ProfileUpdate{DisplayName: strPtr("Alex")})
	if !errors.Is(err, ErrConsentRequired) {
		t.Fatalf("SetProfile() error = %v, want ErrConsentRequired", err)
	}
}

func TestSetProfileRejectsAgeOutOfRange(t *testing.T) {
	ctx := context.Background()
	m := NewManager(NewInMemoryStore(), Options{})

	token, err := m.GiveConsent(ctx, "s1", true)
	if err != nil {
		t.Fatalf("GiveConsent() error = %v", err)
	}

	for _, age := range []int{MinChildAge - 1, MaxChildAge + 1, -3} {
		err := m.SetProfile(ctx, token, ProfileUpdate{Age: intPtr(age)})
		if !errors.Is(err, ErrAgeOutOfRange) {
			t.Fatalf("SetProfile(age=%d) error = %v, want ErrAgeOutOfRange", age, err)
		}
	}

	if err := m.SetProfile(ctx, token, ProfileUpdate{Age: intPtr(MaxChildAge)}); err != nil {
		t.Fatalf("SetProfile(age=%d) error = %v", MaxChildAge, err)
	}
	if snap := m.Snapshot(ctx, "s1"); snap.Age != MaxChildAge {
		t.Fatalf("Age = %d, want %d", snap.Age, MaxChildAge)
	}
}

func TestStaleTokenRejectedAfterRevocation(t *testing.T) {
	ctx := context.Background()
	m := NewManager(NewInMemoryStore(), Options{})

	token, err := m.GiveConsent(ctx, "s1", true)
	if err != nil {
		t.Fatalf("GiveConsent() error = %v", err)
	}
	if _, err := m.GiveConsent(ctx, "s1", false); err != nil {
		t.Fatalf("GiveConsent(false) error = %v", err)
	}

	err = m.SetProfile(ctx, token, ProfileUpdate{DisplayName: strPtr("Alex")})
	if !errors.Is(err, ErrConsentRequired) {
		t.Fatalf("SetProfile() with stale token error = %v, want ErrConsentRequired", err)
	}
}

func TestProfileMergeLastWriteWins(t *testing.T) {
	ctx := context.Background()
	m := NewManager(NewInMemoryStore(), Options{})

	token, err := m.GiveConsent(ctx, "s1", true)
	if err != nil {
		t.Fatalf("GiveConsent() error = %v", err)
	}

	if err := m.SetProfile(ctx, token, ProfileUpdate{
		DisplayName: strPtr("Alex"),
		Preferences: map[string]string{"favorite_color": "blue", "favorite_subject": "science"},
	}); err != nil {
		t.Fatalf("SetProfile() error = %v", err)
	}
	if err := m.SetProfile(ctx, token, ProfileUpdate{
		Age:         intPtr(9),
		Preferences: map[string]string{"favorite_color": "green"},
	}); err != nil {
		t.Fatalf("SetProfile() error = %v", err)
	}

	snap := m.Snapshot(ctx, "s1")
	if snap.DisplayName != "Alex" || snap.Age != 9 {
		t.Fatalf("unexpected profile: %+v", snap)
	}
	if snap.Preferences["favorite_color"] != "green" {
		t.Fatalf("favorite_color = %q, want %q", snap.Preferences["favorite_color"], "green")
	}
	if snap.Preferences["favorite_subject"] != "science" {
		t.Fatalf("favorite_subject = %q, want %q", snap.Preferences["favorite_subject"], "science")
	}
}

func TestShortTermWindowBounded(t *testing.T) {
	ctx := context.Background()
	m := NewManager(NewInMemoryStore(), Options{ShortTermCapacity: 3})

	for i := 0; i < 4; i++ {
		err := m.RecordInteraction(ctx, "s1", InteractionRecord{
			Question: fmt.Sprintf("question %d", i),
			Response: fmt.Sprintf("answer %d", i),
		})
		if err != nil {
			t.Fatalf("RecordInteraction() error = %v", err)
		}
	}

	st := m.state("s1")
	st.mu.Lock()
	window := append([]InteractionRecord(nil), st.doc.ShortTerm...)
	st.mu.Unlock()

	if len(window) != 3 {
		t.Fatalf("window length = %d, want 3", len(window))
	}
	if window[0].Question != "question 1" {
		t.Fatalf("oldest question = %q, want %q (oldest must be evicted)", window[0].Question, "question 1")
	}
	if window[2].Question != "question 3" {
		t.Fatalf("newest question = %q, want %q", window[2].Question, "question 3")
	}
}

func TestInteractionsPersistOnlyWithConsent(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	m := NewManager(store, Options{})

	if err := m.RecordInteraction(ctx, "s1", InteractionRecord{Question: "hi"}); err != nil {
		t.Fatalf("RecordInteraction() error = %v", err)
	}
	if _, err := store.Load(ctx, "s1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("store.Load() error = %v, want ErrNotFound without consent", err)
	}

	if _, err := m.GiveConsent(ctx, "s1", true); err != nil {
		t.Fatalf("GiveConsent() error = %v", err)
	}
	if err := m.RecordInteraction(ctx, "s1", InteractionRecord{Question: "tell me about space"}); err != nil {
		t.Fatalf("RecordInteraction() error = %v", err)
	}

	doc, err := store.Load(ctx, "s1")
	if err != nil {
		t.Fatalf("store.Load() error = %v", err)
	}
	if len(doc.ShortTerm) == 0 {
		t.Fatalf("short-term history should be persisted under consent")
	}
}

func TestEndSessionDiscardsUnconsentedBuffer(t *testing.T) {
	ctx := context.Background()
	m := NewManager(NewInMemoryStore(), Options{})

	if err := m.RecordInteraction(ctx, "s1", InteractionRecord{Question: "about animals"}); err != nil {
		t.Fatalf("RecordInteraction() error = %v", err)
	}
	if got := m.Snapshot(ctx, "s1").RecentTopics; len(got) != 1 {
		t.Fatalf("RecentTopics = %v, want one topic", got)
	}

	m.EndSession("s1")
	if got := m.Snapshot(ctx, "s1").RecentTopics; len(got) != 0 {
		t.Fatalf("RecentTopics = %v, want empty after session end without consent", got)
	}
}

type failingStore struct{}

func (failingStore) Load(context.Context, string) (Document, error) {
	return Document{}, errors.New("store down")
}
func (failingStore) Save(context.Context, string, Document) error {
	return errors.New("store down")
}
func (failingStore) Close() error { return nil }

func TestSnapshotFailsOpenOnStoreError(t *testing.T) {
	ctx := context.Background()
	m := NewManager(failingStore{}, Options{})

	snap := m.Snapshot(ctx, "s1")
	if snap.ConsentGiven || snap.DisplayName != "" || len(snap.RecentTopics) != 0 {
		t.Fatalf("expected empty context on unreadable store, got %+v", snap)
	}
}

func TestExtractTopicsDeterministic(t *testing.T) {
	vocab := DefaultTopicVocabulary()
	a := ExtractTopics("Tell me about space and animals!", vocab)
	b := ExtractTopics("Tell me about space and animals!", vocab)
	if len(a) != 2 || a[0] != "space" || a[1] != "animals" {
		t.Fatalf("topics = %v, want [space animals]", a)
	}
	if len(b) != len(a) || b[0] != a[0] || b[1] != a[1] {
		t.Fatalf("extraction should be deterministic: %v vs %v", a, b)
	}

	// "spaceship" must not match "space".
	if got := ExtractTopics("my spaceship art project", vocab); len(got) != 1 || got[0] != "art" {
		t.Fatalf("topics = %v, want [art]", got)
	}
}

func TestRecentTopicsKeepsLastThree(t *testing.T) {
	ctx := context.Background()
	m := NewManager(NewInMemoryStore(), Options{})

	for _, q := range []string{
		"tell me about space",
		"a math puzzle",
		"science facts",
		"who made this music",
	} {
		if err := m.RecordInteraction(ctx, "s1", InteractionRecord{Question: q}); err != nil {
			t.Fatalf("RecordInteraction() error = %v", err)
		}
	}

	got := m.Snapshot(ctx, "s1").RecentTopics
	want := []string{"math", "science", "music"}
	if len(got) != len(want) {
		t.Fatalf("RecentTopics = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("RecentTopics = %v, want %v", got, want)
		}
	}
}
