package memory

import (
	"context"
	"errors"
	"time"
)

// Profile holds consented personal details for one child.
type Profile struct {
	DisplayName  string            `json:"display_name,omitempty"`
	Age          int               `json:"age,omitempty"`
	Preferences  map[string]string `json:"preferences,omitempty"`
	ConsentGiven bool              `json:"consent_given"`
	CreatedAt    time.Time         `json:"created_at,omitempty"`
	UpdatedAt    time.Time         `json:"updated_at,omitempty"`
}

// InteractionRecord stores a single completed conversational turn.
type InteractionRecord struct {
	Timestamp time.Time `json:"timestamp"`
	Emotion   string    `json:"emotion"`
	Question  string    `json:"question"`
	Response  string    `json:"response"`
	Topics    []string  `json:"topics,omitempty"`
}

// Document is the durable per-session record: the profile plus the
// short-term interaction window, oldest first.
type Document struct {
	Profile   Profile             `json:"profile"`
	ShortTerm []InteractionRecord `json:"short_term"`
}

// Store persists one document per session.
type Store interface {
	Load(ctx context.Context, sessionID string) (Document, error)
	Save(ctx context.Context, sessionID string, doc Document) error
	Close() error
}

// ErrNotFound signals a session without a stored document. Callers treat it
// as an empty document.
var ErrNotFound = errors.New("memory document not found")

// ErrConsentRequired rejects profile mutation without an affirmative
// consent flag.
var ErrConsentRequired = errors.New("consent required")

// MinChildAge and MaxChildAge bound the supported audience.
const (
	MinChildAge = 5
	MaxChildAge = 16
)

// ErrAgeOutOfRange rejects an age outside the supported band.
var ErrAgeOutOfRange = errors.New("age out of supported range")

// ValidAge reports whether age falls inside the supported band.
func ValidAge(age int) bool {
	return age >= MinChildAge && age <= MaxChildAge
}
