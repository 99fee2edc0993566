// Package session tracks connected participants and their per-poll answer
// state. The registry is pure in-memory bookkeeping: it knows nothing about
// poll lifecycle and never emits events.
package session

import (
	"sync"

	"github.com/ashureev/classpulse/internal/domain"
)

// Registry holds the participant roster and the answer set for the poll
// currently in flight. Safe for concurrent use.
type Registry struct {
	mu           sync.RWMutex
	participants map[string]*domain.Participant
	answers      map[string]string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		participants: make(map[string]*domain.Participant),
		answers:      make(map[string]string),
	}
}

// Join inserts or replaces the participant entry. A rejoin with a known ID
// replaces the previous entry, so a fresh join always starts with
// HasAnswered=false.
func (r *Registry) Join(participantID, name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.participants[participantID] = &domain.Participant{
		ID:   participantID,
		Name: name,
	}
}

// Leave removes the participant and any answer they recorded. No-op if the
// participant is unknown.
func (r *Registry) Leave(participantID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.participants, participantID)
	delete(r.answers, participantID)
}

// RecordAnswer stores the participant's answer and marks them as answered.
// Returns false without side effects if the participant is unknown or has
// already answered; a second submission never overwrites the first.
func (r *Registry) RecordAnswer(participantID, option string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.participants[participantID]
	if !ok || p.HasAnswered {
		return false
	}
	p.HasAnswered = true
	r.answers[participantID] = option
	return true
}

// ResetAnswers clears every participant's answered flag and the answer set.
// Called when a new poll starts.
func (r *Registry) ResetAnswers() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.participants {
		p.HasAnswered = false
	}
	r.answers = make(map[string]string)
}

// AllAnswered reports whether every registered participant has answered.
// Vacuously true with zero participants; callers that treat this as a
// completion quorum must check Count first.
func (r *Registry) AllAnswered() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.participants {
		if !p.HasAnswered {
			return false
		}
	}
	return true
}

// Count returns the number of registered participants.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.participants)
}

// AnsweredCount returns how many participants have answered the current poll.
func (r *Registry) AnsweredCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, p := range r.participants {
		if p.HasAnswered {
			n++
		}
	}
	return n
}

// Get returns a copy of the participant entry.
func (r *Registry) Get(participantID string) (domain.Participant, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.participants[participantID]
	if !ok {
		return domain.Participant{}, false
	}
	return *p, true
}

// Answers returns a copy of the current answer set, keyed by participant ID.
func (r *Registry) Answers() map[string]string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]string, len(r.answers))
	for id, a := range r.answers {
		out[id] = a
	}
	return out
}

// Participants returns a snapshot of the current roster.
func (r *Registry) Participants() []domain.Participant {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Participant, 0, len(r.participants))
	for _, p := range r.participants {
		out = append(out, *p)
	}
	return out
}
