// Package domain contains core domain types for the classpulse application.
package domain

// Participant represents one connected poll participant.
//
// The ID is an opaque client-supplied token that survives reconnects (the
// client keeps it in local storage), so a rejoin with the same ID replaces
// the previous entry rather than creating a duplicate.
type Participant struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	HasAnswered bool   `json:"hasAnswered"`
}
