package domain

import (
	"time"
)

// Poll is the currently running question. At most one exists system-wide;
// on completion it is projected into a PollRecord and discarded.
type Poll struct {
	ID        string    `json:"id"`
	Question  string    `json:"question"`
	Options   []string  `json:"options"`
	CreatedAt time.Time `json:"createdAt"`
	// TimeLimit is the answering window in seconds.
	TimeLimit int `json:"timeLimit"`
}

// OptionTally is the vote count for a single option, in the poll's
// original option order.
type OptionTally struct {
	Option string `json:"option"`
	Votes  int    `json:"votes"`
}

// PollRecord is the immutable archival projection of a completed poll.
// Created exactly once per completed poll and never mutated afterward.
type PollRecord struct {
	ID                  string        `json:"id"`
	Question            string        `json:"question"`
	Options             []string      `json:"options"`
	Results             []OptionTally `json:"results"`
	TotalVotes          int           `json:"totalVotes"`
	CreatedAt           time.Time     `json:"createdAt"`
	CompletedAt         time.Time     `json:"completedAt"`
	ViewableByPresenter bool          `json:"viewableByPresenter"`
}
