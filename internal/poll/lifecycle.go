// Package poll implements the poll lifecycle state machine and the
// orchestrator that drives it.
package poll

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ashureev/classpulse/internal/domain"
	"github.com/google/uuid"
)

// State is the lifecycle phase of the poll system.
type State string

const (
	// StateWaiting means no poll has run yet.
	StateWaiting State = "waiting"
	// StateActive means a poll is accepting answers.
	StateActive State = "active"
	// StateCompleted means the last poll has been tallied and archived.
	// Functionally equivalent to StateWaiting for the next Start.
	StateCompleted State = "completed"
)

// Time limit bounds in seconds. Requests outside the range are clamped,
// not rejected.
const (
	MinTimeLimit     = 10
	MaxTimeLimit     = 300
	DefaultTimeLimit = 60
)

// ErrPollInProgress is returned when a new poll is requested while the
// current one still has unanswered participants.
var ErrPollInProgress = errors.New("poll in progress")

// ValidationError reports malformed poll input, rejected before any state
// mutation.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid poll: " + e.Reason
}

// Lifecycle is the state machine governing one poll at a time. It holds no
// locks; the orchestrator serializes access.
type Lifecycle struct {
	state   State
	current *domain.Poll
}

// NewLifecycle returns a lifecycle in the waiting state.
func NewLifecycle() *Lifecycle {
	return &Lifecycle{state: StateWaiting}
}

// State returns the current lifecycle phase.
func (l *Lifecycle) State() State {
	return l.state
}

// Current returns the active poll, or nil outside the active state.
func (l *Lifecycle) Current() *domain.Poll {
	return l.current
}

// Start validates the request and activates a new poll. Validation happens
// before any mutation: a non-empty question and at least two distinct
// non-empty option labels are required. The time limit is clamped to
// [MinTimeLimit, MaxTimeLimit]; zero or negative means DefaultTimeLimit.
//
// Start must not be called while a poll is active; the orchestrator
// completes any stale active poll first.
func (l *Lifecycle) Start(question string, options []string, timeLimit int) (*domain.Poll, error) {
	if l.state == StateActive {
		return nil, ErrPollInProgress
	}

	question, cleaned, err := ValidateInput(question, options)
	if err != nil {
		return nil, err
	}

	l.current = &domain.Poll{
		ID:        uuid.NewString(),
		Question:  question,
		Options:   cleaned,
		CreatedAt: time.Now(),
		TimeLimit: ClampTimeLimit(timeLimit),
	}
	l.state = StateActive
	return l.current, nil
}

// Complete transitions the active poll to completed and returns it. The
// single-entry guard: outside the active state it returns nil, so a second
// completion trigger for the same poll is a no-op.
func (l *Lifecycle) Complete() *domain.Poll {
	if l.state != StateActive {
		return nil
	}
	p := l.current
	l.current = nil
	l.state = StateCompleted
	return p
}

// ValidateInput normalizes and validates a poll request without touching any
// state: the question must be non-empty after trimming, and the options must
// be at least two distinct non-empty labels. Returns the trimmed question and
// cleaned option list.
func ValidateInput(question string, options []string) (string, []string, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", nil, &ValidationError{Reason: "question must not be empty"}
	}

	cleaned := make([]string, 0, len(options))
	seen := make(map[string]struct{}, len(options))
	for _, opt := range options {
		opt = strings.TrimSpace(opt)
		if opt == "" {
			return "", nil, &ValidationError{Reason: "option labels must not be empty"}
		}
		if _, dup := seen[opt]; dup {
			return "", nil, &ValidationError{Reason: fmt.Sprintf("duplicate option %q", opt)}
		}
		seen[opt] = struct{}{}
		cleaned = append(cleaned, opt)
	}
	if len(cleaned) < 2 {
		return "", nil, &ValidationError{Reason: "at least two options required"}
	}
	return question, cleaned, nil
}

// ClampTimeLimit bounds a requested time limit to the allowed range.
func ClampTimeLimit(seconds int) int {
	switch {
	case seconds <= 0:
		return DefaultTimeLimit
	case seconds < MinTimeLimit:
		return MinTimeLimit
	case seconds > MaxTimeLimit:
		return MaxTimeLimit
	default:
		return seconds
	}
}

// Tally counts answers against the poll's ordered option list. Answers that
// match no known option are dropped from the count. The returned slice
// preserves the original option order.
func Tally(p *domain.Poll, answers map[string]string) []domain.OptionTally {
	results := make([]domain.OptionTally, len(p.Options))
	index := make(map[string]int, len(p.Options))
	for i, opt := range p.Options {
		results[i] = domain.OptionTally{Option: opt}
		index[opt] = i
	}
	for _, answer := range answers {
		if i, ok := index[answer]; ok {
			results[i].Votes++
		}
	}
	return results
}

// TotalVotes sums the tallied votes.
func TotalVotes(results []domain.OptionTally) int {
	total := 0
	for _, r := range results {
		total += r.Votes
	}
	return total
}
