package poll

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/ashureev/classpulse/internal/broadcast"
	"github.com/ashureev/classpulse/internal/domain"
	"github.com/ashureev/classpulse/internal/history"
	"github.com/ashureev/classpulse/internal/session"
	"github.com/google/uuid"
)

// ErrNoActivePoll is returned by Results when no poll is running.
var ErrNoActivePoll = errors.New("no active poll")

// presenterSenderID stamps chat messages sent from a presenter connection,
// which has no participant identity.
const presenterSenderID = "presenter"

// RosterChange notifies the presenter that a participant joined or left.
type RosterChange struct {
	ID            string `json:"id"`
	Name          string `json:"name,omitempty"`
	TotalStudents int    `json:"totalStudents"`
}

// AnswerProgress is the per-submission progress update sent to the presenter.
type AnswerProgress struct {
	ParticipantID string `json:"participantId"`
	Name          string `json:"name"`
	Answer        string `json:"answer"`
	AnsweredCount int    `json:"answeredCount"`
	TotalStudents int    `json:"totalStudents"`
}

// CompletedResults is the terminal broadcast of one poll.
type CompletedResults struct {
	Question   string               `json:"question"`
	Options    []string             `json:"options"`
	Results    []domain.OptionTally `json:"results"`
	TotalVotes int                  `json:"totalVotes"`
}

// PresenterSnapshot is the catch-up state sent to a presenter on join.
type PresenterSnapshot struct {
	PollState    State                `json:"pollState"`
	CurrentPoll  *domain.Poll         `json:"currentPoll,omitempty"`
	Participants []domain.Participant `json:"participants"`
}

// Status is the polling-surface view of the lifecycle and live counts.
type Status struct {
	PollState     State        `json:"pollState"`
	CurrentPoll   *domain.Poll `json:"currentPoll,omitempty"`
	StudentCount  int          `json:"studentCount"`
	AnsweredCount int          `json:"answeredCount"`
}

// errorPayload carries a pollError message.
type errorPayload struct {
	Message string `json:"message"`
}

// Orchestrator validates every inbound command against the current
// lifecycle state, mutates the registry and lifecycle, drives the
// completion timer, and triggers broadcast and persistence.
//
// It is the single serialization point of the system: every command,
// including the timer callback, runs under one mutex, so quorum completion
// and timeout completion can never both fire for the same poll.
type Orchestrator struct {
	mu        sync.Mutex
	registry  *session.Registry
	lifecycle *Lifecycle
	gateway   *broadcast.Gateway
	store     history.Store
	timer     *time.Timer

	// Results of the most recently completed poll, for the REST surface.
	lastResults *CompletedResults

	persistWG sync.WaitGroup
}

// NewOrchestrator wires the orchestrator to its collaborators.
func NewOrchestrator(registry *session.Registry, gateway *broadcast.Gateway, store history.Store) *Orchestrator {
	return &Orchestrator{
		registry:  registry,
		lifecycle: NewLifecycle(),
		gateway:   gateway,
		store:     store,
	}
}

// Join registers a participant and scopes its connection to the participant
// audience. A participant joining while a poll is active receives the
// current poll snapshot on its own connection (late-join catch-up).
func (o *Orchestrator) Join(c *broadcast.Client, participantID, name string) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.registry.Join(participantID, name)
	c.SetRole(broadcast.RoleParticipant)

	if cur := o.lifecycle.Current(); cur != nil {
		c.Send(broadcast.EventPollStarted, cur)
	}

	o.gateway.ToPresenter(broadcast.EventStudentJoined, RosterChange{
		ID:            participantID,
		Name:          name,
		TotalStudents: o.registry.Count(),
	})
	slog.Info("Participant joined", "participant_id", participantID, "name", name, "total", o.registry.Count())
}

// Leave removes a participant and its recorded answer. No-op for
// connections that never joined as a participant.
func (o *Orchestrator) Leave(participantID string) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if _, ok := o.registry.Get(participantID); !ok {
		return
	}
	o.registry.Leave(participantID)

	o.gateway.ToPresenter(broadcast.EventStudentLeft, RosterChange{
		ID:            participantID,
		TotalStudents: o.registry.Count(),
	})
	slog.Info("Participant left", "participant_id", participantID, "total", o.registry.Count())
}

// PresenterJoin scopes the connection to the presenter audience and replies
// with a full state snapshot so a reconnecting presenter catches up.
func (o *Orchestrator) PresenterJoin(c *broadcast.Client) {
	o.mu.Lock()
	defer o.mu.Unlock()

	c.SetRole(broadcast.RolePresenter)
	c.Send(broadcast.EventPresenterConnected, PresenterSnapshot{
		PollState:    o.lifecycle.State(),
		CurrentPoll:  o.lifecycle.Current(),
		Participants: o.registry.Participants(),
	})
	slog.Info("Presenter connected")
}

// CreatePoll starts a new poll. While a poll is active it is rejected with
// a pollError unless every registered participant has already answered, in
// which case the stale poll is completed and archived first.
func (o *Orchestrator) CreatePoll(c *broadcast.Client, question string, options []string, timeLimit int) (*domain.Poll, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	// Validate up front so a malformed request cannot trigger the implicit
	// completion of a fully-answered stale poll below.
	question, options, err := ValidateInput(question, options)
	if err != nil {
		c.Send(broadcast.EventPollError, errorPayload{Message: err.Error()})
		return nil, err
	}

	if o.lifecycle.State() == StateActive {
		if !o.registry.AllAnswered() {
			c.Send(broadcast.EventPollError, errorPayload{
				Message: "Cannot create new poll. Students are still answering current poll.",
			})
			return nil, ErrPollInProgress
		}
		// Everyone has answered; archive the stale poll before replacing it.
		o.completeLocked()
	}

	p, err := o.lifecycle.Start(question, options, timeLimit)
	if err != nil {
		c.Send(broadcast.EventPollError, errorPayload{Message: err.Error()})
		return nil, err
	}

	o.registry.ResetAnswers()
	o.armTimer(p)

	o.gateway.ToParticipants(broadcast.EventPollStarted, p)
	c.Send(broadcast.EventPollCreated, p)

	slog.Info("Poll created", "poll_id", p.ID, "question", p.Question, "time_limit", p.TimeLimit)
	return p, nil
}

// SubmitAnswer records one participant's answer. Submissions while no poll
// is active, from unknown participants, or after a first answer are
// silently ignored as stale or duplicate client messages. The answer that
// completes the quorum triggers completion synchronously.
func (o *Orchestrator) SubmitAnswer(participantID, answer string) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.lifecycle.State() != StateActive {
		slog.Debug("Answer ignored, no active poll", "participant_id", participantID)
		return
	}
	if !o.registry.RecordAnswer(participantID, answer) {
		slog.Debug("Answer ignored, unknown or already answered", "participant_id", participantID)
		return
	}

	p, _ := o.registry.Get(participantID)
	o.gateway.ToPresenter(broadcast.EventAnswerSubmitted, AnswerProgress{
		ParticipantID: participantID,
		Name:          p.Name,
		Answer:        answer,
		AnsweredCount: o.registry.AnsweredCount(),
		TotalStudents: o.registry.Count(),
	})
	slog.Info("Answer submitted", "participant_id", participantID,
		"answered", o.registry.AnsweredCount(), "total", o.registry.Count())

	// Quorum check only runs after a recorded answer, so an empty room can
	// never auto-complete a poll.
	if o.registry.AllAnswered() {
		o.completeLocked()
	}
}

// Chat relays a chat message to everyone, stamped with the sender's
// identity and the server time.
func (o *Orchestrator) Chat(senderID, message string) {
	o.mu.Lock()
	defer o.mu.Unlock()

	msg := domain.ChatMessage{
		ID:         uuid.NewString(),
		SenderID:   presenterSenderID,
		SenderName: "Presenter",
		Message:    message,
		Timestamp:  time.Now(),
	}
	if p, ok := o.registry.Get(senderID); ok {
		msg.SenderID = senderID
		msg.SenderName = p.Name
	}
	o.gateway.ToAll(broadcast.EventChatMessage, msg)
}

// Status returns the lifecycle state and live counts for the REST surface.
func (o *Orchestrator) Status() Status {
	o.mu.Lock()
	defer o.mu.Unlock()
	return Status{
		PollState:     o.lifecycle.State(),
		CurrentPoll:   o.lifecycle.Current(),
		StudentCount:  o.registry.Count(),
		AnsweredCount: o.registry.AnsweredCount(),
	}
}

// Results returns the live tally of the currently active poll, or the final
// results of the last completed poll when none is running. ErrNoActivePoll
// only before the first poll.
func (o *Orchestrator) Results() (CompletedResults, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	cur := o.lifecycle.Current()
	if cur == nil {
		if o.lastResults != nil {
			return *o.lastResults, nil
		}
		return CompletedResults{}, ErrNoActivePoll
	}
	results := Tally(cur, o.registry.Answers())
	return CompletedResults{
		Question:   cur.Question,
		Options:    cur.Options,
		Results:    results,
		TotalVotes: TotalVotes(results),
	}, nil
}

// History returns the archived poll records, most recent first.
func (o *Orchestrator) History(ctx context.Context) ([]domain.PollRecord, error) {
	return o.store.List(ctx)
}

// Shutdown cancels any pending completion timer and waits for in-flight
// persistence writes to drain.
func (o *Orchestrator) Shutdown() {
	o.mu.Lock()
	if o.timer != nil {
		o.timer.Stop()
		o.timer = nil
	}
	o.mu.Unlock()
	o.persistWG.Wait()
}

// armTimer starts the auto-close timer for the poll, cancelling any prior
// timer first.
func (o *Orchestrator) armTimer(p *domain.Poll) {
	if o.timer != nil {
		o.timer.Stop()
	}
	pollID := p.ID
	o.timer = time.AfterFunc(time.Duration(p.TimeLimit)*time.Second, func() {
		o.handleTimeout(pollID)
	})
}

// handleTimeout is the timer-driven completion path. It re-checks under the
// lock that the same poll is still active, so a timer that lost the race
// against quorum completion (or against a replacement poll) is a no-op.
func (o *Orchestrator) handleTimeout(pollID string) {
	o.mu.Lock()
	defer o.mu.Unlock()

	cur := o.lifecycle.Current()
	if cur == nil || cur.ID != pollID {
		return
	}
	slog.Info("Poll time limit reached", "poll_id", pollID)
	o.completeLocked()
}

// completeLocked finishes the active poll: tally, broadcast, archive.
// Idempotent via the lifecycle's single-entry guard. Must be called with
// o.mu held. The broadcast reflects state that has already been mutated;
// persistence happens afterward off the lock and never blocks delivery.
func (o *Orchestrator) completeLocked() {
	p := o.lifecycle.Complete()
	if p == nil {
		return
	}
	if o.timer != nil {
		o.timer.Stop()
		o.timer = nil
	}

	results := Tally(p, o.registry.Answers())
	total := TotalVotes(results)

	record := domain.PollRecord{
		ID:                  p.ID,
		Question:            p.Question,
		Options:             p.Options,
		Results:             results,
		TotalVotes:          total,
		CreatedAt:           p.CreatedAt,
		CompletedAt:         time.Now(),
		ViewableByPresenter: true,
	}

	final := CompletedResults{
		Question:   p.Question,
		Options:    p.Options,
		Results:    results,
		TotalVotes: total,
	}
	o.lastResults = &final
	o.gateway.ToAll(broadcast.EventPollCompleted, final)

	o.registry.ResetAnswers()

	o.persistWG.Add(1)
	go o.persist(record)

	slog.Info("Poll completed", "poll_id", p.ID, "total_votes", total)
}

func (o *Orchestrator) persist(record domain.PollRecord) {
	defer o.persistWG.Done()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := o.store.Append(ctx, record); err != nil {
		slog.Error("Failed to archive poll record", "poll_id", record.ID, "error", err)
	}
}
