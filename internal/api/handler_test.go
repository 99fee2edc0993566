package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/ashureev/classpulse/internal/broadcast"
	"github.com/ashureev/classpulse/internal/domain"
	"github.com/ashureev/classpulse/internal/history"
	"github.com/ashureev/classpulse/internal/poll"
	"github.com/ashureev/classpulse/internal/session"
	"github.com/go-chi/chi/v5"
)

type nullSink struct{ mu sync.Mutex }

func (s *nullSink) Send(broadcast.Envelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return nil
}

type fixture struct {
	router    chi.Router
	orch      *poll.Orchestrator
	gateway   *broadcast.Gateway
	store     *history.Fallback
	presenter *broadcast.Client
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gateway := broadcast.NewGateway()
	store := history.NewFallback(nil)
	orch := poll.NewOrchestrator(session.NewRegistry(), gateway, store)
	t.Cleanup(orch.Shutdown)

	presenter := gateway.Add(&nullSink{})
	orch.PresenterJoin(presenter)

	r := chi.NewRouter()
	NewHandler(orch, store).RegisterRoutes(r)

	return &fixture{router: r, orch: orch, gateway: gateway, store: store, presenter: presenter}
}

func (f *fixture) get(t *testing.T, path string) *http.Response {
	t.Helper()
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w.Result()
}

func (f *fixture) joinParticipant(id, name string) {
	f.orch.Join(f.gateway.Add(&nullSink{}), id, name)
}

func TestGetStatus(t *testing.T) {
	f := newFixture(t)
	f.joinParticipant("p1", "Alice")

	resp := f.get(t, "/api/status")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.StatusCode)
	}

	var got struct {
		PollState     string       `json:"pollState"`
		CurrentPoll   *domain.Poll `json:"currentPoll"`
		StudentCount  int          `json:"studentCount"`
		AnsweredCount int          `json:"answeredCount"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if got.PollState != "waiting" || got.StudentCount != 1 || got.CurrentPoll != nil {
		t.Errorf("Unexpected status payload: %+v", got)
	}
}

func TestGetResults_NoActivePoll(t *testing.T) {
	f := newFixture(t)

	resp := f.get(t, "/api/results")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("Expected status 404, got %d", resp.StatusCode)
	}

	var got map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if got["error"] == "" {
		t.Error("Expected error message")
	}
}

func TestGetResults_LiveTally(t *testing.T) {
	f := newFixture(t)
	f.joinParticipant("p1", "Alice")
	f.joinParticipant("p2", "Bob")

	if _, err := f.orch.CreatePoll(f.presenter, "Pick one", []string{"A", "B"}, 10); err != nil {
		t.Fatalf("CreatePoll failed: %v", err)
	}
	f.orch.SubmitAnswer("p1", "A")

	resp := f.get(t, "/api/results")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.StatusCode)
	}

	var got struct {
		Question   string               `json:"question"`
		Results    []domain.OptionTally `json:"results"`
		TotalVotes int                  `json:"totalVotes"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if got.Question != "Pick one" || got.TotalVotes != 1 {
		t.Errorf("Unexpected results payload: %+v", got)
	}
	if len(got.Results) != 2 || got.Results[0].Votes != 1 || got.Results[1].Votes != 0 {
		t.Errorf("Unexpected tallies: %+v", got.Results)
	}
}

func TestGetResults_AfterCompletion(t *testing.T) {
	f := newFixture(t)
	f.joinParticipant("p1", "Alice")

	if _, err := f.orch.CreatePoll(f.presenter, "Pick one", []string{"A", "B"}, 10); err != nil {
		t.Fatalf("CreatePoll failed: %v", err)
	}
	f.orch.SubmitAnswer("p1", "A") // quorum of one completes the poll

	resp := f.get(t, "/api/results")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.StatusCode)
	}

	var got struct {
		Question   string               `json:"question"`
		Results    []domain.OptionTally `json:"results"`
		TotalVotes int                  `json:"totalVotes"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if got.Question != "Pick one" || got.TotalVotes != 1 {
		t.Errorf("Unexpected completed results payload: %+v", got)
	}
}

func TestGetHistory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	resp := f.get(t, "/api/history")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.StatusCode)
	}
	var empty []domain.PollRecord
	if err := json.NewDecoder(resp.Body).Decode(&empty); err != nil {
		t.Fatalf("Expected JSON array for empty history: %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("Expected empty history, got %d", len(empty))
	}

	base := time.Now()
	for i, id := range []string{"r1", "r2"} {
		err := f.store.Append(ctx, domain.PollRecord{
			ID:          id,
			Question:    "Q " + id,
			Options:     []string{"A", "B"},
			Results:     []domain.OptionTally{{Option: "A", Votes: 1}, {Option: "B", Votes: 0}},
			TotalVotes:  1,
			CreatedAt:   base,
			CompletedAt: base.Add(time.Duration(i) * time.Second),
		})
		if err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	resp = f.get(t, "/api/history")
	var records []domain.PollRecord
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(records) != 2 || records[0].ID != "r2" || records[1].ID != "r1" {
		t.Errorf("Expected most-recent-first history, got %+v", records)
	}
}

func TestHealth(t *testing.T) {
	f := newFixture(t)

	resp := f.get(t, "/health")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.StatusCode)
	}

	var got struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if got.Status != "healthy" || got.Checks["history"] != "ok" {
		t.Errorf("Unexpected health payload: %+v", got)
	}
}
