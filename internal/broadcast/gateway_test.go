package broadcast

import (
	"errors"
	"sync"
	"testing"
)

type recordingSink struct {
	mu   sync.Mutex
	envs []Envelope
	fail bool
}

func (s *recordingSink) Send(env Envelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errors.New("sink closed")
	}
	s.envs = append(s.envs, env)
	return nil
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.envs)
}

func TestGateway_RoleScoping(t *testing.T) {
	g := NewGateway()

	anon := &recordingSink{}
	participant := &recordingSink{}
	presenter := &recordingSink{}

	g.Add(anon)
	g.Add(participant).SetRole(RoleParticipant)
	g.Add(presenter).SetRole(RolePresenter)

	g.ToParticipants("pollStarted", nil)
	if participant.count() != 1 {
		t.Errorf("Expected participant delivery, got %d", participant.count())
	}
	if anon.count() != 0 || presenter.count() != 0 {
		t.Error("Expected participant-scoped event to skip other roles")
	}

	g.ToPresenter("answerSubmitted", nil)
	if presenter.count() != 1 {
		t.Errorf("Expected presenter delivery, got %d", presenter.count())
	}
	if participant.count() != 1 || anon.count() != 0 {
		t.Error("Expected presenter-scoped event to skip other roles")
	}

	g.ToAll("pollCompleted", nil)
	if anon.count() != 1 || participant.count() != 2 || presenter.count() != 2 {
		t.Error("Expected all-audience event on every connection")
	}
}

func TestGateway_RemoveStopsDelivery(t *testing.T) {
	g := NewGateway()
	sink := &recordingSink{}
	c := g.Add(sink)
	c.SetRole(RoleParticipant)

	g.ToParticipants("pollStarted", nil)
	g.Remove(c)
	g.ToParticipants("pollStarted", nil)

	if sink.count() != 1 {
		t.Errorf("Expected no delivery after removal, got %d", sink.count())
	}

	// Double remove is safe.
	g.Remove(c)
}

func TestGateway_FailedSendIsDropped(t *testing.T) {
	g := NewGateway()
	broken := &recordingSink{fail: true}
	healthy := &recordingSink{}
	g.Add(broken).SetRole(RoleParticipant)
	g.Add(healthy).SetRole(RoleParticipant)

	// Fire-and-forget: one broken sink must not affect the rest.
	g.ToParticipants("pollStarted", nil)
	if healthy.count() != 1 {
		t.Errorf("Expected healthy sink delivery, got %d", healthy.count())
	}
}

func TestClient_DirectSend(t *testing.T) {
	g := NewGateway()
	sink := &recordingSink{}
	c := g.Add(sink)

	c.Send("pollStarted", map[string]string{"id": "x"})
	if sink.count() != 1 {
		t.Fatalf("Expected direct delivery, got %d", sink.count())
	}
	if sink.envs[0].Event != "pollStarted" {
		t.Errorf("Unexpected event %q", sink.envs[0].Event)
	}
}

func TestClient_RoleTransitions(t *testing.T) {
	g := NewGateway()
	sink := &recordingSink{}
	c := g.Add(sink)

	if c.Role() != RoleNone {
		t.Error("Expected fresh connection to have no role")
	}
	c.SetRole(RolePresenter)
	if c.Role() != RolePresenter {
		t.Error("Expected presenter role after SetRole")
	}
}
