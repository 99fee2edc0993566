// Package ws exposes the poll event protocol over WebSocket connections.
package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"regexp"
	"sync"
	"time"

	"github.com/ashureev/classpulse/internal/broadcast"
	"github.com/ashureev/classpulse/internal/poll"
	"github.com/coder/websocket"
)

// participantIDPattern bounds the opaque client-supplied participant token.
var participantIDPattern = regexp.MustCompile(`^[A-Za-z0-9._:-]{1,128}$`)

const writeTimeout = 5 * time.Second

// Handler upgrades connections and dispatches inbound poll events.
type Handler struct {
	orch          *poll.Orchestrator
	gateway       *broadcast.Gateway
	allowedOrigin string
	isDev         bool
}

// NewHandler creates a WebSocket event handler.
func NewHandler(orch *poll.Orchestrator, gateway *broadcast.Gateway, allowedOrigin string, isDev bool) *Handler {
	return &Handler{
		orch:          orch,
		gateway:       gateway,
		allowedOrigin: allowedOrigin,
		isDev:         isDev,
	}
}

// inbound is the client-to-server message envelope.
type inbound struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type joinPayload struct {
	Name          string `json:"name"`
	ParticipantID string `json:"participantId"`
}

type createPollPayload struct {
	Question  string   `json:"question"`
	Options   []string `json:"options"`
	TimeLimit int      `json:"timeLimit"`
}

type submitAnswerPayload struct {
	Answer string `json:"answer"`
}

type chatPayload struct {
	Message string `json:"message"`
}

// connSink adapts a websocket connection to broadcast.Sink. The mutex keeps
// each connection a single ordered channel even when broadcasts and direct
// sends interleave.
type connSink struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (s *connSink) Send(env broadcast.Envelope) error {
	data, err := broadcast.Marshal(env)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	return s.conn.Write(ctx, websocket.MessageText, data)
}

// ServeHTTP implements http.Handler for WebSocket upgrade.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !h.checkOrigin(r) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("Failed to accept WebSocket", "error", err, "ip", r.RemoteAddr)
		return
	}
	defer func() {
		if closeErr := conn.Close(websocket.StatusNormalClosure, "connection ended"); closeErr != nil {
			slog.Debug("Failed to close websocket", "error", closeErr)
		}
	}()

	sink := &connSink{conn: conn}
	client := h.gateway.Add(sink)
	defer h.gateway.Remove(client)

	slog.Info("WebSocket connection accepted", "ip", r.RemoteAddr)

	// Set only after a successful join; disconnection then counts as leave.
	participantID := h.readLoop(r.Context(), conn, client)
	if participantID != "" {
		h.orch.Leave(participantID)
	}
}

// readLoop dispatches inbound events until the connection closes. Returns
// the participant ID if this connection joined as a participant.
func (h *Handler) readLoop(ctx context.Context, conn *websocket.Conn, client *broadcast.Client) string {
	participantID := ""
	for {
		_, message, err := conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != -1 {
				slog.Debug("WebSocket closed by client")
			} else {
				slog.Debug("WebSocket read ended", "error", err)
			}
			return participantID
		}

		var msg inbound
		if err := json.Unmarshal(message, &msg); err != nil {
			slog.Debug("Malformed event envelope dropped", "error", err)
			continue
		}

		switch msg.Event {
		case broadcast.EventJoin:
			var p joinPayload
			if err := json.Unmarshal(msg.Data, &p); err != nil || !participantIDPattern.MatchString(p.ParticipantID) {
				slog.Warn("Join rejected, invalid participant id")
				continue
			}
			// A re-join under a new id releases the old identity, so the
			// connection never holds more than one registry entry.
			if participantID != "" && participantID != p.ParticipantID {
				h.orch.Leave(participantID)
			}
			participantID = p.ParticipantID
			h.orch.Join(client, p.ParticipantID, p.Name)

		case broadcast.EventPresenterJoin:
			h.orch.PresenterJoin(client)

		case broadcast.EventCreatePoll:
			if client.Role() != broadcast.RolePresenter {
				slog.Debug("createPoll ignored from non-presenter connection")
				continue
			}
			var p createPollPayload
			if err := json.Unmarshal(msg.Data, &p); err != nil {
				slog.Debug("Malformed createPoll payload dropped", "error", err)
				continue
			}
			if _, err := h.orch.CreatePoll(client, p.Question, p.Options, p.TimeLimit); err != nil {
				slog.Warn("Poll creation rejected", "error", err)
			}

		case broadcast.EventSubmitAnswer:
			if participantID == "" {
				slog.Debug("submitAnswer ignored from connection that never joined")
				continue
			}
			var p submitAnswerPayload
			if err := json.Unmarshal(msg.Data, &p); err != nil {
				slog.Debug("Malformed submitAnswer payload dropped", "error", err)
				continue
			}
			h.orch.SubmitAnswer(participantID, p.Answer)

		case broadcast.EventChatMessage:
			var p chatPayload
			if err := json.Unmarshal(msg.Data, &p); err != nil {
				slog.Debug("Malformed chatMessage payload dropped", "error", err)
				continue
			}
			h.orch.Chat(participantID, p.Message)

		default:
			slog.Debug("Unknown event dropped", "event", msg.Event)
		}
	}
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	if h.isDev {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" || h.allowedOrigin == "*" {
		return true
	}
	if origin == h.allowedOrigin {
		return true
	}
	slog.Warn("WebSocket origin rejected", "origin", origin, "allowed", h.allowedOrigin)
	return false
}
