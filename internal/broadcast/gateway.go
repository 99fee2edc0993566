// Package broadcast provides role-scoped fan-out of server events to
// connected clients.
package broadcast

import (
	"encoding/json"
	"log/slog"
	"sync"
)

// Role scopes which broadcasts a client receives. A freshly accepted
// connection has RoleNone until it identifies itself with a join event.
type Role int

const (
	// RoleNone receives only all-audience events.
	RoleNone Role = iota
	// RoleParticipant receives participant and all-audience events.
	RoleParticipant
	// RolePresenter receives presenter and all-audience events.
	RolePresenter
)

// Envelope is the wire shape of every server-to-client event.
type Envelope struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

// Sink is one ordered delivery channel to a single client. Implementations
// must preserve send order per sink; no ordering is guaranteed across sinks.
type Sink interface {
	Send(env Envelope) error
}

// Client is a registered sink plus its current role.
type Client struct {
	sink Sink

	mu   sync.Mutex
	role Role
}

// SetRole updates the client's broadcast audience.
func (c *Client) SetRole(role Role) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.role = role
}

// Role returns the client's current audience role.
func (c *Client) Role() Role {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.role
}

// Send delivers one event to this client only. Fire-and-forget: a failed
// send is logged at debug level and dropped.
func (c *Client) Send(event string, data any) {
	if err := c.sink.Send(Envelope{Event: event, Data: data}); err != nil {
		slog.Debug("Direct send failed", "event", event, "error", err)
	}
}

// Gateway fans events out to role-scoped audiences. Delivery is
// fire-and-forget and at-most-once per currently connected client: no
// retries, no acknowledgments.
type Gateway struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
}

// NewGateway creates an empty gateway.
func NewGateway() *Gateway {
	return &Gateway{clients: make(map[*Client]struct{})}
}

// Add registers a connection's sink and returns its client handle.
func (g *Gateway) Add(sink Sink) *Client {
	c := &Client{sink: sink}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.clients[c] = struct{}{}
	return c
}

// Remove unregisters a client. Safe to call more than once.
func (g *Gateway) Remove(c *Client) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.clients, c)
}

// ToParticipants sends an event to every participant-role client.
func (g *Gateway) ToParticipants(event string, data any) {
	g.send(event, data, func(r Role) bool { return r == RoleParticipant })
}

// ToPresenter sends an event to every presenter-role client.
func (g *Gateway) ToPresenter(event string, data any) {
	g.send(event, data, func(r Role) bool { return r == RolePresenter })
}

// ToAll sends an event to every connected client regardless of role.
func (g *Gateway) ToAll(event string, data any) {
	g.send(event, data, func(Role) bool { return true })
}

// send snapshots the audience under the read lock, then delivers outside it
// so a slow client never blocks registration.
func (g *Gateway) send(event string, data any, include func(Role) bool) {
	g.mu.RLock()
	targets := make([]*Client, 0, len(g.clients))
	for c := range g.clients {
		if include(c.Role()) {
			targets = append(targets, c)
		}
	}
	g.mu.RUnlock()

	env := Envelope{Event: event, Data: data}
	for _, c := range targets {
		if err := c.sink.Send(env); err != nil {
			slog.Debug("Broadcast send failed", "event", event, "error", err)
		}
	}
}

// Marshal encodes an envelope for transports that frame raw bytes.
func Marshal(env Envelope) ([]byte, error) {
	return json.Marshal(env)
}
