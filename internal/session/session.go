package session

import (
	"context"
	"encoding/json"
	"fmt"

	"dm-relay/internal/errs"
	"dm-relay/internal/models"
	"dm-relay/internal/presence"
	"dm-relay/internal/router"
	"dm-relay/pkg/logger"
)

type State int

const (
	StateConnected State = iota
	StateAnnounced
	StateDisconnected
)

func (s State) String() string {
	switch s {
	case StateConnected:
		return "connected"
	case StateAnnounced:
		return "announced"
	case StateDisconnected:
		return "disconnected"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Transport delivers events to connections.
type Transport interface {
	router.Notifier
	Broadcast(event models.EventName, payload any)
}

// Sender routes one sendMessage event.
type Sender interface {
	HandleSend(ctx context.Context, from presence.ConnectionID, msg models.SendMessage) error
}

// Manager creates sessions and keeps the presence registry in step with
// their lifecycle.
type Manager struct {
	registry  *presence.Registry
	sender    Sender
	transport Transport
}

func NewManager(registry *presence.Registry, sender Sender, transport Transport) *Manager {
	return &Manager{
		registry:  registry,
		sender:    sender,
		transport: transport,
	}
}

// Connect starts a session for a newly accepted connection.
func (m *Manager) Connect(id presence.ConnectionID) *Session {
	l := logger.L()
	l.Info().Str(logger.FieldConnID, string(id)).Msg("user connected")
	return &Session{id: id, manager: m, state: StateConnected}
}

func (m *Manager) broadcastPresence() {
	users := m.registry.Snapshot()
	m.transport.Broadcast(models.EventUsers, users)
}

// Session is the state of one connection. Its methods must be called from
// a single goroutine, the connection's reader.
type Session struct {
	id       presence.ConnectionID
	manager  *Manager
	state    State
	username string
}

func (s *Session) ID() presence.ConnectionID { return s.id }
func (s *Session) State() State              { return s.state }
func (s *Session) Username() string          { return s.username }

// Announce registers username for this connection and broadcasts the new
// presence snapshot. ctx carries the connection-scoped logger. An empty
// name only produces an error event.
func (s *Session) Announce(ctx context.Context, username string) error {
	if s.state == StateDisconnected {
		return nil
	}

	l := logger.Ctx(ctx)

	if err := s.manager.registry.Register(s.id, username); err != nil {
		l.Debug().Err(err).Msg("rejected announce")
		s.notifyError(ctx, err.Error())
		return err
	}

	s.username = username
	s.state = StateAnnounced
	l.Info().Str(logger.FieldUsername, username).Int(logger.FieldOnline, s.manager.registry.Len()).Msg("user announced")

	s.manager.broadcastPresence()
	return nil
}

// SendMessage hands msg to the router. The sender field is taken as sent
// by the client.
func (s *Session) SendMessage(ctx context.Context, msg models.SendMessage) error {
	if s.state == StateDisconnected {
		return nil
	}
	return s.manager.sender.HandleSend(ctx, s.id, msg)
}

// Disconnect ends the session from any state. It is safe to call twice.
func (s *Session) Disconnect() {
	if s.state == StateDisconnected {
		return
	}
	s.state = StateDisconnected

	s.manager.registry.Unregister(s.id)

	l := logger.L()
	l.Info().
		Str(logger.FieldConnID, string(s.id)).
		Str(logger.FieldUsername, s.username).
		Int(logger.FieldOnline, s.manager.registry.Len()).
		Msg("user disconnected")

	s.manager.broadcastPresence()
}

// HandleEvent dispatches one inbound envelope. Bad input never ends the
// session; it is answered with an error event.
func (s *Session) HandleEvent(ctx context.Context, env models.Envelope) error {
	if s.state == StateDisconnected {
		return nil
	}

	switch env.Event {
	case models.EventNewUser:
		var username string
		if err := decode(env, &username); err != nil {
			s.notifyError(ctx, err.Error())
			return err
		}
		return s.Announce(ctx, username)

	case models.EventSendMessage:
		var msg models.SendMessage
		if err := decode(env, &msg); err != nil {
			s.notifyError(ctx, err.Error())
			return err
		}
		return s.SendMessage(ctx, msg)

	default:
		err := fmt.Errorf("%w: unknown event %q", errs.ErrInvalidInput, env.Event)
		s.notifyError(ctx, err.Error())
		return err
	}
}

// InvalidFrame reports a frame that could not be decoded as an envelope.
func (s *Session) InvalidFrame(ctx context.Context, cause error) error {
	err := fmt.Errorf("%w: malformed frame: %w", errs.ErrInvalidInput, cause)
	if s.state != StateDisconnected {
		s.notifyError(ctx, err.Error())
	}
	return err
}

func (s *Session) notifyError(ctx context.Context, reason string) {
	if err := s.manager.transport.Notify(s.id, models.EventError, reason); err != nil {
		l := logger.Ctx(ctx)
		l.Debug().Err(err).Msg("could not deliver error event")
	}
}

func decode(env models.Envelope, v any) error {
	if len(env.Data) == 0 {
		return fmt.Errorf("%w: %s requires data", errs.ErrInvalidInput, env.Event)
	}
	if err := json.Unmarshal(env.Data, v); err != nil {
		return fmt.Errorf("%w: invalid %s payload", errs.ErrInvalidInput, env.Event)
	}
	return nil
}
