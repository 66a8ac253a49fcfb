package router

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"dm-relay/internal/database"
	"dm-relay/internal/errs"
	"dm-relay/internal/models"
	"dm-relay/internal/presence"
	"dm-relay/pkg/logger"

	"github.com/go-playground/validator/v10"
)

// Notifier pushes one event to one connection.
type Notifier interface {
	Notify(id presence.ConnectionID, event models.EventName, payload any) error
}

// Router persists direct messages and delivers them live when the
// recipient is online. The store write always completes before delivery
// is attempted.
type Router struct {
	store     database.MessageStore
	presence  *presence.Registry
	notifier  Notifier
	validator *validator.Validate
	now       func() time.Time
}

type Option func(*Router)

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(r *Router) {
		r.now = now
	}
}

func New(store database.MessageStore, registry *presence.Registry, notifier Notifier, opts ...Option) *Router {
	r := &Router{
		store:     store,
		presence:  registry,
		notifier:  notifier,
		validator: validator.New(validator.WithRequiredStructEnabled()),
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// HandleSend validates, persists and delivers msg sent from connection from.
// ctx is expected to carry a logger already scoped to that connection.
// Validation and store failures are reported to the sender with an error
// event and returned. An offline recipient is not an error.
func (r *Router) HandleSend(ctx context.Context, from presence.ConnectionID, msg models.SendMessage) error {
	l := logger.Ctx(ctx).With().
		Str(logger.FieldSender, msg.Sender).
		Str(logger.FieldRecipient, msg.Recipient).
		Logger()

	if err := r.validate(msg); err != nil {
		l.Debug().Err(err).Msg("rejected message")
		r.notifyError(ctx, from, err.Error())
		return err
	}

	record := msg.ToChatMessage(r.now())
	if err := r.store.AppendMessage(ctx, record); err != nil {
		l.Error().Err(err).Msg("failed to save message")
		r.notifyError(ctx, from, errs.ErrPersistence.Error())
		return fmt.Errorf("%w: %w", errs.ErrPersistence, err)
	}

	to, ok := r.presence.Lookup(msg.Recipient)
	if !ok {
		l.Debug().Int64("message_id", record.ID).Msg("recipient offline, message stored only")
		return nil
	}

	if err := r.notifier.Notify(to, models.EventReceiveMessage, msg); err != nil {
		// best effort: the log already has the message
		l.Debug().Err(err).Str("to", string(to)).Msg("live delivery failed")
		return nil
	}
	l.Debug().Int64("message_id", record.ID).Str("to", string(to)).Msg("message delivered")
	return nil
}

func (r *Router) validate(msg models.SendMessage) error {
	err := r.validator.Struct(msg)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%w: %w", errs.ErrInvalidInput, err)
	}

	missing := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		missing = append(missing, strings.ToLower(fe.Field()))
	}
	return fmt.Errorf("%w: %s required", errs.ErrInvalidInput, strings.Join(missing, ", "))
}

func (r *Router) notifyError(ctx context.Context, to presence.ConnectionID, reason string) {
	if err := r.notifier.Notify(to, models.EventError, reason); err != nil {
		l := logger.Ctx(ctx)
		l.Debug().Err(err).Msg("could not report error to sender")
	}
}
