// Package events publishes instance lifecycle telemetry (creation,
// client join/leave) to NATS for out-of-process consumers such as a
// fleet dashboard. It never carries game traffic — CustomMsg frames
// stay inside the instance actor — only coarse lifecycle notices.
package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// Subjects used for each lifecycle notice.
const (
	SubjectInstanceCreated = "hostess.instance.created"
	SubjectClientJoined    = "hostess.instance.client_joined"
	SubjectClientLeft      = "hostess.instance.client_left"
)

// InstanceCreated is published once per successful NewInstance call.
type InstanceCreated struct {
	InstanceID uuid.UUID `json:"instance_id"`
	Creator    uuid.UUID `json:"creator"`
	At         time.Time `json:"at"`
}

// ClientJoined is published whenever a client is admitted to an
// instance.
type ClientJoined struct {
	InstanceID uuid.UUID `json:"instance_id"`
	ClientID   uuid.UUID `json:"client_id"`
	ClientName string    `json:"client_name"`
	At         time.Time `json:"at"`
}

// ClientLeft is published whenever an attached client's session ends.
type ClientLeft struct {
	InstanceID uuid.UUID `json:"instance_id"`
	ClientID   uuid.UUID `json:"client_id"`
	At         time.Time `json:"at"`
}

// Bus is a thin, best-effort publisher over a NATS connection. A nil
// *Bus is valid everywhere one is accepted as an optional dependency.
type Bus struct {
	conn   *nats.Conn
	logger *zap.Logger
}

// Config configures the underlying NATS connection.
type Config struct {
	URL             string
	MaxReconnects   int
	ReconnectWait   time.Duration
	ReconnectJitter time.Duration
}

// Connect dials NATS and returns a Bus. Connection-state changes are
// logged but never returned as errors after the initial dial succeeds
// — a bus that loses its broker degrades to dropped events, not a
// crashed master.
func Connect(cfg Config, logger *zap.Logger) (*Bus, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	b := &Bus{logger: logger}

	opts := []nats.Option{
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.ReconnectJitter(cfg.ReconnectJitter, cfg.ReconnectJitter),
		nats.ConnectHandler(func(c *nats.Conn) {
			logger.Info("events bus connected", zap.String("url", c.ConnectedUrl()))
		}),
		nats.DisconnectErrHandler(func(c *nats.Conn, err error) {
			logger.Warn("events bus disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("events bus reconnected", zap.String("url", c.ConnectedUrl()))
		}),
		nats.ErrorHandler(func(c *nats.Conn, s *nats.Subscription, err error) {
			logger.Warn("events bus error", zap.Error(err))
		}),
	}

	conn, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, err
	}
	b.conn = conn
	return b, nil
}

func (b *Bus) publish(subject string, v any) {
	if b == nil || b.conn == nil {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		b.logger.Warn("events marshal failed", zap.String("subject", subject), zap.Error(err))
		return
	}
	if err := b.conn.Publish(subject, data); err != nil {
		b.logger.Warn("events publish failed", zap.String("subject", subject), zap.Error(err))
	}
}

// PublishInstanceCreated is a best-effort, non-blocking publish.
func (b *Bus) PublishInstanceCreated(e InstanceCreated) { b.publish(SubjectInstanceCreated, e) }

// PublishClientJoined is a best-effort, non-blocking publish.
func (b *Bus) PublishClientJoined(e ClientJoined) { b.publish(SubjectClientJoined, e) }

// PublishClientLeft is a best-effort, non-blocking publish.
func (b *Bus) PublishClientLeft(e ClientLeft) { b.publish(SubjectClientLeft, e) }

// Close closes the underlying NATS connection without draining it.
func (b *Bus) Close() {
	if b == nil || b.conn == nil {
		return
	}
	b.conn.Close()
}
