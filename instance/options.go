package instance

import (
	"go.uber.org/zap"

	"github.com/horup/hostess/internal/events"
	"github.com/horup/hostess/internal/metrics"
)

// Options configures a spawned instance's ambient plumbing. The zero
// value is usable: a no-op logger, no metrics, and the default control
// queue size.
type Options struct {
	Logger  *zap.Logger
	Metrics *metrics.Registry
	// Events publishes join/leave lifecycle notices. Optional; a nil
	// *events.Bus is a no-op.
	Events *events.Bus
	// ControlQueueSize bounds the instance's control channel. A
	// blocking send (not a drop) is used when it is full, so a
	// fast-talking client's own session stalls rather than the
	// instance. Defaults to 1024.
	ControlQueueSize int
}

func (o Options) withDefaults() Options {
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.ControlQueueSize <= 0 {
		o.ControlQueueSize = 1024
	}
	return o
}
