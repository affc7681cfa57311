// Package lobby implements the process-local directory of instances:
// creation, lookup, and a stable-order snapshot for InstanceInfo
// listings. It is process-local and lives for the process lifetime —
// there is no deletion.
package lobby

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/horup/hostess/instance"
	"github.com/horup/hostess/internal/events"
	"github.com/horup/hostess/internal/metrics"
	"github.com/horup/hostess/wire"
)

// Lobby maps instance ids to running instance handles.
type Lobby struct {
	ctor    instance.Constructor
	logger  *zap.Logger
	metrics *metrics.Registry
	events  *events.Bus
	opts    instance.Options

	directory sync.Map // map[uuid.UUID]*instance.Instance
	order     struct {
		mu  sync.Mutex
		ids []uuid.UUID
	}
}

// New returns a Lobby whose instances are built by ctor. bus may be
// nil; a nil bus makes lifecycle publishing a no-op.
func New(ctor instance.Constructor, logger *zap.Logger, metricsRegistry *metrics.Registry, bus *events.Bus) *Lobby {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Lobby{
		ctor:    ctor,
		logger:  logger,
		metrics: metricsRegistry,
		events:  bus,
		opts: instance.Options{
			Logger:  logger,
			Metrics: metricsRegistry,
			Events:  bus,
		},
	}
}

// NewInstance generates a fresh instance id, spawns its actor, and
// records the handle. The actor runs until ctx is cancelled.
func (l *Lobby) NewInstance(ctx context.Context, creator uuid.UUID) uuid.UUID {
	id := uuid.New()
	inst := instance.Spawn(ctx, id, creator, l.ctor, l.opts)

	l.directory.Store(id, inst)

	l.order.mu.Lock()
	l.order.ids = append(l.order.ids, id)
	l.order.mu.Unlock()

	l.logger.Info("instance created", zap.String("instance_id", id.String()), zap.String("creator", creator.String()))
	if l.events != nil {
		l.events.PublishInstanceCreated(events.InstanceCreated{InstanceID: id, Creator: creator, At: time.Now()})
	}
	return id
}

// Get looks up an instance handle by id.
func (l *Lobby) Get(id uuid.UUID) (*instance.Instance, bool) {
	v, ok := l.directory.Load(id)
	if !ok {
		return nil, false
	}
	return v.(*instance.Instance), true
}

// Snapshot returns the current InstanceInfo of every instance, in
// creation order, stable within a single call.
func (l *Lobby) Snapshot() []wire.InstanceInfo {
	l.order.mu.Lock()
	ids := make([]uuid.UUID, len(l.order.ids))
	copy(ids, l.order.ids)
	l.order.mu.Unlock()

	infos := make([]wire.InstanceInfo, 0, len(ids))
	for _, id := range ids {
		if inst, ok := l.Get(id); ok {
			infos = append(infos, inst.Info())
		}
	}
	return infos
}

// Count returns the number of instances currently tracked.
func (l *Lobby) Count() int {
	l.order.mu.Lock()
	defer l.order.mu.Unlock()
	return len(l.order.ids)
}
