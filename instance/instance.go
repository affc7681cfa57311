package instance

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/horup/hostess/netio"
	"github.com/horup/hostess/ratemeter"
	"github.com/horup/hostess/wire"
)

// ErrTerminated is returned by Instance methods once the instance's
// actor goroutine has exited (context cancellation or a recovered
// tick panic), so a caller never blocks forever trying to reach a
// consumer that no longer exists.
var ErrTerminated = errors.New("instance: actor terminated")

// Instance is a cheaply cloneable handle to a running instance actor.
// The handle itself carries no mutable state beyond a channel and a
// pointer to the shared info snapshot; the actor goroutine behind it
// is unique and owns everything else.
type Instance struct {
	id      uuid.UUID
	control chan controlMsg
	done    <-chan struct{}
	shared  *sharedInfo
}

// Spawn constructs logic via ctor, starts its actor goroutine, and
// returns a handle to it. The actor runs until ctx is cancelled or
// Logic.Tick panics.
func Spawn(ctx context.Context, id, creator uuid.UUID, ctor Constructor, opts Options) *Instance {
	opts = opts.withDefaults()

	shared := &sharedInfo{info: wire.InstanceInfo{ID: id, Creator: creator}}
	control := make(chan controlMsg, opts.ControlQueueSize)
	done := make(chan struct{})

	rt := newRuntime(id, shared, control, ctor(), opts)
	rt.logger = opts.Logger.With(zap.String("instance_id", id.String()))

	go func() {
		defer close(done)
		rt.run(ctx)
	}()

	return &Instance{id: id, control: control, done: done, shared: shared}
}

// ID returns the instance's stable identifier.
func (i *Instance) ID() uuid.UUID {
	return i.id
}

// Info returns a point-in-time snapshot of the instance's public
// descriptor, safe to call from any goroutine.
func (i *Instance) Info() wire.InstanceInfo {
	return i.shared.snapshot()
}

// Transfer hands sink ownership to the instance, attaching clientID
// if the instance has capacity. It returns a channel that receives the
// sink back exactly once, either immediately (admission rejected) or
// whenever the client later leaves or the instance terminates.
// inboundMeter is the client's inbound stream meter, read-only, used
// to answer Ping with the client's own byte rate.
func (i *Instance) Transfer(ctx context.Context, clientID uuid.UUID, clientName string, sink *netio.Sink, inboundMeter *ratemeter.Meter) (<-chan *netio.Sink, error) {
	returnCh := make(chan *netio.Sink, 1)
	msg := clientTransfer{
		clientID:     clientID,
		clientName:   clientName,
		sink:         sink,
		inboundMeter: inboundMeter,
		returnSink:   returnCh,
	}
	if err := i.send(ctx, msg); err != nil {
		return nil, err
	}
	return returnCh, nil
}

// NotifyClientLeft forwards the fact that clientID's session ended
// while attached.
func (i *Instance) NotifyClientLeft(ctx context.Context, clientID uuid.UUID) error {
	return i.send(ctx, hostClientLeft{clientID: clientID})
}

// ForwardCustomMsg forwards one CustomMsg frame from an attached
// client into the instance's in-queue.
func (i *Instance) ForwardCustomMsg(ctx context.Context, clientID uuid.UUID, bytes []byte) error {
	return i.send(ctx, hostCustomMsg{clientID: clientID, bytes: bytes})
}

// ForwardPing forwards one Ping frame from an attached client; the
// instance answers directly on that client's sink.
func (i *Instance) ForwardPing(ctx context.Context, clientID uuid.UUID, tick float64) error {
	return i.send(ctx, pingMsg{clientID: clientID, tick: tick})
}

// send enqueues msg on the instance's bounded control channel. It
// blocks rather than drops when the channel is full, shaping
// backpressure onto the calling session instead of the instance —
// ctx lets the caller bound how long it is willing to stall, and done
// keeps it from blocking forever once the actor has exited.
func (i *Instance) send(ctx context.Context, msg controlMsg) error {
	select {
	case <-i.done:
		return ErrTerminated
	default:
	}
	select {
	case i.control <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-i.done:
		return ErrTerminated
	}
}
