package instance

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/horup/hostess/internal/events"
	"github.com/horup/hostess/internal/metrics"
	"github.com/horup/hostess/netio"
	"github.com/horup/hostess/ratemeter"
	"github.com/horup/hostess/wire"
)

type attachment struct {
	sink         *netio.Sink
	inboundMeter *ratemeter.Meter
	returnSink   chan<- *netio.Sink
}

// runtime is the actor body. It owns the user's Logic object, the
// attachment table, and the shared InstanceInfo; nothing outside its
// own goroutine ever touches these fields directly.
type runtime struct {
	shared  *sharedInfo
	control chan controlMsg
	logic   Logic
	logger  *zap.Logger
	metrics *metrics.Registry
	events  *events.Bus

	id  uuid.UUID
	cfg Config
	ctx Ctx

	clients     map[uuid.UUID]*attachment
	clientOrder []uuid.UUID
}

func newRuntime(id uuid.UUID, shared *sharedInfo, control chan controlMsg, logic Logic, opts Options) *runtime {
	return &runtime{
		id:      id,
		shared:  shared,
		control: control,
		logic:   logic,
		logger:  opts.Logger,
		metrics: opts.Metrics,
		events:  opts.Events,
		clients: make(map[uuid.UUID]*attachment),
	}
}

func (r *runtime) run(ctx context.Context) {
	r.cfg = r.logic.Init()
	if r.cfg.TickRate == 0 {
		r.logger.Warn("instance logic returned TickRate=0, clamping to 1")
		r.cfg.TickRate = 1
	}

	r.shared.mutate(func(info *wire.InstanceInfo) {
		info.MaxPlayers = r.cfg.MaxPlayers
		info.CurrentPlayers = 0
	})

	if r.metrics != nil {
		r.metrics.ActiveInstances.Inc()
		defer r.metrics.ActiveInstances.Dec()
	}

	period := time.Second / time.Duration(r.cfg.TickRate)
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	start := time.Now()
	lastTick := start

	for {
		select {
		case <-ctx.Done():
			r.disconnectAll()
			return

		case now := <-ticker.C:
			r.ctx.Delta = now.Sub(lastTick).Seconds()
			r.ctx.Time = now.Sub(start).Seconds()
			lastTick = now

			if ok := r.safeTick(); !ok {
				if r.metrics != nil {
					r.metrics.TickPanics.Inc()
				}
				r.disconnectAll()
				return
			}

			r.fanOut()
			r.ctx.In = r.ctx.In[:0]

		case msg, ok := <-r.control:
			if !ok {
				r.disconnectAll()
				return
			}
			r.handleControl(msg)
		}
	}
}

// safeTick isolates a panic in Logic.Tick to this instance: the panic
// is recovered, logged, and reported as a failed tick so run() can
// terminate the actor without taking the master down with it.
func (r *runtime) safeTick() (ok bool) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("panic in instance tick, terminating instance",
				zap.Any("panic", rec),
				zap.Stack("stack"),
			)
			ok = false
		}
	}()

	start := time.Now()
	r.logic.Tick(&r.ctx)
	if r.metrics != nil {
		r.metrics.TickDuration.Observe(time.Since(start).Seconds())
	}
	return true
}

func (r *runtime) fanOut() {
	for _, out := range r.ctx.Out {
		switch out.Kind {
		case CustomToAllKind:
			for _, id := range r.clientOrder {
				c := r.clients[id]
				if c == nil {
					continue
				}
				if err := c.sink.Send(wire.ServerCustomMsg{Msg: out.Bytes}); err == nil && r.metrics != nil {
					r.metrics.MessagesDelivered.Inc()
				}
			}
		case CustomToKind:
			if c, ok := r.clients[out.ClientID]; ok {
				if err := c.sink.Send(wire.ServerCustomMsg{Msg: out.Bytes}); err == nil && r.metrics != nil {
					r.metrics.MessagesDelivered.Inc()
				}
			}
		}
	}
	r.ctx.Out = r.ctx.Out[:0]
}

func (r *runtime) handleControl(msg controlMsg) {
	switch m := msg.(type) {
	case clientTransfer:
		r.handleTransfer(m)
	case hostClientLeft:
		r.handleClientLeft(m.clientID)
	case hostCustomMsg:
		r.ctx.In = append(r.ctx.In, CustomMsgIn(m.clientID, m.bytes))
		if r.metrics != nil {
			r.metrics.MessagesPublished.Inc()
		}
	case pingMsg:
		r.handlePing(m)
	}
}

func (r *runtime) handleTransfer(m clientTransfer) {
	info := r.shared.snapshot()
	if info.CurrentPlayers >= info.MaxPlayers {
		_ = m.sink.Send(wire.JoinRejected{Instance: info})
		if r.metrics != nil {
			r.metrics.AdmissionRejected.Inc()
		}
		returnSink(m.returnSink, m.sink)
		return
	}

	r.shared.mutate(func(info *wire.InstanceInfo) {
		info.CurrentPlayers++
	})
	info = r.shared.snapshot()

	_ = m.sink.Send(wire.JoinedInstance{Instance: info})

	r.clients[m.clientID] = &attachment{
		sink:         m.sink,
		inboundMeter: m.inboundMeter,
		returnSink:   m.returnSink,
	}
	r.clientOrder = append(r.clientOrder, m.clientID)
	if r.metrics != nil {
		r.metrics.AttachedClients.Inc()
	}

	r.ctx.In = append(r.ctx.In, ClientJoined(m.clientID, m.clientName))

	if r.events != nil {
		r.events.PublishClientJoined(events.ClientJoined{
			InstanceID: r.id,
			ClientID:   m.clientID,
			ClientName: m.clientName,
			At:         time.Now(),
		})
	}
}

func (r *runtime) handleClientLeft(clientID uuid.UUID) {
	c, ok := r.clients[clientID]
	if !ok {
		return
	}

	delete(r.clients, clientID)
	for i, id := range r.clientOrder {
		if id == clientID {
			r.clientOrder = append(r.clientOrder[:i], r.clientOrder[i+1:]...)
			break
		}
	}

	r.shared.mutate(func(info *wire.InstanceInfo) {
		if info.CurrentPlayers > 0 {
			info.CurrentPlayers--
		}
	})
	if r.metrics != nil {
		r.metrics.AttachedClients.Dec()
	}

	returnSink(c.returnSink, c.sink)
	r.ctx.In = append(r.ctx.In, ClientLeft(clientID))

	if r.events != nil {
		r.events.PublishClientLeft(events.ClientLeft{
			InstanceID: r.id,
			ClientID:   clientID,
			At:         time.Now(),
		})
	}
}

func (r *runtime) handlePing(m pingMsg) {
	c, ok := r.clients[m.clientID]
	if !ok {
		return
	}

	serverBps := float32(c.sink.Meter().PerSecond())
	// client_bytes_sec reports the inbound-stream meter for this
	// client, matching the field's name; an older reference
	// implementation reported the outbound meter on both sides.
	clientBps := float32(c.inboundMeter.PerSecond())

	_ = c.sink.Send(wire.Pong{
		Tick:           m.tick,
		ServerBytesSec: serverBps,
		ClientBytesSec: clientBps,
	})
}

// disconnectAll runs when the actor is terminating, either from
// context cancellation or a recovered tick panic. Every attached
// client's sink is handed back over its returnSink, the same one-shot
// path used for a clean leave or an immediate admission rejection —
// the instance never owns a sink long enough to close it itself. The
// session on the other end is the one that decides what termination
// means for that connection: here, it simply resumes the lobby loop
// with an intact connection.
func (r *runtime) disconnectAll() {
	for _, c := range r.clients {
		returnSink(c.returnSink, c.sink)
	}
	r.clients = nil
	r.clientOrder = nil
}

// returnSink fulfils a one-shot return channel without blocking: the
// channel is always created with capacity 1 and written to at most
// once, but a defensive non-blocking send keeps a misuse from ever
// stalling the instance's single-consumer control loop.
func returnSink(ch chan<- *netio.Sink, sink *netio.Sink) {
	select {
	case ch <- sink:
	default:
	}
}
