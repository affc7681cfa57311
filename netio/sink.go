// Package netio wraps the two halves of one client's WebSocket
// connection — the outbound Sink and the inbound Stream — with typed
// encode/decode of the wire protocol and rate-meter sampling.
package netio

import (
	"fmt"
	"net"
	"sync"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"

	"github.com/horup/hostess/ratemeter"
	"github.com/horup/hostess/wire"
)

// Sink is the outbound half of one client's connection. At any instant
// a Sink is held by exactly one owner — the master's lobby loop for
// that session, or the instance the client is attached to — and
// crosses between them by value over a channel, never by shared
// reference. The mutex below is not an ownership-sharing mechanism; it
// only serializes the rare case of two sends from the same owner
// racing (the instance's tick fan-out and a Ping reply both landing in
// the same tick).
type Sink struct {
	conn  net.Conn
	meter *ratemeter.Meter
	mu    sync.Mutex
}

// NewSink wraps conn as an outbound sink metered by meter.
func NewSink(conn net.Conn, meter *ratemeter.Meter) *Sink {
	return &Sink{conn: conn, meter: meter}
}

// Send encodes msg, samples the meter, and writes one binary frame.
// Serialization here preserves message order on the wire: callers that
// need several messages delivered in order must call Send sequentially.
func (s *Sink) Send(msg wire.ServerMsg) error {
	payload := wire.EncodeServerMsg(msg)
	s.meter.Sample(len(payload))

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := wsutil.WriteServerMessage(s.conn, ws.OpBinary, payload); err != nil {
		return fmt.Errorf("netio: send: %w", err)
	}
	return nil
}

// Meter returns the sink's rate meter, sampled for telemetry such as
// Pong.ServerBytesSec.
func (s *Sink) Meter() *ratemeter.Meter {
	return s.meter
}

// Close tears down the underlying connection. Instances never call
// this directly on an attached sink — they only relinquish ownership
// via the return-sink channel; whoever currently owns the sink is
// responsible for eventually closing it.
func (s *Sink) Close() error {
	return s.conn.Close()
}
