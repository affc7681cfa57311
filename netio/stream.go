package netio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"

	"github.com/horup/hostess/ratemeter"
	"github.com/horup/hostess/wire"
)

// Stream is the inbound half of one client's connection. It is
// exclusively owned by the master's lobby loop for the life of the
// session — it is never handed to an instance, which only ever sees
// the control messages the lobby loop forwards from it.
type Stream struct {
	conn   net.Conn
	reader *wsutil.Reader
	meter  *ratemeter.Meter
}

// NewStream wraps conn as an inbound stream metered by meter.
func NewStream(conn net.Conn, meter *ratemeter.Meter) *Stream {
	return &Stream{
		conn:   conn,
		reader: wsutil.NewReader(conn, ws.StateServerSide),
		meter:  meter,
	}
}

// Next awaits one binary frame, samples the meter, and decodes it as a
// ClientMsg. It returns io.EOF on clean close, a wrapped transport
// error on read failure, and wire.ErrUnknownVariant (or a more
// specific decode error) on a frame that fails to decode — callers
// treat a decode failure as fatal for the session, same as a transport
// error. Ping/close control frames are handled transparently and never
// surface to the caller.
func (s *Stream) Next(ctx context.Context) (wire.ClientMsg, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		header, err := s.reader.NextFrame()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, io.EOF
			}
			return nil, fmt.Errorf("netio: read frame: %w", err)
		}

		switch header.OpCode {
		case ws.OpClose:
			_ = wsutil.WriteServerMessage(s.conn, ws.OpClose, nil)
			return nil, io.EOF
		case ws.OpPing:
			if err := wsutil.WriteServerMessage(s.conn, ws.OpPong, nil); err != nil {
				return nil, fmt.Errorf("netio: write pong: %w", err)
			}
			continue
		case ws.OpBinary:
			payload := make([]byte, header.Length)
			if _, err := io.ReadFull(s.reader, payload); err != nil {
				return nil, fmt.Errorf("netio: read payload: %w", err)
			}
			s.meter.Sample(len(payload))
			msg, err := wire.DecodeClientMsg(payload)
			if err != nil {
				return nil, err
			}
			return msg, nil
		default:
			if _, err := io.CopyN(io.Discard, s.reader, int64(header.Length)); err != nil {
				return nil, fmt.Errorf("netio: drain frame: %w", err)
			}
		}
	}
}

// Meter returns the stream's rate meter.
func (s *Stream) Meter() *ratemeter.Meter {
	return s.meter
}
