package master

import (
	"context"
	"errors"
	"io"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/horup/hostess/instance"
	"github.com/horup/hostess/netio"
	"github.com/horup/hostess/wire"
)

type readResult struct {
	msg wire.ClientMsg
	err error
}

// startReader owns stream exclusively for the life of the connection,
// feeding every decoded frame (or the terminal error) onto one
// channel. Every state of the session loop reads from this same
// channel instead of calling stream.Next directly, so the underlying
// wsutil reader only ever has one goroutine touching it regardless of
// how many times the session moves between InLobby and Attached.
func startReader(ctx context.Context, stream *netio.Stream) <-chan readResult {
	out := make(chan readResult, 1)
	go func() {
		defer close(out)
		for {
			msg, err := stream.Next(ctx)
			out <- readResult{msg, err}
			if err != nil {
				return
			}
		}
	}()
	return out
}

// runSession drives one connection through Accepted -> InLobby ->
// (Attached)* -> Closed. It owns sink exclusively except for the
// interval an instance holds it while the client is attached.
func (m *Master) runSession(ctx context.Context, sink *netio.Sink, stream *netio.Stream) {
	msgs := startReader(ctx, stream)

	clientID, clientName, err := m.awaitHello(ctx, msgs)
	if err != nil {
		m.logger.Debug("session ended before hello", zap.Error(err))
		return
	}
	m.logger.Info("client hello",
		zap.String("client_id", clientID.String()),
		zap.String("client_name", clientName),
	)

	if err := sink.Send(wire.JoinedLobby{}); err != nil {
		return
	}

	for {
		if err := sink.Send(wire.Instances{Instances: m.lobby.Snapshot()}); err != nil {
			return
		}

		inst, err := m.runLobby(ctx, sink, msgs, clientID)
		if err != nil {
			return
		}

		if err := m.runAttached(ctx, sink, stream, msgs, inst, clientID, clientName); err != nil {
			m.logger.Debug("session closed during attachment",
				zap.String("client_id", clientID.String()), zap.Error(err))
			return
		}
	}
}

// awaitHello discards frames until a Hello arrives, matching the
// Accepted state.
func (m *Master) awaitHello(ctx context.Context, msgs <-chan readResult) (uuid.UUID, string, error) {
	for {
		select {
		case res, ok := <-msgs:
			if !ok {
				return uuid.Nil, "", io.EOF
			}
			if res.err != nil {
				return uuid.Nil, "", res.err
			}
			if hello, ok := res.msg.(wire.Hello); ok {
				return hello.ClientID, hello.ClientName, nil
			}
		case <-ctx.Done():
			return uuid.Nil, "", ctx.Err()
		}
	}
}

// runLobby implements the InLobby state: it answers CreateInstance
// and RefreshInstances directly, and returns once the client
// successfully names an instance to join. A JoinInstance naming an
// unknown id is silently ignored, per the protocol.
func (m *Master) runLobby(ctx context.Context, sink *netio.Sink, msgs <-chan readResult, clientID uuid.UUID) (*instance.Instance, error) {
	for {
		var res readResult
		select {
		case r, ok := <-msgs:
			if !ok {
				return nil, io.EOF
			}
			res = r
		case <-ctx.Done():
			return nil, ctx.Err()
		}

		if res.err != nil {
			return nil, res.err
		}

		switch t := res.msg.(type) {
		case wire.CreateInstance:
			if !m.allowInstanceCreation {
				continue
			}
			id := m.lobby.NewInstance(m.instanceRootCtx(), clientID)
			if err := sink.Send(wire.InstanceCreated{InstanceID: id}); err != nil {
				return nil, err
			}

		case wire.RefreshInstances:
			if err := sink.Send(wire.Instances{Instances: m.lobby.Snapshot()}); err != nil {
				return nil, err
			}

		case wire.JoinInstance:
			if inst, ok := m.lobby.Get(t.InstanceID); ok {
				return inst, nil
			}

		default:
			// Ping and anything else is ignored while in the lobby.
		}
	}
}

// runAttached implements the Attached state. It hands sink ownership
// to inst, then relays LeaveInstance/CustomMsg/Ping frames until the
// client leaves, the stream fails, or the instance relinquishes the
// sink on its own (an immediate admission rejection, or instance
// termination). Only a genuine stream error or decode failure ends
// the whole session; every other way out resumes the lobby loop.
func (m *Master) runAttached(ctx context.Context, sink *netio.Sink, stream *netio.Stream, msgs <-chan readResult, inst *instance.Instance, clientID uuid.UUID, clientName string) error {
	returnCh, err := inst.Transfer(ctx, clientID, clientName, sink, stream.Meter())
	if err != nil {
		return err
	}

	var streamErr error
	endedByStream := false

loop:
	for {
		select {
		case <-returnCh:
			// The instance gave the sink back on its own: an
			// immediate admission rejection, or the instance
			// terminated. The connection itself is unharmed, so the
			// session resumes the lobby.
			break loop

		case res, ok := <-msgs:
			if !ok {
				streamErr = io.EOF
				endedByStream = true
				break loop
			}
			if res.err != nil {
				streamErr = res.err
				endedByStream = true
				break loop
			}

			switch t := res.msg.(type) {
			case wire.LeaveInstance:
				endedByStream = true
				break loop
			case wire.ClientCustomMsg:
				_ = inst.ForwardCustomMsg(ctx, clientID, t.Msg)
			case wire.ClientPing:
				_ = inst.ForwardPing(ctx, clientID, t.Tick)
			case wire.Hello:
				// Ignored while attached; keep reading.
			default:
				endedByStream = true
				break loop
			}

		case <-ctx.Done():
			streamErr = ctx.Err()
			endedByStream = true
			break loop
		}
	}

	if endedByStream {
		_ = inst.NotifyClientLeft(ctx, clientID)
		select {
		case <-returnCh:
		case <-ctx.Done():
			if streamErr == nil {
				streamErr = ctx.Err()
			}
		}
	}

	if errors.Is(streamErr, io.EOF) {
		return io.EOF
	}
	return streamErr
}
