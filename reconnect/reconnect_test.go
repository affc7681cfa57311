package reconnect_test

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/horup/hostess/examples/echo"
	"github.com/horup/hostess/master"
	"github.com/horup/hostess/reconnect"
	"github.com/horup/hostess/wire"
)

func newServer(t *testing.T) (*httptest.Server, string) {
	t.Helper()
	m := master.New("", echo.New, master.WithInstanceCreation(true))
	srv := httptest.NewServer(m.Handler())
	t.Cleanup(srv.Close)
	return srv, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestConnectReturnsOnceHelloHandshakeCompletes(t *testing.T) {
	_, wsURL := newServer(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c := reconnect.New(wsURL, uuid.New(), "nova")
	go c.Run(ctx)

	connectCtx, connectCancel := context.WithTimeout(ctx, 5*time.Second)
	defer connectCancel()
	require.NoError(t, c.Connect(connectCtx))
	assert.True(t, c.IsConnected())

	select {
	case msg := <-c.Messages():
		_, ok := msg.(wire.JoinedLobby)
		assert.True(t, ok, "expected JoinedLobby, got %T", msg)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for JoinedLobby")
	}
}

func TestConnectReturnsCtxErrWhenServerUnreachable(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c := reconnect.New("ws://127.0.0.1:1/ws", uuid.New(), "nova")
	go c.Run(ctx)

	connectCtx, connectCancel := context.WithTimeout(ctx, 200*time.Millisecond)
	defer connectCancel()
	err := c.Connect(connectCtx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, c.IsConnected())
}

func TestCloseSignalsDisconnectViaNotify(t *testing.T) {
	_, wsURL := newServer(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c := reconnect.New(wsURL, uuid.New(), "nova")
	go c.Run(ctx)

	connectCtx, connectCancel := context.WithTimeout(ctx, 5*time.Second)
	require.NoError(t, c.Connect(connectCtx))
	connectCancel()

	notify := c.Notify()
	c.Close()

	select {
	case <-notify:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for Notify to fire after Close")
	}
	assert.False(t, c.IsConnected())
}

func TestSendFailsWhenNotConnected(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c := reconnect.New("ws://127.0.0.1:1/ws", uuid.New(), "nova")
	go c.Run(ctx)

	err := c.Send(wire.ClientPing{Tick: 1})
	assert.Error(t, err)
}

func TestCloseUnblocksConnect(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c := reconnect.New("ws://127.0.0.1:1/ws", uuid.New(), "nova")
	go c.Run(ctx)

	done := make(chan error, 1)
	go func() {
		done <- c.Connect(context.Background())
	}()

	time.Sleep(50 * time.Millisecond)
	c.Close()

	select {
	case err := <-done:
		assert.Error(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Connect did not unblock after Close")
	}
}
