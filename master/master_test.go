package master_test

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/horup/hostess/examples/echo"
	"github.com/horup/hostess/master"
	"github.com/horup/hostess/wire"
)

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	return conn
}

func send(t *testing.T, conn *websocket.Conn, msg wire.ClientMsg) {
	t.Helper()
	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, wire.EncodeClientMsg(msg)))
}

func recv(t *testing.T, conn *websocket.Conn) wire.ServerMsg {
	t.Helper()
	_, payload, err := conn.ReadMessage()
	require.NoError(t, err)
	msg, err := wire.DecodeServerMsg(payload)
	require.NoError(t, err)
	return msg
}

func recvInstanceCreated(t *testing.T, conn *websocket.Conn) wire.InstanceCreated {
	t.Helper()
	for i := 0; i < 10; i++ {
		if m, ok := recv(t, conn).(wire.InstanceCreated); ok {
			return m
		}
	}
	t.Fatal("did not see an InstanceCreated within 10 frames")
	panic("unreachable")
}

func recvJoinedInstance(t *testing.T, conn *websocket.Conn) wire.JoinedInstance {
	t.Helper()
	for i := 0; i < 10; i++ {
		if m, ok := recv(t, conn).(wire.JoinedInstance); ok {
			return m
		}
	}
	t.Fatal("did not see a JoinedInstance within 10 frames")
	panic("unreachable")
}

func recvServerCustomMsg(t *testing.T, conn *websocket.Conn) wire.ServerCustomMsg {
	t.Helper()
	for i := 0; i < 10; i++ {
		if m, ok := recv(t, conn).(wire.ServerCustomMsg); ok {
			return m
		}
	}
	t.Fatal("did not see a ServerCustomMsg within 10 frames")
	panic("unreachable")
}

func recvInstances(t *testing.T, conn *websocket.Conn) wire.Instances {
	t.Helper()
	for i := 0; i < 10; i++ {
		if m, ok := recv(t, conn).(wire.Instances); ok {
			return m
		}
	}
	t.Fatal("did not see an Instances within 10 frames")
	panic("unreachable")
}

func TestFullSessionLifecycle(t *testing.T) {
	m := master.New("", echo.New, master.WithInstanceCreation(true))
	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	conn := dial(t, srv)
	defer conn.Close()

	clientID := uuid.New()
	send(t, conn, wire.Hello{ClientID: clientID, ClientName: "nova"})

	_, ok := recv(t, conn).(wire.JoinedLobby)
	require.True(t, ok)

	instances, ok := recv(t, conn).(wire.Instances)
	require.True(t, ok)
	assert.Empty(t, instances.Instances)

	send(t, conn, wire.CreateInstance{})
	created := recvInstanceCreated(t, conn)

	send(t, conn, wire.JoinInstance{InstanceID: created.InstanceID})
	joined := recvJoinedInstance(t, conn)
	assert.Equal(t, uint32(1), joined.Instance.CurrentPlayers)

	// The echo Logic broadcasts a join announcement on the next tick.
	announce := recvServerCustomMsg(t, conn)
	assert.Contains(t, string(announce.Msg), "nova")

	send(t, conn, wire.ClientCustomMsg{Msg: []byte("hi")})
	echoBack := recvServerCustomMsg(t, conn)
	assert.Equal(t, []byte("hi"), echoBack.Msg)

	send(t, conn, wire.LeaveInstance{})
	after := recvInstances(t, conn)
	require.Len(t, after.Instances, 1)
	assert.Equal(t, uint32(0), after.Instances[0].CurrentPlayers)
}

func TestCreateInstanceRefusedWhenDisabled(t *testing.T) {
	m := master.New("", echo.New)
	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	conn := dial(t, srv)
	defer conn.Close()

	send(t, conn, wire.Hello{ClientID: uuid.New(), ClientName: "nova"})
	_, ok := recv(t, conn).(wire.JoinedLobby)
	require.True(t, ok)
	_, ok = recv(t, conn).(wire.Instances)
	require.True(t, ok)

	send(t, conn, wire.CreateInstance{})

	// CreateInstance is silently ignored; RefreshInstances still works,
	// proving the session is alive and simply never produced an
	// InstanceCreated reply.
	send(t, conn, wire.RefreshInstances{})
	refreshed := recvInstances(t, conn)
	assert.Empty(t, refreshed.Instances)
}

func TestJoinUnknownInstanceIsIgnored(t *testing.T) {
	m := master.New("", echo.New)
	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	conn := dial(t, srv)
	defer conn.Close()

	send(t, conn, wire.Hello{ClientID: uuid.New(), ClientName: "nova"})
	_, ok := recv(t, conn).(wire.JoinedLobby)
	require.True(t, ok)
	_, ok = recv(t, conn).(wire.Instances)
	require.True(t, ok)

	send(t, conn, wire.JoinInstance{InstanceID: uuid.New()})
	send(t, conn, wire.RefreshInstances{})
	refreshed := recvInstances(t, conn)
	assert.Empty(t, refreshed.Instances)
}

func TestOperatorCreatedInstanceVisibleToClients(t *testing.T) {
	m := master.New("", echo.New)
	m.SetRootContext(context.Background())
	id := m.Lobby().NewInstance(context.Background(), uuid.New())

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	conn := dial(t, srv)
	defer conn.Close()

	send(t, conn, wire.Hello{ClientID: uuid.New(), ClientName: "nova"})
	_, ok := recv(t, conn).(wire.JoinedLobby)
	require.True(t, ok)
	instances := recvInstances(t, conn)
	require.Len(t, instances.Instances, 1)
	assert.Equal(t, id, instances.Instances[0].ID)
}
