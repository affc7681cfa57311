package wire_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/horup/hostess/wire"
)

func TestClientMsgRoundTrip(t *testing.T) {
	id := uuid.New()

	cases := []wire.ClientMsg{
		wire.Hello{ClientID: id, ClientName: "nova"},
		wire.CreateInstance{},
		wire.JoinInstance{InstanceID: id},
		wire.LeaveInstance{},
		wire.ClientCustomMsg{Msg: []byte("hello world")},
		wire.ClientPing{Tick: 42.5},
		wire.RefreshInstances{},
	}

	for _, want := range cases {
		encoded := wire.EncodeClientMsg(want)
		got, err := wire.DecodeClientMsg(encoded)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestServerMsgRoundTrip(t *testing.T) {
	id := uuid.New()
	info := wire.InstanceInfo{ID: id, Creator: id, MaxPlayers: 8, CurrentPlayers: 3}

	cases := []wire.ServerMsg{
		wire.JoinedLobby{},
		wire.InstanceCreated{InstanceID: id},
		wire.Instances{Instances: []wire.InstanceInfo{info, info}},
		wire.JoinedInstance{Instance: info},
		wire.JoinRejected{Instance: info},
		wire.Pong{Tick: 7, ServerBytesSec: 1.5, ClientBytesSec: 2.25},
		wire.ServerCustomMsg{Msg: []byte("pong payload")},
	}

	for _, want := range cases {
		encoded := wire.EncodeServerMsg(want)
		got, err := wire.DecodeServerMsg(encoded)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestServerMsgEmptyInstances(t *testing.T) {
	encoded := wire.EncodeServerMsg(wire.Instances{})
	got, err := wire.DecodeServerMsg(encoded)
	require.NoError(t, err)
	assert.Equal(t, wire.Instances{Instances: []wire.InstanceInfo{}}, got)
}

func TestDecodeClientMsgUnknownTag(t *testing.T) {
	_, err := wire.DecodeClientMsg([]byte{0xFF, 0xFF, 0xFF, 0xFF})
	assert.ErrorIs(t, err, wire.ErrUnknownVariant)
}

func TestDecodeClientMsgTruncated(t *testing.T) {
	encoded := wire.EncodeClientMsg(wire.Hello{ClientID: uuid.New(), ClientName: "x"})
	_, err := wire.DecodeClientMsg(encoded[:len(encoded)-2])
	assert.Error(t, err)
}

func TestTagOrderMatchesDeclarationOrder(t *testing.T) {
	// The wire tag is the 0-indexed position of each variant in its
	// declaration block; this pins that order so a future reordering
	// of the type declarations in messages.go is caught here instead
	// of silently breaking the wire format.
	helloTag := wire.EncodeClientMsg(wire.Hello{ClientID: uuid.Nil, ClientName: ""})[:4]
	assert.Equal(t, []byte{0, 0, 0, 0}, helloTag)

	refreshTag := wire.EncodeClientMsg(wire.RefreshInstances{})[:4]
	assert.Equal(t, []byte{6, 0, 0, 0}, refreshTag)

	lobbyTag := wire.EncodeServerMsg(wire.JoinedLobby{})[:4]
	assert.Equal(t, []byte{0, 0, 0, 0}, lobbyTag)

	customTag := wire.EncodeServerMsg(wire.ServerCustomMsg{})[:4]
	assert.Equal(t, []byte{6, 0, 0, 0}, customTag)
}
