// Package wire implements the binary frame protocol exchanged between a
// client and the master/instance: ClientMsg and ServerMsg tagged unions,
// plus the InstanceInfo record carried inside several of them.
package wire

import "github.com/google/uuid"

// ClientMsg is a frame sent from a client to the master or to an instance.
// Exactly one concrete type implements it per frame on the wire; the tag
// is the type's position in this declaration order.
type ClientMsg interface {
	clientMsg()
}

// ServerMsg is a frame sent from the master or an instance to a client.
type ServerMsg interface {
	serverMsg()
}

// ClientMsg variants, declaration order fixes their wire tag (0-indexed).
type (
	Hello struct {
		ClientID   uuid.UUID
		ClientName string
	}

	CreateInstance struct{}

	JoinInstance struct {
		InstanceID uuid.UUID
	}

	LeaveInstance struct{}

	ClientCustomMsg struct {
		Msg []byte
	}

	ClientPing struct {
		Tick float64
	}

	RefreshInstances struct{}
)

func (Hello) clientMsg()            {}
func (CreateInstance) clientMsg()   {}
func (JoinInstance) clientMsg()     {}
func (LeaveInstance) clientMsg()    {}
func (ClientCustomMsg) clientMsg()  {}
func (ClientPing) clientMsg()       {}
func (RefreshInstances) clientMsg() {}

// ServerMsg variants, declaration order fixes their wire tag (0-indexed).
type (
	JoinedLobby struct{}

	InstanceCreated struct {
		InstanceID uuid.UUID
	}

	Instances struct {
		Instances []InstanceInfo
	}

	JoinedInstance struct {
		Instance InstanceInfo
	}

	JoinRejected struct {
		Instance InstanceInfo
	}

	Pong struct {
		Tick           float64
		ServerBytesSec float32
		ClientBytesSec float32
	}

	ServerCustomMsg struct {
		Msg []byte
	}
)

func (JoinedLobby) serverMsg()     {}
func (InstanceCreated) serverMsg() {}
func (Instances) serverMsg()       {}
func (JoinedInstance) serverMsg()  {}
func (JoinRejected) serverMsg()    {}
func (Pong) serverMsg()            {}
func (ServerCustomMsg) serverMsg() {}

// InstanceInfo is the public descriptor of one instance, carried inside
// several ServerMsg variants and returned by Lobby.Snapshot.
type InstanceInfo struct {
	ID             uuid.UUID
	Creator        uuid.UUID
	MaxPlayers     uint32
	CurrentPlayers uint32
}
