// Package instance implements the per-instance actor: a goroutine that
// owns one embedder-supplied Logic object, ticks it at a fixed rate,
// and fans its output out to attached client sinks.
package instance

import "github.com/google/uuid"

// Config is returned by Logic.Init at instance startup and is
// immutable for the instance's lifetime.
type Config struct {
	// TickRate is how many times per second Tick is invoked.
	TickRate uint64
	// MaxPlayers bounds concurrent attachments; ClientTransfer beyond
	// this limit is rejected with JoinRejected.
	MaxPlayers uint32
}

// InMsgKind discriminates the variants of InMsg.
type InMsgKind int

const (
	ClientJoinedKind InMsgKind = iota
	ClientLeftKind
	CustomMsgKind
)

// InMsg flows from the world into the instance's in-queue. Exactly one
// of the fields below is meaningful, selected by Kind.
type InMsg struct {
	Kind       InMsgKind
	ClientID   uuid.UUID
	ClientName string // ClientJoinedKind only
	Bytes      []byte // CustomMsgKind only
}

// ClientJoined builds an InMsg announcing a new attachment.
func ClientJoined(clientID uuid.UUID, clientName string) InMsg {
	return InMsg{Kind: ClientJoinedKind, ClientID: clientID, ClientName: clientName}
}

// ClientLeft builds an InMsg announcing an attachment ended.
func ClientLeft(clientID uuid.UUID) InMsg {
	return InMsg{Kind: ClientLeftKind, ClientID: clientID}
}

// CustomMsgIn builds an InMsg carrying an application payload from clientID.
func CustomMsgIn(clientID uuid.UUID, bytes []byte) InMsg {
	return InMsg{Kind: CustomMsgKind, ClientID: clientID, Bytes: bytes}
}

// OutMsgKind discriminates the variants of OutMsg.
type OutMsgKind int

const (
	CustomToAllKind OutMsgKind = iota
	CustomToKind
)

// OutMsg flows from the instance out to the world. Exactly one of the
// fields below is meaningful, selected by Kind.
type OutMsg struct {
	Kind     OutMsgKind
	ClientID uuid.UUID // CustomToKind only
	Bytes    []byte
}

// CustomToAll builds an OutMsg broadcast to every attached client.
func CustomToAll(bytes []byte) OutMsg {
	return OutMsg{Kind: CustomToAllKind, Bytes: bytes}
}

// CustomTo builds an OutMsg unicast to one attached client.
func CustomTo(clientID uuid.UUID, bytes []byte) OutMsg {
	return OutMsg{Kind: CustomToKind, ClientID: clientID, Bytes: bytes}
}

// Ctx is the per-tick scratch handed to Logic.Tick. Its queues are
// instance-private: only the instance's own goroutine ever touches
// them, so Logic implementations need no synchronization.
type Ctx struct {
	// In is drained by Tick; the runtime clears it after Tick returns,
	// so each InMsg is delivered to exactly one tick.
	In []InMsg
	// Out is filled by Tick and drained by the runtime's fan-out
	// immediately afterward, in push order.
	Out []OutMsg
	// Delta is the number of seconds since the previous tick. It can
	// be large after a scheduling stall; Logic must clamp it itself.
	Delta float64
	// Time is the cumulative number of seconds since the instance
	// started.
	Time float64
}

// Push appends msg to the out-queue.
func (c *Ctx) Push(msg OutMsg) {
	c.Out = append(c.Out, msg)
}

// Logic is the contract an embedder implements to drive one instance.
// Tick is called synchronously on the instance's own goroutine and
// must not block — a blocking Tick stalls only this instance.
type Logic interface {
	Init() Config
	Tick(ctx *Ctx)
}

// Constructor produces a fresh Logic for a newly created instance.
type Constructor func() Logic
