package instance

import (
	"github.com/google/uuid"

	"github.com/horup/hostess/netio"
	"github.com/horup/hostess/ratemeter"
)

// controlMsg is the instance's single-consumer control channel
// payload. Ordering across producers is first-come-first-served on
// this channel; ordering within one client's frames is preserved
// because the lobby loop that produced them reads that client's
// stream sequentially.
type controlMsg interface {
	isControlMsg()
}

// clientTransfer hands sink ownership from the lobby loop to the
// instance. returnSink is fulfilled exactly once, either immediately
// (admission rejected) or when the client later leaves.
type clientTransfer struct {
	clientID     uuid.UUID
	clientName   string
	sink         *netio.Sink
	inboundMeter *ratemeter.Meter
	returnSink   chan<- *netio.Sink
}

func (clientTransfer) isControlMsg() {}

// hostClientLeft is forwarded when a session ends while attached.
type hostClientLeft struct {
	clientID uuid.UUID
}

func (hostClientLeft) isControlMsg() {}

// hostCustomMsg is forwarded for every CustomMsg frame from an
// attached client.
type hostCustomMsg struct {
	clientID uuid.UUID
	bytes    []byte
}

func (hostCustomMsg) isControlMsg() {}

// pingMsg is forwarded for every Ping frame from an attached client.
type pingMsg struct {
	clientID uuid.UUID
	tick     float64
}

func (pingMsg) isControlMsg() {}
