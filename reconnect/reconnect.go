// Package reconnect implements a client-side wrapper around one
// hostess WebSocket connection that transparently reconnects and
// re-sends Hello whenever the link drops.
package reconnect

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/horup/hostess/wire"
)

// RetryInterval is how long Run waits between dial attempts.
const RetryInterval = time.Second

// Client maintains one logical connection to a hostess master,
// reconnecting on any transport failure. Callers interact with it
// through Send and Messages; IsConnected reports the current
// transport state for UI purposes.
type Client struct {
	url        string
	clientID   uuid.UUID
	clientName string
	dialer     websocket.Dialer

	mu        sync.Mutex
	conn      *websocket.Conn
	connected bool

	notify chan struct{} // closed-and-replaced broadcast wakeup

	incoming chan wire.ServerMsg
	closed   chan struct{}
	closeMu  sync.Once
}

// New constructs a Client for url, identifying itself with clientID
// and clientName on every (re)connection.
func New(url string, clientID uuid.UUID, clientName string) *Client {
	return &Client{
		url:        url,
		clientID:   clientID,
		clientName: clientName,
		notify:     make(chan struct{}),
		incoming:   make(chan wire.ServerMsg, 64),
		closed:     make(chan struct{}),
	}
}

// Run dials url, sends Hello, and pumps incoming frames onto
// Messages() until ctx is cancelled, retrying every RetryInterval on
// any failure. It returns when ctx is cancelled.
func (c *Client) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.closed:
			return
		default:
		}

		if err := c.connect(ctx); err != nil {
			c.setConnected(false)
			select {
			case <-ctx.Done():
				return
			case <-c.closed:
				return
			case <-time.After(RetryInterval):
				continue
			}
		}

		c.readLoop(ctx)
		c.setConnected(false)

		select {
		case <-ctx.Done():
			return
		case <-c.closed:
			return
		case <-time.After(RetryInterval):
		}
	}
}

// Connect blocks until the transport reports connected, or ctx is
// done. Callers that need to wait for the first successful dial
// before sending anything — rather than racing Send against Run's
// background retry loop — call this once after starting Run.
func (c *Client) Connect(ctx context.Context) error {
	for {
		if c.IsConnected() {
			return nil
		}
		select {
		case <-c.Notify():
		case <-ctx.Done():
			return ctx.Err()
		case <-c.closed:
			return fmt.Errorf("reconnect: client closed")
		}
	}
}

func (c *Client) connect(ctx context.Context) error {
	conn, _, err := c.dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return fmt.Errorf("reconnect: dial: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	if err := c.writeMsg(wire.Hello{ClientID: c.clientID, ClientName: c.clientName}); err != nil {
		_ = conn.Close()
		return fmt.Errorf("reconnect: hello: %w", err)
	}

	c.setConnected(true)
	return nil
}

func (c *Client) readLoop(ctx context.Context) {
	for {
		c.mu.Lock()
		conn := c.conn
		c.mu.Unlock()
		if conn == nil {
			return
		}

		_, payload, err := conn.ReadMessage()
		if err != nil {
			return
		}

		msg, err := wire.DecodeServerMsg(payload)
		if err != nil {
			continue
		}

		select {
		case c.incoming <- msg:
		case <-ctx.Done():
			return
		}
	}
}

// Send encodes and writes one ClientMsg frame. It fails immediately
// if not currently connected — callers needing at-least-once delivery
// across reconnects must retry themselves.
func (c *Client) Send(msg wire.ClientMsg) error {
	return c.writeMsg(msg)
}

func (c *Client) writeMsg(msg wire.ClientMsg) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return fmt.Errorf("reconnect: not connected")
	}
	return conn.WriteMessage(websocket.BinaryMessage, wire.EncodeClientMsg(msg))
}

// Messages returns the channel of decoded server frames. It is never
// closed across a reconnect, so a caller that needs to notice a
// disconnect — rather than just stalling until the next frame arrives
// from a fresh connection — selects on Messages() alongside Notify()
// and checks IsConnected() when Notify fires.
func (c *Client) Messages() <-chan wire.ServerMsg {
	return c.incoming
}

// IsConnected reports whether the transport is currently up.
func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// Notify returns a channel that is closed on every connection-state
// change, for callers that want to block until something changes
// without polling IsConnected. Each call returns the channel current
// at call time; after it fires, call Notify again for the next one.
func (c *Client) Notify() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.notify
}

func (c *Client) setConnected(v bool) {
	c.mu.Lock()
	c.connected = v
	old := c.notify
	c.notify = make(chan struct{})
	c.mu.Unlock()
	close(old)
}

// Close tears down the current connection and stops Run's loop on its
// next ctx check.
func (c *Client) Close() {
	c.closeMu.Do(func() { close(c.closed) })
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		_ = c.conn.Close()
	}
}
