// Package lan implements the client-facing side of GameRelay's transport:
// a TLS-protected WebSocket carrying W3GS frames as binary messages, one
// frame per message. Unlike the node stream, framing needs no explicit
// length prefix — gorilla/websocket already delimits messages — so each
// message is simply [type byte][body...].
package lan

import (
	"context"
	"fmt"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/aesteve/flo/internal/w3gs"
)

// Conn adapts a gorilla/websocket connection to relay.ClientStream.
type Conn struct {
	ws      *websocket.Conn
	limiter *rate.Limiter
}

// NewConn wraps an already-upgraded websocket connection.
func NewConn(ws *websocket.Conn) *Conn {
	return &Conn{ws: ws}
}

// Send encodes p as a single binary WebSocket message.
func (c *Conn) Send(ctx context.Context, p w3gs.Packet) error {
	if dl, ok := ctx.Deadline(); ok {
		if err := c.ws.SetWriteDeadline(dl); err != nil {
			return err
		}
	}
	msg := make([]byte, 1+len(p.Body))
	msg[0] = byte(p.TypeID)
	copy(msg[1:], p.Body)
	return c.ws.WriteMessage(websocket.BinaryMessage, msg)
}

// Recv blocks for the next binary message and decodes it as a Packet.
// gorilla/websocket has no native context support, so ctx only sets a
// read deadline; the caller (GameRelay.readClientLoop) is the one that
// actually races this against ctx.Done via a detached goroutine.
func (c *Conn) Recv(ctx context.Context) (w3gs.Packet, error) {
	if dl, ok := ctx.Deadline(); ok {
		if err := c.ws.SetReadDeadline(dl); err != nil {
			return w3gs.Packet{}, err
		}
	}
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return w3gs.Packet{}, err
		}
	}
	kind, data, err := c.ws.ReadMessage()
	if err != nil {
		return w3gs.Packet{}, err
	}
	if kind != websocket.BinaryMessage {
		return w3gs.Packet{}, fmt.Errorf("lan: unexpected websocket message kind %d", kind)
	}
	if len(data) < 1 {
		return w3gs.Packet{}, fmt.Errorf("lan: empty frame")
	}
	return w3gs.Packet{TypeID: w3gs.TypeID(data[0]), Body: data[1:]}, nil
}

// Flush is a no-op: gorilla/websocket writes each message immediately.
// Kept so Conn satisfies relay.ClientStream, whose Flush the relay calls
// after echoing a LeaveAck.
func (c *Conn) Flush(context.Context) error { return nil }

// Close closes the underlying connection.
func (c *Conn) Close() error { return c.ws.Close() }
