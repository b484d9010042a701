// Package node implements the node-facing side of GameRelay's transport:
// a QUIC/WebTransport session to the node hosting the game. W3GS packets
// flow both ways, relay→node and node→relay, over a dedicated bidirectional stream
// (length-prefixed, since a stream has no message boundaries of its
// own); node game-status changes arrive out-of-band as single-byte
// datagrams, the same "ReceiveDatagram" idiom the teacher uses for its
// voice media path.
package node

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/quic-go/webtransport-go"

	"github.com/aesteve/flo/internal/relay"
	"github.com/aesteve/flo/internal/w3gs"
)

// Stream is one session's connection to its hosting node. It implements
// relay.NodeSender; its StatusWatch and Inbound feed the corresponding
// GameRelay select arms.
type Stream struct {
	sess *webtransport.Session
	ctrl webtransport.Stream

	writeMu sync.Mutex

	inbound *relay.Inbound
	status  *relay.StatusWatch
	log     *slog.Logger
}

// Connect dials the node's WebTransport endpoint, opens the control
// stream used for the W3GS relay, and starts the background goroutines
// that feed inbound and status. inbound and status are owned by the
// caller (typically the same ones handed to relay.New); Connect only
// writes to them.
func Connect(ctx context.Context, addr string, inbound *relay.Inbound, status *relay.StatusWatch, log *slog.Logger) (*Stream, error) {
	if log == nil {
		log = slog.Default()
	}
	var dialer webtransport.Dialer
	_, sess, err := dialer.Dial(ctx, addr, nil)
	if err != nil {
		return nil, fmt.Errorf("node: dial %s: %w", addr, err)
	}
	ctrl, err := sess.OpenStreamSync(ctx)
	if err != nil {
		sess.CloseWithError(0, "")
		return nil, fmt.Errorf("node: open control stream: %w", err)
	}

	s := &Stream{sess: sess, ctrl: ctrl, inbound: inbound, status: status, log: log}
	go s.readPackets(ctx)
	go s.readStatus(ctx)
	return s, nil
}

// Send forwards p to the node over the control stream. Implements
// relay.NodeSender.
func (s *Stream) Send(_ context.Context, p w3gs.Packet) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return w3gs.WriteTo(s.ctrl, p)
}

// Close tears down the session. The background readers notice and close
// inbound/status in turn.
func (s *Stream) Close() error {
	return s.sess.CloseWithError(0, "")
}

// readPackets forwards every frame the node sends back towards the
// client into inbound, closing it once the stream ends — this is the
// sole closer of relay.Inbound, avoiding a close-of-closed-channel race
// with the background chat/stats tasks that only ever write to it.
func (s *Stream) readPackets(ctx context.Context) {
	defer s.inbound.Close()
	for {
		pkt, err := w3gs.ReadFrom(s.ctrl)
		if err != nil {
			if !errors.Is(err, io.EOF) && ctx.Err() == nil {
				s.log.Error("node stream read", "err", err)
			}
			return
		}
		if !s.inbound.SendCtx(ctx, pkt) {
			return
		}
	}
}

// readStatus receives single-byte NodeGameStatus datagrams and publishes
// them to status, closing it once the session ends.
func (s *Stream) readStatus(ctx context.Context) {
	defer s.status.Close()
	for {
		data, err := s.sess.ReceiveDatagram(ctx)
		if err != nil {
			if ctx.Err() == nil {
				s.log.Error("node status read", "err", err)
			}
			return
		}
		if len(data) != 1 {
			continue
		}
		s.status.Set(relay.NodeGameStatus(data[0]))
	}
}
