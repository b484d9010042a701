package main

import (
	"context"
	"crypto/tls"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/quic-go/quic-go/http3"
	"github.com/quic-go/webtransport-go"

	"github.com/aesteve/flo/internal/nodehost"
	"github.com/aesteve/flo/internal/relay"
	"github.com/aesteve/flo/internal/tick"
	"github.com/aesteve/flo/internal/transport/lan"
	"github.com/aesteve/flo/internal/w3gs"
)

// runStartTestGame stands up a minimal stand-in for a real node: enough
// WebTransport surface for "flo-cli connect" to dial and exercise the
// relay end to end without any real game infrastructure.
func runStartTestGame(args []string) {
	fs := flag.NewFlagSet("start-test-game", flag.ExitOnError)
	listenAddr := fs.String("node-listen", ":4433", "loopback node WebTransport listen address")
	step := fs.Int("step", 50, "simulated action-tick step, in milliseconds")
	fs.Parse(args)

	playerID := requirePlayerID(fs, "start-test-game")

	tlsConfig, fingerprint, err := lan.NewEphemeralCert(24 * time.Hour)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error generating TLS certificate: %v\n", err)
		os.Exit(1)
	}
	slog.Info("loopback node TLS certificate", "fingerprint", fingerprint)

	n := &loopbackNode{
		addr:      *listenAddr,
		tlsConfig: tlsConfig,
		step:      uint16(*step),
		log:       slog.Default(),
	}

	fmt.Printf("loopback node listening on %s\n", *listenAddr)
	fmt.Printf("run: flo-cli connect -node-addr https://127.0.0.1%s/node %d\n", *listenAddr, playerID)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := n.run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "loopback node: %v\n", err)
		os.Exit(1)
	}
}

// loopbackNode plays the node side of the protocol for exactly as many
// sessions as connect to it: accept the WebTransport session, accept the
// control stream that internal/transport/node.Connect opens on the other
// end, echo every W3GS frame straight back, and report a
// canned sequence of game-status datagrams. It runs its own
// internal/tick.Stream/internal/nodehost.RunHostLoop pair so both are
// exercised even though nothing downstream reads the ticks yet.
type loopbackNode struct {
	addr      string
	tlsConfig *tls.Config
	step      uint16
	log       *slog.Logger
}

func (n *loopbackNode) run(ctx context.Context) error {
	mux := http.NewServeMux()
	wts := &webtransport.Server{
		H3: http3.Server{
			Addr:      n.addr,
			TLSConfig: n.tlsConfig,
			Handler:   mux,
		},
	}

	mux.HandleFunc("/node", func(w http.ResponseWriter, r *http.Request) {
		sess, err := wts.Upgrade(w, r)
		if err != nil {
			n.log.Error("loopback node upgrade", "err", err)
			return
		}
		go n.handleSession(ctx, sess)
	})

	go func() {
		<-ctx.Done()
		_ = wts.Close()
	}()

	err := wts.ListenAndServe()
	if err == nil || errors.Is(err, http.ErrServerClosed) || errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// handleSession drives one simulated node session: a tick clock runs for
// the lifetime of the session purely to exercise internal/tick and
// internal/nodehost, a background goroutine announces a canned game
// status progression, and the control stream echoes back whatever the
// relay forwards.
func (n *loopbackNode) handleSession(ctx context.Context, sess *webtransport.Session) {
	defer sess.CloseWithError(0, "")

	ctrl, err := sess.AcceptStream(ctx)
	if err != nil {
		n.log.Error("loopback node accept stream", "err", err)
		return
	}

	clock := tick.New(n.step)
	go func() {
		_ = nodehost.RunHostLoop(ctx, clock, func(t tick.Tick) {
			n.log.Debug("loopback tick", "time_increment_ms", t.TimeIncrementMs, "actions", len(t.Actions))
		})
	}()

	go n.announceStatus(ctx, sess)

	for {
		pkt, err := w3gs.ReadFrom(ctrl)
		if err != nil {
			return
		}
		if err := w3gs.WriteTo(ctrl, pkt); err != nil {
			return
		}
	}
}

// announceStatus sends the canned created→waiting→running progression a
// real node would report as the game moves through its lifecycle.
func (n *loopbackNode) announceStatus(ctx context.Context, sess *webtransport.Session) {
	progression := []relay.NodeGameStatus{
		relay.NodeStatusCreated,
		relay.NodeStatusWaiting,
		relay.NodeStatusRunning,
	}
	for _, s := range progression {
		if err := sess.SendDatagram([]byte{byte(s)}); err != nil {
			return
		}
		select {
		case <-time.After(2 * time.Second):
		case <-ctx.Done():
			return
		}
	}
}
