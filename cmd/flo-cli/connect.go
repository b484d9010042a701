package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/google/uuid"

	"github.com/aesteve/flo/internal/httpapi"
	"github.com/aesteve/flo/internal/metrics"
	"github.com/aesteve/flo/internal/relay"
	"github.com/aesteve/flo/internal/statsclient"
	"github.com/aesteve/flo/internal/store"
	"github.com/aesteve/flo/internal/transport/lan"
	"github.com/aesteve/flo/internal/transport/node"
)

// runConnect starts the LAN listener and, for each accepted client
// connection, dials the configured node and drives one GameRelay session
// to completion — the Go-native equivalent of the teacher's main.go
// wiring a room and a single Server.Run for the lifetime of the process.
func runConnect(args []string) {
	fs := flag.NewFlagSet("connect", flag.ExitOnError)
	dbPath := fs.String("db", "flo.db", "SQLite database path")
	listenAddr := fs.String("listen", ":6113", "LAN WebSocket listen address")
	nodeAddr := fs.String("node-addr", "https://127.0.0.1:4433/node", "node WebTransport URL to dial")
	apiAddr := fs.String("api-addr", "", "operator HTTP API listen address (empty disables)")
	statsAddr := fs.String("stats-addr", "", "base URL of the external stats service (empty disables -stats)")
	gameName := fs.String("game-name", "flo-cli test game", "game name announced to the client")
	perIPLimit := fs.Int("per-ip-limit", 4, "maximum concurrent connections per remote address")
	connRate := fs.Float64("conn-rate", 50, "maximum inbound messages per second per connection")
	connBurst := fs.Int("conn-burst", 20, "burst size for -conn-rate")
	fs.Parse(args)

	playerID := requirePlayerID(fs, "connect")

	st, err := store.New(*dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error opening database: %v\n", err)
		os.Exit(1)
	}
	defer st.Close()

	tlsConfig, fingerprint, err := lan.NewEphemeralCert(24 * time.Hour)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error generating TLS certificate: %v\n", err)
		os.Exit(1)
	}
	slog.Info("lan relay TLS certificate", "fingerprint", fingerprint)

	registry := metrics.NewRegistry()

	var stats relay.StatsClient
	if *statsAddr != "" {
		stats = statsclient.New(*statsAddr)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	go metrics.Run(ctx, registry, 30*time.Second, slog.Default())

	if *apiAddr != "" {
		api := httpapi.New(registry)
		go func() {
			if err := api.Run(ctx, *apiAddr); err != nil {
				slog.Error("operator http api", "err", err)
			}
		}()
	}

	srv := &lan.Server{
		Addr:       *listenAddr,
		TLSConfig:  tlsConfig,
		PerIPLimit: *perIPLimit,
		ConnRate:   *connRate,
		ConnBurst:  *connBurst,
		OnConnect: func(ctx context.Context, conn *lan.Conn) {
			runSession(ctx, sessionDeps{
				conn:     conn,
				store:    st,
				registry: registry,
				stats:    stats,
				playerID: playerID,
				gameName: *gameName,
				nodeAddr: *nodeAddr,
			})
		},
	}

	slog.Info("lan relay listening, waiting for one client connection", "addr", *listenAddr)
	if err := srv.Run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "lan server: %v\n", err)
		os.Exit(1)
	}
}

// sessionDeps bundles everything one relay session needs, so runSession
// stays a single readable parameter list instead of seven positionals.
type sessionDeps struct {
	conn     *lan.Conn
	store    *store.Store
	registry *metrics.Registry
	stats    relay.StatsClient
	playerID int32
	gameName string
	nodeAddr string
}

// runSession dials the node, wires one Relay, and drives it to
// completion. It is the loop body behind lan.Server.OnConnect.
func runSession(ctx context.Context, d sessionDeps) {
	sessionID := uuid.New().String()
	log := slog.Default().With("session", sessionID)
	counters := d.registry.Register(sessionID)
	defer d.registry.Unregister(sessionID)

	inbound := relay.NewInbound(32)
	status := relay.NewStatusWatch()

	nodeStream, err := node.Connect(ctx, d.nodeAddr, inbound, status, log)
	if err != nil {
		log.Error("dial node", "addr", d.nodeAddr, "err", err)
		return
	}
	defer nodeStream.Close()

	client := metrics.NewCountingClientStream(d.conn, counters)
	nodeOut := metrics.NewCountingNodeSender(nodeStream, counters)

	info := relay.LanGameInfo{
		Game: relay.GameInfo{ID: 1, Name: d.gameName},
		Slot: relay.SlotInfo{
			MySlotPlayerID: 1,
			MySlotTeam:     0,
			PlayerInfos: []relay.PlayerInfo{
				{SlotPlayerID: 1, SlotIndex: 0, PlayerID: d.playerID, Name: fmt.Sprintf("player-%d", d.playerID)},
			},
		},
	}
	nodeInfo := relay.NodeInfo{ID: 1, Name: "flo-cli node", Location: "local", Country: "XX"}
	endReason := &relay.EndReasonCell{}

	r := relay.New(info, nodeInfo, client, nodeOut, status, inbound, d.store, d.stats, d.store, endReason, log)

	result, err := r.Run(ctx, nil, nil)
	if err != nil {
		log.Error("relay session ended", "err", err)
		return
	}
	reason, _ := endReason.Get()
	log.Info("relay session ended", "result", result, "end_reason_kind", reason.Kind, "end_reason_code", reason.ReasonCode)
}
