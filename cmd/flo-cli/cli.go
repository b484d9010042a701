package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/aesteve/flo/internal/store"
)

// runToken issues a fresh connect token for player-id and persists it,
// mirroring the teacher's cliStatus/cliSettings shape: open the store,
// do the one thing this subcommand does, print a result, exit.
func runToken(args []string) {
	fs := flag.NewFlagSet("token", flag.ExitOnError)
	dbPath := fs.String("db", "flo.db", "SQLite database path")
	ttl := fs.Duration("ttl", 24*time.Hour, "token validity duration")
	fs.Parse(args)

	playerID := requirePlayerID(fs, "token")

	st, err := store.New(*dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error opening database: %v\n", err)
		os.Exit(1)
	}
	defer st.Close()

	token := uuid.New().String()
	expiresAt := time.Now().Add(*ttl).Unix()
	if err := st.CreateToken(context.Background(), token, playerID, expiresAt); err != nil {
		fmt.Fprintf(os.Stderr, "error creating token: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(token)
}

// runStatus prints row counts from the store, mirroring the teacher's
// cliStatus.
func runStatus(args []string) {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	dbPath := fs.String("db", "flo.db", "SQLite database path")
	fs.Parse(args)

	st, err := store.New(*dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error opening database: %v\n", err)
		os.Exit(1)
	}
	defer st.Close()

	counts, err := st.Status(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Database: %s\n", *dbPath)
	fmt.Printf("Mutes: %d\n", counts.Mutes)
	fmt.Printf("Blacklist: %d\n", counts.Blacklist)
	fmt.Printf("Tokens: %d\n", counts.Tokens)
}

// runSettings lists or sets operator settings, mirroring the teacher's
// cliSettings.
func runSettings(args []string) {
	fs := flag.NewFlagSet("settings", flag.ExitOnError)
	dbPath := fs.String("db", "flo.db", "SQLite database path")
	fs.Parse(args)
	rest := fs.Args()

	st, err := store.New(*dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error opening database: %v\n", err)
		os.Exit(1)
	}
	defer st.Close()

	if len(rest) == 0 || rest[0] == "list" {
		settings, err := st.GetAllSettings(context.Background())
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		out, _ := json.MarshalIndent(settings, "", "  ")
		fmt.Println(string(out))
		return
	}

	if rest[0] == "set" && len(rest) == 3 {
		key, value := rest[1], rest[2]
		if err := st.SetSetting(context.Background(), key, value); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Set %s = %s\n", key, value)
		return
	}

	fmt.Fprintln(os.Stderr, "Usage: flo-cli settings [list|set <key> <value>]")
	os.Exit(1)
}

// requirePlayerID extracts and parses the sole positional argument fs was
// parsed with, as a player id, or exits with a usage message.
func requirePlayerID(fs *flag.FlagSet, subcmd string) int32 {
	rest := fs.Args()
	if len(rest) != 1 {
		fmt.Fprintf(os.Stderr, "Usage: flo-cli %s [flags] <player-id>\n", subcmd)
		os.Exit(1)
	}
	id, err := strconv.ParseInt(rest[0], 10, 32)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid player id %q: %v\n", rest[0], err)
		os.Exit(1)
	}
	return int32(id)
}
