// Command flo-cli is the operator and smoke-test entry point for the LAN
// relay: it issues connect tokens, runs a relay session against a real
// node, stands up a loopback node for manual testing, and inspects the
// persistent store — grounded on the teacher's main.go/cli.go split
// between "serve" flags and subcommand dispatch.
package main

import (
	"fmt"
	"os"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "token":
		runToken(os.Args[2:])
	case "connect":
		runConnect(os.Args[2:])
	case "start-test-game":
		runStartTestGame(os.Args[2:])
	case "status":
		runStatus(os.Args[2:])
	case "settings":
		runSettings(os.Args[2:])
	case "-h", "-help", "--help", "help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "flo-cli: unknown subcommand %q\n\n", os.Args[1])
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprint(os.Stderr, `Usage: flo-cli <subcommand> [flags] [args]

Subcommands:
  token <player-id>          issue and persist a connect token
  connect <player-id>        run one relay session against a node
  start-test-game <id>       run a loopback node for manual smoke-testing
  status                     print store row counts
  settings [list|set k v]    inspect or change operator settings

Run "flo-cli <subcommand> -h" for subcommand-specific flags.
`)
}
