// Command roost is the CLI surface over the core packages: CA management,
// domain registration, serve config, and the daemon supervisor. It is a
// thin, hand-rolled dispatcher over os.Args, in the same spirit as the
// package this was generalized from — no flag/command framework.
package main

import (
	"fmt"
	"os"

	"github.com/itsbjoern/roost/internal/paths"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	p := paths.Resolve()

	switch os.Args[1] {
	case "init":
		cmdInit(p)
	case "ca":
		dispatchCA(p, os.Args[2:])
	case "domain":
		dispatchDomain(p, os.Args[2:])
	case "serve":
		dispatchServe(p, os.Args[2:])
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown command %q\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `roost - local HTTPS reverse proxy for dev workstations

Usage:
  roost init
  roost ca list
  roost ca create <name>
  roost ca remove <name>
  roost ca install <name>
  roost ca uninstall <name>
  roost domain list
  roost domain add <domain> [--exact] [--any-tld]
  roost domain remove <domain>
  roost domain set-ca <domain> <ca> [--exact]
  roost domain get-path <domain>
  roost serve
  roost serve daemon start
  roost serve daemon stop
  roost serve daemon status
  roost serve daemon reload
  roost serve config add <domain> <port> [--global]
  roost serve config remove <domain> [--global]
  roost serve config list
  roost serve config ports-add <port> [--global]
  roost serve config ports-remove <port> [--global]
  roost serve config ports-set <port>[,<port>...] [--global]
  roost serve config ports-list`)
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

// hasFlag reports whether name (e.g. "--exact") is present in args, and
// returns args with it removed.
func hasFlag(args []string, name string) ([]string, bool) {
	out := args[:0:0]
	found := false
	for _, a := range args {
		if a == name {
			found = true
			continue
		}
		out = append(out, a)
	}
	return out, found
}
