package main

import (
	"fmt"
	"os"

	"github.com/itsbjoern/roost/internal/config"
	"github.com/itsbjoern/roost/internal/hosts"
	"github.com/itsbjoern/roost/internal/paths"
	"github.com/itsbjoern/roost/internal/registry"
)

func dispatchDomain(p paths.Paths, args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: roost domain <list|add|remove|set-ca|get-path> [domain]")
		os.Exit(1)
	}

	switch args[0] {
	case "list":
		cfg, err := config.Load(p.ConfigFile())
		if err != nil {
			fatal(err)
		}
		reg := registry.New(p, false)
		for _, d := range reg.List(cfg) {
			fmt.Printf("%s\t%s\n", d, cfg.Domains[d])
		}
	case "add":
		rest := args[1:]
		rest, exact := hasFlag(rest, "--exact")
		rest, anyTLD := hasFlag(rest, "--any-tld")
		requireArgs(append([]string{"add"}, rest...), 2, "roost domain add <domain> [--exact] [--any-tld]")

		domain := rest[0]
		cfg, err := config.Load(p.ConfigFile())
		if err != nil {
			fatal(err)
		}
		reg := registry.New(p, anyTLD)
		if err := reg.Add(cfg, domain, exact, hosts.Resolve()); err != nil {
			fatal(err)
		}
		if err := config.Save(p.ConfigFile(), cfg); err != nil {
			fatal(err)
		}
		fmt.Printf("registered %s -> ca %q\n", domain, cfg.Domains[domain])
	case "remove":
		requireArgs(args, 2, "roost domain remove <domain>")
		cfg, err := config.Load(p.ConfigFile())
		if err != nil {
			fatal(err)
		}
		reg := registry.New(p, false)
		if err := reg.Remove(cfg, args[1], hosts.Resolve()); err != nil {
			fatal(err)
		}
		if err := config.Save(p.ConfigFile(), cfg); err != nil {
			fatal(err)
		}
		fmt.Printf("removed %s\n", args[1])
	case "set-ca":
		rest := args[1:]
		rest, exact := hasFlag(rest, "--exact")
		requireArgs(append([]string{"set-ca"}, rest...), 3, "roost domain set-ca <domain> <ca> [--exact]")

		cfg, err := config.Load(p.ConfigFile())
		if err != nil {
			fatal(err)
		}
		reg := registry.New(p, false)
		if err := reg.SetCA(cfg, rest[0], rest[1], exact); err != nil {
			fatal(err)
		}
		if err := config.Save(p.ConfigFile(), cfg); err != nil {
			fatal(err)
		}
		fmt.Printf("%s now signed by ca %q\n", rest[0], rest[1])
	case "get-path":
		requireArgs(args, 2, "roost domain get-path <domain>")
		reg := registry.New(p, false)
		certPath, keyPath := reg.CertPaths(args[1])
		fmt.Printf("cert: %s\nkey:  %s\n", certPath, keyPath)
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown domain subcommand %q\n", args[0])
		os.Exit(1)
	}
}
