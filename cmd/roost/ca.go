package main

import (
	"fmt"
	"os"

	"github.com/itsbjoern/roost/internal/config"
	"github.com/itsbjoern/roost/internal/paths"
	"github.com/itsbjoern/roost/internal/tls/ca"
	"github.com/itsbjoern/roost/internal/tls/trust"
)

// cmdInit bootstraps the data directory, creates the default CA if absent,
// and installs it into the OS trust store unless ROOST_SKIP_TRUST_INSTALL
// is set. A second call never overwrites existing CA material.
func cmdInit(p paths.Paths) {
	cfg, err := config.Load(p.ConfigFile())
	if err != nil {
		fatal(err)
	}
	if cfg.DefaultCA == "" {
		cfg.DefaultCA = "default"
	}

	mgr := ca.NewManager(p.CADir())
	defaultCA, err := mgr.EnsureDefault(cfg.DefaultCA)
	if err != nil {
		fatal(err)
	}

	if err := config.Save(p.ConfigFile(), cfg); err != nil {
		fatal(err)
	}

	if os.Getenv("ROOST_SKIP_TRUST_INSTALL") != "" {
		fmt.Printf("CA %q ready at %s (trust store install skipped)\n", cfg.DefaultCA, defaultCA.CertPath())
		return
	}

	store := trust.NewPlatformTrustStore()
	if err := store.Install(defaultCA.CertPath()); err != nil {
		fatal(err)
	}
	fmt.Printf("CA %q ready at %s and installed into the system trust store\n", cfg.DefaultCA, defaultCA.CertPath())
}

func dispatchCA(p paths.Paths, args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: roost ca <list|create|remove|install|uninstall> [name]")
		os.Exit(1)
	}

	mgr := ca.NewManager(p.CADir())

	switch args[0] {
	case "list":
		names, err := mgr.List()
		if err != nil {
			fatal(err)
		}
		for _, n := range names {
			fmt.Println(n)
		}
	case "create":
		requireArgs(args, 2, "roost ca create <name>")
		if _, err := mgr.Create(args[1]); err != nil {
			fatal(err)
		}
		fmt.Printf("created ca %q\n", args[1])
	case "remove":
		requireArgs(args, 2, "roost ca remove <name>")
		cfg, err := config.Load(p.ConfigFile())
		if err != nil {
			fatal(err)
		}
		if err := mgr.Remove(args[1], cfg.Domains); err != nil {
			fatal(err)
		}
		fmt.Printf("removed ca %q\n", args[1])
	case "install":
		requireArgs(args, 2, "roost ca install <name>")
		c, err := mgr.Load(args[1])
		if err != nil {
			fatal(err)
		}
		if err := trust.NewPlatformTrustStore().Install(c.CertPath()); err != nil {
			fatal(err)
		}
		fmt.Printf("installed ca %q into the system trust store\n", args[1])
	case "uninstall":
		requireArgs(args, 2, "roost ca uninstall <name>")
		c, err := mgr.Load(args[1])
		if err != nil {
			fatal(err)
		}
		if err := trust.NewPlatformTrustStore().Uninstall(c.CertPath()); err != nil {
			fatal(err)
		}
		fmt.Printf("uninstalled ca %q from the system trust store\n", args[1])
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown ca subcommand %q\n", args[0])
		os.Exit(1)
	}
}

func requireArgs(args []string, n int, usage string) {
	if len(args) < n {
		fmt.Fprintf(os.Stderr, "Usage: %s\n", usage)
		os.Exit(1)
	}
}
