package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"syscall"

	"github.com/itsbjoern/roost/internal/daemon"
	"github.com/itsbjoern/roost/internal/paths"
	"github.com/itsbjoern/roost/internal/proxy"
	"github.com/itsbjoern/roost/internal/registry"
	"github.com/itsbjoern/roost/internal/resolver"
	"github.com/itsbjoern/roost/internal/rlog"
	"github.com/itsbjoern/roost/internal/serveconfig"
)

func dispatchServe(p paths.Paths, args []string) {
	if len(args) == 0 {
		runForeground(p)
		return
	}

	switch args[0] {
	case "daemon":
		dispatchServeDaemon(p, args[1:])
	case "config":
		dispatchServeConfig(p, args[1:])
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown serve subcommand %q\n", args[0])
		os.Exit(1)
	}
}

func projectAndGlobalPaths(p paths.Paths) (string, string) {
	cwd, err := os.Getwd()
	if err != nil {
		fatal(err)
	}
	return paths.ProjectRoostrc(cwd), p.GlobalRoostrc()
}

func loadMerged(p paths.Paths) (*serveconfig.Config, *serveconfig.Config) {
	projectPath, globalPath := projectAndGlobalPaths(p)
	project, err := serveconfig.Load(projectPath)
	if err != nil {
		fatal(err)
	}
	global, err := serveconfig.Load(globalPath)
	if err != nil {
		fatal(err)
	}
	return project, global
}

// buildState loads the merged serve config and builds the resolver and
// mapping table it implies. Used both for the initial Serve and to recompute
// state on SIGHUP reload.
func buildState(p paths.Paths) (*resolver.Resolver, map[string]int, []int, error) {
	project, global := loadMerged(p)
	mappings := serveconfig.Merge(project, global)
	ports := serveconfig.MergePorts(project, global)

	domains := make([]string, 0, len(mappings))
	for d := range mappings {
		domains = append(domains, d)
	}

	reg := registry.New(p, false)
	res, err := resolver.Build(domains, reg)
	if err != nil {
		return nil, nil, nil, err
	}
	return res, mappings, ports, nil
}

func runForeground(p paths.Paths) {
	log := rlog.New("serve", os.Stderr)

	res, mappings, ports, err := buildState(p)
	if err != nil {
		fatal(err)
	}
	engine := proxy.New(res, mappings, log)

	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		for sig := range sigCh {
			switch sig {
			case syscall.SIGHUP:
				newRes, newMappings, _, err := buildState(p)
				if err != nil {
					log.Error("reload_failed", err).Send()
					continue
				}
				engine.Reload(newRes, newMappings)
				log.Event("reloaded").Send()
			default:
				cancel()
				return
			}
		}
	}()

	log.Event("serve_start").Ints("ports", ports).Send()
	if err := engine.Serve(ctx, ports); err != nil {
		log.Error("serve_failed", err).Send()
		os.Exit(1)
	}
}

func dispatchServeDaemon(p paths.Paths, args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: roost serve daemon <start|stop|status|reload>")
		os.Exit(1)
	}

	statePath := p.DaemonStateFile()

	switch args[0] {
	case "start":
		cwd, err := os.Getwd()
		if err != nil {
			fatal(err)
		}
		projectPath := ""
		if paths.HasProjectRoostrc(cwd) {
			projectPath = cwd
		}
		state, err := daemon.Start(statePath, projectPath)
		if err != nil {
			fatal(err)
		}
		fmt.Printf("daemon started, pid %d\n", state.PID)
	case "stop":
		if err := daemon.Stop(statePath); err != nil {
			fatal(err)
		}
		fmt.Println("daemon stopped")
	case "status":
		state, err := daemon.Status(statePath)
		if err != nil {
			fatal(err)
		}
		if state == nil {
			fmt.Println("not running")
			return
		}
		fmt.Printf("running, pid %d, started %s\n", state.PID, state.StartedAt)
	case "reload":
		if err := daemon.Reload(statePath); err != nil {
			fatal(err)
		}
		fmt.Println("reload signal sent")
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown serve daemon subcommand %q\n", args[0])
		os.Exit(1)
	}
}

// reloadDaemonBestEffort signals a running daemon to reload after a serve
// config mutation, per §2's "if a daemon is running, signals it to reload".
// There is nothing to report when no daemon is running, so that case is
// swallowed; any other failure is surfaced as a warning, not a fatal error —
// the config write itself already succeeded.
func reloadDaemonBestEffort(p paths.Paths) {
	err := daemon.Reload(p.DaemonStateFile())
	if err == nil || strings.Contains(err.Error(), "not running") {
		return
	}
	fmt.Fprintf(os.Stderr, "Warning: failed to reload daemon: %v\n", err)
}

func dispatchServeConfig(p paths.Paths, args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: roost serve config <add|remove|list|ports-add|ports-remove|ports-set|ports-list> ...")
		os.Exit(1)
	}

	args, global := hasFlag(args, "--global")
	projectPath, globalPath := projectAndGlobalPaths(p)
	targetPath := projectPath
	if global {
		targetPath = globalPath
	}

	switch args[0] {
	case "add":
		requireArgs(args, 3, "roost serve config add <domain> <port> [--global]")
		port, err := strconv.Atoi(args[2])
		if err != nil {
			fatal(fmt.Errorf("invalid port %q: %w", args[2], err))
		}
		cfg, err := serveconfig.Load(targetPath)
		if err != nil {
			fatal(err)
		}
		cfg.AddMapping(args[1], port)
		if err := serveconfig.Save(targetPath, cfg); err != nil {
			fatal(err)
		}
		reloadDaemonBestEffort(p)
		fmt.Printf("%s -> %d\n", args[1], port)
	case "remove":
		requireArgs(args, 2, "roost serve config remove <domain> [--global]")
		cfg, err := serveconfig.Load(targetPath)
		if err != nil {
			fatal(err)
		}
		cfg.RemoveMapping(args[1])
		if err := serveconfig.Save(targetPath, cfg); err != nil {
			fatal(err)
		}
		reloadDaemonBestEffort(p)
		fmt.Printf("removed %s\n", args[1])
	case "list":
		project, err := serveconfig.Load(projectPath)
		if err != nil {
			fatal(err)
		}
		globalCfg, err := serveconfig.Load(globalPath)
		if err != nil {
			fatal(err)
		}
		for _, m := range serveconfig.MergeWithSource(project, globalCfg) {
			fmt.Printf("%s\t%d\t%s\n", m.Domain, m.Port, m.Source)
		}
	case "ports-add":
		requireArgs(args, 2, "roost serve config ports-add <port> [--global]")
		port, err := strconv.Atoi(args[1])
		if err != nil {
			fatal(fmt.Errorf("invalid port %q: %w", args[1], err))
		}
		cfg, err := serveconfig.Load(targetPath)
		if err != nil {
			fatal(err)
		}
		cfg.AddPort(port)
		if err := serveconfig.Save(targetPath, cfg); err != nil {
			fatal(err)
		}
		reloadDaemonBestEffort(p)
		fmt.Println(cfg.EffectivePorts())
	case "ports-remove":
		requireArgs(args, 2, "roost serve config ports-remove <port> [--global]")
		port, err := strconv.Atoi(args[1])
		if err != nil {
			fatal(fmt.Errorf("invalid port %q: %w", args[1], err))
		}
		cfg, err := serveconfig.Load(targetPath)
		if err != nil {
			fatal(err)
		}
		cfg.RemovePort(port)
		if err := serveconfig.Save(targetPath, cfg); err != nil {
			fatal(err)
		}
		reloadDaemonBestEffort(p)
		fmt.Println(cfg.EffectivePorts())
	case "ports-set":
		requireArgs(args, 2, "roost serve config ports-set <port>[,<port>...] [--global]")
		var ports []int
		for _, s := range strings.Split(args[1], ",") {
			port, err := strconv.Atoi(strings.TrimSpace(s))
			if err != nil {
				fatal(fmt.Errorf("invalid port %q: %w", s, err))
			}
			ports = append(ports, port)
		}
		cfg, err := serveconfig.Load(targetPath)
		if err != nil {
			fatal(err)
		}
		cfg.SetPorts(ports)
		if err := serveconfig.Save(targetPath, cfg); err != nil {
			fatal(err)
		}
		reloadDaemonBestEffort(p)
		fmt.Println(cfg.EffectivePorts())
	case "ports-list":
		project, err := serveconfig.Load(projectPath)
		if err != nil {
			fatal(err)
		}
		globalCfg, err := serveconfig.Load(globalPath)
		if err != nil {
			fatal(err)
		}
		merged := serveconfig.MergePorts(project, globalCfg)
		sort.Ints(merged)
		fmt.Println(merged)
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown serve config subcommand %q\n", args[0])
		os.Exit(1)
	}
}
