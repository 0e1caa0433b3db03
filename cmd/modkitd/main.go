// Package main is the entry point for the modkit daemon.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/dshills/modkit/internal/config"
	"github.com/dshills/modkit/internal/dispatch"
	"github.com/dshills/modkit/internal/logkit"
	"github.com/dshills/modkit/internal/manager"
	"github.com/dshills/modkit/internal/modules/clickhandler"
	"github.com/dshills/modkit/internal/modules/gpiomock"
	"github.com/dshills/modkit/internal/modules/luamod"
	"github.com/dshills/modkit/internal/modules/promexport"
	"github.com/dshills/modkit/internal/modules/webhook"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		configPath  string
		logLevel    string
		logFormat   string
		showVersion bool
	)
	flag.StringVar(&configPath, "config", "modkit.yaml", "Path to configuration file")
	flag.StringVar(&configPath, "c", "modkit.yaml", "Path to configuration file (shorthand)")
	flag.StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); overrides config")
	flag.StringVar(&logFormat, "log-format", "", "Log format (text, json); overrides config")
	flag.BoolVar(&showVersion, "version", false, "Show version information")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "modkitd - module interop daemon\n\n")
		fmt.Fprintf(os.Stderr, "Usage: modkitd [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if showVersion {
		fmt.Printf("modkitd %s (%s)\n", version, commit)
		return 0
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	if logLevel == "" {
		logLevel = cfg.GetString("log.level", "info")
	}
	if logFormat == "" {
		logFormat = cfg.GetString("log.format", "text")
	}
	log := logkit.New(logLevel, logFormat, os.Stderr)

	policy, err := manager.ParseShutdownPolicy(cfg.GetString("shutdown.policy", "drain"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	errPolicy, err := dispatch.ParseErrorPolicy(cfg.GetString("dispatch.error_policy", "log"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	mgr := manager.New(
		manager.WithLogger(log),
		manager.WithQueueCapacity(cfg.GetInt("queue.capacity", 0)),
		manager.WithShutdownPolicy(policy),
		manager.WithErrorPolicy(errPolicy),
	)

	if err := registerModules(mgr, cfg, log); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	ctx := logkit.WithLogger(context.Background(), log)
	if err := mgr.Start(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to start: %v\n", err)
		return 1
	}

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-signals
		log.Info("signal received, stopping", "signal", sig.String())
		stopCtx, cancel := context.WithTimeout(context.Background(),
			cfg.GetDuration("shutdown.timeout", 30*time.Second))
		defer cancel()
		_ = mgr.Stop(stopCtx)
	}()

	if err := mgr.Wait(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// registerModules builds the module set the configuration enables.
func registerModules(mgr *manager.Manager, cfg *config.Config, log *slog.Logger) error {
	if cfg.GetBool("modules.gpio.enabled", false) {
		var lines []string
		if v, ok := cfg.Get("modules.gpio.lines"); ok {
			if raw, ok := v.([]any); ok {
				for _, l := range raw {
					if s, ok := l.(string); ok {
						lines = append(lines, s)
					}
				}
			}
		}
		gpio := gpiomock.New("gpio", mgr, lines, gpiomock.WithLogger(log))
		if err := mgr.Register(gpio); err != nil {
			return err
		}
	}

	if cfg.GetBool("modules.clicks.enabled", false) {
		clicks := clickhandler.New("clicks", mgr,
			clickhandler.WithLogger(log),
			clickhandler.WithHoldThreshold(cfg.GetDuration("modules.clicks.hold", 0)),
			clickhandler.WithDoubleWindow(cfg.GetDuration("modules.clicks.double_window", 0)),
		)
		if err := mgr.Register(clicks); err != nil {
			return err
		}
	}

	if v, ok := cfg.Get("modules.lua.scripts"); ok {
		raw, ok := v.([]any)
		if !ok {
			return fmt.Errorf("modules.lua.scripts must be a list of paths")
		}
		for _, p := range raw {
			path, ok := p.(string)
			if !ok {
				return fmt.Errorf("modules.lua.scripts must be a list of paths")
			}
			name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
			script := luamod.New(name, mgr, luamod.WithLogger(log))
			if err := script.LoadFile(path); err != nil {
				return err
			}
			if err := mgr.Register(script); err != nil {
				return err
			}
		}
	}

	if cfg.GetBool("modules.webhook.enabled", false) {
		hook := webhook.New("webhook", mgr,
			cfg.GetString("modules.webhook.addr", ":8080"),
			webhook.WithLogger(log),
			webhook.WithStatusFunc(func() map[string]any {
				st := mgr.Stats()
				return map[string]any{
					"state":     mgr.State().String(),
					"queued":    mgr.QueueLen(),
					"processed": st.Items,
					"failed":    st.Failed,
				}
			}),
		)
		if err := mgr.Register(hook); err != nil {
			return err
		}
	}

	if cfg.GetBool("modules.metrics.enabled", false) {
		metrics := promexport.New("metrics",
			cfg.GetString("modules.metrics.addr", ":9090"),
			mgr.Stats, mgr.QueueLen,
			promexport.WithLogger(log),
		)
		if err := mgr.Register(metrics); err != nil {
			return err
		}
	}

	return nil
}
