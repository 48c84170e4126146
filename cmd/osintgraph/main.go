package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/AzouC/Outils-Osintt/internal/adapters/output"
	"github.com/AzouC/Outils-Osintt/internal/core/domain"
	"github.com/AzouC/Outils-Osintt/internal/core/ports"
	"github.com/AzouC/Outils-Osintt/internal/core/usecases"
	"github.com/AzouC/Outils-Osintt/internal/platform/cache"
	"github.com/AzouC/Outils-Osintt/internal/platform/config"
	"github.com/AzouC/Outils-Osintt/internal/platform/egress"
	"github.com/AzouC/Outils-Osintt/internal/platform/logx"
	"github.com/AzouC/Outils-Osintt/internal/platform/registry"

	// Import modules for auto-registration via init()
	_ "github.com/AzouC/Outils-Osintt/internal/modules/domainintel"
	_ "github.com/AzouC/Outils-Osintt/internal/modules/emailintel"
	_ "github.com/AzouC/Outils-Osintt/internal/modules/phoneintel"
	_ "github.com/AzouC/Outils-Osintt/internal/modules/socialintel"
	_ "github.com/AzouC/Outils-Osintt/internal/modules/walletintel"
)

var (
	// set via -ldflags at build time
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: configuration load failed: %v\n", err)
		return 2
	}

	if cfg.PrintVersion {
		fmt.Printf("osintgraph %s (commit %s, built %s)\n", version, commit, date)
		return 0
	}
	if cfg.PrintModules {
		for _, name := range registry.Global().List() {
			meta, _ := registry.Global().Metadata(name)
			fmt.Printf("%-14s %v\n", name, meta.Kinds)
		}
		return 0
	}

	logger := logx.New()

	if cfg.Value == "" {
		fmt.Fprintln(os.Stderr, "Error: a seed value is required")
		fmt.Fprintln(os.Stderr, "Usage: osintgraph --kind email --value jane@example.com")
		fmt.Fprintln(os.Stderr, "Try: osintgraph --help")
		return 2
	}

	kind, err := domain.ParseKind(cfg.Kind)
	if err != nil {
		logger.Err(err, "phase", "validation")
		return 2
	}
	seed, err := domain.NewEntity(kind, cfg.Value, 0)
	if err != nil {
		logger.Err(err, "phase", "validation")
		return 2
	}

	logger.Info("osintgraph starting",
		"version", version,
		"seed", seed.Identity(),
		"depth", cfg.Depth,
		"workers", cfg.Workers,
		"anonymize", cfg.Anonymize,
	)

	ctx, cancel := rootContextWithSignals()
	defer cancel()

	// egress identities: Tor circuits when anonymized, otherwise direct
	// plus any configured SOCKS5 proxies
	identities, torNet, err := buildIdentities(ctx, cfg, logger)
	if err != nil {
		logger.Err(err, "phase", "egress")
		return 2
	}
	if torNet != nil {
		defer func() {
			if err := torNet.Stop(); err != nil {
				logger.Warn("failed to stop embedded tor", "error", err.Error())
			}
		}()
	}

	rotator := egress.NewRotator(egress.RotatorOptions{
		Identities: identities,
		Logger:     logger,
	})

	var store cache.Store
	if !cfg.CacheDisabled {
		sqliteStore, err := cache.OpenSQLite(cfg.CacheDir, logger)
		if err != nil {
			logger.Warn("persistent cache unavailable, using memory cache", "error", err.Error())
			store = cache.NewMemoryStore()
		} else {
			store = sqliteStore
		}
		defer func() {
			if err := store.Close(); err != nil {
				logger.Warn("failed to close cache", "error", err.Error())
			}
		}()
	}

	modules, err := registry.Global().Build(cfg.ResolvedModules(), logger)
	if err != nil {
		logger.Err(err, "phase", "module-build")
		return 2
	}
	defer func() {
		if err := modules.Close(); err != nil {
			logger.Warn("failed to close modules", "error", err.Error())
		}
	}()

	scheduler := usecases.NewScheduler(modules, rotator, store, logger, usecases.SchedulerOptions{
		MaxDepth:           cfg.Depth,
		Concurrency:        cfg.Workers,
		MaxAttempts:        cfg.Retries,
		BackoffBase:        cfg.Resilience.BackoffBase,
		BackoffMultiplier:  cfg.Resilience.BackoffMultiplier,
		JitterFraction:     cfg.Resilience.JitterFraction,
		BreakerThreshold:   cfg.Resilience.CircuitBreakerThreshold,
		BreakerTimeout:     cfg.Resilience.CircuitBreakerTimeout,
		BreakerHalfOpenMax: cfg.Resilience.CircuitBreakerHalfOpenMax,
		RunTimeout:         cfg.RunTimeout(),
	})

	start := time.Now()
	results, runErr := scheduler.Run(ctx, seed)
	elapsed := time.Since(start)

	if runErr != nil {
		logger.Err(runErr, "phase", "run", "elapsed_ms", elapsed.Milliseconds())
		// still emit whatever was gathered; partial graphs are useful
	}
	if results == nil {
		return 1
	}

	snap := results.Snapshot(time.Now())

	exporters := []ports.Exporter{output.NewJSONExporter(cfg.OutputDir)}
	if !cfg.TableDisabled {
		exporters = append(exporters, output.NewTableExporter())
	}

	var exportFailed bool
	for _, exp := range exporters {
		if err := exp.Export(snap); err != nil {
			logger.Err(err, "phase", "output")
			exportFailed = true
		}
	}
	if !exportFailed {
		logger.Info("snapshot written", "dir", cfg.OutputDir, "id", snap.InvestigationID)
	}

	if runErr != nil || exportFailed {
		return 1
	}
	return 0
}

// buildIdentities assembles the egress identity set. With --anonymize it
// launches the embedded Tor and derives isolated circuits; the direct
// identity is deliberately excluded so no traffic leaks outside Tor.
func buildIdentities(ctx context.Context, cfg config.Config, logger logx.Logger) ([]*egress.Identity, *egress.TorNetwork, error) {
	if cfg.Anonymize {
		logger.Info("starting embedded tor, this can take a few minutes")
		torNet := egress.NewTorNetwork()
		if err := torNet.Start(ctx); err != nil {
			return nil, nil, fmt.Errorf("tor startup failed: %w", err)
		}
		ids, err := torNet.Identities(cfg.TorCircuits)
		if err != nil {
			_ = torNet.Stop()
			return nil, nil, err
		}
		logger.Info("tor ready", "socks", torNet.SocksAddr(), "circuits", len(ids))
		return ids, torNet, nil
	}

	identities := []*egress.Identity{egress.NewDirect()}
	for i, addr := range cfg.Proxies {
		id, err := egress.NewSOCKS5(fmt.Sprintf("socks5-%d", i), addr, nil)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid proxy %s: %w", addr, err)
		}
		identities = append(identities, id)
	}
	return identities, nil, nil
}

// rootContextWithSignals cancels the run on SIGINT/SIGTERM.
func rootContextWithSignals() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigCh:
			fmt.Fprintf(os.Stderr, "\nreceived %s, stopping\n", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}
