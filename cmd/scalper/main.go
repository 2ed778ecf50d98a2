package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/rxtech-lab/argo-scalper/internal/broker/binance"
	"github.com/rxtech-lab/argo-scalper/internal/broker/sim"
	"github.com/rxtech-lab/argo-scalper/internal/config"
	"github.com/rxtech-lab/argo-scalper/internal/dashboard"
	"github.com/rxtech-lab/argo-scalper/internal/engine"
	"github.com/rxtech-lab/argo-scalper/internal/journal"
	"github.com/rxtech-lab/argo-scalper/internal/logger"
	"github.com/rxtech-lab/argo-scalper/internal/session"
	"github.com/rxtech-lab/argo-scalper/internal/version"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

const defaultDemoBalance = 10000.0

// runAction wires the engine from configuration and runs it until the
// context is cancelled or the engine stops itself.
func runAction(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")
	demo := cmd.Bool("demo")
	seed := int64(cmd.Int("seed"))
	withDashboard := cmd.Bool("dashboard")
	outOverride := cmd.String("out")
	verbose := cmd.Bool("verbose")

	cfg, err := config.LoadFromFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if outOverride != "" {
		cfg.Trading.OutputPath = outOverride
	}

	var appLogger *logger.Logger
	if verbose {
		appLogger, err = logger.NewDevelopmentLogger()
	} else {
		appLogger, err = logger.NewLogger()
	}

	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer appLogger.Sync()

	eng := engine.NewEngine(cfg, appLogger)

	// Session folder and trade journal are optional; without an output
	// path the engine trades without writing anything to disk.
	var sessionManager *session.Manager

	if cfg.Trading.OutputPath != "" {
		sessionManager = session.NewManager(cfg.Trading.OutputPath, appLogger)
		if err := sessionManager.Start(); err != nil {
			return fmt.Errorf("failed to start session: %w", err)
		}

		tradeJournal, err := journal.NewJournal(sessionManager.FilePath("trades.db"), appLogger)
		if err != nil {
			return fmt.Errorf("failed to open trade journal: %w", err)
		}

		recorder := journal.NewAsyncRecorder(tradeJournal, appLogger)
		defer func() {
			if err := recorder.Close(); err != nil {
				appLogger.Error("Failed to close trade journal", zap.Error(err))
				return
			}

			statsPath := sessionManager.FilePath("stats.yaml")

			statsJournal, err := journal.NewJournal(sessionManager.FilePath("trades.db"), appLogger)
			if err != nil {
				appLogger.Error("Failed to reopen trade journal for stats export", zap.Error(err))
				return
			}
			defer statsJournal.Close()

			if err := statsJournal.ExportStats(statsPath); err != nil {
				appLogger.Error("Failed to export session stats", zap.Error(err))
			}
		}()

		eng.SetRecorder(recorder)
		eng.SetSessionManager(sessionManager)
	}

	if demo {
		simBroker := sim.NewBroker(seed, defaultDemoBalance)
		eng.SetMarketDataSource(simBroker)
		eng.SetGateway(simBroker)

		appLogger.Info("Running against simulated broker", zap.Int64("seed", seed))
	} else {
		liveBroker, err := binance.NewBroker(cfg.Binance)
		if err != nil {
			return fmt.Errorf("failed to create broker: %w", err)
		}

		eng.SetMarketDataSource(liveBroker)
		eng.SetGateway(liveBroker)
	}

	// Setup signal handling
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		appLogger.Info("Received interrupt signal, stopping")
		cancel()
	}()

	if err := eng.Initialize(ctx); err != nil {
		return fmt.Errorf("failed to initialize engine: %w", err)
	}

	appLogger.Info("Starting engine",
		zap.Strings("symbols", cfg.Trading.Symbols),
		zap.String("interval", cfg.Trading.Interval),
		zap.Bool("demo", demo))

	if !withDashboard {
		if err := eng.Run(ctx); err != nil && err != context.Canceled {
			return fmt.Errorf("engine error: %w", err)
		}

		return nil
	}

	// With the dashboard the engine runs in the background and the TUI owns
	// the terminal until the user quits or the engine dies.
	engineDone := make(chan error, 1)
	go func() {
		engineDone <- eng.Run(ctx)
	}()

	if err := dashboard.Run(eng.Snapshot, eng.Stop); err != nil {
		return fmt.Errorf("dashboard error: %w", err)
	}

	eng.Stop()

	if err := <-engineDone; err != nil && err != context.Canceled {
		return fmt.Errorf("engine error: %w", err)
	}

	return nil
}

// validateAction loads the configuration and reports whether it is usable.
func validateAction(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	cfg, err := config.LoadFromFile(configPath)
	if err != nil {
		return fmt.Errorf("config is invalid: %w", err)
	}

	fmt.Printf("Config OK: %d symbol(s), interval %s, cycle every %s\n",
		len(cfg.Trading.Symbols), cfg.Trading.Interval, cfg.Trading.CycleInterval.Std())

	return nil
}

func main() {
	configFlag := &cli.StringFlag{
		Name:     "config",
		Aliases:  []string{"c"},
		Usage:    "Path to the YAML configuration file",
		Required: true,
	}

	cmd := &cli.Command{
		Name:  "scalper",
		Usage: "EMA/RSI scalping engine",
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "Run the trading engine",
				Flags: []cli.Flag{
					configFlag,
					&cli.BoolFlag{
						Name:  "demo",
						Usage: "Trade against the deterministic simulated broker instead of Binance",
					},
					&cli.IntFlag{
						Name:  "seed",
						Usage: "Random seed for the simulated broker",
						Value: 42,
					},
					&cli.BoolFlag{
						Name:  "dashboard",
						Usage: "Show the interactive terminal dashboard",
					},
					&cli.StringFlag{
						Name:  "out",
						Usage: "Override the session output directory from the config",
					},
					&cli.BoolFlag{
						Name:  "verbose",
						Usage: "Use human-readable development logging",
					},
				},
				Action: runAction,
			},
			{
				Name:   "validate-config",
				Usage:  "Validate a configuration file without trading",
				Flags:  []cli.Flag{configFlag},
				Action: validateAction,
			},
			{
				Name:  "version",
				Usage: "Print the binary version",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					fmt.Println(version.GetVersion())
					return nil
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
