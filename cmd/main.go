// Command folio tracks a crypto portfolio and rebalances it toward a target allocation.
//
// Usage:
//
//	folio --config folio.yaml snapshot
//	folio rebalance --mode interactive
//	folio history --runs
//	folio setup
//
// Required environment variables:
//
//	For Binance: BINANCE_API_KEY, BINANCE_API_SECRET
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/vadiminshakov/folio/config"
	"github.com/vadiminshakov/folio/internal"
	"github.com/vadiminshakov/folio/internal/domain"
	"github.com/vadiminshakov/folio/internal/services/rebalance"
	"github.com/vadiminshakov/folio/internal/setup"
)

var Version = "dev"

func main() {
	app := &cli.App{
		Name:    "folio",
		Usage:   "portfolio tracker and rebalancer",
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Value:   config.DefaultPath,
				Usage:   "path to yaml config",
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "verbose development logging",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "snapshot",
				Usage:  "value the wallet and store it in the history",
				Action: cmdSnapshot,
			},
			{
				Name:  "rebalance",
				Usage: "plan and execute the orders that bring the wallet back to target",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "mode",
						Aliases: []string{"m"},
						Usage:   "simulation, interactive or auto (overrides config)",
					},
				},
				Action: cmdRebalance,
			},
			{
				Name:  "history",
				Usage: "list stored wallet snapshots",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "runs",
						Usage: "list rebalance runs instead",
					},
				},
				Action: cmdHistory,
			},
			{
				Name:  "setup",
				Usage: "create a config file interactively",
				Action: func(c *cli.Context) error {
					return setup.RunTUI(c.String("config"))
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newLogger(c *cli.Context) (*zap.Logger, error) {
	if c.Bool("debug") {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// openApp loads the config and wires the application, mode overrides the configured one when set.
func openApp(c *cli.Context, mode string) (*internal.App, config.Config, *zap.Logger, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, config.Config{}, nil, err
	}
	if mode != "" {
		m, err := domain.ParseExecutionMode(mode)
		if err != nil {
			return nil, config.Config{}, nil, err
		}
		cfg.Mode = m
	}
	if err := cfg.Validate(); err != nil {
		return nil, config.Config{}, nil, err
	}

	logger, err := newLogger(c)
	if err != nil {
		return nil, config.Config{}, nil, errors.Wrap(err, "init logger")
	}

	client, err := internal.NewClient(cfg)
	if err != nil {
		return nil, config.Config{}, nil, err
	}
	app, err := internal.NewApp(cfg, client, logger)
	if err != nil {
		return nil, config.Config{}, nil, err
	}
	return app, cfg, logger, nil
}

func signalContext(c *cli.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
}

func cmdSnapshot(c *cli.Context) error {
	app, _, logger, err := openApp(c, "")
	if err != nil {
		return err
	}
	defer logger.Sync()
	defer app.Close()

	ctx, cancel := signalContext(c)
	defer cancel()

	snapshot, err := app.Snapshot(ctx)
	if err != nil {
		return err
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		Headers("SYMBOL", "QTY", "VALUE", "CLASS")
	for _, h := range snapshot.Assets {
		t.Row(h.Symbol, h.Quantity.String(), h.Value.StringFixed(2), h.Class.String())
	}
	fmt.Println(t.Render())
	fmt.Printf("Total (crypto+stable): %s %s\n", snapshot.TotalCryptoStable.StringFixed(2), snapshot.Currency)
	fmt.Printf("Total value:           %s %s\n", snapshot.TotalValue.StringFixed(2), snapshot.Currency)
	return nil
}

func cmdRebalance(c *cli.Context) error {
	app, cfg, logger, err := openApp(c, c.String("mode"))
	if err != nil {
		return err
	}
	defer logger.Sync()
	defer app.Close()

	ctx, cancel := signalContext(c)
	defer cancel()

	report, err := app.Rebalance(ctx, cfg.Mode)
	if report.ID != "" {
		fmt.Println(rebalance.RenderReport(report))
	}
	return err
}

func cmdHistory(c *cli.Context) error {
	app, _, logger, err := openApp(c, "")
	if err != nil {
		return err
	}
	defer logger.Sync()
	defer app.Close()

	if c.Bool("runs") {
		records, err := app.Runs()
		if err != nil {
			return err
		}
		t := table.New().
			Border(lipgloss.RoundedBorder()).
			Headers("STARTED", "MODE", "STAGE", "EXECUTED", "SKIPPED", "FAILED")
		for _, r := range records {
			t.Row(
				r.Report.StartedAt.Format("2006-01-02 15:04"),
				r.Report.Mode.String(),
				r.Report.Stage.String(),
				fmt.Sprint(len(r.Report.Executed)),
				fmt.Sprint(len(r.Report.Skipped)),
				fmt.Sprint(len(r.Report.Failures)),
			)
		}
		fmt.Println(t.Render())
		return nil
	}

	records, err := app.History()
	if err != nil {
		return err
	}
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		Headers("DATE", "TOTAL", "CRYPTO+STABLE", "CURRENCY")
	for _, r := range records {
		s := r.Snapshot
		t.Row(s.Timestamp.Format("2006-01-02 15:04"), s.TotalValue.StringFixed(2), s.TotalCryptoStable.StringFixed(2), s.Currency)
	}
	fmt.Println(t.Render())
	return nil
}
