package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/botherd/botherd/internal/completion"
	"github.com/botherd/botherd/internal/config"
	"github.com/botherd/botherd/internal/events"
	"github.com/botherd/botherd/internal/memory"
	"github.com/botherd/botherd/internal/store"
	"github.com/botherd/botherd/internal/supervisor"
	"github.com/botherd/botherd/internal/trigger"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the supervisor, trigger scheduler, and memory scanner",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	st, err := store.Open(cfg.Paths.DBPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	client := completion.NewClient(cfg.Completion.APIBase, cfg.Completion.APIKey, cfg.Completion.Timeout)

	var publisher *events.Publisher
	if cfg.Events.Brokers != "" {
		publisher = events.NewPublisher(cfg.Events.Brokers, cfg.Events.Topic)
		defer publisher.Close()
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sup := supervisor.New(*cfg, st, client, client, publisher)
	if err := sup.Start(ctx); err != nil {
		return fmt.Errorf("start supervisor: %w", err)
	}
	defer sup.Stop()

	var wg sync.WaitGroup
	if cfg.Scheduler.Enabled {
		sched := trigger.NewScheduler(st, client, sup.OutboundFor, cfg.Scheduler.TickInterval)
		wg.Add(1)
		go func() {
			defer wg.Done()
			sched.Run(ctx)
		}()
	}
	if cfg.Scanner.Enabled {
		scanner := memory.NewScanner(st, client, cfg.Scanner.ScanInterval,
			cfg.Scanner.TurnsToScan, cfg.Scanner.StartupDelay)
		wg.Add(1)
		go func() {
			defer wg.Done()
			scanner.Run(ctx)
		}()
	}

	slog.Info("botherd serving", "db", cfg.Paths.DBPath)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		slog.Info("shutting down", "signal", sig)
	case <-ctx.Done():
	}
	// Stop the background loops before the deferred store close.
	cancel()
	wg.Wait()
	return nil
}
