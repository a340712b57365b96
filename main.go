package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"slices"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/Kotaro7750/console-notifier/abstraction"
	"github.com/Kotaro7750/console-notifier/builder"
	"github.com/Kotaro7750/console-notifier/config"
	"github.com/Kotaro7750/console-notifier/notification"
	"github.com/Kotaro7750/console-notifier/store"
)

func main() {
	if err := rootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCommand() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:          "console-notifier",
		Short:        "Toast notification service for the backup console",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return run(ctx, cfg, cfg.Logger(os.Stdout))
		},
	}
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "path to the configuration file")

	cmd.AddCommand(&cobra.Command{
		Use:   "kinds",
		Short: "List the receiver and sender kinds that can be configured",
		Run: func(cmd *cobra.Command, args []string) {
			receiverKinds, senderKinds := builder.Kinds()
			slices.Sort(receiverKinds)
			slices.Sort(senderKinds)

			fmt.Fprintln(cmd.OutOrStdout(), "receivers:")
			for _, kind := range receiverKinds {
				fmt.Fprintln(cmd.OutOrStdout(), "  "+kind)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "senders:")
			for _, kind := range senderKinds {
				fmt.Fprintln(cmd.OutOrStdout(), "  "+kind)
			}
		},
	})

	return cmd
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	metrics, err := store.NewMetrics(registry)
	if err != nil {
		return fmt.Errorf("register metrics failed: %w", err)
	}

	events := make(chan notification.Event, cfg.EventBuffer)
	s := store.New(
		store.WithLogger(logger.With("type", "store")),
		store.WithSnackbarHeight(cfg.SnackbarHeight),
		store.WithEvents(events),
		store.WithMetrics(metrics),
	)

	deps := abstraction.Dependencies{Store: s, Gatherer: registry}
	receivers, senders, err := builder.Build(logger, deps, cfg.Receivers, cfg.Senders)
	if err != nil {
		logger.Error("Build components failed", "err", err)
		return err
	}

	senderCompletions := make([]<-chan struct{}, 0, len(senders))
	for _, sender := range senders {
		senderCompletions = append(senderCompletions, sender.Start())
	}

	router := Router{senders: senders}
	routerDone := make(chan struct{})
	routerStopped := make(chan struct{})
	go func() {
		defer close(routerStopped)
		router.Run(events, routerDone)
	}()

	dispatchDone := dispatch(receivers, s.Apply)

	receiverCompletions := make([]<-chan struct{}, 0, len(receivers))
	for _, receiver := range receivers {
		receiverCompletions = append(receiverCompletions, receiver.Start())
	}

	logger.Info("Started", "receivers", len(receivers), "senders", len(senders))
	<-ctx.Done()
	logger.Info("Shutting down")

	for _, receiver := range receivers {
		receiver.Shutdown()
	}
	for _, completed := range receiverCompletions {
		<-completed
	}
	<-dispatchDone

	close(routerDone)
	<-routerStopped

	for _, sender := range senders {
		sender.Shutdown()
	}
	for _, completed := range senderCompletions {
		<-completed
	}

	logger.Info("Stopped")
	return nil
}
