package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"prdchat/app/api"
	"prdchat/app/client/llm"
	"prdchat/app/config"
	"prdchat/app/service/chat"
	"prdchat/app/storage"
	"prdchat/app/util/mylog"

	"github.com/samber/do"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func main() {
	mylog.Preinit()

	if err := rootCmd().ExecuteContext(context.Background()); err != nil {
		slog.Error("Fatal error", "error", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var configPath string

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), configPath)
		},
	}

	root := &cobra.Command{
		Use:           "prdchat",
		Short:         "Conversational PRD builder backend",
		Version:       config.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          serveCmd.RunE,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultPath, "path to the YAML config")

	root.AddCommand(serveCmd, &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), config.Version)
		},
	})

	return root
}

func serve(ctx context.Context, configPath string) error {
	di := do.New()
	defer func() {
		slog.Info("Waiting for services to finish...")
		if err := di.Shutdown(); err != nil {
			slog.Error("Shutdown failed", "error", err)
		}
	}()

	appCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	do.ProvideValue(di, appCtx)

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("config load failed: %w", err)
	}
	do.ProvideValue(di, cfg)

	if err = mylog.Init(cfg); err != nil {
		return fmt.Errorf("logging init failed: %w", err)
	}

	do.Provide(di, storage.New)
	do.Provide(di, llm.New)
	do.Provide(di, chat.New)
	do.Provide(di, api.New)

	server, err := do.Invoke[*api.Server](di)
	if err != nil {
		return fmt.Errorf("startup failed: %w", err)
	}

	slog.Info("Service started", "version", config.Version)

	group, groupCtx := errgroup.WithContext(appCtx)

	group.Go(func() error {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(sigint)

		select {
		case <-sigint:
			slog.Info("Shutting down...")
			cancel()
		case <-groupCtx.Done():
		}

		return nil
	})

	group.Go(func() error {
		defer cancel()
		return server.Run(groupCtx)
	})

	return group.Wait()
}
