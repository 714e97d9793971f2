package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/jugend/amazon-ecs/internal/app"
	"github.com/jugend/amazon-ecs/internal/config"
	"github.com/jugend/amazon-ecs/internal/logger"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "watcher start failed: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	flags := pflag.NewFlagSet("ecs-watcher", pflag.ContinueOnError)
	once := flags.Bool("once", false, "run every search a single time and exit")
	searchesFile := flags.String("searches", "", "saved searches file (overrides SEARCHES_FILE)")
	publishersFile := flags.String("publishers", "", "publishers file (overrides PUBLISHERS_FILE)")
	if err := flags.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if *searchesFile != "" {
		cfg.SearchesFile = *searchesFile
	}
	if *publishersFile != "" {
		cfg.PublishersFile = *publishersFile
	}

	if _, err := logger.Init(cfg); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Close()

	logger.InfoObj("watcher starting", "config", map[string]any{
		"country":         cfg.Country,
		"searches_file":   cfg.SearchesFile,
		"publishers_file": cfg.PublishersFile,
		"storage_type":    cfg.StorageType,
		"watch_interval":  cfg.WatchInterval.String(),
		"once":            *once,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	watcher, err := app.NewWatcher(ctx, cfg, logger.Obj{})
	if err != nil {
		logger.ErrorObj("failed to initialize watcher", "error", err.Error())
		return err
	}

	if *once {
		if err := watcher.RunOnce(ctx); err != nil {
			return fmt.Errorf("watcher pass: %w", err)
		}
		return nil
	}
	if err := watcher.Run(ctx); err != nil {
		return fmt.Errorf("watcher run: %w", err)
	}
	return nil
}
