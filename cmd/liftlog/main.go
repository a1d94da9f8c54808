package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/meltforce/liftlog/internal/api"
	"github.com/meltforce/liftlog/internal/config"
	"github.com/meltforce/liftlog/internal/engine"
	"github.com/meltforce/liftlog/internal/mcpserver"
	"github.com/meltforce/liftlog/internal/persist"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	configPath := flag.String("config", "liftlog.yaml", "path to config file")
	dataDir := flag.String("data", "", "override state directory (default from config, else ~/.liftlog)")
	version := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *version {
		fmt.Println("liftlog", Version)
		return
	}

	// stdout carries the MCP transport; logs go to stderr.
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	dir := cfg.Data.Dir
	if *dataDir != "" {
		dir = *dataDir
	}
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			log.Error("failed to get home directory", "error", err)
			os.Exit(1)
		}
		dir = filepath.Join(home, ".liftlog")
	}

	store, err := persist.Open(dir, log)
	if err != nil {
		log.Error("failed to open state db", "error", err)
		os.Exit(1)
	}
	defer store.Close()
	log.Info("state db open", "dir", dir)

	client := api.NewClient(cfg.Backend.URL, cfg.Backend.APIKey)
	eng := engine.New(store, client, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	restored, err := eng.Rehydrate(ctx)
	if err != nil {
		log.Error("rehydration failed", "error", err)
		os.Exit(1)
	}
	log.Info("engine ready", "restored", restored)

	go watchConnectivity(ctx, client, eng,
		time.Duration(cfg.Connectivity.ProbeIntervalSeconds)*time.Second, log)

	mcpSrv := mcpserver.New(eng, Version, log)
	log.Info("LiftLog engine serving MCP on stdio", "version", Version)
	if err := server.ServeStdio(mcpSrv); err != nil {
		log.Error("mcp server error", "error", err)
		os.Exit(1)
	}
}

// watchConnectivity probes the backend and delivers online/offline
// transitions to the engine. The probing lives here in the host, not in
// the engine: the engine only reacts to delivered signals.
func watchConnectivity(ctx context.Context, client *api.Client, eng *engine.Engine, interval time.Duration, log *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	online := true
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		probeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		err := client.Ping(probeCtx)
		cancel()

		now := err == nil
		if now != online {
			log.Info("connectivity changed", "online", now)
			online = now
		}
		eng.SetOnline(ctx, now)
	}
}
