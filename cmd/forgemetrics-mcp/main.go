// Command forgemetrics-mcp serves the MCP tools over stdio. With -server
// the tools call a remote ForgeMetrics instance over its REST API; otherwise
// they read the database named in -config directly.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/claude/forgemetrics/internal/config"
	forgemcp "github.com/claude/forgemetrics/internal/mcp"
	"github.com/claude/forgemetrics/internal/progression"
	"github.com/claude/forgemetrics/internal/session"
	"github.com/claude/forgemetrics/internal/storage"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file (local mode)")
	serverURL := flag.String("server", "", "ForgeMetrics server URL (remote mode, e.g. https://forgemetrics.tail1234.ts.net)")
	apiKey := flag.String("api-key", os.Getenv("FORGE_AUTH_API_KEY"), "API key for remote mode")
	userID := flag.Int("user", 1, "user id the tools act for")
	version := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *version {
		fmt.Println("forgemetrics-mcp", Version)
		return
	}

	// stdout carries the MCP protocol; logs go to stderr.
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	converter := progression.NewConverter(log)

	var ds forgemcp.DataSource
	if *serverURL != "" {
		if *apiKey == "" {
			fmt.Fprintf(os.Stderr, "Error: -api-key (or FORGE_AUTH_API_KEY) is required with -server\n")
			os.Exit(1)
		}
		ds = forgemcp.NewHTTPClient(*serverURL, *apiKey)
		log.Info("remote mode", "server", *serverURL)
	} else {
		cfg, err := config.Load(*configPath)
		if err != nil {
			log.Error("failed to load config", "error", err)
			os.Exit(1)
		}
		db, err := storage.New(context.Background(), cfg.Database.DSN())
		if err != nil {
			log.Error("failed to connect database", "error", err)
			os.Exit(1)
		}
		defer db.Close()

		cache := progression.NewCache(cfg.Cache.SizeMB, cfg.Cache.TTLSeconds, log)
		ds = &forgemcp.Local{
			Service:    session.NewService(db, cache, log),
			Dashboards: progression.NewDashboardService(db, cache, log),
		}
		log.Info("local mode", "database", cfg.Database.Host)
	}

	s := forgemcp.New(ds, converter, Version, log)
	err := mcpserver.ServeStdio(s, mcpserver.WithStdioContextFunc(func(ctx context.Context) context.Context {
		return forgemcp.WithUserID(ctx, *userID)
	}))
	if err != nil {
		log.Error("mcp server stopped", "error", err)
		os.Exit(1)
	}
}
