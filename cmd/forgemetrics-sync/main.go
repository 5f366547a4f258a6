package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/claude/forgemetrics/internal/upload"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	serverURL := flag.String("server", "", "ForgeMetrics server URL (e.g. https://forgemetrics.tail1234.ts.net)")
	apiKey := flag.String("api-key", os.Getenv("FORGE_AUTH_API_KEY"), "API key")
	backupPath := flag.String("path", "", "directory of session backups (*.json)")
	stateDir := flag.String("state-dir", "", "sync state directory (default ~/.forgemetrics-sync)")
	dryRun := flag.Bool("dry-run", false, "validate backups but don't send to server")
	version := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *version {
		fmt.Println("forgemetrics-sync", Version)
		return
	}

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if *backupPath == "" {
		fmt.Fprintf(os.Stderr, "Usage: forgemetrics-sync -server <URL> -api-key <key> -path <backup dir> [-dry-run]\n\n")
		flag.PrintDefaults()
		os.Exit(1)
	}
	if (*serverURL == "" || *apiKey == "") && !*dryRun {
		fmt.Fprintf(os.Stderr, "Error: -server and -api-key are required (or use -dry-run)\n")
		os.Exit(1)
	}

	info, err := os.Stat(*backupPath)
	if err != nil || !info.IsDir() {
		log.Error("backup directory not found", "path", *backupPath)
		os.Exit(1)
	}

	if *stateDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			log.Error("failed to get home directory", "error", err)
			os.Exit(1)
		}
		*stateDir = filepath.Join(homeDir, ".forgemetrics-sync")
	}

	state, err := upload.OpenStateDB(*stateDir)
	if err != nil {
		log.Error("failed to open state database", "error", err)
		os.Exit(1)
	}
	defer func() { _ = state.Close() }()

	if *dryRun {
		log.Info("DRY RUN mode: backups are validated but not sent")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	uploader := upload.New(upload.NewClient(*serverURL, *apiKey), state, *backupPath, *dryRun, log)
	stats, err := uploader.Run(ctx)
	printStats(stats)
	if err != nil {
		log.Error("sync failed", "error", err)
		os.Exit(1)
	}
	total, err := state.Count(ctx)
	if err != nil {
		log.Warn("counting synced backups", "error", err)
	}
	log.Info("sync complete", "synced_total", total)
}

func printStats(stats *upload.Stats) {
	fmt.Println()
	fmt.Println("=== Sync Summary ===")
	fmt.Printf("  Files total:      %d\n", stats.FilesTotal)
	fmt.Printf("  Files sent:       %d\n", stats.FilesUploaded)
	fmt.Printf("  Files skipped:    %d (already synced)\n", stats.FilesSkipped)
	fmt.Printf("  Files rejected:   %d\n", stats.FilesRejected)
	fmt.Printf("  Files errored:    %d\n", stats.FilesErrored)
	fmt.Println()
	fmt.Printf("  Completed:        %d\n", stats.CompletedSent)
	fmt.Printf("  Drafts:           %d\n", stats.DraftsSent)
	fmt.Println()
}
