package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/mark3labs/mcp-go/server"

	"github.com/claude/daysync/internal/config"
	"github.com/claude/daysync/internal/mcp"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	profileName := flag.String("profile", "default", "config profile whose CSV store to serve")
	version := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *version {
		fmt.Println("daysync-mcp", Version)
		return
	}

	// Stdout carries the MCP protocol, so logs go to stderr.
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	profile, err := cfg.Profile(*profileName)
	if err != nil {
		log.Error("failed to resolve profile", "error", err)
		os.Exit(1)
	}
	if profile.CSVPath == "" {
		log.Error("profile has no csv_path; the MCP server reads the CSV store", "profile", *profileName)
		os.Exit(1)
	}

	ds := mcp.NewCSVDataSource(profile.CSVPath, log)
	srv := mcp.New(ds, Version, log)

	log.Info("daysync-mcp serving on stdio", "csv", profile.CSVPath)
	if err := server.ServeStdio(srv); err != nil {
		log.Error("mcp server exited", "error", err)
		os.Exit(1)
	}
}
