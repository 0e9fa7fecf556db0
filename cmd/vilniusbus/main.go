package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"vilniusbus/internal/config"
	"vilniusbus/internal/departures"
	"vilniusbus/internal/gtfs"
	"vilniusbus/internal/handler"
	"vilniusbus/internal/realtime"
	"vilniusbus/internal/server"
	"vilniusbus/internal/storage"
)

func main() {
	cfg := config.Load()

	// CLI flags
	configPath := flag.String("config", "", "YAML config file overriding environment settings")
	stopID := flag.String("stop", "", "Print departures for a stop as JSON, then exit")
	importOnly := flag.Bool("import-stops", false, "Download and import the stop reference table, then exit")
	port := flag.Int("port", 0, "HTTP server port")
	flag.Parse()

	if *configPath != "" {
		if err := cfg.MergeFile(*configPath); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}
	if *port != 0 {
		cfg.Port = *port
	}
	cfg.ImportStops = *importOnly

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))

	if err := cfg.Validate(); err != nil {
		logger.Error("configuration error", "error", err)
		os.Exit(1)
	}
	loc := cfg.Location()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := departures.NewClient(cfg.DeparturesURL, departures.Options{
		Timeout:     cfg.FetchTimeout,
		CacheTTL:    cfg.CacheTTL,
		MaxInFlight: cfg.MaxInFlight,
	}, logger)

	// One-shot mode: print the JSON array for a stop
	if *stopID != "" {
		out, err := client.DeparturesJSON(ctx, *stopID, time.Now().In(loc))
		if err != nil {
			logger.Error("fetching departures", "stop", *stopID, "error", err)
			os.Exit(1)
		}
		fmt.Println(out)
		return
	}

	db, err := storage.Open(cfg.DBPath, logger)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	downloader := gtfs.NewDownloader(cfg.GTFSURL, cfg.GTFSDir, logger)
	scheduler := gtfs.NewScheduler(downloader, db, loc, logger)

	if cfg.ImportStops {
		logger.Info("force importing stop reference data")
		if err := scheduler.Update(ctx); err != nil {
			logger.Error("stop import failed", "error", err)
			os.Exit(1)
		}
		return
	}

	if cfg.GTFSURL != "" {
		go func() {
			// Departures work without the reference table; names and search need it.
			if err := scheduler.EnsureData(ctx); err != nil {
				logger.Error("failed to ensure stop reference data", "error", err)
			}
			if err := scheduler.CheckAndUpdate(ctx); err != nil {
				logger.Error("daily stop import check failed", "error", err)
			}
			scheduler.StartBackground(ctx)
		}()
	}

	go client.Cache().RunCleanup(ctx, 5*time.Minute)

	rtStore := realtime.NewStore()
	if cfg.AlertsURL != "" {
		alertsFetcher := realtime.NewFetcher(cfg.AlertsURL, 60*time.Second, rtStore, logger)
		go alertsFetcher.Start(ctx)
	}

	h := handler.New(client, db, rtStore, loc, logger)
	srv := server.New(cfg.Port, h, logger)
	if err := srv.Run(ctx); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
	logger.Info("shutting down")
}
