package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"mslearn-downloader/internal/config"
	"mslearn-downloader/internal/download"
	"mslearn-downloader/internal/job"
	"mslearn-downloader/internal/model"
	"mslearn-downloader/internal/render"
)

func main() {
	// Command line flags
	var (
		uidsFlag    = flag.String("uid", "", "Catalog item uid(s) to download (comma-separated)")
		outputFlag  = flag.String("output", "", "Output directory (overrides config)")
		configFlag  = flag.String("config", "", "Path to config file")
		searchFlag  = flag.String("search", "", "Search the catalog instead of downloading")
		noImgFlag   = flag.Bool("no-images", false, "Skip image downloads")
		verboseFlag = flag.Bool("verbose", false, "Show verbose output")
	)

	flag.Parse()

	// CLI mode - require a uid or a search query
	if *uidsFlag == "" && *searchFlag == "" && flag.NArg() == 0 {
		fmt.Println("Microsoft Learn Downloader - Download training content for offline reading")
		fmt.Println()
		fmt.Println("Usage:")
		fmt.Println("  mslearn-dl -uid <UID>[,<UID>...] [options]")
		fmt.Println("  mslearn-dl <UID> [options]")
		fmt.Println("  mslearn-dl -search <query>")
		fmt.Println()
		fmt.Println("For interactive mode, use: mslearn-tui")
		fmt.Println()
		flag.PrintDefaults()
		os.Exit(1)
	}

	// Load config
	settings := config.DefaultSettings()
	if *configFlag != "" {
		var err error
		settings, err = config.Load(*configFlag)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
	}

	// Apply flags
	if *outputFlag != "" {
		settings.Storage.OutputDir = *outputFlag
	}
	if *noImgFlag {
		settings.Images.Enabled = false
	}

	log := config.NewLogger(settings.Logging)
	if !*verboseFlag {
		log.SetOutput(os.Stderr)
	}

	// Handle interrupts
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Println("\nInterrupted, cancelling...")
		cancel()
	}()

	renderer, err := render.NewHTMLRenderer()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	tracker := job.NewTracker(settings.Jobs, log)
	manager := download.NewManager(settings, tracker, renderer, log, func(event download.ProgressEvent) {
		if event.Level == download.LevelVerbose && !*verboseFlag {
			return
		}

		prefix := "   "
		switch event.Level {
		case download.LevelError:
			prefix = " x "
		case download.LevelWarning:
			prefix = " ! "
		case download.LevelSuccess:
			prefix = " + "
		case download.LevelInfo:
			prefix = " > "
		}
		fmt.Println(prefix + event.Message)
	})

	if *searchFlag != "" {
		runSearch(ctx, manager, *searchFlag)
		return
	}

	// Collect uids
	raw := *uidsFlag
	if raw == "" && flag.NArg() > 0 {
		raw = strings.Join(flag.Args(), ",")
	}
	var items []model.ItemRequest
	for _, uid := range strings.Split(raw, ",") {
		if uid = strings.TrimSpace(uid); uid != "" {
			items = append(items, model.ItemRequest{UID: uid})
		}
	}

	fmt.Println("Microsoft Learn Downloader")
	fmt.Println(strings.Repeat("=", 40))
	fmt.Println()

	id, jobCtx, err := tracker.Create(ctx, len(items))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if err := manager.Run(jobCtx, id, items); err != nil {
		fmt.Fprintf(os.Stderr, "Error during download: %v\n", err)
		os.Exit(1)
	}

	snap, err := tracker.Snapshot(id)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println()
	fmt.Println(strings.Repeat("=", 40))
	if snap.Status == model.JobFailed {
		if snap.Reason == "cancelled" {
			fmt.Println("Download cancelled.")
			os.Exit(130)
		}
		fmt.Fprintf(os.Stderr, "Job failed: %s\n", snap.Reason)
		os.Exit(1)
	}

	succeeded := 0
	for _, item := range snap.Items {
		if item.Status != "failed" {
			succeeded++
		}
	}
	fmt.Printf("Complete! Downloaded %d/%d items to %s\n", succeeded, snap.TotalItems, settings.Storage.OutputDir)
	for _, item := range snap.Items {
		if len(item.Images.Failed) > 0 {
			fmt.Printf("   %s: %d of %d images could not be downloaded\n", item.Title, len(item.Images.Failed), item.Images.Total)
		}
	}
}

func runSearch(ctx context.Context, manager *download.Manager, query string) {
	results, err := manager.Catalog().Search(ctx, query, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
		os.Exit(1)
	}
	if len(results) == 0 {
		fmt.Println("No matches.")
		return
	}
	for _, r := range results {
		fmt.Printf("%-14s %-50s %s\n", r.Type, r.UID, r.Title)
	}
}
