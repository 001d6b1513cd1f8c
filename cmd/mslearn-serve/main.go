package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mslearn-downloader/internal/api"
	"mslearn-downloader/internal/config"
	"mslearn-downloader/internal/download"
	"mslearn-downloader/internal/job"
	"mslearn-downloader/internal/render"
)

func main() {
	var (
		configFlag = flag.String("config", "", "Path to config file")
		addrFlag   = flag.String("addr", "", "Listen address (overrides config)")
	)
	flag.Parse()

	settings := config.DefaultSettings()
	if *configFlag != "" {
		var err error
		settings, err = config.Load(*configFlag)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
	}
	if *addrFlag != "" {
		settings.Server.Addr = *addrFlag
	}

	log := config.NewLogger(settings.Logging)

	renderer, err := render.NewHTMLRenderer()
	if err != nil {
		log.Fatalf("setting up renderer: %v", err)
	}

	tracker := job.NewTracker(settings.Jobs, log)
	manager := download.NewManager(settings, tracker, renderer, log, nil)
	server := api.NewServer(manager, tracker, log)

	httpServer := &http.Server{
		Addr:              settings.Server.Addr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		<-sigCh

		log.Info("shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(ctx); err != nil {
			log.Errorf("shutdown: %v", err)
		}
	}()

	log.Infof("api listening on %s", settings.Server.Addr)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
	}
}
