package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"mslearn-downloader/internal/config"
	"mslearn-downloader/internal/tui"
)

func main() {
	configFlag := flag.String("config", "", "Path to config file")
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

	// The alternate screen owns the terminal; keep the logger quiet.
	log := config.NewLogger(settings.Logging)
	log.SetOutput(io.Discard)

	if err := tui.Run(settings, log); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
