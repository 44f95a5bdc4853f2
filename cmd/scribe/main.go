// cmd/scribe/main.go
package main

import (
	stlog "log" // Use standard log for FATAL errors before logger is ready
	"os"

	"github.com/scribeworks/scribe/internal/config"
	"github.com/scribeworks/scribe/internal/document"
	"github.com/scribeworks/scribe/internal/engine"
	"github.com/scribeworks/scribe/internal/logger"
	"github.com/scribeworks/scribe/internal/tui"
	"github.com/scribeworks/scribe/internal/web"
)

func main() {
	// --- Argument & Flag Parsing ---
	flags := &config.Flags{}
	args := flags.ParseFlags()

	var filePath string
	if len(args) > 0 {
		filePath = args[0]
	}

	// --- Configuration & Logger ---
	cfg, err := config.LoadConfig(stringOr(flags.ConfigFilePath), flags)
	if err != nil {
		stlog.Printf("Warning: config load: %v", err)
	}
	if cfg == nil {
		stlog.Fatalf("No usable configuration")
	}

	if err := logger.Init(cfg.Logger); err != nil {
		stlog.Fatalf("Failed to initialize logger: %v", err)
	}

	logger.Infof("Starting %s...", config.AppName)
	logger.Debugf("Settle delay: %v, change debounce: %v",
		cfg.Timing.SettleDelay(), cfg.Timing.ChangeDebounce())

	// --- Document ---
	initial := ""
	if filePath != "" {
		data, err := os.ReadFile(filePath)
		if err != nil {
			logger.Warnf("Could not read '%s', starting empty: %v", filePath, err)
		} else {
			initial = string(data)
		}
	}
	doc := document.NewMemDocument(initial)

	// --- Engine ---
	eng, err := engine.New(engine.Config{App: cfg, Doc: doc})
	if err != nil {
		logger.Errorf("Error initializing engine: %v", err)
		os.Exit(1)
	}

	// --- Host selection: browser bridge or terminal demo ---
	if listen := stringOr(flags.WebListen); listen != "" {
		server := web.NewServer(eng)
		if err := server.Run(listen); err != nil {
			logger.Errorf("Web bridge exited with error: %v", err)
			os.Exit(1)
		}
		return
	}

	host, err := tui.NewHost(eng)
	if err != nil {
		logger.Errorf("Error initializing terminal host: %v", err)
		os.Exit(1)
	}
	if err := host.Run(); err != nil {
		logger.Errorf("Application exited with error: %v", err)
		os.Exit(1)
	}

	logger.Infof("%s finished.", config.AppName)
}

func stringOr(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
