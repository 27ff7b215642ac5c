package main

import (
	"flag"
	"log"
	"os"

	"github.com/chazu/kerf/pkg/config"
	"github.com/chazu/kerf/pkg/server"
	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"
)

func main() {
	configPath := flag.String("config", "", "path to kerf.yaml")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := config.NewLogger(cfg.Log, os.Stderr)

	app, err := NewApp(cfg, logger)
	if err != nil {
		log.Fatalf("app: %v", err)
	}

	// The HTTP API is served to the webview alongside the bindings.
	sp, err := cfg.Kernel.Splitter()
	if err != nil {
		log.Fatalf("splitter: %v", err)
	}
	api, err := server.New(server.Options{Splitter: sp, Store: app.store, Logger: logger})
	if err != nil {
		log.Fatalf("server: %v", err)
	}

	err = wails.Run(&options.App{
		Title:  "kerf",
		Width:  1280,
		Height: 800,
		AssetServer: &assetserver.Options{
			Handler: api.Handler(),
		},
		OnStartup:  app.startup,
		OnShutdown: app.shutdown,
		Bind: []interface{}{
			app,
		},
	})
	if err != nil {
		log.Fatalf("wails: %v", err)
	}
}
