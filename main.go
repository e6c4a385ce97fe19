package main

import (
	"context"
	"log"
	"os"
	"os/signal"

	"github.com/harrisonrobin/taskctx/pkg/app"
	"github.com/harrisonrobin/taskctx/pkg/cli"
	"github.com/harrisonrobin/taskctx/pkg/config"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	cli.SetVersionInfo(version, commit, date)

	dir, err := config.GetXdgHome()
	if err != nil {
		log.Fatalf("could not find path to configuration directory: %v", err)
	}
	configPath, err := config.GetConfigPath()
	if err != nil {
		log.Fatalf("could not find path to configuration file: %v", err)
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}

	a, err := app.New(cfg, dir, configPath)
	if err != nil {
		log.Fatalf("Error starting taskctx: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err = cli.Execute(ctx, a, os.Args[1:])
	stop()
	if cerr := a.Close(); cerr != nil {
		log.Printf("Warning: failed to close storage: %v", cerr)
	}
	if err != nil {
		os.Exit(1)
	}
}
