// Command refresh runs one blocklist refresh and exits. It is meant for
// external schedulers such as cron or a Kubernetes CronJob; the exit status
// is 1 when the refresh fails.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/ignite/nondisposable/internal/app"
	"github.com/ignite/nondisposable/internal/config"
)

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_PATH"), "path to YAML config (optional)")
	flag.Parse()

	cfg, err := config.LoadFromEnv(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := requirePersistentStore(cfg); err != nil {
		log.Fatalf("Refusing to run: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize: %v", err)
	}

	res, err := a.Updater.Update(ctx)
	a.Close()
	if err != nil {
		log.Printf("Refresh failed: %v", err)
		os.Exit(1)
	}
	log.Printf("Refreshed %d domains in %s (run=%s)", res.Count, res.Duration, res.RunID)
}

// requirePersistentStore rejects the memory driver: its contents die with
// this process, so a refresh into it would report success and change nothing.
func requirePersistentStore(cfg *config.Config) error {
	if cfg.Store.Driver == config.DriverMemory {
		return fmt.Errorf("store driver %q does not outlive the process; use %q or %q",
			cfg.Store.Driver, config.DriverPostgres, config.DriverRedis)
	}
	return nil
}
