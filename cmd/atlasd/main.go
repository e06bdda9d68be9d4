package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	_ "github.com/KimMachineGun/automemlimit"
	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"
	"github.com/replicate/go/logging"
	"github.com/replicate/go/must"
	_ "go.uber.org/automaxprocs"

	"github.com/regionatlas/atlasd/internal/config"
	"github.com/regionatlas/atlasd/internal/service"
	"github.com/regionatlas/atlasd/internal/util"
)

var logger = logging.New("atlasd")

type Config struct {
	Host        string `ff:"long: host, default: 0.0.0.0, usage: HTTP server host"`
	Port        int    `ff:"long: port, default: 8000, usage: HTTP server port"`
	DatasetRoot string `ff:"long: dataset-root, default: ., usage: dataset root directory"`
	Workers     int    `ff:"long: workers, default: 1, usage: parallel dataset loader workers"`
	Reload      bool   `ff:"long: reload, default: false, usage: reload the dataset when files change"`
	WebhookURL  string `ff:"long: webhook-url, nodefault, usage: reload notification URL"`
	GraceSecs   int    `ff:"long: shutdown-grace-period, default: 10, usage: shutdown grace period in seconds"`
}

func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	if _, err := os.Stat(c.DatasetRoot); err != nil {
		return fmt.Errorf("dataset root: %w", err)
	}
	return nil
}

func main() {
	log := logger.Sugar()

	var cfg Config
	flags := ff.NewFlagSet("atlasd")
	must.Do(flags.AddStruct(&cfg))

	cmd := &ff.Command{
		Name:  "atlasd",
		Usage: "atlasd [FLAGS]",
		Flags: flags,
		Exec: func(ctx context.Context, args []string) error {
			if err := cfg.Validate(); err != nil {
				return err
			}

			svcCfg := config.Config{
				Host:                cfg.Host,
				Port:                cfg.Port,
				DatasetRoot:         cfg.DatasetRoot,
				Workers:             cfg.Workers,
				Reload:              cfg.Reload,
				WebhookURL:          cfg.WebhookURL,
				ShutdownGracePeriod: time.Duration(cfg.GraceSecs) * time.Second,
			}
			log.Infow("configuration",
				"host", cfg.Host,
				"port", cfg.Port,
				"dataset_root", cfg.DatasetRoot,
				"workers", cfg.Workers,
				"reload", cfg.Reload,
			)

			svc := service.New(svcCfg, logger)
			if err := svc.Initialize(ctx); err != nil {
				return err
			}
			return svc.Run(ctx)
		},
	}

	err := cmd.Parse(os.Args[1:], ff.WithEnvVarPrefix("ATLAS"))
	switch {
	case errors.Is(err, ff.ErrHelp):
		must.Get(fmt.Fprintln(os.Stderr, ffhelp.Command(cmd)))
		os.Exit(1)
	case err != nil:
		log.Error(err)
		must.Get(fmt.Fprintln(os.Stderr, ffhelp.Command(cmd)))
		os.Exit(1)
	}

	log.Infow("starting atlas HTTP server", "version", util.Version())
	if err := cmd.Run(context.Background()); err != nil && !errors.Is(err, context.Canceled) {
		log.Error(err)
		os.Exit(1)
	}
	log.Info("shutdown completed normally")
}
