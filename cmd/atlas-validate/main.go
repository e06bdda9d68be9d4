package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"
	"github.com/replicate/go/logging"
	"github.com/replicate/go/must"

	"github.com/regionatlas/atlasd/internal/dataset"
	"github.com/regionatlas/atlasd/internal/util"
)

var logger = logging.New("atlas-validate")

type Config struct {
	DatasetRoot string `ff:"long: dataset-root, default: ., usage: dataset root directory"`
	Workers     int    `ff:"long: workers, default: 1, usage: parallel dataset loader workers"`
}

// Deployment smoke-check: load the dataset once and print a summary, so a
// broken data drop fails the pipeline instead of the running service.
func main() {
	log := logger.Sugar()

	var cfg Config
	flags := ff.NewFlagSet("atlas-validate")
	must.Do(flags.AddStruct(&cfg))

	cmd := &ff.Command{
		Name:  "atlas-validate",
		Usage: "atlas-validate [FLAGS]",
		Flags: flags,
		Exec: func(ctx context.Context, args []string) error {
			manifest, err := util.ReadManifest(cfg.DatasetRoot)
			if err != nil {
				return fmt.Errorf("failed to read atlas.yaml: %w", err)
			}
			paths := dataset.ResolvePaths(cfg.DatasetRoot, manifest)
			thresholds := dataset.DefaultThresholds
			if manifest.Thresholds.Alert != 0 || manifest.Thresholds.OK != 0 {
				thresholds = dataset.Thresholds{Alert: manifest.Thresholds.Alert, OK: manifest.Thresholds.OK}
			}

			snapshot, err := dataset.Load(ctx, paths, thresholds, cfg.Workers)
			if err != nil {
				return err
			}

			fmt.Printf("snapshot %s\n", snapshot.ID)
			fmt.Printf("regions: %d\n", len(snapshot.Regions))
			fmt.Printf("organizations: %d\n", len(snapshot.Organizations))
			fmt.Printf("analytics: %d\n", len(snapshot.Analytics))
			for rating, n := range snapshot.Counts() {
				fmt.Printf("  %s: %d\n", rating, n)
			}
			return nil
		},
	}

	err := cmd.Parse(os.Args[1:], ff.WithEnvVarPrefix("ATLAS"))
	switch {
	case errors.Is(err, ff.ErrHelp):
		must.Get(fmt.Fprintln(os.Stderr, ffhelp.Command(cmd)))
		os.Exit(1)
	case err != nil:
		log.Error(err)
		os.Exit(1)
	}

	if err := cmd.Run(context.Background()); err != nil {
		log.Error(err)
		os.Exit(1)
	}
}
