package dataset

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/sync/errgroup"

	"github.com/regionatlas/atlasd/internal/geo"
)

// LoadRegions reads every .geojson file in dir, at most workers files in
// parallel. Duplicate region names keep the first file in lexical order.
func LoadRegions(ctx context.Context, dir string, workers int) ([]geo.Feature, error) {
	log := logger.Sugar()
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read regions directory: %w", err)
	}
	var paths []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".geojson") {
			continue
		}
		paths = append(paths, filepath.Join(dir, entry.Name()))
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no .geojson files in %s", dir)
	}
	sort.Strings(paths)

	if workers < 1 {
		workers = 1
	}
	features := make([]geo.Feature, len(paths))
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(workers)
	for i, p := range paths {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			f, err := loadRegionFile(p)
			if err != nil {
				return fmt.Errorf("%s: %w", p, err)
			}
			features[i] = f
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	// Region names must be unique in a snapshot, first file wins.
	seen := make(map[string]string, len(features))
	unique := features[:0]
	for i, f := range features {
		if prev, ok := seen[f.Properties.Name]; ok {
			log.Warnw("dropping duplicate region",
				"name", f.Properties.Name, "path", paths[i], "kept", prev)
			continue
		}
		seen[f.Properties.Name] = paths[i]
		unique = append(unique, f)
	}
	return unique, nil
}

func loadRegionFile(path string) (geo.Feature, error) {
	// Geometry files are occasionally dumped next to exports in other
	// formats; sniff before parsing so the error names the real problem.
	if mime, err := mimetype.DetectFile(path); err == nil {
		if !mime.Is("application/json") && !mime.Is("application/geo+json") &&
			!strings.HasPrefix(mime.String(), "text/") {
			return geo.Feature{}, fmt.Errorf("unexpected content type %s", mime.String())
		}
	}
	bs, err := os.ReadFile(path) //nolint:gosec // expected dynamic path
	if err != nil {
		return geo.Feature{}, err
	}
	return geo.DecodeFeature(bs)
}

// indexByRegion groups records by their region join key.
func indexByRegion[T any](records []T, key func(T) string) map[string][]T {
	m := make(map[string][]T)
	for _, r := range records {
		m[key(r)] = append(m[key(r)], r)
	}
	return m
}
