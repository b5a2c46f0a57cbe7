package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jgbarah-chaoss/grimoirelab-perceval/internal/adapters/driven/cache"
	"github.com/jgbarah-chaoss/grimoirelab-perceval/internal/adapters/driven/config/file"
	"github.com/jgbarah-chaoss/grimoirelab-perceval/internal/adapters/driven/storage/sqlite"
	"github.com/jgbarah-chaoss/grimoirelab-perceval/internal/core/domain"
	"github.com/jgbarah-chaoss/grimoirelab-perceval/internal/core/ports/driven"
	"github.com/jgbarah-chaoss/grimoirelab-perceval/internal/core/services"
)

// loadConfig resolves the configuration file once per command run.
func loadConfig() (*file.Config, error) {
	cfg, err := file.Load(configFile)
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}
	return cfg, nil
}

// openCache builds the per-origin record cache, honouring the cache
// flags. A nil return with nil error means caching is disabled.
func openCache(cfg *file.Config, origin string) (driven.RecordCache, error) {
	if noCache {
		return nil, nil
	}

	base := cachePath
	if base == "" {
		base = cfg.CacheDir
	}
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		base = filepath.Join(home, ".perceval", "cache")
	}

	c, err := cache.Open(filepath.Join(base, pathSafe(origin)))
	if err != nil {
		return nil, err
	}
	if cleanCache {
		if err := c.Clean(); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// openWatermarks opens the metadata store used to persist incremental
// watermarks across runs.
func openWatermarks(cfg *file.Config) (*sqlite.Store, error) {
	dir := cfg.DataDir
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		dir = filepath.Join(home, ".perceval", "data")
	}
	return sqlite.NewStore(dir)
}

// runHarvest executes a fetch or replay run for the connector and prints
// every record as a JSON object.
func runHarvest(cmd *cobra.Command, conn driven.Connector, rc driven.RecordCache) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := openWatermarks(cfg)
	if err != nil {
		return fmt.Errorf("opening metadata store: %w", err)
	}
	defer store.Close()

	out := cmd.OutOrStdout()
	if outputPath != "" {
		f, err := os.Create(outputPath)
		if err != nil {
			return fmt.Errorf("opening output: %w", err)
		}
		defer f.Close()
		out = f
	}

	since, err := parseFromDate(fromDate)
	if err != nil {
		return err
	}

	runner := services.NewHarvestRunner(conn, rc, store.WatermarkStore())
	sink := jsonSink(out)

	ctx := context.Background()
	if fetchCache {
		_, err = runner.Replay(ctx, sink)
		return err
	}
	_, err = runner.Run(ctx, since, sink)
	return err
}

// jsonSink writes each record as an indented JSON object, one per line
// group, to w.
func jsonSink(w io.Writer) func(domain.StampedRecord) error {
	return func(rec domain.StampedRecord) error {
		obj, err := json.MarshalIndent(rec, "", "    ")
		if err != nil {
			return err
		}
		if _, err := w.Write(obj); err != nil {
			return err
		}
		_, err = io.WriteString(w, "\n")
		return err
	}
}

// parseFromDate accepts RFC 3339 or plain dates. Empty means no lower
// bound.
func parseFromDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid --from-date %q", s)
}

// pathSafe flattens an origin into a single path element.
func pathSafe(origin string) string {
	repl := strings.NewReplacer("/", "_", ":", "_", "\\", "_")
	return repl.Replace(origin)
}
