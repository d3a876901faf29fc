package app

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/blackwell-systems/brewmetrics/internal/cache"
	"github.com/blackwell-systems/brewmetrics/internal/config"
	"github.com/blackwell-systems/brewmetrics/internal/influx"
	"github.com/blackwell-systems/brewmetrics/internal/report"
)

var (
	publishOut        string
	publishDays       []int
	publishCategories []string
	publishNoCache    bool
)

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Regenerate the static JSON dataset for the website",
	Long: `Query every requested category for every day window and write the
resulting reports as static JSON files, one per category and window:

  {out}/{category}/{days}d.json

Each category/window pair is an independent task; tasks fan out to a
bounded worker pool and join before exit. Categories with no data are
skipped with a warning and do not fail the run.`,
	Example: `  # Full dataset with the default 30/90/365 day windows
  brewmetrics publish --out public/api/analytics

  # Only install counts, single window
  brewmetrics publish --category install --days 30 --out /tmp/analytics`,
	RunE: runPublish,
}

func init() {
	publishCmd.Flags().StringVar(&publishOut, "out", "public/api/analytics", "output directory for the JSON files")
	publishCmd.Flags().IntSliceVar(&publishDays, "days", []int{30, 90, 365}, "day windows to generate")
	publishCmd.Flags().StringSliceVar(&publishCategories, "category", nil, "categories to publish (default: all)")
	publishCmd.Flags().BoolVar(&publishNoCache, "no-cache", false, "bypass the local result cache")

	RootCmd.AddCommand(publishCmd)
}

func runPublish(cmd *cobra.Command, args []string) error {
	if err := checkOptOut(); err != nil {
		return err
	}

	cats, err := publishCategoryList(publishCategories)
	if err != nil {
		return err
	}
	for _, d := range publishDays {
		if d <= 0 {
			return fmt.Errorf("invalid days: %d (must be positive)", d)
		}
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	client, backend, err := newClient(cfg)
	if err != nil {
		return err
	}
	resultCache, err := openCache(publishNoCache)
	if err != nil {
		return err
	}
	if resultCache != nil {
		defer resultCache.Close()
	}

	g, ctx := errgroup.WithContext(cmd.Context())
	g.SetLimit(cfg.Concurrency)

	var written atomic.Int64
	for _, cat := range cats {
		for _, days := range publishDays {
			cat, days := cat, days
			g.Go(func() error {
				ok, err := publishOne(ctx, client, resultCache, backend, cfg, cat, days)
				if err != nil {
					return err
				}
				if ok {
					written.Add(1)
				}
				return nil
			})
		}
	}

	if err := g.Wait(); err != nil {
		return err
	}

	log.Infof("published %d report files to %s", written.Load(), publishOut)
	return nil
}

// publishOne generates a single category/window report file. Returns false
// without error when the category has no data for the window.
func publishOne(ctx context.Context, client *influx.Client, resultCache *cache.Cache, backend influx.Backend, cfg *config.Config, cat influx.Category, days int) (bool, error) {
	// Tap filtering only applies where the measurement carries tap_name.
	opts := queryOptions(cfg, cat, days, "", cat.TapScoped(), nil)

	rows, err := fetchRows(ctx, client, resultCache, backend, cat, opts)
	if err != nil {
		return false, err
	}

	start, end := reportWindow(days)
	r := report.Build(cat, rows, start, end, newNormalizer(cfg, cat))
	if r == nil {
		log.Warnf("no data for category %s in the last %d days, skipping", cat.Name, days)
		return false, nil
	}

	path := filepath.Join(publishOut, cat.Name, fmt.Sprintf("%dd.json", days))
	if err := writeReportFile(path, r); err != nil {
		return false, err
	}

	log.Infof("wrote %s (%d items)", path, len(r.Items))
	return true, nil
}

// writeReportFile pretty-prints a report to path, creating parent
// directories as needed.
func writeReportFile(path string, r *report.Report) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("encode report %s: %w", path, err)
	}
	return nil
}

// publishCategoryList resolves the category flag, defaulting to all.
func publishCategoryList(names []string) ([]influx.Category, error) {
	if len(names) == 0 {
		return influx.Categories, nil
	}
	cats := make([]influx.Category, 0, len(names))
	for _, name := range names {
		cat, err := influx.CategoryByName(name)
		if err != nil {
			return nil, err
		}
		cats = append(cats, cat)
	}
	return cats, nil
}
