package app

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/brewmetrics/internal/influx"
	"github.com/blackwell-systems/brewmetrics/internal/output"
	"github.com/blackwell-systems/brewmetrics/internal/report"
)

var (
	reportCategories []string
	reportDays       int
	reportFormula    string
	reportCask       string
	reportCoreOnly   bool
	reportJSON       bool
	reportAllCore    bool
	reportNoCache    bool
	reportExclude    []string
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Query a category and print the ranked report",
	Long: `Query the analytics backend for one or more event categories and
print ranked count/percentage reports.

Categories: install, install-on-request, build-error, cask-install,
os-version, command-run.

Empty categories are skipped with a warning; the remaining categories
still report.`,
	Example: `  # Top formulae installed in the last 30 days
  brewmetrics report --category install

  # Installs and requested installs together, grouped per formula
  brewmetrics report --category install --category install-on-request --all-core-formulae

  # Casks over the last 90 days as JSON
  brewmetrics report --category cask-install --days 90 --json

  # One formula only
  brewmetrics report --category build-error --formula openssl@3`,
	RunE: runReport,
}

func init() {
	reportCmd.Flags().StringSliceVar(&reportCategories, "category", []string{"install"}, "categories to query")
	reportCmd.Flags().IntVar(&reportDays, "days", 30, "query window in days")
	reportCmd.Flags().StringVar(&reportFormula, "formula", "", "restrict to a single formula")
	reportCmd.Flags().StringVar(&reportCask, "cask", "", "restrict to a single cask")
	reportCmd.Flags().BoolVar(&reportCoreOnly, "core-only", false, "only count events from homebrew/core and homebrew/cask taps")
	reportCmd.Flags().BoolVar(&reportJSON, "json", false, "emit pretty-printed JSON instead of a table")
	reportCmd.Flags().BoolVar(&reportAllCore, "all-core-formulae", false, "emit the grouped per-formula JSON document")
	reportCmd.Flags().BoolVar(&reportNoCache, "no-cache", false, "bypass the local result cache")
	reportCmd.Flags().StringSliceVar(&reportExclude, "exclude-version", nil, "raw os_version values to drop from os-version reports")

	RootCmd.AddCommand(reportCmd)
}

func runReport(cmd *cobra.Command, args []string) error {
	cats, err := validateReportFlags(reportCategories, reportDays, reportFormula, reportCask, reportAllCore)
	if err != nil {
		return err
	}
	if err := checkOptOut(); err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	client, backend, err := newClient(cfg)
	if err != nil {
		return err
	}
	resultCache, err := openCache(reportNoCache)
	if err != nil {
		return err
	}
	if resultCache != nil {
		defer resultCache.Close()
	}

	name := reportFormula
	if name == "" {
		name = reportCask
	}

	start, end := reportWindow(reportDays)
	var reports []*report.Report

	for _, cat := range cats {
		opts := queryOptions(cfg, cat, reportDays, name, reportCoreOnly, reportExclude)

		rows, err := fetchRows(cmd.Context(), client, resultCache, backend, cat, opts)
		if err != nil {
			return err
		}

		r := report.Build(cat, rows, start, end, newNormalizer(cfg, cat))
		if r == nil {
			log.Warnf("no data for category %s in the last %d days, skipping", cat.Name, reportDays)
			continue
		}
		reports = append(reports, r)
	}

	if len(reports) == 0 {
		return fmt.Errorf("no data for any requested category")
	}

	if reportAllCore {
		return writeJSON(os.Stdout, report.Group(reports...))
	}

	for i, r := range reports {
		if reportJSON {
			if err := writeJSON(os.Stdout, r); err != nil {
				return err
			}
			continue
		}
		if i > 0 {
			fmt.Println()
		}
		fmt.Print(output.RenderReportTable(r))
	}

	return nil
}

// validateReportFlags rejects malformed flag combinations before any query
// is built.
func validateReportFlags(categories []string, days int, formula, cask string, allCore bool) ([]influx.Category, error) {
	if days <= 0 {
		return nil, fmt.Errorf("invalid days: %d (must be positive)", days)
	}
	if formula != "" && cask != "" {
		return nil, fmt.Errorf("--formula and --cask are mutually exclusive")
	}
	if len(categories) == 0 {
		return nil, fmt.Errorf("at least one --category is required")
	}

	cats := make([]influx.Category, 0, len(categories))
	for _, name := range categories {
		cat, err := influx.CategoryByName(name)
		if err != nil {
			return nil, err
		}

		if formula != "" && cat.DimensionKey != "formula" {
			return nil, fmt.Errorf("--formula does not apply to category %s", cat.Name)
		}
		if cask != "" && cat.DimensionKey != "cask" {
			return nil, fmt.Errorf("--cask does not apply to category %s", cat.Name)
		}
		if allCore && cat.DimensionKey != "formula" {
			return nil, fmt.Errorf("--all-core-formulae does not apply to category %s", cat.Name)
		}

		cats = append(cats, cat)
	}

	return cats, nil
}

// writeJSON pretty-prints a document to w.
func writeJSON(w *os.File, doc any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return nil
}
