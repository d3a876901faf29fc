package app

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/blackwell-systems/brewmetrics/internal/config"
	"github.com/blackwell-systems/brewmetrics/internal/influx"
	"github.com/blackwell-systems/brewmetrics/internal/report"
)

func TestPublishCommand_Flags(t *testing.T) {
	for _, name := range []string{"out", "days", "category", "no-cache"} {
		if publishCmd.Flags().Lookup(name) == nil {
			t.Errorf("flag %s not defined", name)
		}
	}

	days := publishCmd.Flags().Lookup("days")
	if days.DefValue != "[30,90,365]" {
		t.Errorf("days default = %q, want [30,90,365]", days.DefValue)
	}
}

func TestPublishCategoryList(t *testing.T) {
	all, err := publishCategoryList(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(all) != len(influx.Categories) {
		t.Errorf("default list has %d categories, want %d", len(all), len(influx.Categories))
	}

	some, err := publishCategoryList([]string{"install", "os-version"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(some) != 2 || some[0].Name != "install" || some[1].Name != "os-version" {
		t.Errorf("got %+v", some)
	}

	if _, err := publishCategoryList([]string{"bogus"}); err == nil {
		t.Error("expected error for unknown category")
	}
}

func TestPublish_TapFilterOnlyForTapScopedCategories(t *testing.T) {
	cfg := &config.Config{ExcludeOSVersions: []string{"0.0.0"}}

	for _, cat := range influx.Categories {
		opts := queryOptions(cfg, cat, 30, "", cat.TapScoped(), nil)

		wantCore := cat.DimensionKey == "formula" || cat.DimensionKey == "cask"
		if opts.CoreOnly != wantCore {
			t.Errorf("%s: CoreOnly = %v, want %v", cat.Name, opts.CoreOnly, wantCore)
		}
		if cat.Name == "os-version" && len(opts.ExcludeVersions) == 0 {
			t.Errorf("os-version publish options missing configured exclusions")
		}
	}
}

func TestWriteReportFile(t *testing.T) {
	silenceLogs()

	r := &report.Report{
		Category:     "install",
		DimensionKey: "formula",
		StartDate:    time.Date(2025, 7, 24, 0, 0, 0, 0, time.UTC),
		EndDate:      time.Date(2025, 8, 23, 0, 0, 0, 0, time.UTC),
		TotalCount:   100,
		Items: []report.Item{
			{Number: 1, Value: "wget", Count: 100, Percent: 100},
		},
	}

	path := filepath.Join(t.TempDir(), "install", "30d.json")
	if err := writeReportFile(path, r); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read output: %v", err)
	}

	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if doc["category"] != "install" {
		t.Errorf("category = %v", doc["category"])
	}
	if doc["total_count"] != float64(100) {
		t.Errorf("total_count = %v", doc["total_count"])
	}
}
