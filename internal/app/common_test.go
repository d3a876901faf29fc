package app

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/blackwell-systems/brewmetrics/internal/config"
	"github.com/blackwell-systems/brewmetrics/internal/influx"
)

func TestCheckOptOut(t *testing.T) {
	t.Setenv(envOptOut, "")
	if err := checkOptOut(); err != nil {
		t.Errorf("unexpected error with opt-out unset: %v", err)
	}

	t.Setenv(envOptOut, "1")
	if err := checkOptOut(); err == nil {
		t.Error("expected error with opt-out set")
	}
}

func TestResolveToken(t *testing.T) {
	t.Setenv(envToken, "")
	if _, err := resolveToken(); err == nil {
		t.Error("expected error with token unset")
	}

	t.Setenv(envToken, "secret")
	token, err := resolveToken()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if token != "secret" {
		t.Errorf("token = %q", token)
	}
}

func TestQueryOptions_OSVersionExclusions(t *testing.T) {
	cfg := &config.Config{ExcludeOSVersions: []string{"10.0", "0.0.0"}}
	osVersion, _ := influx.CategoryByName("os-version")
	install, _ := influx.CategoryByName("install")

	opts := queryOptions(cfg, osVersion, 30, "", false, []string{"12.0-beta"})
	want := []string{"10.0", "0.0.0", "12.0-beta"}
	if len(opts.ExcludeVersions) != len(want) {
		t.Fatalf("ExcludeVersions = %v, want %v", opts.ExcludeVersions, want)
	}
	for i, v := range want {
		if opts.ExcludeVersions[i] != v {
			t.Errorf("ExcludeVersions[%d] = %q, want %q", i, opts.ExcludeVersions[i], v)
		}
	}

	// Other categories never carry exclusions, keeping their cache keys
	// independent of the os-version config.
	opts = queryOptions(cfg, install, 30, "wget", true, []string{"12.0-beta"})
	if opts.ExcludeVersions != nil {
		t.Errorf("install ExcludeVersions = %v, want nil", opts.ExcludeVersions)
	}
	if opts.Name != "wget" || !opts.CoreOnly || opts.Days != 30 {
		t.Errorf("opts = %+v, want name/core-only/days preserved", opts)
	}
}

func TestOpenCache_Disabled(t *testing.T) {
	c, err := openCache(true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c != nil {
		t.Error("disabled cache should be nil")
	}
}

func TestOpenCache_PrunesExpiredEntries(t *testing.T) {
	silenceLogs()
	home := t.TempDir()
	t.Setenv("HOME", home)

	c, err := openCache(false)
	if err != nil {
		t.Fatalf("failed to open cache: %v", err)
	}
	if err := c.Put("stale", []influx.Row{{Dimension: "x", Count: 1}}); err != nil {
		t.Fatalf("put failed: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	// Backdate the entry past the TTL.
	dbPath := filepath.Join(home, ".brewmetrics", "cache.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		t.Fatalf("failed to open cache db: %v", err)
	}
	old := time.Now().UTC().Add(-2 * cacheTTL).Format(time.RFC3339)
	if _, err := db.Exec(`UPDATE query_results SET created_at = ?`, old); err != nil {
		t.Fatalf("failed to backdate entry: %v", err)
	}
	db.Close()

	// Reopening prunes it.
	c, err = openCache(false)
	if err != nil {
		t.Fatalf("failed to reopen cache: %v", err)
	}
	defer c.Close()

	db, err = sql.Open("sqlite", dbPath)
	if err != nil {
		t.Fatalf("failed to open cache db: %v", err)
	}
	defer db.Close()

	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM query_results`).Scan(&count); err != nil {
		t.Fatalf("failed to count entries: %v", err)
	}
	if count != 0 {
		t.Errorf("cache has %d entries after prune-on-open, want 0", count)
	}
}

func TestReportWindow(t *testing.T) {
	start, end := reportWindow(30)

	if !start.Equal(end.AddDate(0, 0, -30)) {
		t.Errorf("window is not 30 days: %v to %v", start, end)
	}
	if end.After(time.Now()) {
		t.Errorf("end date %v is in the future", end)
	}
	if end.Hour() != 0 || end.Minute() != 0 {
		t.Errorf("end date %v is not truncated to midnight", end)
	}
}
