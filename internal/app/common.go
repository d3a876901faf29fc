package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/blackwell-systems/brewmetrics/internal/cache"
	"github.com/blackwell-systems/brewmetrics/internal/config"
	"github.com/blackwell-systems/brewmetrics/internal/influx"
	"github.com/blackwell-systems/brewmetrics/internal/osversion"
	"github.com/blackwell-systems/brewmetrics/internal/retry"
)

// Environment variables gating analytics access.
const (
	envOptOut = "HOMEBREW_NO_ANALYTICS"
	envToken  = "HOMEBREW_INFLUXDB_TOKEN"
)

// cacheTTL bounds how long cached query results stay fresh.
const cacheTTL = 6 * time.Hour

// checkOptOut fails when the user has disabled analytics.
func checkOptOut() error {
	if os.Getenv(envOptOut) != "" {
		return fmt.Errorf("%s is set: analytics queries are disabled", envOptOut)
	}
	return nil
}

// resolveToken reads the backend credential from the environment.
func resolveToken() (string, error) {
	token := os.Getenv(envToken)
	if token == "" {
		return "", fmt.Errorf("%s is not set", envToken)
	}
	return token, nil
}

// loadConfig loads the config file from --config or the default location.
func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.Load(configPath)
	}
	return config.LoadDefault()
}

// newClient builds the backend client from flags, config, and environment.
func newClient(cfg *config.Config) (*influx.Client, influx.Backend, error) {
	backend, err := influx.ParseBackend(backendName)
	if err != nil {
		return nil, "", err
	}

	token, err := resolveToken()
	if err != nil {
		return nil, "", err
	}

	client := influx.NewClient(backend, influx.Config{
		Host:   cfg.Host,
		Org:    cfg.Org,
		Bucket: cfg.Bucket,
		Token:  token,
	}, retry.DefaultPolicy(), log)

	return client, backend, nil
}

// openCache opens the on-disk result cache, or returns nil when disabled.
// Expired entries are pruned on open so the cache file stays bounded.
func openCache(disabled bool) (*cache.Cache, error) {
	if disabled {
		return nil, nil
	}
	dir, err := getDataDir()
	if err != nil {
		return nil, err
	}
	c, err := cache.New(filepath.Join(dir, "cache.db"))
	if err != nil {
		return nil, err
	}
	if n, err := c.Prune(cacheTTL); err != nil {
		log.Warnf("cache prune failed: %v", err)
	} else if n > 0 {
		log.Debugf("pruned %d expired cache entries", n)
	}
	return c, nil
}

// queryOptions assembles the options for one category query. The
// os-version exclusion list (config plus any extra values) only applies to
// os-version queries so cache keys for other categories stay stable.
func queryOptions(cfg *config.Config, cat influx.Category, days int, name string, coreOnly bool, extraExclusions []string) influx.QueryOptions {
	opts := influx.QueryOptions{
		Days:     days,
		Name:     name,
		CoreOnly: coreOnly,
	}
	if cat.DimensionKey == "os_version" {
		opts.ExcludeVersions = append(append([]string{}, cfg.ExcludeOSVersions...), extraExclusions...)
	}
	return opts
}

// fetchRows runs a category query through the cache.
func fetchRows(ctx context.Context, client *influx.Client, c *cache.Cache, backend influx.Backend, cat influx.Category, opts influx.QueryOptions) ([]influx.Row, error) {
	if c == nil {
		return client.Count(ctx, cat, opts)
	}

	key := cache.Key(string(backend), cat, opts)
	if rows, ok, err := c.Get(key, cacheTTL); err != nil {
		log.Warnf("cache read failed, querying backend: %v", err)
	} else if ok {
		log.Debugf("cache hit for %s (%dd)", cat.Name, opts.Days)
		return rows, nil
	}

	rows, err := client.Count(ctx, cat, opts)
	if err != nil {
		return nil, err
	}
	if err := c.Put(key, rows); err != nil {
		log.Warnf("cache write failed: %v", err)
	}
	return rows, nil
}

// newNormalizer returns the dimension normalizer for a category, honoring
// config overrides for OS versions. Non-OS categories need none.
func newNormalizer(cfg *config.Config, cat influx.Category) func(string) string {
	if cat.DimensionKey != "os_version" {
		return nil
	}
	return osversion.New(cfg.OSVersions).Normalize
}

// reportWindow returns the date range covered by a days-long query window.
func reportWindow(days int) (time.Time, time.Time) {
	end := time.Now().UTC().Truncate(24 * time.Hour)
	return end.AddDate(0, 0, -days), end
}
