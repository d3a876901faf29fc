// Package influx builds and executes analytics queries against the
// Homebrew InfluxDB backend via its CLI tooling.
package influx

import "fmt"

// Row is a single (dimension value, raw count) pair returned by the backend.
type Row struct {
	Dimension string
	Count     int64
}

// Category identifies an event type and how it is stored in the backend.
type Category struct {
	// Name is the CLI-facing category name, e.g. "install".
	Name string
	// Measurement is the backend measurement holding the events.
	Measurement string
	// Tag is the backend tag the report groups by.
	Tag string
	// DimensionKey is the per-item key used in JSON report output.
	DimensionKey string
}

// Categories lists all supported categories in display order.
var Categories = []Category{
	{Name: "install", Measurement: "formula_install", Tag: "package", DimensionKey: "formula"},
	{Name: "install-on-request", Measurement: "formula_install_on_request", Tag: "package", DimensionKey: "formula"},
	{Name: "build-error", Measurement: "build_error", Tag: "package", DimensionKey: "formula"},
	{Name: "cask-install", Measurement: "cask_install", Tag: "cask", DimensionKey: "cask"},
	{Name: "os-version", Measurement: "formula_install", Tag: "os_version", DimensionKey: "os_version"},
	{Name: "command-run", Measurement: "command_run", Tag: "command", DimensionKey: "command"},
}

// TapScoped reports whether the category's measurement carries a tap_name
// tag, i.e. whether a core-only filter can apply. OS-version and command
// events are not tap-scoped; filtering them by tap would drop every row.
func (c Category) TapScoped() bool {
	return c.DimensionKey == "formula" || c.DimensionKey == "cask"
}

// CategoryByName looks up a category by its CLI name.
func CategoryByName(name string) (Category, error) {
	for _, c := range Categories {
		if c.Name == name {
			return c, nil
		}
	}
	return Category{}, fmt.Errorf("unknown category %q", name)
}

// QueryOptions narrows a category query.
type QueryOptions struct {
	// Days is the size of the query window ending now.
	Days int
	// Name restricts results to a single formula or cask.
	Name string
	// CoreOnly restricts results to the homebrew/core and homebrew/cask taps.
	CoreOnly bool
	// ExcludeVersions drops specific os_version tag values (CI noise,
	// pre-release builds). Only meaningful for os-version queries.
	ExcludeVersions []string
}
