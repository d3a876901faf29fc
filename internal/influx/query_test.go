package influx

import (
	"strings"
	"testing"
)

func TestBuildFlux(t *testing.T) {
	install, _ := CategoryByName("install")
	osVersion, _ := CategoryByName("os-version")

	tests := []struct {
		name     string
		cat      Category
		opts     QueryOptions
		contains []string
		excludes []string
	}{
		{
			name: "basic install query",
			cat:  install,
			opts: QueryOptions{Days: 30},
			contains: []string{
				`from(bucket: "analytics")`,
				"range(start: -30d)",
				`r._measurement == "formula_install"`,
				`group(columns: ["package"])`,
				"sum()",
				`keep(columns: ["package", "_value"])`,
			},
			excludes: []string{"tap_name", "os_version"},
		},
		{
			name: "core-only filter",
			cat:  install,
			opts: QueryOptions{Days: 90, CoreOnly: true},
			contains: []string{
				"range(start: -90d)",
				`r.tap_name == "homebrew/core" or r.tap_name == "homebrew/cask"`,
			},
		},
		{
			name: "single formula filter",
			cat:  install,
			opts: QueryOptions{Days: 30, Name: "wget"},
			contains: []string{
				`r.package == "wget"`,
			},
		},
		{
			name: "os-version exclusions",
			cat:  osVersion,
			opts: QueryOptions{Days: 365, ExcludeVersions: []string{"10.0", "0.0.0"}},
			contains: []string{
				`r.os_version != ""`,
				`r.os_version != "10.0"`,
				`r.os_version != "0.0.0"`,
				`group(columns: ["os_version"])`,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := BuildFlux("analytics", tt.cat, tt.opts)
			for _, want := range tt.contains {
				if !strings.Contains(q, want) {
					t.Errorf("query missing %q:\n%s", want, q)
				}
			}
			for _, unwanted := range tt.excludes {
				if strings.Contains(q, unwanted) {
					t.Errorf("query unexpectedly contains %q:\n%s", unwanted, q)
				}
			}
		})
	}
}

func TestBuildFlux_Deterministic(t *testing.T) {
	cat, _ := CategoryByName("cask-install")
	opts := QueryOptions{Days: 30, CoreOnly: true}

	first := BuildFlux("analytics", cat, opts)
	for i := 0; i < 5; i++ {
		if got := BuildFlux("analytics", cat, opts); got != first {
			t.Fatal("BuildFlux is not deterministic")
		}
	}
}

func TestBuildSQL(t *testing.T) {
	buildError, _ := CategoryByName("build-error")

	q := BuildSQL(buildError, QueryOptions{Days: 30, CoreOnly: true})

	for _, want := range []string{
		"SELECT package AS dimension",
		"SUM(count) AS count",
		"FROM build_error",
		"INTERVAL '30 days'",
		"tap_name IN ('homebrew/core', 'homebrew/cask')",
		"GROUP BY package",
		"ORDER BY count DESC",
	} {
		if !strings.Contains(q, want) {
			t.Errorf("query missing %q:\n%s", want, q)
		}
	}
}

func TestBuildSQL_EscapesLiterals(t *testing.T) {
	install, _ := CategoryByName("install")

	q := BuildSQL(install, QueryOptions{Days: 30, Name: "o'brien"})
	if !strings.Contains(q, "package = 'o''brien'") {
		t.Errorf("single quote not escaped:\n%s", q)
	}
}

func TestCategoryByName(t *testing.T) {
	for _, c := range Categories {
		got, err := CategoryByName(c.Name)
		if err != nil {
			t.Errorf("CategoryByName(%q) failed: %v", c.Name, err)
		}
		if got.Measurement != c.Measurement {
			t.Errorf("CategoryByName(%q).Measurement = %q, want %q", c.Name, got.Measurement, c.Measurement)
		}
	}

	if _, err := CategoryByName("nonsense"); err == nil {
		t.Error("expected error for unknown category")
	}
}

func TestCategory_TapScoped(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"install", true},
		{"install-on-request", true},
		{"build-error", true},
		{"cask-install", true},
		{"os-version", false},
		{"command-run", false},
	}

	for _, tt := range tests {
		cat, err := CategoryByName(tt.name)
		if err != nil {
			t.Fatalf("CategoryByName(%q) failed: %v", tt.name, err)
		}
		if got := cat.TapScoped(); got != tt.want {
			t.Errorf("%s.TapScoped() = %v, want %v", tt.name, got, tt.want)
		}
	}
}
