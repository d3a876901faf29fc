package influx

import (
	"fmt"
	"strings"
)

// BuildFlux constructs the Flux query for a category and options. The
// result groups events by the category tag, sums counts, and keeps only
// the tag and summed value columns so the CSV output is stable.
func BuildFlux(bucket string, cat Category, opts QueryOptions) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "from(bucket: %q)\n", bucket)
	fmt.Fprintf(&sb, "  |> range(start: -%dd)\n", opts.Days)
	fmt.Fprintf(&sb, "  |> filter(fn: (r) => r._measurement == %q)\n", cat.Measurement)

	if opts.CoreOnly {
		sb.WriteString(`  |> filter(fn: (r) => r.tap_name == "homebrew/core" or r.tap_name == "homebrew/cask")` + "\n")
	}
	if opts.Name != "" {
		fmt.Fprintf(&sb, "  |> filter(fn: (r) => r.%s == %q)\n", cat.Tag, opts.Name)
	}
	if cat.Tag == "os_version" {
		fmt.Fprintf(&sb, "  |> filter(fn: (r) => r.%s != \"\")\n", cat.Tag)
		for _, v := range opts.ExcludeVersions {
			fmt.Fprintf(&sb, "  |> filter(fn: (r) => r.%s != %q)\n", cat.Tag, v)
		}
	}

	fmt.Fprintf(&sb, "  |> group(columns: [%q])\n", cat.Tag)
	sb.WriteString("  |> sum()\n")
	sb.WriteString("  |> group()\n")
	fmt.Fprintf(&sb, "  |> keep(columns: [%q, \"_value\"])\n", cat.Tag)
	sb.WriteString(`  |> sort(columns: ["_value"], desc: true)`)

	return sb.String()
}

// BuildSQL constructs the equivalent Flight SQL query. Columns are aliased
// to fixed names so the JSON output parses independently of the tag.
func BuildSQL(cat Category, opts QueryOptions) string {
	var conds []string

	conds = append(conds, fmt.Sprintf("time >= now() - INTERVAL '%d days'", opts.Days))
	if opts.CoreOnly {
		conds = append(conds, "tap_name IN ('homebrew/core', 'homebrew/cask')")
	}
	if opts.Name != "" {
		conds = append(conds, fmt.Sprintf("%s = '%s'", cat.Tag, sqlEscape(opts.Name)))
	}
	if cat.Tag == "os_version" {
		conds = append(conds, fmt.Sprintf("%s <> ''", cat.Tag))
		for _, v := range opts.ExcludeVersions {
			conds = append(conds, fmt.Sprintf("%s <> '%s'", cat.Tag, sqlEscape(v)))
		}
	}

	return fmt.Sprintf(
		"SELECT %s AS dimension, SUM(count) AS count FROM %s WHERE %s GROUP BY %s ORDER BY count DESC",
		cat.Tag, cat.Measurement, strings.Join(conds, " AND "), cat.Tag,
	)
}

// sqlEscape doubles single quotes in a literal.
func sqlEscape(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}
