// Package report aggregates raw backend rows into ranked count/percentage
// reports and renders them as the JSON shapes published for formulae.brew.sh.
package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/dustin/go-humanize"
)

// Item is one ranked entry of a report. Immutable once computed.
type Item struct {
	// Number is the 1-based rank by descending count.
	Number int
	// Value is the dimension value (formula, cask, OS release, command).
	Value string
	// Count is the summed event count for the dimension value.
	Count int64
	// Percent is the share of the report's total count.
	Percent float64
}

// Report is the aggregated result of one category query.
type Report struct {
	Category string
	// DimensionKey names the per-item JSON key ("formula", "cask", ...).
	DimensionKey string
	StartDate    time.Time
	EndDate      time.Time
	TotalCount   int64
	Items        []Item
}

const dateLayout = "2006-01-02"

// reportJSON pins the field order of the published JSON documents.
type reportJSON struct {
	Category   string            `json:"category"`
	TotalItems int               `json:"total_items"`
	StartDate  string            `json:"start_date"`
	EndDate    string            `json:"end_date"`
	TotalCount int64             `json:"total_count"`
	Items      []json.RawMessage `json:"items"`
}

// MarshalJSON renders the report in the published format: counts carry
// thousands separators, percents have two decimals, and each item keys its
// dimension value by the report's dimension name.
func (r *Report) MarshalJSON() ([]byte, error) {
	items := make([]json.RawMessage, 0, len(r.Items))
	for _, it := range r.Items {
		raw, err := it.marshalWithKey(r.DimensionKey)
		if err != nil {
			return nil, err
		}
		items = append(items, raw)
	}

	return json.Marshal(reportJSON{
		Category:   r.Category,
		TotalItems: len(r.Items),
		StartDate:  r.StartDate.Format(dateLayout),
		EndDate:    r.EndDate.Format(dateLayout),
		TotalCount: r.TotalCount,
		Items:      items,
	})
}

// marshalWithKey emits the item with its dimension value under the given
// key, preserving the published field order.
func (it Item) marshalWithKey(key string) (json.RawMessage, error) {
	name, err := json.Marshal(key)
	if err != nil {
		return nil, err
	}
	value, err := json.Marshal(it.Value)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, `{"number":%d,%s:%s,"count":%q,"percent":"%.2f"}`,
		it.Number, name, value, humanize.Comma(it.Count), it.Percent)
	return buf.Bytes(), nil
}

// FormulaeEntry is one per-category count for a formula in the grouped
// formulae document.
type FormulaeEntry struct {
	Category string `json:"category"`
	Count    string `json:"count"`
	Percent  string `json:"percent"`
}

// FormulaeReport is the grouped variant published for the per-formula API:
// counts from one or more categories keyed by formula name.
type FormulaeReport struct {
	Category   string
	StartDate  time.Time
	EndDate    time.Time
	TotalCount int64
	Formulae   map[string][]FormulaeEntry
}

type formulaeJSON struct {
	Category   string                     `json:"category"`
	TotalItems int                        `json:"total_items"`
	StartDate  string                     `json:"start_date"`
	EndDate    string                     `json:"end_date"`
	TotalCount int64                      `json:"total_count"`
	Formulae   map[string][]FormulaeEntry `json:"formulae"`
}

// MarshalJSON renders the grouped document.
func (r *FormulaeReport) MarshalJSON() ([]byte, error) {
	return json.Marshal(formulaeJSON{
		Category:   r.Category,
		TotalItems: len(r.Formulae),
		StartDate:  r.StartDate.Format(dateLayout),
		EndDate:    r.EndDate.Format(dateLayout),
		TotalCount: r.TotalCount,
		Formulae:   r.Formulae,
	})
}

// Group merges one or more category reports into the grouped formulae
// document. Entries for each formula keep the order of the input reports.
func Group(reports ...*Report) *FormulaeReport {
	out := &FormulaeReport{
		Formulae: make(map[string][]FormulaeEntry),
	}

	names := make([]string, 0, len(reports))
	for _, r := range reports {
		if r == nil {
			continue
		}
		names = append(names, r.Category)
		out.TotalCount += r.TotalCount
		if out.StartDate.IsZero() || r.StartDate.Before(out.StartDate) {
			out.StartDate = r.StartDate
		}
		if r.EndDate.After(out.EndDate) {
			out.EndDate = r.EndDate
		}

		for _, it := range r.Items {
			out.Formulae[it.Value] = append(out.Formulae[it.Value], FormulaeEntry{
				Category: r.Category,
				Count:    humanize.Comma(it.Count),
				Percent:  fmt.Sprintf("%.2f", it.Percent),
			})
		}
	}

	sort.Strings(names)
	switch len(names) {
	case 0:
	case 1:
		out.Category = names[0]
	default:
		out.Category = names[0]
		for _, n := range names[1:] {
			out.Category += "+" + n
		}
	}

	return out
}
