package report

import (
	"regexp"
	"sort"
	"time"

	"github.com/blackwell-systems/brewmetrics/internal/influx"
)

// validDimension matches the characters allowed in a dimension value.
// Formula and cask tokens, OS release names, and command names all fit;
// anything else (quotes, control characters, injection junk) is dropped.
var validDimension = regexp.MustCompile(`^[A-Za-z0-9 ._+@/:()\-]+$`)

// Build aggregates raw backend rows into a ranked report. Rows are grouped
// by dimension value (after normalization), duplicate counts are summed,
// invalid values are dropped, and ranks are assigned by descending count
// with ties broken by original row order. Returns nil when no rows survive.
func Build(cat influx.Category, rows []influx.Row, start, end time.Time, normalize func(string) string) *Report {
	type bucket struct {
		value string
		count int64
		order int
	}

	var (
		buckets []*bucket
		index   = make(map[string]*bucket)
		total   int64
	)

	for _, row := range rows {
		value := row.Dimension
		if normalize != nil {
			value = normalize(value)
		}
		if value == "" || !validDimension.MatchString(value) {
			continue
		}

		if b, ok := index[value]; ok {
			b.count += row.Count
		} else {
			b := &bucket{value: value, count: row.Count, order: len(buckets)}
			buckets = append(buckets, b)
			index[value] = b
		}
		total += row.Count
	}

	if len(buckets) == 0 {
		return nil
	}

	sort.SliceStable(buckets, func(i, j int) bool {
		return buckets[i].count > buckets[j].count
	})

	items := make([]Item, len(buckets))
	for i, b := range buckets {
		items[i] = Item{
			Number:  i + 1,
			Value:   b.value,
			Count:   b.count,
			Percent: float64(b.count) * 100 / float64(total),
		}
	}

	return &Report{
		Category:     cat.Name,
		DimensionKey: cat.DimensionKey,
		StartDate:    start,
		EndDate:      end,
		TotalCount:   total,
		Items:        items,
	}
}
