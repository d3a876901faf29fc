package influx

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os/exec"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/blackwell-systems/brewmetrics/internal/retry"
)

// Backend selects the query dialect and CLI used to reach the server.
type Backend string

const (
	// BackendInflux queries an InfluxDB 2.x server with Flux via `influx query`.
	BackendInflux Backend = "influx"
	// BackendFlightSQL queries an InfluxDB 3.x server with SQL via `influxdb3 query`.
	BackendFlightSQL Backend = "flightsql"
)

// Bin returns the CLI binary used for the backend.
func (b Backend) Bin() string {
	if b == BackendFlightSQL {
		return "influxdb3"
	}
	return "influx"
}

// ParseBackend validates a backend name from a CLI flag.
func ParseBackend(name string) (Backend, error) {
	switch Backend(name) {
	case BackendInflux, BackendFlightSQL:
		return Backend(name), nil
	default:
		return "", fmt.Errorf("unknown backend %q (expected %q or %q)", name, BackendInflux, BackendFlightSQL)
	}
}

// Config holds the connection parameters for the backend CLI.
type Config struct {
	Host   string
	Org    string
	Bucket string
	Token  string
	// Bin overrides the backend CLI binary, mainly for tests.
	Bin string
}

// Client executes category queries by shelling out to the backend CLI.
type Client struct {
	backend Backend
	cfg     Config
	policy  retry.Policy
	log     *logrus.Logger
}

// NewClient returns a Client for the given backend.
func NewClient(backend Backend, cfg Config, policy retry.Policy, log *logrus.Logger) *Client {
	if cfg.Bin == "" {
		cfg.Bin = backend.Bin()
	}
	if log == nil {
		log = logrus.New()
		log.SetOutput(io.Discard)
	}
	return &Client{backend: backend, cfg: cfg, policy: policy, log: log}
}

// Count queries summed event counts for a category, retrying transient
// CLI failures per the client's policy.
func (c *Client) Count(ctx context.Context, cat Category, opts QueryOptions) ([]Row, error) {
	if opts.Days <= 0 {
		return nil, fmt.Errorf("invalid query window: %d days", opts.Days)
	}

	var args []string
	switch c.backend {
	case BackendFlightSQL:
		args = []string{
			"query",
			"--host", c.cfg.Host,
			"--token", c.cfg.Token,
			"--database", c.cfg.Bucket,
			"--format", "json",
			BuildSQL(cat, opts),
		}
	default:
		args = []string{
			"query",
			"--raw",
			"--host", c.cfg.Host,
			"--org", c.cfg.Org,
			"--token", c.cfg.Token,
			BuildFlux(c.cfg.Bucket, cat, opts),
		}
	}

	attempt := 0
	output, err := retry.DoValue(ctx, c.policy, func() ([]byte, error) {
		attempt++
		out, runErr := c.run(ctx, args)
		if runErr != nil {
			c.log.WithFields(logrus.Fields{
				"category": cat.Name,
				"attempt":  attempt,
			}).Warnf("backend query failed: %v", runErr)
		}
		return out, runErr
	})
	if err != nil {
		return nil, fmt.Errorf("query for %s failed: %w", cat.Name, err)
	}

	if c.backend == BackendFlightSQL {
		return parseJSONRows(output)
	}
	return parseAnnotatedCSV(output, cat.Tag)
}

// run executes the backend CLI once, folding captured stderr into the error.
func (c *Client) run(ctx context.Context, args []string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, c.cfg.Bin, args...)
	output, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return nil, fmt.Errorf("%s query failed: %w (stderr: %s)", c.cfg.Bin, err, bytes.TrimSpace(exitErr.Stderr))
		}
		return nil, fmt.Errorf("%s query failed: %w", c.cfg.Bin, err)
	}
	return output, nil
}

// parseAnnotatedCSV extracts (tag, _value) rows from annotated CSV as
// produced by `influx query --raw`. Annotation lines start with '#'.
func parseAnnotatedCSV(data []byte, tag string) ([]Row, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.Comment = '#'
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	var (
		rows     []Row
		tagIdx   = -1
		valueIdx = -1
	)

	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse query output: %w", err)
		}

		// Each result table starts with its own header row. Blank
		// separator lines are swallowed by the CSV reader, so headers
		// are recognized by the _value column name.
		if isHeader(record) {
			tagIdx, valueIdx = -1, -1
			for i, col := range record {
				switch col {
				case tag:
					tagIdx = i
				case "_value":
					valueIdx = i
				}
			}
			if tagIdx < 0 {
				return nil, fmt.Errorf("query output missing %q column", tag)
			}
			continue
		}

		if tagIdx < 0 || valueIdx < 0 {
			return nil, fmt.Errorf("query output has data before header row")
		}
		if tagIdx >= len(record) || valueIdx >= len(record) {
			continue
		}
		count, err := strconv.ParseInt(record[valueIdx], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("failed to parse count %q: %w", record[valueIdx], err)
		}
		rows = append(rows, Row{Dimension: record[tagIdx], Count: count})
	}

	return rows, nil
}

// isHeader reports whether a CSV record is a table header row.
func isHeader(record []string) bool {
	for _, col := range record {
		if col == "_value" {
			return true
		}
	}
	return false
}

// parseJSONRows extracts rows from `influxdb3 query --format json` output,
// which is a JSON array of objects with the aliased dimension/count columns.
func parseJSONRows(data []byte) ([]Row, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var records []map[string]any
	if err := dec.Decode(&records); err != nil {
		return nil, fmt.Errorf("failed to parse query output: %w", err)
	}

	rows := make([]Row, 0, len(records))
	for _, rec := range records {
		dim, _ := rec["dimension"].(string)
		num, ok := rec["count"].(json.Number)
		if !ok {
			return nil, fmt.Errorf("query output row missing numeric count: %v", rec)
		}
		count, err := num.Int64()
		if err != nil {
			return nil, fmt.Errorf("failed to parse count %q: %w", num.String(), err)
		}
		rows = append(rows, Row{Dimension: dim, Count: count})
	}

	return rows, nil
}
