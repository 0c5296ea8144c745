// Package export writes aggregated tables to disk. It is the only place
// where tables become files.
package export

import (
	"fmt"
	"os"
	"strings"

	"gsc_coverage/aggregate"
)

// Writer persists a run's tables under dir and returns the files it wrote.
type Writer interface {
	Format() string
	Write(dir string, tables []aggregate.Table) ([]string, error)
}

// NewWriters builds one writer per requested format.
func NewWriters(formats []string) ([]Writer, error) {
	var writers []Writer
	seen := make(map[string]bool)
	for _, f := range formats {
		f = strings.ToLower(strings.TrimSpace(f))
		if f == "" || seen[f] {
			continue
		}
		seen[f] = true
		switch f {
		case "csv":
			writers = append(writers, &CSVWriter{})
		case "xlsx":
			writers = append(writers, &XLSXWriter{FileName: "coverage.xlsx"})
		default:
			return nil, fmt.Errorf("unknown export format %q", f)
		}
	}
	return writers, nil
}

func ensureDir(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	return nil
}
