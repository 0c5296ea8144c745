package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"

	"gsc_coverage/aggregate"
)

// CSVWriter writes one <table>.csv per table.
type CSVWriter struct{}

func (w *CSVWriter) Format() string { return "csv" }

func (w *CSVWriter) Write(dir string, tables []aggregate.Table) ([]string, error) {
	if err := ensureDir(dir); err != nil {
		return nil, err
	}

	var paths []string
	for _, t := range tables {
		path := filepath.Join(dir, t.Name+".csv")
		if err := writeCSV(path, t); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func writeCSV(path string, t aggregate.Table) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if err := cw.Write(t.Header); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := cw.WriteAll(t.Rows); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
