package export

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"gsc_coverage/aggregate"
)

const maxSheetName = 31

// XLSXWriter writes every table of a run into one workbook, a sheet per table.
type XLSXWriter struct {
	FileName string
}

func (w *XLSXWriter) Format() string { return "xlsx" }

func (w *XLSXWriter) Write(dir string, tables []aggregate.Table) ([]string, error) {
	if len(tables) == 0 {
		return nil, nil
	}
	if err := ensureDir(dir); err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()

	used := make(map[string]bool)
	for i, t := range tables {
		sheet := sheetName(t.Name, used)
		if i == 0 {
			if err := f.SetSheetName("Sheet1", sheet); err != nil {
				return nil, fmt.Errorf("rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(sheet); err != nil {
			return nil, fmt.Errorf("create sheet %s: %w", sheet, err)
		}

		if err := writeRow(f, sheet, 1, t.Header); err != nil {
			return nil, err
		}
		for r, row := range t.Rows {
			if err := writeRow(f, sheet, r+2, row); err != nil {
				return nil, err
			}
		}
	}
	f.SetActiveSheet(0)

	path := filepath.Join(dir, w.FileName)
	if err := f.SaveAs(path); err != nil {
		return nil, fmt.Errorf("save %s: %w", path, err)
	}
	return []string{path}, nil
}

func writeRow(f *excelize.File, sheet string, row int, values []string) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("write %s row %d: %w", sheet, row, err)
	}
	return nil
}

// sheetName fits a table name into the 31-character sheet limit and keeps it
// unique within the workbook.
func sheetName(name string, used map[string]bool) string {
	name = strings.Map(func(r rune) rune {
		if strings.ContainsRune(`:\/?*[]`, r) {
			return '-'
		}
		return r
	}, name)
	if len(name) > maxSheetName {
		name = name[len(name)-maxSheetName:]
	}

	candidate := name
	for i := 2; used[strings.ToLower(candidate)]; i++ {
		suffix := fmt.Sprintf("~%d", i)
		base := name
		if len(base)+len(suffix) > maxSheetName {
			base = base[:maxSheetName-len(suffix)]
		}
		candidate = base + suffix
	}
	used[strings.ToLower(candidate)] = true
	return candidate
}
