package main

import (
	"fmt"
	"io"
	"strings"

	"gsc_coverage/models"
)

var commandNames = map[string]models.CommandType{
	string(models.CmdScrapeNow):      models.CmdScrapeNow,
	string(models.CmdScrapeProperty): models.CmdScrapeProperty,
	string(models.CmdPause):          models.CmdPause,
	string(models.CmdResume):         models.CmdResume,
	string(models.CmdUploadExports):  models.CmdUploadExports,
}

type commandQueue interface {
	EnqueueCommand(cmd models.CommandType, params *models.CommandParams) error
}

// enqueue hands a command to a running daemon through the SQLite queue.
func enqueue(q commandQueue, name, property string) error {
	cmd, ok := commandNames[strings.TrimSpace(name)]
	if !ok {
		return fmt.Errorf("unknown command %q", name)
	}
	var params *models.CommandParams
	if property != "" {
		params = &models.CommandParams{Property: property}
	}
	return q.EnqueueCommand(cmd, params)
}

type statusStore interface {
	GetRun(id int64) (*models.ScrapeRun, error)
	GetLogs(runID int64) ([]models.ScrapeLog, error)
	GetPropertyStats(property string) (*models.PropertyStats, error)
}

// printReport writes a run's counters and log followed by the latest stats of
// each property.
func printReport(w io.Writer, store statusStore, runID int64, properties []string) error {
	run, err := store.GetRun(runID)
	if err != nil {
		return fmt.Errorf("get run: %w", err)
	}
	if run == nil {
		return fmt.Errorf("run %d not found", runID)
	}

	fmt.Fprintf(w, "Run %d: %s, started %s\n", run.ID, run.Status, run.StartedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(w, "  properties=%d reports=%d urls=%d sitemaps=%d errors=%d\n",
		run.PropertyCount, run.ReportsFound, run.URLsExtracted, run.SitemapsWalked, run.ErrorsCount)

	logs, err := store.GetLogs(runID)
	if err != nil {
		return fmt.Errorf("get logs: %w", err)
	}
	for _, l := range logs {
		if l.Property != "" {
			fmt.Fprintf(w, "  [%s] %s: %s\n", l.Level, l.Property, l.Message)
		} else {
			fmt.Fprintf(w, "  [%s] %s\n", l.Level, l.Message)
		}
	}

	for _, p := range properties {
		st, err := store.GetPropertyStats(p)
		if err != nil {
			return fmt.Errorf("stats for %s: %w", p, err)
		}
		if st == nil {
			fmt.Fprintf(w, "%s: never scraped\n", p)
			continue
		}
		fmt.Fprintf(w, "%s: %s, %d reports, %d/%d URLs, %d sitemaps, ~%ds per run\n",
			p, st.LastRunStatus, st.ReportsFound, st.URLsExtracted, st.DeclaredTotal,
			st.SitemapsWalked, st.AvgRunDurationSec)
	}
	return nil
}
