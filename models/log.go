package models

import "time"

type LogLevel string

const (
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

type ScrapeLog struct {
	ID        int64     `json:"id" db:"id"`
	RunID     *int64    `json:"run_id" db:"run_id"`
	Timestamp time.Time `json:"timestamp" db:"timestamp"`
	Level     LogLevel  `json:"level" db:"level"`
	Message   string    `json:"message" db:"message"`
	Property  string    `json:"property" db:"property"`
}

var levelRank = map[LogLevel]int{LogLevelInfo: 0, LogLevelWarn: 1, LogLevelError: 2}

// AtLeast reports whether l is as severe as min. Unknown levels pass.
func (l LogLevel) AtLeast(min LogLevel) bool {
	want, ok := levelRank[min]
	if !ok {
		return true
	}
	return levelRank[l] >= want
}
