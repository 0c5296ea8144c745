package workers

import "gsc_coverage/models"

// LogFunc forwards a worker message to the scrape_logs table. source lands
// in the property column.
type LogFunc func(level models.LogLevel, source, message string)

var NoOpLogger LogFunc = func(level models.LogLevel, source, message string) {}
