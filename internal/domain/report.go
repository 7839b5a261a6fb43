package domain

import "time"

// Report is the time-averaged summary of one forecast center over a set of
// cycles, ready for a presentation consumer.
type Report struct {
	RunID       string       `json:"run_id"`
	Center      string       `json:"center"`
	Cycles      []int        `json:"cycles,omitempty"`
	Start       time.Time    `json:"start,omitzero"`
	End         time.Time    `json:"end,omitzero"`
	Mean        BulkTable    `json:"mean"`
	Std         BulkTable    `json:"std"`
	Summary     SummaryTable `json:"summary"`
	GeneratedAt time.Time    `json:"generated_at"`
}

// NewReport derives the summary metrics from the time-mean table and stamps
// the report with the current time.
func NewReport(runID, center string, mean, std BulkTable) Report {
	return Report{
		RunID:       runID,
		Center:      center,
		Mean:        mean,
		Std:         std,
		Summary:     SummaryMetrics(mean),
		GeneratedAt: clock.Now().UTC(),
	}
}
