package model

import "time"

// CollectionResult is the outcome of exporting one collection.
type CollectionResult struct {
	Collection string        `json:"collection"`
	File       string        `json:"file,omitempty"`
	Rows       int           `json:"rows"`
	Duration   time.Duration `json:"duration"`
	Err        error         `json:"-"`
}

// Succeeded reports whether the collection's file was written completely.
func (r CollectionResult) Succeeded() bool {
	return r.Err == nil
}

// ExportSummary describes a whole export run.
type ExportSummary struct {
	RunID       string             `json:"run_id"`
	Database    string             `json:"database"`
	StartedAt   time.Time          `json:"started_at"`
	FinishedAt  time.Time          `json:"finished_at"`
	Collections []CollectionResult `json:"collections"`
}

// NewExportSummary starts a summary for a run.
func NewExportSummary(runID, database string, startedAt time.Time) *ExportSummary {
	return &ExportSummary{
		RunID:       runID,
		Database:    database,
		StartedAt:   startedAt,
		Collections: []CollectionResult{},
	}
}

// Add appends a collection result.
func (s *ExportSummary) Add(result CollectionResult) {
	s.Collections = append(s.Collections, result)
}

// Exported returns the names of collections whose files were written.
func (s *ExportSummary) Exported() []string {
	names := make([]string, 0, len(s.Collections))
	for _, c := range s.Collections {
		if c.Succeeded() {
			names = append(names, c.Collection)
		}
	}
	return names
}

// Failed returns the results of collections that could not be exported.
func (s *ExportSummary) Failed() []CollectionResult {
	var failed []CollectionResult
	for _, c := range s.Collections {
		if !c.Succeeded() {
			failed = append(failed, c)
		}
	}
	return failed
}

// TotalRows is the number of data rows written across all successful collections.
func (s *ExportSummary) TotalRows() int {
	total := 0
	for _, c := range s.Collections {
		if c.Succeeded() {
			total += c.Rows
		}
	}
	return total
}

// Duration is the wall time of the run, zero until it finishes.
func (s *ExportSummary) Duration() time.Duration {
	if s.FinishedAt.IsZero() {
		return 0
	}
	return s.FinishedAt.Sub(s.StartedAt)
}
