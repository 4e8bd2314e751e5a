package model

import "time"

// EventType names an export lifecycle event.
type EventType string

const (
	EventCollectionExported EventType = "collection_exported"
	EventCollectionFailed   EventType = "collection_failed"
	EventExportFinished     EventType = "export_finished"
)

// ExportEvent is published after each collection and once at the end of a run.
type ExportEvent struct {
	Type       EventType `json:"type"`
	RunID      string    `json:"run_id"`
	Database   string    `json:"database"`
	Collection string    `json:"collection,omitempty"`
	File       string    `json:"file,omitempty"`
	Rows       int       `json:"rows"`
	Error      string    `json:"error,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// NewCollectionEvent builds the event for a finished collection.
func NewCollectionEvent(runID, database string, result CollectionResult, at time.Time) ExportEvent {
	event := ExportEvent{
		Type:       EventCollectionExported,
		RunID:      runID,
		Database:   database,
		Collection: result.Collection,
		File:       result.File,
		Rows:       result.Rows,
		Timestamp:  at,
	}
	if result.Err != nil {
		event.Type = EventCollectionFailed
		event.File = ""
		event.Error = result.Err.Error()
	}
	return event
}

// NewFinishedEvent builds the end-of-run event.
func NewFinishedEvent(summary *ExportSummary, at time.Time) ExportEvent {
	event := ExportEvent{
		Type:      EventExportFinished,
		RunID:     summary.RunID,
		Database:  summary.Database,
		Rows:      summary.TotalRows(),
		Timestamp: at,
	}
	if failed := summary.Failed(); len(failed) > 0 {
		event.Error = failed[0].Err.Error()
	}
	return event
}
