package repository

import (
	"context"

	"verified-export/internal/export/domain/model"
)

// RecordHandler is called once per matching record, in query order.
// Returning an error stops the iteration and is passed back to the caller.
type RecordHandler func(record *model.Record) error

// RecordSource reads the collections and verified records of one database.
type RecordSource interface {
	// ListCollections returns the exportable collection names in catalog order,
	// with system collections already removed.
	ListCollections(ctx context.Context) ([]string, error)
	// StreamVerified runs the verified == true query against collection and
	// hands each record to fn.
	StreamVerified(ctx context.Context, collection string, fn RecordHandler) error
}

// RowWriter writes one collection's CSV output.
// Close must always be called; it discards the output unless Commit succeeded first.
type RowWriter interface {
	WriteHeader() error
	Write(row model.Row) error
	Commit() error
	Close() error
	// Path is the final location of the file.
	Path() string
}

// RowSink opens a RowWriter per collection.
type RowSink interface {
	Create(collection string) (RowWriter, error)
}

// EventPublisher delivers export lifecycle events to downstream consumers.
type EventPublisher interface {
	Publish(ctx context.Context, event model.ExportEvent) error
	Close() error
}
