package utils

import (
	"context"
	"errors"

	"verified-export/internal/shared/contextkeys"
)

// Common context errors
var (
	ErrRunIDNotFound  = errors.New("runID not found in context")
	ErrRunIDNotString = errors.New("runID in context is not a string")
)

// GetRunIDFromContext retrieves the export run ID from the context.
// It returns the run ID and an error if it is not found or is not a string.
func GetRunIDFromContext(ctx context.Context) (string, error) {
	val := ctx.Value(contextkeys.RunIDKey)
	if val == nil {
		return "", ErrRunIDNotFound
	}
	runID, ok := val.(string)
	if !ok {
		return "", ErrRunIDNotString
	}
	return runID, nil
}

// GetRunIDOrDefault retrieves the run ID from context or returns def when it
// is missing or empty.
func GetRunIDOrDefault(ctx context.Context, def string) string {
	if v, err := GetRunIDFromContext(ctx); err == nil && v != "" {
		return v
	}
	return def
}

// Context builder functions

// WithRunID adds the export run ID to context
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, contextkeys.RunIDKey, runID)
}

// WithDatabase adds the source database name to context
func WithDatabase(ctx context.Context, database string) context.Context {
	return context.WithValue(ctx, contextkeys.DatabaseKey, database)
}

// WithCollection adds the collection name to context
func WithCollection(ctx context.Context, collection string) context.Context {
	return context.WithValue(ctx, contextkeys.CollectionKey, collection)
}

// WithOperation adds operation name to context
func WithOperation(ctx context.Context, operation string) context.Context {
	return context.WithValue(ctx, contextkeys.OperationKey, operation)
}
