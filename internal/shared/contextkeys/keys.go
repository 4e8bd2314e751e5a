package contextkeys

// contextKey is an unexported type to prevent collisions with context keys defined in
// other packages.
type contextKey string

// String makes contextKey satisfy the Stringer interface to assist with debugging.
func (c contextKey) String() string {
	return "verified-export context key " + string(c)
}

// RunIDKey is the key for the export run ID in context.Context
const RunIDKey = contextKey("runID")

// DatabaseKey is the key for the source database name in context.Context
const DatabaseKey = contextKey("database")

// CollectionKey is the key for the collection currently being exported
const CollectionKey = contextKey("collection")

// OperationKey is the key for the operation name used in log entries
const OperationKey = contextKey("operation")
