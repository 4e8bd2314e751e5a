package contextkeys

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContextKey_String(t *testing.T) {
	key := contextKey("testKey")
	assert.Equal(t, "verified-export context key testKey", key.String())
}

func TestContextKeys_Usage(t *testing.T) {
	ctx := context.Background()
	ctx = context.WithValue(ctx, RunIDKey, "run-123")
	ctx = context.WithValue(ctx, DatabaseKey, "attendance")
	ctx = context.WithValue(ctx, CollectionKey, "students")
	ctx = context.WithValue(ctx, OperationKey, "query")

	assert.Equal(t, "run-123", ctx.Value(RunIDKey))
	assert.Equal(t, "attendance", ctx.Value(DatabaseKey))
	assert.Equal(t, "students", ctx.Value(CollectionKey))
	assert.Equal(t, "query", ctx.Value(OperationKey))
}

func TestContextKeys_Distinct(t *testing.T) {
	ctx := context.WithValue(context.Background(), RunIDKey, "run-1")

	assert.Nil(t, ctx.Value(CollectionKey))
	assert.Nil(t, ctx.Value(contextKey("other")))
}
