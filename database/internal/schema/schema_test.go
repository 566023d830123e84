package schema_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JohnyZhand/CoraBooks/database/internal/schema"
)

var want = schema.Table{
	"key":     {Type: "text"},
	"value":   {Type: "jsonb"},
	"version": {Type: "bigint"},
}

func TestCompare(t *testing.T) {
	t.Run("matching columns", func(t *testing.T) {
		got := schema.Table{
			"key":     {Type: "TEXT"},
			"value":   {Type: "jsonb"},
			"version": {Type: "bigint"},
			"extra":   {Type: "text", Nullable: true},
		}
		assert.NoError(t, schema.Compare("kv", want, got))
	})

	t.Run("missing table", func(t *testing.T) {
		err := schema.Compare("kv", want, nil)
		assert.ErrorIs(t, err, schema.ErrTableMissing)
	})

	t.Run("missing and mismatched columns", func(t *testing.T) {
		got := schema.Table{
			"key":   {Type: "text", Nullable: true},
			"value": {Type: "text"},
		}
		err := schema.Compare("kv", want, got)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "missing columns: version")
		assert.Contains(t, err.Error(), "key: expected nullable=false, got nullable=true")
		assert.Contains(t, err.Error(), "value: expected jsonb, got text")
	})
}
