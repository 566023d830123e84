package corabooks_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JohnyZhand/CoraBooks"
)

func TestFileRecord_ReadyState(t *testing.T) {
	yes, no := true, false

	tests := []struct {
		name    string
		ready   *bool
		isReady bool
		pending bool
	}{
		{name: "legacy record without flag", ready: nil, isReady: true, pending: false},
		{name: "committed record", ready: &yes, isReady: true, pending: false},
		{name: "pending record", ready: &no, isReady: false, pending: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := corabooks.FileRecord{Ready: tt.ready}
			assert.Equal(t, tt.isReady, rec.IsReady())
			assert.Equal(t, tt.pending, rec.IsPending())
		})
	}
}

func TestFileRecord_Age(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	rec := corabooks.FileRecord{UploadedAt: now.Add(-2 * time.Hour)}
	assert.Equal(t, 2*time.Hour, rec.Age(now))

	zero := corabooks.FileRecord{}
	assert.Greater(t, zero.Age(now), 100*365*24*time.Hour)
}

func TestDecodeRecords(t *testing.T) {
	t.Run("empty and null documents", func(t *testing.T) {
		for _, doc := range []string{"", "  ", "null", "[]"} {
			records, err := corabooks.DecodeRecords([]byte(doc))
			require.NoError(t, err, "document %q", doc)
			assert.NotNil(t, records)
			assert.Empty(t, records)
		}
	})

	t.Run("legacy field names", func(t *testing.T) {
		doc := `[{"id":"a","b2FileName":"a.pdf","filename":"Old Book.pdf","size":12,
			"uploadedAt":"2024-01-02T03:04:05Z","coverB2Name":"a.cover.jpg"}]`

		records, err := corabooks.DecodeRecords([]byte(doc))
		require.NoError(t, err)
		require.Len(t, records, 1)

		rec := records[0]
		assert.Equal(t, "a.pdf", rec.StorageObjectName)
		assert.Equal(t, "Old Book.pdf", rec.DisplayName)
		assert.Equal(t, "Old Book.pdf", rec.OriginalName)
		assert.Equal(t, "a.cover.jpg", rec.CoverObjectName)
		assert.Nil(t, rec.Ready)
		assert.True(t, rec.IsReady())
	})

	t.Run("current field names win over legacy ones", func(t *testing.T) {
		doc := `[{"id":"a","storageObjectName":"new.pdf","b2FileName":"old.pdf","displayName":"Title","filename":"x.pdf","ready":false}]`

		records, err := corabooks.DecodeRecords([]byte(doc))
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, "new.pdf", records[0].StorageObjectName)
		assert.Equal(t, "Title", records[0].DisplayName)
		assert.True(t, records[0].IsPending())
	})

	t.Run("malformed document", func(t *testing.T) {
		_, err := corabooks.DecodeRecords([]byte(`{"id":"a"}`))
		assert.Error(t, err)
	})
}

func TestEncodeRecords(t *testing.T) {
	data, err := corabooks.EncodeRecords(nil)
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(data))

	data, err = corabooks.EncodeRecords([]corabooks.FileRecord{{ID: "a", StorageObjectName: "a.pdf"}})
	require.NoError(t, err)
	assert.NotContains(t, string(data), `"ready"`)
	assert.Contains(t, string(data), `"storageObjectName":"a.pdf"`)
}

func TestCloneRecords(t *testing.T) {
	ready := false
	src := []corabooks.FileRecord{{ID: "a", Ready: &ready}}

	out := corabooks.CloneRecords(src)
	*out[0].Ready = true

	assert.False(t, *src[0].Ready)
}

func TestIsValidTableName(t *testing.T) {
	tests := []struct {
		name  string
		table string
		valid bool
	}{
		{name: "simple", table: "corabooks_metadata", valid: true},
		{name: "leading underscore", table: "_meta", valid: true},
		{name: "uppercase", table: "Meta", valid: false},
		{name: "leading digit", table: "1meta", valid: false},
		{name: "hyphen", table: "meta-data", valid: false},
		{name: "quote injection", table: `meta"; drop`, valid: false},
		{name: "too long", table: "a123456789012345678901234567890123456789012345678901234567890123", valid: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.valid, corabooks.IsValidTableName(tt.table))
		})
	}
}

func TestTables_Validate(t *testing.T) {
	assert.NoError(t, corabooks.Tables{MetaData: "corabooks_metadata"}.Validate())
	assert.Error(t, corabooks.Tables{}.Validate())
	assert.Error(t, corabooks.Tables{MetaData: "Bad-Name"}.Validate())
}
