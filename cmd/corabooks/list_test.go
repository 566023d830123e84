package main

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/JohnyZhand/CoraBooks"
)

func sampleRecords() []corabooks.FileRecord {
	ready := true
	return []corabooks.FileRecord{
		{
			ID:                "id-1",
			StorageObjectName: "id-1.pdf",
			DisplayName:       "Dune",
			OriginalName:      "dune.pdf",
			ContentType:       "application/pdf",
			Size:              1000,
			UploadedAt:        time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
			Ready:             &ready,
			CoverObjectName:   "covers/id-1.jpg",
		},
		{
			ID:                "id-2",
			StorageObjectName: "id-2.epub",
			DisplayName:       "The Hobbit",
			OriginalName:      "hobbit.epub",
			ContentType:       "application/epub+zip",
			Size:              2000,
			UploadedAt:        time.Date(2025, 3, 2, 8, 30, 0, 0, time.UTC),
		},
	}
}

func TestPrintRecords_Table(t *testing.T) {
	var buf bytes.Buffer

	require.NoError(t, printRecords(&buf, sampleRecords(), "table"))

	out := buf.String()
	assert.Contains(t, out, "ID")
	assert.Contains(t, out, "The Hobbit")
	assert.Contains(t, out, "2025-03-01T12:00:00Z")
}

func TestPrintRecords_TableEmpty(t *testing.T) {
	var buf bytes.Buffer

	require.NoError(t, printRecords(&buf, nil, "table"))

	assert.Equal(t, "no books\n", buf.String())
}

func TestPrintRecords_JSON(t *testing.T) {
	var buf bytes.Buffer

	require.NoError(t, printRecords(&buf, sampleRecords(), "json"))

	var got []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	require.Len(t, got, 2)
	assert.Equal(t, "id-1", got[0]["id"])
	assert.Equal(t, "Dune", got[0]["displayName"])
	assert.Equal(t, true, got[0]["ready"])
	assert.NotContains(t, got[1], "ready")
}

func TestPrintRecords_YAML(t *testing.T) {
	var buf bytes.Buffer

	require.NoError(t, printRecords(&buf, sampleRecords(), "yaml"))

	var got []listEntry
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &got))
	require.Len(t, got, 2)
	assert.Equal(t, "dune.pdf", got[0].FileName)
	assert.True(t, got[0].Cover)
	assert.False(t, got[1].Cover)
	assert.Equal(t, "2025-03-02T08:30:00Z", got[1].UploadedAt)
}

func TestPrintRecords_UnknownFormat(t *testing.T) {
	var buf bytes.Buffer

	err := printRecords(&buf, nil, "xml")

	assert.Error(t, err)
}
