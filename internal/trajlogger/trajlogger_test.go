package trajlogger

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteCreatesFileUnderKeyHashDir(t *testing.T) {
	base := t.TempDir()
	l := New(base)

	status := "success"
	model := "gpt-4"
	rec := Record{
		Status:    &status,
		KeyHash:   "abcdefabcdefabcdefab1234extra",
		StartTime: 1700000000.5,
		Model:     &model,
	}

	l.Write(rec)

	dir := filepath.Join(base, "abcdefabcdefabcdefab")
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, strings.HasSuffix(entries[0].Name(), ".json"))
	assert.True(t, strings.HasPrefix(entries[0].Name(), "1700000000500_"))

	data, err := os.ReadFile(filepath.Join(dir, entries[0].Name()))
	require.NoError(t, err)

	var decoded Record
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "success", *decoded.Status)
	assert.Equal(t, "gpt-4", *decoded.Model)
}

func TestWriteMissingKeyHashIsNoop(t *testing.T) {
	base := t.TempDir()
	l := New(base)

	l.Write(Record{StartTime: Now()})

	entries, err := os.ReadDir(base)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestWriteFallsBackOnMarshalFailure(t *testing.T) {
	base := t.TempDir()
	l := New(base)

	rec := Record{
		KeyHash:   "deadbeefdeadbeefdead",
		StartTime: 1700000001,
		// functions cannot be marshaled to JSON, forcing the fallback path.
		UsageObject: func() {},
	}

	l.Write(rec)

	dir := filepath.Join(base, "deadbeefdeadbeefdead")
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	data, err := os.ReadFile(filepath.Join(dir, entries[0].Name()))
	require.NoError(t, err)

	var fb fallbackRecord
	require.NoError(t, json.Unmarshal(data, &fb))
	assert.Equal(t, "exception", fb.Status)
	assert.NotEmpty(t, fb.ExceptionType)
}

func TestNowReturnsPositiveEpochSeconds(t *testing.T) {
	assert.Greater(t, Now(), float64(1_700_000_000))
}
