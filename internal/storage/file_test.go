package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileRecorder_AppendAndLoad(t *testing.T) {
	p := filepath.Join(t.TempDir(), "archive", "exchanges.jsonl")
	rec, err := NewFileRecorder(p)
	require.NoError(t, err)

	ex1 := Exchange{Timestamp: time.Unix(1, 0).UTC(), TurnID: "t1", UserMessage: "hi", AssistantResponse: "hello"}
	ex2 := Exchange{Timestamp: time.Unix(2, 0).UTC(), TurnID: "t2", UserMessage: "foo", AssistantResponse: "bar"}
	require.NoError(t, rec.AppendExchange(ex1))
	require.NoError(t, rec.AppendExchange(ex2))

	got, err := rec.LoadExchanges()
	require.NoError(t, err)
	assert.Equal(t, []Exchange{ex1, ex2}, got)
}

func TestFileRecorder_SkipsMalformedLines(t *testing.T) {
	p := filepath.Join(t.TempDir(), "exchanges.jsonl")
	require.NoError(t, os.WriteFile(p, []byte("garbage\n\n{\"turn_id\":\"ok\"}\n"), 0o600))

	rec, err := NewFileRecorder(p)
	require.NoError(t, err)

	got, err := rec.LoadExchanges()
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "ok", got[0].TurnID)
}

func TestFileRecorder_EmptyArchive(t *testing.T) {
	rec, err := NewFileRecorder(filepath.Join(t.TempDir(), "exchanges.jsonl"))
	require.NoError(t, err)

	got, err := rec.LoadExchanges()
	require.NoError(t, err)
	assert.Empty(t, got)
}
