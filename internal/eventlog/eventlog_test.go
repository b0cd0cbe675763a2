package eventlog

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readLogLines(t *testing.T, logDir string) []string {
	t.Helper()

	entries, err := os.ReadDir(logDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	data, err := os.ReadFile(filepath.Join(logDir, entries[0].Name()))
	require.NoError(t, err)

	return strings.Split(strings.TrimSpace(string(data)), "\n")
}

func TestLogEventWritesJSONLines(t *testing.T) {
	logDir := t.TempDir()
	require.NoError(t, reinitializeForTest(logDir))
	defer CloseGlobal()

	err := LogEvent(Event{
		EventType:  EventTypeExecutionCompleted,
		Backend:    "bubblewrap",
		Command:    "echo",
		ExitCode:   0,
		DurationMs: 12,
	})
	require.NoError(t, err)

	err = LogEvent(Event{
		EventType: EventTypeExecutionTimedOut,
		Backend:   "container",
		Command:   "sleep",
		ExitCode:  -1,
	})
	require.NoError(t, err)

	lines := readLogLines(t, logDir)
	require.Len(t, lines, 2)

	var first Event
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, EventTypeExecutionCompleted, first.EventType)
	assert.Equal(t, "bubblewrap", first.Backend)
	assert.Equal(t, "echo", first.Command)
	assert.Equal(t, int64(12), first.DurationMs)
	assert.False(t, first.Timestamp.IsZero())

	var second Event
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &second))
	assert.Equal(t, EventTypeExecutionTimedOut, second.EventType)
	assert.Equal(t, -1, second.ExitCode)
}

func TestLogEventPreservesExplicitTimestamp(t *testing.T) {
	logDir := t.TempDir()
	require.NoError(t, reinitializeForTest(logDir))
	defer CloseGlobal()

	stamp := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, LogEvent(Event{
		EventType: EventTypeError,
		Timestamp: stamp,
	}))

	lines := readLogLines(t, logDir)
	require.Len(t, lines, 1)

	var event Event
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &event))
	assert.True(t, stamp.Equal(event.Timestamp))
}

func TestLogEventAfterCloseIsNoop(t *testing.T) {
	logDir := t.TempDir()
	require.NoError(t, reinitializeForTest(logDir))

	require.NoError(t, CloseGlobal())

	assert.NoError(t, LogEvent(Event{EventType: EventTypeExecutionCompleted}))
	assert.NoError(t, CloseGlobal())
}

func TestLogConcurrentWithClose(t *testing.T) {
	logDir := t.TempDir()

	logger := &Logger{}
	require.NoError(t, logger.init(logDir))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				logger.Log(Event{EventType: EventTypeExecutionCompleted})
			}
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		logger.Close()
	}()
	wg.Wait()

	assert.NoError(t, logger.Close())
}

func TestCleanupOldLogs(t *testing.T) {
	logDir := t.TempDir()

	oldFile := filepath.Join(logDir, "20200101-cage.log")
	require.NoError(t, os.WriteFile(oldFile, []byte("{}\n"), 0o644))
	oldTime := time.Now().AddDate(0, 0, -30)
	require.NoError(t, os.Chtimes(oldFile, oldTime, oldTime))

	unrelated := filepath.Join(logDir, "keep.txt")
	require.NoError(t, os.WriteFile(unrelated, []byte("keep"), 0o644))
	require.NoError(t, os.Chtimes(unrelated, oldTime, oldTime))

	logger := &Logger{retentionDays: 7}
	logger.cleanupOldLogs(logDir)

	_, err := os.Stat(oldFile)
	assert.True(t, os.IsNotExist(err), "expired log file must be removed")

	_, err = os.Stat(unrelated)
	assert.NoError(t, err, "unrelated files must be left alone")
}
