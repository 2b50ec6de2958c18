package history

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sefip-robot/src/audit"
)

func rec(period, status string, end time.Time) audit.Record {
	return audit.Record{Start: end.Add(-time.Minute), Period: period, Amount: "300", End: end, Status: status}
}

func TestLastSuccessAcrossRuns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db", "historico.db")
	day := time.Date(2026, 1, 20, 10, 0, 0, 0, time.Local)

	first, err := Open(path, "run-1")
	require.NoError(t, err)
	require.NoError(t, first.Append(rec("01/2006", audit.StatusSuccess, day)))
	require.NoError(t, first.Append(rec("02/2006", audit.StatusPartial, day)))
	require.NoError(t, first.Close())

	second, err := Open(path, "run-2")
	require.NoError(t, err)
	defer second.Close()

	end, ok, err := second.LastSuccess("01/2006")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "2026-01-20 10:00:00", end)

	_, ok, err = second.LastSuccess("02/2006")
	require.NoError(t, err)
	assert.False(t, ok, "partial runs do not count")

	// rows of the current run are ignored
	require.NoError(t, second.Append(rec("03/2006", audit.StatusSuccess, day)))
	_, ok, err = second.LastSuccess("03/2006")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRecentNewestFirst(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "h.db"), "run-1")
	require.NoError(t, err)
	defer s.Close()

	day := time.Date(2026, 1, 20, 10, 0, 0, 0, time.Local)
	require.NoError(t, s.Append(rec("01/2006", audit.StatusSuccess, day)))
	require.NoError(t, s.Append(rec("02/2006", audit.ErrorStatus("x"), day.Add(time.Hour))))

	got, err := s.Recent(10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "02/2006", got[0].Period)
	assert.Equal(t, "erro: x", got[0].Status)
	assert.Equal(t, "run-1", got[1].RunID)
	assert.True(t, got[1].End.Equal(day))
}
