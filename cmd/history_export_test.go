package main

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/trustgate/internal/model"
)

func exportEntries() []model.TrustHistoryEntry {
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	return []model.TrustHistoryEntry{
		{
			Score:       90,
			Verdict:     model.VerdictShip,
			Timestamp:   base,
			CommitHash:  "deadbeef",
			Fingerprint: "fp-a",
			Counts:      model.StatusCounts{Pass: 9, Fail: 1},
		},
		{
			Score:       72,
			Verdict:     model.VerdictWarn,
			Timestamp:   base.Add(time.Hour),
			Fingerprint: "fp-a",
			Counts:      model.StatusCounts{Pass: 7, Fail: 2, Unknown: 1},
		},
	}
}

func TestExportHistoryCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.csv")
	require.NoError(t, exportHistoryCSV(path, exportEntries()))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, historyExportHeader, rows[0])
	assert.Equal(t, "90", rows[1][1])
	assert.Equal(t, "SHIP", rows[1][2])
	assert.Equal(t, "deadbeef", rows[1][3])
	assert.Equal(t, "WARN", rows[2][2])
	assert.Equal(t, "1", rows[2][8], "unknown count lands in the last column")
}

func TestExportHistoryXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.xlsx")
	require.NoError(t, exportHistoryXLSX(path, exportEntries()))

	wb, err := xlsx.OpenFile(path)
	require.NoError(t, err)
	require.Len(t, wb.Sheets, 1)

	sheet := wb.Sheets[0]
	assert.Equal(t, "Trust History", sheet.Name)
	require.Len(t, sheet.Rows, 3)

	assert.Equal(t, "timestamp", sheet.Rows[0].Cells[0].String())
	assert.Equal(t, "90", sheet.Rows[1].Cells[1].String())
	assert.Equal(t, "SHIP", sheet.Rows[1].Cells[2].String())
	assert.Equal(t, "fp-a", sheet.Rows[2].Cells[4].String())
}

func TestExportHistoryCSV_Empty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.csv")
	require.NoError(t, exportHistoryCSV(path, nil))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 1, "header only")
}
