package export

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDataset() Dataset {
	ds := Dataset{Title: "Maintenance due", Headers: []string{"Registration", "Item", "Due"}}
	ds.AddRow("AB12CDE", "MOT", "2026-11-02")
	ds.AddRow("XY70ZZZ", "Tax")
	return ds
}

func TestCSVExporterRender(t *testing.T) {
	out, err := NewCSVExporter().Render(sampleDataset())
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Registration,Item,Due", lines[0])
	assert.Equal(t, "AB12CDE,MOT,2026-11-02", lines[1])
	assert.Equal(t, "XY70ZZZ,Tax,", lines[2])
}

func TestCSVExporterRequiresHeaders(t *testing.T) {
	_, err := NewCSVExporter().Render(Dataset{})
	require.Error(t, err)
}

func TestPDFExporterRender(t *testing.T) {
	ds := sampleDataset()
	ds.AddRow("LONG01", strings.Repeat("very long description ", 20), "2026-12-01")

	out, err := NewPDFExporter().Render(ds)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestColumnWidthsHonourMinimum(t *testing.T) {
	widths := columnWidths(Dataset{Headers: []string{"A", strings.Repeat("B", 80)}})
	require.Len(t, widths, 2)
	assert.GreaterOrEqual(t, widths[0], minColWidth)
	assert.Greater(t, widths[1], widths[0])
}
