package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/carlot/internal/fetcher"
	"github.com/sells-group/carlot/internal/money"
)

func TestExportRow(t *testing.T) {
	vs := sampleVehicles()

	row := exportRow(vs[0], money.DefaultTable(), money.USD)
	require.Len(t, row, len(exportHeader))
	assert.Equal(t, "car_1", row[0])
	assert.Equal(t, "2019", row[3])
	assert.Equal(t, "8500000", row[4])
	assert.Equal(t, "$8,500,000", row[5])
	assert.Equal(t, "deal", row[10])
	assert.Equal(t, "2", row[11])

	row = exportRow(vs[1], money.DefaultTable(), money.USD)
	assert.Equal(t, "", row[3])
	assert.Equal(t, "", row[4])
	assert.Equal(t, money.NoPriceLabel, row[5])
}

func TestWriteWorkbook_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeWorkbook(&buf, sampleVehicles()[:1], money.DefaultTable(), money.USD))

	rows, err := fetcher.ReadXLSXRows(buf.Bytes(), fetcher.XLSXOptions{SheetName: "Cars"})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, exportHeader, rows[0])
	assert.Equal(t, "car_1", rows[1][0])
	assert.Equal(t, "Kia", rows[1][1])
}
