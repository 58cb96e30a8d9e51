package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/carlot/internal/model"
	"github.com/sells-group/carlot/internal/money"
)

func intp(n int) *int           { return &n }
func floatp(f float64) *float64 { return &f }

func sampleVehicles() []model.Vehicle {
	return []model.Vehicle{
		{ID: "car_1", Brand: "Kia", Model: "Rio", Year: intp(2019), Price: floatp(8_500_000), Mileage: intp(42000), FuelType: "Petrol", PhotoURLs: []string{"a", "b"}},
		{ID: "car_2", Brand: "BMW", Model: "X5", Price: nil},
	}
}

func TestToRows(t *testing.T) {
	rows := toRows(sampleVehicles(), money.DefaultTable(), money.USD)
	require.Len(t, rows, 2)

	assert.Equal(t, "Kia Rio", rows[0].Title)
	assert.Equal(t, "$8,500,000", rows[0].Price)
	assert.Equal(t, model.CategoryDeal, rows[0].Category)
	assert.Equal(t, 2, rows[0].Photos)

	assert.Equal(t, money.NoPriceLabel, rows[1].Price)
	assert.Equal(t, model.CategoryPremium, rows[1].Category)
}

func TestWriteVehicles_Table(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeVehicles(&buf, formatTable, toRows(sampleVehicles(), money.DefaultTable(), money.USD)))

	out := buf.String()
	assert.Contains(t, out, "ID")
	assert.Contains(t, out, "Kia Rio")
	assert.Contains(t, out, "42000")
	assert.Contains(t, out, "-")
}

func TestWriteVehicles_JSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeVehicles(&buf, formatJSON, toRows(sampleVehicles(), money.DefaultTable(), money.USD)))

	var rows []vehicleRow
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rows))
	require.Len(t, rows, 2)
	assert.Equal(t, "car_2", rows[1].ID)
	assert.Nil(t, rows[1].Year)
}

func TestWriteVehicles_YAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeVehicles(&buf, formatYAML, toRows(sampleVehicles(), money.DefaultTable(), money.RUB)))

	var rows []vehicleRow
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &rows))
	require.Len(t, rows, 2)
	assert.Equal(t, "Kia Rio", rows[0].Title)
	assert.True(t, strings.HasPrefix(rows[0].Price, "₽"))
}

func TestWriteVehicles_UnknownFormat(t *testing.T) {
	var buf bytes.Buffer
	err := writeVehicles(&buf, "xml", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "xml")
}

func TestTruncateID(t *testing.T) {
	assert.Equal(t, "12345678", truncateID("1234567890"))
	assert.Equal(t, "abc", truncateID("abc"))
}
