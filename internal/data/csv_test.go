package data

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var from = time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)

func TestReadPrices(t *testing.T) {
	in := "\ufeffTime;Price\n" +
		"2023-01-01 23:00:00;99\n" +
		"2023-01-02 00:00:00;120,5\n" +
		"2023-01-02 01:00:00;-10\n"
	points, err := ReadPrices(strings.NewReader(in), from)
	require.NoError(t, err)
	require.Len(t, points, 2)
	assert.Equal(t, from, points[0].Time)
	assert.InDelta(t, 0.1205, points[0].Value, 1e-12)
	assert.InDelta(t, -0.01, points[1].Value, 1e-12)
}

func TestReadLoad_DropsBlankRows(t *testing.T) {
	in := "Time;Sum [kWh];Other\n" +
		"2023-01-02 00:00:00;0.25;x\n" +
		"2023-01-02 00:15:00;;x\n" +
		"2023-01-02 00:30:00;0.3;x\n"
	points, err := ReadLoad(strings.NewReader(in), from)
	require.NoError(t, err)
	assert.Equal(t, []float64{0.25, 0.3}, Values(points))
}

func TestReadPV_Scale(t *testing.T) {
	in := "date,MW\n2023-01-02T00:00:00Z,100\n2023-01-02T00:15:00Z,50\n"
	points, err := ReadPV(strings.NewReader(in), from, 0.01)
	require.NoError(t, err)
	require.Len(t, points, 2)
	assert.InDelta(t, 1, points[0].Value, 1e-12)
	assert.InDelta(t, 0.5, points[1].Value, 1e-12)
}

func TestReadSeries_Errors(t *testing.T) {
	_, err := ReadPrices(strings.NewReader(""), from)
	assert.Error(t, err)

	_, err = ReadPrices(strings.NewReader("Time;Value\n2023-01-02 00:00:00;1\n"), from)
	assert.ErrorContains(t, err, "missing column")

	_, err = ReadPrices(strings.NewReader("Time;Price\nlater;1\n"), from)
	assert.ErrorContains(t, err, "line 2")

	_, err = ReadPrices(strings.NewReader("Time;Price\n2023-01-02 00:00:00;\n"), from)
	assert.ErrorContains(t, err, "empty value")

	_, err = ReadPrices(strings.NewReader("Time;Price\n2023-01-02 00:00:00;abc\n"), from)
	assert.ErrorContains(t, err, "abc")
}
