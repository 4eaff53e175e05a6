package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMarket(t *testing.T) {
	for _, m := range Markets {
		got, err := ParseMarket(m.String())
		require.NoError(t, err)
		assert.Equal(t, m, got)
	}
	got, err := ParseMarket(" ic ")
	require.NoError(t, err)
	assert.Equal(t, IntradayContinuous, got)

	_, err = ParseMarket("XX")
	assert.Error(t, err)
	assert.False(t, Market(7).Valid())
	assert.Equal(t, "Market(7)", Market(7).String())
}

func TestMarket_JSON(t *testing.T) {
	raw, err := json.Marshal(map[string]Market{"m": IntradayAuction})
	require.NoError(t, err)
	assert.JSONEq(t, `{"m":"IA"}`, string(raw))

	var back map[string]Market
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.Equal(t, IntradayAuction, back["m"])
}

func TestClosureFor(t *testing.T) {
	delivery := time.Date(2023, 3, 1, 6, 15, 0, 0, time.UTC)

	closure, ok := DefaultMarkets.ClosureFor(DayAhead, delivery)
	require.True(t, ok)
	assert.Equal(t, time.Date(2023, 2, 28, 11, 45, 0, 0, time.UTC), closure)

	closure, ok = DefaultMarkets.ClosureFor(IntradayAuction, delivery)
	require.True(t, ok)
	assert.Equal(t, time.Date(2023, 2, 28, 15, 45, 0, 0, time.UTC), closure)

	_, ok = DefaultMarkets.ClosureFor(IntradayContinuous, delivery)
	assert.False(t, ok)
}

func TestWithSlot(t *testing.T) {
	assert.Equal(t, 4, DefaultMarkets.Spec(DayAhead).GranularitySlots)
	assert.Equal(t, 2, DefaultMarkets.WithSlot(30*time.Minute).Spec(DayAhead).GranularitySlots)
	assert.Equal(t, 1, DefaultMarkets.WithSlot(2*time.Hour).Spec(DayAhead).GranularitySlots)
	assert.Equal(t, 1, DefaultMarkets.WithSlot(30*time.Minute).Spec(IntradayAuction).GranularitySlots)
}

func TestPricesMapByCode(t *testing.T) {
	p := Prices{DayAhead: 0.1, IntradayAuction: 0.2, IntradayContinuous: 0.3}
	assert.Equal(t, map[string]float64{"DA": 0.1, "IA": 0.2, "IC": 0.3}, p.MapByCode())
}
