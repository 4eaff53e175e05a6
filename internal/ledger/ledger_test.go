package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prosumer-sim/internal/model"
)

var t0 = time.Date(2023, 1, 2, 12, 0, 0, 0, time.UTC)

func at(slots int) time.Time { return t0.Add(time.Duration(slots) * 15 * time.Minute) }

func TestScheduledAt(t *testing.T) {
	l := New()
	l.Add(model.Contract{Market: model.IntradayContinuous, DeliveryTime: at(1), Quantity: 10, Price: 0.3})
	l.Add(model.Contract{Market: model.DayAhead, DeliveryTime: at(1), Quantity: 5, Price: 0.2})
	l.Add(model.Contract{Market: model.DayAhead, DeliveryTime: at(2), Quantity: 7, Price: 0.2})

	assert.InDelta(t, 15, l.ScheduledAt(at(1)), 1e-12)
	assert.InDelta(t, 7, l.ScheduledAt(at(2)), 1e-12)
	assert.Zero(t, l.ScheduledAt(at(3)))
	assert.Equal(t, 3, l.Len())
}

func TestFulfillDue(t *testing.T) {
	l := New()
	a := model.Contract{Market: model.IntradayContinuous, DeliveryTime: at(1), Quantity: 10, Price: 0.3}
	b := model.Contract{Market: model.DayAhead, DeliveryTime: at(3), Quantity: 5, Price: 0.2}
	c := model.Contract{Market: model.DayAhead, DeliveryTime: at(2), Quantity: 4, Price: 0.25}
	l.Add(a)
	l.Add(b)
	l.Add(c)

	assert.Empty(t, l.FulfillDue(at(0)))

	done := l.FulfillDue(at(2))
	require.Len(t, done, 2)
	assert.True(t, done[0].Contract.Equal(a), "placement order is kept")
	assert.True(t, done[1].Contract.Equal(c))
	assert.True(t, done[0].SettledAt.Equal(at(2)))
	assert.Equal(t, "3", done[0].Revenue.String())
	assert.InDelta(t, 14, Delivered(done), 1e-12)

	require.Len(t, l.Open(), 1)
	assert.True(t, l.Open()[0].Equal(b))

	// fulfilled exactly once
	assert.Empty(t, l.FulfillDue(at(2)))

	assert.Equal(t, "3", l.Gains(model.IntradayContinuous).String())
	assert.Equal(t, "1", l.Gains(model.DayAhead).String())

	done = l.FulfillDue(at(10))
	require.Len(t, done, 1)
	assert.Equal(t, "2", l.Gains(model.DayAhead).String())
	assert.Zero(t, l.Len())
}

func TestOpen_IsACopy(t *testing.T) {
	l := New()
	l.Add(model.Contract{Quantity: 1})
	open := l.Open()
	open[0].Quantity = 5
	assert.InDelta(t, 1, l.Open()[0].Quantity, 1e-12)
}
