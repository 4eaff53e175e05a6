// Package ledger tracks open market contracts until delivery.
package ledger

import (
	"time"

	"github.com/shopspring/decimal"

	"prosumer-sim/internal/model"
)

// Fulfillment is a contract settled at delivery.
type Fulfillment struct {
	Contract  model.Contract
	SettledAt time.Time
	Revenue   decimal.Decimal
}

// Ledger holds open contracts in placement order and the gains booked per market.
type Ledger struct {
	open  []model.Contract
	gains [model.NumMarkets]decimal.Decimal
}

func New() *Ledger { return &Ledger{} }

func (l *Ledger) Add(c model.Contract) { l.open = append(l.open, c) }

func (l *Ledger) Len() int { return len(l.open) }

// Open returns a copy of the open contracts.
func (l *Ledger) Open() []model.Contract {
	out := make([]model.Contract, len(l.open))
	copy(out, l.open)
	return out
}

// ScheduledAt sums the quantity of open contracts delivering at t.
func (l *Ledger) ScheduledAt(t time.Time) float64 {
	sum := 0.0
	for _, c := range l.open {
		if c.DeliveryTime.Equal(t) {
			sum += c.Quantity
		}
	}
	return sum
}

// FulfillDue settles every contract due at or before now and removes it.
func (l *Ledger) FulfillDue(now time.Time) []Fulfillment {
	var done []Fulfillment
	kept := l.open[:0]
	for _, c := range l.open {
		if c.DeliveryTime.After(now) {
			kept = append(kept, c)
			continue
		}
		rev := decimal.NewFromFloat(c.Price).Mul(decimal.NewFromFloat(c.Quantity))
		l.gains[c.Market] = l.gains[c.Market].Add(rev)
		done = append(done, Fulfillment{Contract: c, SettledAt: now, Revenue: rev})
	}
	// drop stale references in the tail
	for i := len(kept); i < len(l.open); i++ {
		l.open[i] = model.Contract{}
	}
	l.open = kept
	return done
}

func (l *Ledger) Gains(m model.Market) decimal.Decimal { return l.gains[m] }

// Delivered sums the quantity of a batch of fulfillments.
func Delivered(fs []Fulfillment) float64 {
	sum := 0.0
	for _, f := range fs {
		sum += f.Contract.Quantity
	}
	return sum
}
