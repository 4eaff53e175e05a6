package agent

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"time"

	"go.uber.org/zap"

	"prosumer-sim/internal/forecast"
	"prosumer-sim/internal/model"
)

// greedy plans the next slot on IC and, at a gate closure, every slot of the
// next day on the closing market.
func (a *Agent) greedy() error {
	if err := a.planDecision(1, model.IntradayContinuous); err != nil {
		return err
	}
	spd := a.params.SlotsPerDay()
	for _, m := range []model.Market{model.IntradayAuction, model.DayAhead} {
		spec := a.params.Markets.Spec(m)
		if !spec.GateClosure || a.timeOfDay() != spec.Closure {
			continue
		}
		first := spd - a.timeOfDayIndex()
		for offset := first; offset < first+spd; offset++ {
			if err := a.planDecision(offset, m); err != nil {
				return err
			}
		}
	}
	return nil
}

// planDecision decides what to do with the slot offset steps ahead. eligible
// lists the markets for which this call is the last chance to offer; when a
// different market looks best the decision is deferred.
func (a *Agent) planDecision(offset int, eligible ...model.Market) error {
	e, err := a.buffer.Get(offset)
	if err != nil {
		return err
	}
	minSurplus, err := a.buffer.MinSurplusFrom(offset)
	if err != nil {
		return err
	}
	delivery := a.now.Add(time.Duration(offset) * a.params.Slot)
	prices := a.prices.Forecast(a.timeOfDayIndex(), offset)

	best := a.bestMarket(delivery, prices)
	if !slices.Contains(eligible, best) {
		return nil
	}
	bestPrice := prices[best]

	surplus := e.PV - e.Load + e.Discharge - e.Charge + e.GridDemand - e.GridSupply
	surplus -= a.ledger.ScheduledAt(delivery)
	if math.Abs(surplus) <= BalanceTolerance {
		surplus = 0
	}

	var d forecast.Delta
	if surplus < 0 {
		a.coverDeficit(&d, e.Battery, -surplus)
		return a.apply(offset, d)
	}

	bp := a.params.Battery
	usable := bp.Usable(e.Battery)
	minQty := a.params.MinOfferQuantity

	// too little energy for any offer
	if surplus+usable < minQty || surplus+minSurplus < minQty {
		a.storeOrExport(&d, e.Battery, surplus)
		return a.applyIfNext(offset, d)
	}

	if bestPrice < a.params.RetailPrice {
		if e.Battery+surplus <= bp.MaxKWh {
			d.Charge = surplus
			return a.applyIfNext(offset, d)
		}
		if bestPrice < a.params.FeedInTariff {
			d.GridSupply = surplus
			return a.applyIfNext(offset, d)
		}
		d.Discharge = math.Max(minQty-surplus, 0)
		return a.offer(offset, best, delivery, surplus+d.Discharge, bestPrice, d)
	}

	// never promise more than the tightest known future surplus
	if hold := math.Min(usable, minSurplus); hold >= 0 {
		d.Discharge = hold
	} else {
		d.Charge = math.Min(-hold, bp.Headroom(e.Battery))
	}
	return a.offer(offset, best, delivery, surplus+d.Discharge-d.Charge, bestPrice, d)
}

// bestMarket picks the highest forecast among the markets still open for
// delivery. Ties keep the market checked first.
func (a *Agent) bestMarket(delivery time.Time, prices model.Prices) model.Market {
	best := model.IntradayContinuous
	if !startOfDay(delivery).After(startOfDay(a.now)) {
		return best
	}
	tod := a.timeOfDay()
	for _, m := range model.Markets {
		spec := a.params.Markets.Spec(m)
		if !spec.GateClosure || tod > spec.Closure {
			continue
		}
		if prices[m] > prices[best] {
			best = m
		}
	}
	return best
}

// coverDeficit draws a deficit from the battery and imports the rest.
func (a *Agent) coverDeficit(d *forecast.Delta, battery, deficit float64) {
	usable := a.params.Battery.Usable(battery)
	if usable >= deficit {
		d.Discharge = deficit
		return
	}
	d.Discharge = usable
	d.GridDemand = deficit - usable
}

// storeOrExport charges a surplus into the battery and exports what does not fit.
func (a *Agent) storeOrExport(d *forecast.Delta, battery, surplus float64) {
	room := a.params.Battery.Headroom(battery)
	if surplus <= room {
		d.Charge = surplus
		return
	}
	d.Charge = room
	d.GridSupply = surplus - room
}

func (a *Agent) offer(offset int, m model.Market, delivery time.Time, qty, price float64, d forecast.Delta) error {
	c := model.Contract{Market: m, DeliveryTime: delivery, Quantity: qty, Price: price}
	a.ledger.Add(c)
	if a.market.PlaceOffer(c) {
		a.record(model.ActionPlaced, c)
	} else {
		a.record(model.ActionRejected, c)
		a.addViolation(Violation{
			Time:   a.now,
			Kind:   ViolationRejectedOffer,
			Detail: fmt.Sprintf("%s offer of %.6f kWh for %s rejected", m, qty, delivery.Format(time.RFC3339)),
		})
	}
	d.Delivered = qty
	return a.apply(offset, d)
}

// applyIfNext commits a non-market decision only for the very next slot;
// later slots are re-evaluated on a later pass.
func (a *Agent) applyIfNext(offset int, d forecast.Delta) error {
	if offset != 1 {
		return nil
	}
	return a.apply(offset, d)
}

func (a *Agent) apply(offset int, d forecast.Delta) error {
	e, err := a.buffer.Get(offset)
	if err != nil {
		return err
	}
	d = netFlows(e, d)
	if d == (forecast.Delta{}) {
		return nil
	}
	err = a.buffer.ApplyDelta(offset, d)
	var rerr *forecast.RebalanceError
	if errors.As(err, &rerr) {
		a.infeasible++
		a.log.Error("infeasible battery rebalancing",
			zap.Int("step", a.step),
			zap.Time("time", a.now),
			zap.Int("offset", offset),
			zap.Error(err),
		)
		return nil
	}
	return err
}

// netFlows rewrites d so that after it is applied the slot moves energy in at
// most one direction through the battery and through the grid. Opposing
// flows cancel, which may turn a component of d negative.
func netFlows(e forecast.Entry, d forecast.Delta) forecast.Delta {
	d.Charge, d.Discharge = netPair(e.Charge, e.Discharge, d.Charge, d.Discharge)
	d.GridDemand, d.GridSupply = netPair(e.GridDemand, e.GridSupply, d.GridDemand, d.GridSupply)
	return d
}

// netPair returns the deltas that take the committed in/out pair to its net
// value in a single direction.
func netPair(haveIn, haveOut, addIn, addOut float64) (in, out float64) {
	net := (haveIn + addIn) - (haveOut + addOut)
	if net > 0 {
		return net - haveIn, -haveOut
	}
	return -haveIn, -net - haveOut
}
