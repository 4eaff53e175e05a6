// Package agent implements the household's greedy market decision engine.
package agent

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"prosumer-sim/internal/forecast"
	"prosumer-sim/internal/ledger"
	"prosumer-sim/internal/model"
	"prosumer-sim/internal/pricing"
)

// Market is the exchange the agent trades on. CurrentPrices publishes the
// realized prices of the next slot and advances the market clock.
type Market interface {
	CurrentPrices() (model.Prices, error)
	PlaceOffer(c model.Contract) bool
}

// Household supplies PV and load observations in calendar order.
type Household interface {
	NextPV() (float64, error)
	NextLoad() (float64, error)
}

// Params configures the agent. Prices are €/kWh, energies kWh.
type Params struct {
	Start   time.Time
	Slot    time.Duration
	Battery model.BatteryParams
	Markets model.MarketTable

	MinOfferQuantity float64
	RetailPrice      float64
	FeedInTariff     float64

	// Lambda is the smoothing weight kept from the previous price estimate.
	Lambda     float64
	Volatility model.Prices
}

func (p Params) SlotsPerDay() int { return int(24 * time.Hour / p.Slot) }

func (p Params) Validate() error {
	if p.Slot <= 0 || (24*time.Hour)%p.Slot != 0 {
		return fmt.Errorf("slot duration %s must divide a day", p.Slot)
	}
	if err := p.Battery.Validate(); err != nil {
		return fmt.Errorf("battery: %w", err)
	}
	if p.Lambda < 0 || p.Lambda > 1 {
		return errors.New("lambda must be within [0, 1]")
	}
	if p.MinOfferQuantity < 0 {
		return errors.New("minimum offer quantity must be >= 0")
	}
	for _, spec := range p.Markets {
		if !spec.GateClosure {
			continue
		}
		if spec.Closure < 0 || spec.Closure >= 24*time.Hour || spec.Closure%p.Slot != 0 {
			return fmt.Errorf("%s closure %s must be a slot boundary within the day", spec.Market, spec.Closure)
		}
	}
	return nil
}

// ActionRecord is one entry of the market action log.
type ActionRecord struct {
	Time     time.Time
	Kind     model.ActionKind
	Contract model.Contract
}

// StepReport describes one realized slot.
type StepReport struct {
	Index  int
	Time   time.Time
	Prices model.Prices

	Slot      forecast.Entry
	Delivered float64

	Gains     [model.NumMarkets]decimal.Decimal
	GridGains decimal.Decimal
	GridCost  decimal.Decimal

	Actions    []ActionRecord
	Violations []Violation
}

// Agent owns the forecast buffer, price estimator and contract ledger of a
// single household and steps them one slot at a time.
type Agent struct {
	params Params
	market Market
	log    *zap.Logger

	buffer *forecast.Buffer
	prices *pricing.Estimator
	ledger *ledger.Ledger

	now          time.Time
	step         int
	bootstrapped bool

	gridGains decimal.Decimal
	gridCost  decimal.Decimal

	violations []Violation
	infeasible int

	stepActions    []ActionRecord
	stepViolations []Violation
}

func New(params Params, market Market, household Household, log *zap.Logger) (*Agent, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if market == nil || household == nil {
		return nil, errors.New("market and household are required")
	}
	if log == nil {
		log = zap.NewNop()
	}
	spd := params.SlotsPerDay()
	buf := forecast.New(household, 2*spd, params.Battery.InitialKWh)
	buf.SetFloor(params.Battery.MinKWh)
	return &Agent{
		params: params,
		market: market,
		log:    log,
		buffer: buf,
		prices: pricing.New(spd, params.Lambda, params.Volatility),
		ledger: ledger.New(),
		now:    params.Start,
	}, nil
}

func (a *Agent) Now() time.Time { return a.now }

func (a *Agent) Violations() []Violation {
	out := make([]Violation, len(a.violations))
	copy(out, a.violations)
	return out
}

func (a *Agent) ViolationCount() int { return len(a.violations) }

// InfeasibleRebalances counts commitments whose battery projection could not
// be backed by surplus.
func (a *Agent) InfeasibleRebalances() int { return a.infeasible }

func (a *Agent) Gains(m model.Market) decimal.Decimal { return a.ledger.Gains(m) }

func (a *Agent) GridGains() decimal.Decimal { return a.gridGains }

func (a *Agent) GridCost() decimal.Decimal { return a.gridCost }

func (a *Agent) OpenContracts() []model.Contract { return a.ledger.Open() }

// PriceTable exposes the smoothed estimate for m.
func (a *Agent) PriceTable(m model.Market) []float64 { return a.prices.Table(m) }

// Step realizes the current slot: settle due contracts, learn prices, plan,
// validate, then move the clock forward one slot.
func (a *Agent) Step() (StepReport, error) {
	a.stepActions = nil
	a.stepViolations = nil

	if !a.bootstrapped {
		if err := a.bootstrap(); err != nil {
			return StepReport{}, fmt.Errorf("bootstrap: %w", err)
		}
		a.bootstrapped = true
	}

	prices, err := a.market.CurrentPrices()
	if err != nil {
		return StepReport{}, fmt.Errorf("step %d prices: %w", a.step, err)
	}

	due := a.ledger.FulfillDue(a.now)
	for _, f := range due {
		a.record(model.ActionFulfilled, f.Contract)
	}
	delivered := ledger.Delivered(due)

	a.prices.Observe(a.timeOfDayIndex(), prices)

	if err := a.greedy(); err != nil {
		return StepReport{}, fmt.Errorf("step %d planning: %w", a.step, err)
	}

	slot, err := a.buffer.Get(0)
	if err != nil {
		return StepReport{}, fmt.Errorf("step %d: %w", a.step, err)
	}
	for _, v := range Check(a.now, slot, delivered, a.params.Battery) {
		a.addViolation(v)
	}

	a.gridCost = a.gridCost.Add(decimal.NewFromFloat(slot.GridDemand).Mul(decimal.NewFromFloat(a.params.RetailPrice)))
	a.gridGains = a.gridGains.Add(decimal.NewFromFloat(slot.GridSupply).Mul(decimal.NewFromFloat(a.params.FeedInTariff)))

	report := StepReport{
		Index:      a.step,
		Time:       a.now,
		Prices:     prices,
		Slot:       slot,
		Delivered:  delivered,
		GridGains:  a.gridGains,
		GridCost:   a.gridCost,
		Actions:    a.stepActions,
		Violations: a.stepViolations,
	}
	for _, m := range model.Markets {
		report.Gains[m] = a.ledger.Gains(m)
	}

	a.buffer.Advance()
	a.now = a.now.Add(a.params.Slot)
	a.step++
	return report, nil
}

// bootstrap settles slot 0, which no earlier step could plan and no market
// can still be offered for.
func (a *Agent) bootstrap() error {
	e, err := a.buffer.Get(0)
	if err != nil {
		return err
	}
	var d forecast.Delta
	if surplus := e.PV - e.Load; surplus >= 0 {
		a.storeOrExport(&d, e.Battery, surplus)
	} else {
		a.coverDeficit(&d, e.Battery, -surplus)
	}
	return a.apply(0, d)
}

func (a *Agent) record(kind model.ActionKind, c model.Contract) {
	rec := ActionRecord{Time: a.now, Kind: kind, Contract: c}
	a.stepActions = append(a.stepActions, rec)
	a.log.Debug("market action",
		zap.Time("time", a.now),
		zap.String("kind", string(kind)),
		zap.Stringer("market", c.Market),
		zap.Time("delivery", c.DeliveryTime),
		zap.Float64("quantity", c.Quantity),
		zap.Float64("price", c.Price),
	)
}

func (a *Agent) addViolation(v Violation) {
	a.violations = append(a.violations, v)
	a.stepViolations = append(a.stepViolations, v)
	a.log.Warn("constraint violation",
		zap.Int("step", a.step),
		zap.Time("time", v.Time),
		zap.String("kind", string(v.Kind)),
		zap.String("detail", v.Detail),
	)
}

func (a *Agent) timeOfDay() time.Duration {
	return a.now.Sub(startOfDay(a.now))
}

func (a *Agent) timeOfDayIndex() int {
	return int(a.timeOfDay() / a.params.Slot)
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
