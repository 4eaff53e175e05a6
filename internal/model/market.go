package model

import (
	"fmt"
	"strings"
	"time"
)

// Market identifies one of the electricity markets the household can offer on.
// Keep the ordering stable; Prices and the ledger index by it.
type Market int

const (
	DayAhead Market = iota
	IntradayAuction
	IntradayContinuous

	NumMarkets = 3
)

// Markets lists every market in the order planning checks them.
var Markets = [NumMarkets]Market{IntradayContinuous, IntradayAuction, DayAhead}

func (m Market) String() string {
	switch m {
	case DayAhead:
		return "DA"
	case IntradayAuction:
		return "IA"
	case IntradayContinuous:
		return "IC"
	default:
		return fmt.Sprintf("Market(%d)", int(m))
	}
}

func (m Market) Valid() bool { return m >= DayAhead && m <= IntradayContinuous }

// ParseMarket accepts the short codes used in configs and CSV output.
func ParseMarket(s string) (Market, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DA":
		return DayAhead, nil
	case "IA":
		return IntradayAuction, nil
	case "IC":
		return IntradayContinuous, nil
	}
	return 0, fmt.Errorf("unknown market %q", s)
}

func (m Market) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

func (m *Market) UnmarshalText(b []byte) error {
	v, err := ParseMarket(string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// MarketSpec holds the per-market rules.
type MarketSpec struct {
	Market Market
	Name   string

	// GateClosure is set for markets that close for day D on day D-1.
	// Closure is the time of day (offset from midnight) of that closure.
	GateClosure bool
	Closure     time.Duration

	// GranularitySlots is the number of consecutive slots sharing one price.
	GranularitySlots int
}

// MarketTable is the lookup table of market rules, indexed by Market.
type MarketTable [NumMarkets]MarketSpec

// NewMarketTable builds the table for the given gate closure times of day.
func NewMarketTable(dayAheadClosure, intradayAuctionClosure time.Duration) MarketTable {
	var t MarketTable
	t[DayAhead] = MarketSpec{
		Market:           DayAhead,
		Name:             "day-ahead",
		GateClosure:      true,
		Closure:          dayAheadClosure,
		GranularitySlots: 4,
	}
	t[IntradayAuction] = MarketSpec{
		Market:           IntradayAuction,
		Name:             "intraday auction",
		GateClosure:      true,
		Closure:          intradayAuctionClosure,
		GranularitySlots: 1,
	}
	t[IntradayContinuous] = MarketSpec{
		Market:           IntradayContinuous,
		Name:             "intraday continuous",
		GranularitySlots: 1,
	}
	return t
}

// DefaultMarkets closes DA at 11:45 and IA at 15:45.
var DefaultMarkets = NewMarketTable(11*time.Hour+45*time.Minute, 15*time.Hour+45*time.Minute)

func (t MarketTable) Spec(m Market) MarketSpec { return t[m] }

// WithSlot returns a copy whose day-ahead granularity covers one hour of
// slots of the given length. Slots longer than an hour get one price each.
func (t MarketTable) WithSlot(slot time.Duration) MarketTable {
	n := 1
	if slot > 0 && slot < time.Hour {
		n = int(time.Hour / slot)
	}
	t[DayAhead].GranularitySlots = n
	return t
}

// ClosureFor returns the gate closure instant for a delivery at the given time:
// the closure time of day on the day before delivery. ok is false for markets
// without a daily gate closure.
func (t MarketTable) ClosureFor(m Market, delivery time.Time) (closure time.Time, ok bool) {
	spec := t[m]
	if !spec.GateClosure {
		return time.Time{}, false
	}
	prev := delivery.AddDate(0, 0, -1)
	day := time.Date(prev.Year(), prev.Month(), prev.Day(), 0, 0, 0, 0, prev.Location())
	return day.Add(spec.Closure), true
}

// Prices holds one value per market.
type Prices [NumMarkets]float64

// MapByCode renders prices keyed by market code, for JSON and logs.
func (p Prices) MapByCode() map[string]float64 {
	out := make(map[string]float64, NumMarkets)
	for _, m := range Markets {
		out[m.String()] = p[m]
	}
	return out
}
