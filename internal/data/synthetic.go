package data

import (
	"math"
	"math/rand/v2"
	"time"

	"prosumer-sim/internal/model"
)

// Synthetic generates a deterministic dataset of the given number of days:
// a midday PV bell with daily cloud cover, a household load with morning and
// evening peaks, an hourly day-ahead curve and noisier intraday prices
// around it. The same seed always yields the same data.
func Synthetic(start time.Time, slot time.Duration, days int, seed uint64) *Dataset {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	spd := int(24 * time.Hour / slot)
	n := days * spd
	perHour := 1
	if slot < time.Hour {
		perHour = int(time.Hour / slot)
	}
	// Series values are per slot; profiles below are per quarter hour.
	energyScale := slot.Hours() / 0.25

	ds := &Dataset{
		PV:   make([]float64, n),
		Load: make([]float64, n),
	}
	ds.Prices[model.DayAhead] = make([]float64, 0, n/perHour+1)
	ds.Prices[model.IntradayAuction] = make([]float64, n)
	ds.Prices[model.IntradayContinuous] = make([]float64, n)

	cloud := 1.0
	var da float64
	for i := range n {
		t := start.Add(time.Duration(i) * slot)
		hour := float64(t.Hour()) + float64(t.Minute())/60
		if i == 0 || (t.Hour() == 0 && t.Minute() == 0) {
			cloud = 0.3 + 0.7*rng.Float64()
		}

		ds.PV[i] = round3(pvProfile(hour) * cloud * energyScale)
		ds.Load[i] = round3((loadProfile(hour) + 0.03*rng.Float64()) * energyScale)

		if i%perHour == 0 {
			da = dayAheadProfile(hour, cloud, t.Weekday()) + 0.01*(rng.Float64()-0.5)
			ds.Prices[model.DayAhead] = append(ds.Prices[model.DayAhead], round4(da))
		}
		ds.Prices[model.IntradayAuction][i] = round4(da + 0.03*(rng.Float64()-0.5))
		ds.Prices[model.IntradayContinuous][i] = round4(da + 0.06*(rng.Float64()-0.5))
	}
	return ds
}

// pvProfile is clear-sky generation in kWh per quarter hour, peaking at 1.2.
func pvProfile(hour float64) float64 {
	if hour < 6 || hour > 19 {
		return 0
	}
	x := (hour - 12.5) / 3.2
	return 1.2 * math.Exp(-x*x)
}

// loadProfile is household consumption in kWh per quarter hour.
func loadProfile(hour float64) float64 {
	base := 0.08
	morning := 0.2 * math.Exp(-math.Pow((hour-7.5)/1.0, 2))
	evening := 0.35 * math.Exp(-math.Pow((hour-19)/1.8, 2))
	return base + morning + evening
}

// dayAheadProfile is a €/kWh price curve with an evening peak and a solar
// dip that deepens on sunny days and weekends.
func dayAheadProfile(hour, cloud float64, wd time.Weekday) float64 {
	p := 0.11 + 0.06*math.Exp(-math.Pow((hour-19)/2.5, 2)) + 0.03*math.Exp(-math.Pow((hour-8)/1.5, 2))
	dip := 0.08 * cloud * math.Exp(-math.Pow((hour-13)/2.2, 2))
	if wd == time.Saturday || wd == time.Sunday {
		dip *= 1.5
		p -= 0.02
	}
	return p - dip
}

func round3(v float64) float64 { return math.Round(v*1e3) / 1e3 }
func round4(v float64) float64 { return math.Round(v*1e4) / 1e4 }
