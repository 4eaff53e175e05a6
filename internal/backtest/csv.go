package backtest

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"time"

	"prosumer-sim/internal/model"
)

var stepsHeader = []string{
	"index",
	"time",
	"price_da",
	"price_ia",
	"price_ic",
	"action",
	"load_kwh",
	"pv_kwh",
	"battery_kwh",
	"charge_kwh",
	"discharge_kwh",
	"grid_demand_kwh",
	"grid_supply_kwh",
	"delivered_kwh",
	"gains_da",
	"gains_ia",
	"gains_ic",
	"grid_gains",
	"grid_cost",
	"net",
	"violations",
}

func WriteStepsCSV(path string, steps []StepRow) error {
	return writeFile(path, func(w io.Writer) error { return EncodeStepsCSV(w, steps) })
}

func EncodeStepsCSV(out io.Writer, steps []StepRow) error {
	w := csv.NewWriter(out)
	if err := w.Write(stepsHeader); err != nil {
		return err
	}
	for _, r := range steps {
		row := []string{
			strconv.Itoa(r.Index),
			fmtTime(r.Time),
			fmtFloat(r.Prices[model.DayAhead]),
			fmtFloat(r.Prices[model.IntradayAuction]),
			fmtFloat(r.Prices[model.IntradayContinuous]),
			string(r.Action),
			fmtFloat(r.Load),
			fmtFloat(r.PV),
			fmtFloat(r.Battery),
			fmtFloat(r.Charge),
			fmtFloat(r.Discharge),
			fmtFloat(r.GridDemand),
			fmtFloat(r.GridSupply),
			fmtFloat(r.Delivered),
			r.Gains[model.DayAhead].StringFixed(6),
			r.Gains[model.IntradayAuction].StringFixed(6),
			r.Gains[model.IntradayContinuous].StringFixed(6),
			r.GridGains.StringFixed(6),
			r.GridCost.StringFixed(6),
			r.Net().StringFixed(6),
			strconv.Itoa(r.Violations),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

var actionsHeader = []string{
	"time",
	"kind",
	"market",
	"delivery_time",
	"quantity_kwh",
	"price",
}

func WriteActionsCSV(path string, actions []ActionRow) error {
	return writeFile(path, func(w io.Writer) error { return EncodeActionsCSV(w, actions) })
}

func EncodeActionsCSV(out io.Writer, actions []ActionRow) error {
	w := csv.NewWriter(out)
	if err := w.Write(actionsHeader); err != nil {
		return err
	}
	for _, a := range actions {
		row := []string{
			fmtTime(a.Time),
			string(a.Kind),
			a.Market.String(),
			fmtTime(a.DeliveryTime),
			fmtFloat(a.Quantity),
			fmtFloat(a.Price),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func writeFile(path string, encode func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := encode(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func fmtTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func fmtFloat(x float64) string {
	return strconv.FormatFloat(x, 'f', 6, 64)
}
