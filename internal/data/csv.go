package data

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"
)

// Accepted timestamp layouts for series files. Timestamps without a zone are UTC.
var timeLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04:05",
	time.RFC3339,
}

// Point is one timestamped observation.
type Point struct {
	Time  time.Time
	Value float64
}

// seriesFormat describes the columns of one series file.
type seriesFormat struct {
	sep       rune
	timeCol   string
	valueCol  string
	scale     float64
	dropBlank bool
}

var (
	priceFormat = seriesFormat{sep: ';', timeCol: "Time", valueCol: "Price", scale: 1.0 / 1000}
	loadFormat  = seriesFormat{sep: ';', timeCol: "Time", valueCol: "Sum [kWh]", scale: 1, dropBlank: true}
	pvFormat    = seriesFormat{sep: ',', timeCol: "date", valueCol: "MW", scale: 1}
)

// ReadPrices reads a `Time;Price` file in €/MWh and returns €/kWh values at or after from.
func ReadPrices(r io.Reader, from time.Time) ([]Point, error) {
	return readSeries(r, priceFormat, from)
}

// ReadLoad reads a `Time;Sum [kWh]` household load file. Rows with a blank value are dropped.
func ReadLoad(r io.Reader, from time.Time) ([]Point, error) {
	return readSeries(r, loadFormat, from)
}

// ReadPV reads a `date,MW` PV file and scales every value by scale.
func ReadPV(r io.Reader, from time.Time, scale float64) ([]Point, error) {
	f := pvFormat
	f.scale = scale
	return readSeries(r, f, from)
}

func readSeries(r io.Reader, f seriesFormat, from time.Time) ([]Point, error) {
	cr := csv.NewReader(r)
	cr.Comma = f.sep
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty series file")
		}
		return nil, err
	}
	timeIdx, valueIdx := -1, -1
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		switch h {
		case f.timeCol:
			timeIdx = i
		case f.valueCol:
			valueIdx = i
		}
	}
	if timeIdx < 0 || valueIdx < 0 {
		return nil, fmt.Errorf("missing column %q or %q", f.timeCol, f.valueCol)
	}

	var out []Point
	line := 1
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		line++
		if timeIdx >= len(rec) || valueIdx >= len(rec) {
			if f.dropBlank {
				continue
			}
			return nil, fmt.Errorf("line %d: short record", line)
		}
		rawValue := strings.TrimSpace(rec[valueIdx])
		if rawValue == "" {
			if f.dropBlank {
				continue
			}
			return nil, fmt.Errorf("line %d: empty value", line)
		}
		ts, err := parseTime(rec[timeIdx])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if ts.Before(from) {
			continue
		}
		v, err := strconv.ParseFloat(strings.Replace(rawValue, ",", ".", 1), 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: value %q: %w", line, rawValue, err)
		}
		out = append(out, Point{Time: ts, Value: v * f.scale})
	}
	return out, nil
}

func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// Values strips timestamps.
func Values(points []Point) []float64 {
	out := make([]float64, len(points))
	for i, p := range points {
		out[i] = p.Value
	}
	return out
}

func readFile(path string, read func(io.Reader) ([]Point, error)) ([]Point, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	points, err := read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return points, nil
}
