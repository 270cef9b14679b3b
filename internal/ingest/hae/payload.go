package hae

import (
	"encoding/json"
	"fmt"
	"time"
)

// haeTime handles the Health Auto Export date format "2006-01-02 15:04:05 -0700"
// and the date-only form used in aggregated sleep data.
type haeTime struct {
	time.Time
}

const (
	timeLayout     = "2006-01-02 15:04:05 -0700"
	dateOnlyLayout = "2006-01-02"
)

func (t *haeTime) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		return nil
	}
	for _, layout := range []string{timeLayout, time.RFC3339, dateOnlyLayout} {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("cannot parse HAE time %q", s)
}

// Payload is the top-level REST API JSON structure. Workouts are ignored.
type Payload struct {
	Data struct {
		Metrics []Metric `json:"metrics"`
	} `json:"data"`
}

// Metric is a single metric entry with name, units, and data points.
type Metric struct {
	Name  string            `json:"name"`
	Units string            `json:"units"`
	Data  []json.RawMessage `json:"data"`
}

type qtyPoint struct {
	Date haeTime `json:"date"`
	Qty  float64 `json:"qty"`
}

// sleepSummary is a nightly summary (Summarize Data: ON).
type sleepSummary struct {
	Date       haeTime `json:"date"`
	TotalSleep float64 `json:"totalSleep"`
	Asleep     float64 `json:"asleep"`
	SleepEnd   haeTime `json:"sleepEnd"`
}

// sleepStage is one stage segment (Summarize Data: OFF).
type sleepStage struct {
	StartDate haeTime `json:"startDate"`
	EndDate   haeTime `json:"endDate"`
	Qty       float64 `json:"qty"`
	Value     string  `json:"value"`
}
