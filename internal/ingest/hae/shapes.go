package hae

import (
	"encoding/json"
	"strings"
)

// Metric names read from the export. Everything else is skipped.
const (
	metricWeight = "weight_body_mass"
	metricSleep  = "sleep_analysis"
)

const poundsToKg = 0.45359237

// SleepFormat tells the two shapes of sleep_analysis points apart.
type SleepFormat int

const (
	// SleepFormatAggregated is one summary point per night.
	SleepFormatAggregated SleepFormat = iota
	// SleepFormatUnaggregated is one point per sleep stage segment.
	SleepFormatUnaggregated
)

// DetectSleepFormat reports which shape raw has. Points that carry neither
// key, or fail to decode, are treated as aggregated.
func DetectSleepFormat(raw json.RawMessage) SleepFormat {
	var keys struct {
		TotalSleep *json.RawMessage `json:"totalSleep"`
		StartDate  *json.RawMessage `json:"startDate"`
	}
	if json.Unmarshal(raw, &keys) != nil || keys.TotalSleep != nil || keys.StartDate == nil {
		return SleepFormatAggregated
	}
	return SleepFormatUnaggregated
}

// weightKg converts a reading in units to kilograms. Unknown units are
// assumed to be kilograms.
func weightKg(qty float64, units string) float64 {
	switch strings.ToLower(strings.TrimSpace(units)) {
	case "lb", "lbs":
		return qty * poundsToKg
	default:
		return qty
	}
}

// countsAsSleep reports whether a stage segment adds to sleep time.
func countsAsSleep(stage string) bool {
	switch strings.ToLower(strings.ReplaceAll(stage, " ", "")) {
	case "awake", "inbed":
		return false
	default:
		return true
	}
}
