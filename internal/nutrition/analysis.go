// Package nutrition talks to the meal analysis and barcode services and
// normalizes their answers into portion baselines.
package nutrition

import (
	"cmp"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/claude/fitlog/internal/portion"
)

// ErrProductNotFound is returned when a barcode has no known product.
var ErrProductNotFound = errors.New("product not found")

// AnalysisError is a failed analysis with a message suitable for the user.
type AnalysisError struct {
	Message string
	Err     error
}

func (e *AnalysisError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *AnalysisError) Unwrap() error { return e.Err }

// Kind tags which shape an analysis result holds.
type Kind string

const (
	// KindEstimate is flat totals for a prepared dish.
	KindEstimate Kind = "estimate"
	// KindBaseline is per-100 values for a packaged product.
	KindBaseline Kind = "baseline"
)

// AnalysisResult is either a flat estimate or a per-100 baseline.
type AnalysisResult struct {
	Kind     Kind             `json:"kind"`
	Estimate portion.Portion  `json:"estimate,omitzero"`
	Baseline portion.Baseline `json:"baseline,omitzero"`
	Name     string           `json:"name"`
}

// Normalize returns a composer for the result. Estimates yield a fixed
// composer; baselines start at the default quantity.
func (r AnalysisResult) Normalize() *portion.Composer {
	if r.Kind == KindEstimate {
		return portion.NewFixedComposer(r.Name, r.Estimate)
	}
	b := r.Baseline
	if b.Name == "" {
		b.Name = r.Name
	}
	return portion.NewComposer(b)
}

// rawAnalysis covers every field name the analyzers have been seen to return.
type rawAnalysis struct {
	Name string `json:"name"`
	Naam string `json:"naam"`
	Unit string `json:"unit"`
	Type string `json:"type"`

	CaloriesPer100 *float64 `json:"caloriesPer100"`
	ProteinPer100  *float64 `json:"proteinPer100"`
	CarbsPer100    *float64 `json:"carbsPer100"`
	FatsPer100     *float64 `json:"fatsPer100"`

	Kcal100         *float64 `json:"kcal_100"`
	Eiwit100        *float64 `json:"eiwit_100"`
	Koolhydraten100 *float64 `json:"koolhydraten_100"`
	Vet100          *float64 `json:"vet_100"`

	Calories *float64 `json:"calories"`
	Protein  *float64 `json:"protein"`
	Carbs    *float64 `json:"carbs"`
	Fats     *float64 `json:"fats"`
}

// DecodeAnalysis parses an analyzer answer. It accepts per-100 baselines
// with English or Dutch keys and flat dish estimates.
func DecodeAnalysis(data []byte) (AnalysisResult, error) {
	var raw rawAnalysis
	if err := json.Unmarshal(data, &raw); err != nil {
		return AnalysisResult{}, fmt.Errorf("decoding analysis: %w", err)
	}
	name := strings.TrimSpace(cmp.Or(raw.Name, raw.Naam))

	switch {
	case raw.CaloriesPer100 != nil:
		return AnalysisResult{Kind: KindBaseline, Name: name, Baseline: portion.Baseline{
			Name:           name,
			Unit:           parseUnit(cmp.Or(raw.Unit, raw.Type)),
			CaloriesPer100: val(raw.CaloriesPer100),
			ProteinPer100:  val(raw.ProteinPer100),
			CarbsPer100:    val(raw.CarbsPer100),
			FatsPer100:     val(raw.FatsPer100),
		}}, nil

	case raw.Kcal100 != nil:
		return AnalysisResult{Kind: KindBaseline, Name: name, Baseline: portion.Baseline{
			Name:           name,
			Unit:           parseUnit(cmp.Or(raw.Type, raw.Unit)),
			CaloriesPer100: val(raw.Kcal100),
			ProteinPer100:  val(raw.Eiwit100),
			CarbsPer100:    val(raw.Koolhydraten100),
			FatsPer100:     val(raw.Vet100),
		}}, nil

	case raw.Calories != nil:
		return AnalysisResult{Kind: KindEstimate, Name: name, Estimate: portion.Portion{
			Calories: val(raw.Calories),
			Protein:  val(raw.Protein),
			Carbs:    val(raw.Carbs),
			Fats:     val(raw.Fats),
		}}, nil
	}
	return AnalysisResult{}, errors.New("decoding analysis: no nutrition values in response")
}

func parseUnit(s string) portion.Unit {
	if strings.EqualFold(strings.TrimSpace(s), "ml") {
		return portion.Milliliters
	}
	return portion.Grams
}

func val(p *float64) float64 {
	if p == nil || *p < 0 {
		return 0
	}
	return *p
}
