// Package portion scales per-100 nutrition baselines to a chosen quantity
// and composes the resulting meal entry.
package portion

import (
	"math"
	"time"

	"github.com/claude/fitlog/internal/models"
)

// Unit is the measure a baseline is expressed per 100 of.
type Unit string

const (
	Grams       Unit = "g"
	Milliliters Unit = "ml"
)

// DefaultQuantity is the quantity a new composition starts with.
const DefaultQuantity = 100

// Baseline is nutrition per 100 g or 100 ml.
type Baseline struct {
	Name           string  `json:"name"`
	Unit           Unit    `json:"unit"`
	CaloriesPer100 float64 `json:"caloriesPer100"`
	ProteinPer100  float64 `json:"proteinPer100"`
	CarbsPer100    float64 `json:"carbsPer100"`
	FatsPer100     float64 `json:"fatsPer100"`
}

// Portion is a baseline scaled to a concrete quantity.
type Portion struct {
	Calories float64 `json:"calories"`
	Protein  float64 `json:"protein"`
	Carbs    float64 `json:"carbs"`
	Fats     float64 `json:"fats"`
}

// Calculate scales b to quantity. Calories round to the nearest integer and
// macros to one decimal. A non-positive quantity yields a zero portion.
func Calculate(b Baseline, quantity float64) Portion {
	if quantity <= 0 || math.IsNaN(quantity) || math.IsInf(quantity, 0) {
		return Portion{}
	}
	f := quantity / 100
	return Portion{
		Calories: math.Round(b.CaloriesPer100 * f),
		Protein:  round1(b.ProteinPer100 * f),
		Carbs:    round1(b.CarbsPer100 * f),
		Fats:     round1(b.FatsPer100 * f),
	}
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// Composer holds the meal being composed. Every edit re-derives the portion;
// nothing already saved is affected.
type Composer struct {
	baseline Baseline
	quantity float64
	fixed    *Portion
}

// NewComposer starts a composition from a baseline at the default quantity.
func NewComposer(b Baseline) *Composer {
	if b.Unit == "" {
		b.Unit = Grams
	}
	return &Composer{baseline: b, quantity: DefaultQuantity}
}

// NewFixedComposer starts a composition from flat dish totals. Quantity edits
// are ignored and the totals are used as-is.
func NewFixedComposer(name string, p Portion) *Composer {
	return &Composer{
		baseline: Baseline{Name: name, Unit: Grams},
		quantity: DefaultQuantity,
		fixed:    &p,
	}
}

// Fixed reports whether the composer holds flat totals.
func (c *Composer) Fixed() bool { return c.fixed != nil }

// Baseline returns the current baseline.
func (c *Composer) Baseline() Baseline { return c.baseline }

// Quantity returns the current quantity.
func (c *Composer) Quantity() float64 { return c.quantity }

// SetQuantity changes the quantity. It is a no-op on a fixed composer.
func (c *Composer) SetQuantity(q float64) {
	if c.fixed != nil {
		return
	}
	c.quantity = q
}

// SetBaseline replaces the baseline with user edits. A fixed composer becomes
// a regular one, since its values are now per 100.
func (c *Composer) SetBaseline(b Baseline) {
	if b.Unit == "" {
		b.Unit = c.baseline.Unit
	}
	c.baseline = b
	c.fixed = nil
}

// SetName renames the meal without touching nutrition values.
func (c *Composer) SetName(name string) {
	c.baseline.Name = name
}

// Portion returns the derived portion for the current inputs.
func (c *Composer) Portion() Portion {
	if c.fixed != nil {
		return *c.fixed
	}
	return Calculate(c.baseline, c.quantity)
}

// Meal builds a loggable entry from the current composition.
func (c *Composer) Meal(now time.Time) models.MealEntry {
	p := c.Portion()
	return models.NewMealEntry(c.baseline.Name, p.Calories, p.Protein, p.Carbs, p.Fats, 0, now)
}
