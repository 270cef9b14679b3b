package models

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// ParseNumber converts user-entered text to a float. Malformed, empty,
// non-finite or negative input yields 0. Both "." and "," are accepted as
// decimal separator.
func ParseNumber(s string) float64 {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", "."))
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}

// ParseCount converts user-entered text to a non-negative integer.
// Fractional input is truncated, malformed input yields 0.
func ParseCount(s string) int {
	return int(ParseNumber(s))
}

// NewHealthSnapshot creates a snapshot dated at the given time. Optional
// fields are left nil; set them with the pointer helpers below.
func NewHealthSnapshot(at time.Time, weightKg, sleepHours float64, caloriesGoal, proteinGoal int) HealthSnapshot {
	return HealthSnapshot{
		Date:         at,
		SleepHours:   nonNegative(sleepHours),
		CaloriesGoal: max(caloriesGoal, 0),
		ProteinGoal:  max(proteinGoal, 0),
		WeightKg:     nonNegative(weightKg),
	}
}

// IntPtr returns a pointer to v, or nil when v is zero.
func IntPtr(v int) *int {
	if v == 0 {
		return nil
	}
	return &v
}

// FloatPtr returns a pointer to v, or nil when v is zero.
func FloatPtr(v float64) *float64 {
	if v == 0 {
		return nil
	}
	return &v
}

// StringPtr returns a pointer to s, or nil when s is empty.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Deref returns *p or the zero value when p is nil.
func Deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}
