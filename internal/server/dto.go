package server

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/claude/fitlog/internal/models"
	"github.com/claude/fitlog/internal/portion"
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// numberInput accepts a JSON number or a numeric string. Malformed,
// negative or missing values decode as 0.
type numberInput float64

func (n *numberInput) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		*n = 0
	case len(b) > 0 && b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			*n = 0
			return nil
		}
		*n = numberInput(models.ParseNumber(s))
	default:
		*n = numberInput(models.ParseNumber(string(b)))
	}
	return nil
}

func (n numberInput) float() float64 { return float64(n) }
func (n numberInput) int() int       { return int(n) }

type startSessionRequest struct {
	Label string `json:"label"`
}

func (r startSessionRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Label, validation.Required, validation.Length(1, 100)),
	)
}

type addSetRequest struct {
	Name   string      `json:"name"`
	Weight numberInput `json:"weight"`
	Reps   numberInput `json:"reps"`
}

func (r addSetRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 100)),
	)
}

type cardioRequest struct {
	Type     models.CardioType `json:"type"`
	Distance numberInput       `json:"distance"`
	Duration numberInput       `json:"duration"`
	Date     *time.Time        `json:"date,omitempty"`
}

func (r cardioRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Type, validation.Required,
			validation.In(models.CardioRun, models.CardioCycle, models.CardioWalk)),
	)
}

type healthRequest struct {
	WeightKg     numberInput `json:"weightKg"`
	SleepHours   numberInput `json:"sleepHours"`
	CaloriesGoal numberInput `json:"caloriesGoal"`
	ProteinGoal  numberInput `json:"proteinGoal"`
	CarbsGoal    numberInput `json:"carbsGoal"`
	FatsGoal     numberInput `json:"fatsGoal"`
	HeightCm     numberInput `json:"heightCm"`
	Age          numberInput `json:"age"`
	GoalLabel    string      `json:"goalLabel"`
}

func (r healthRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.GoalLabel, validation.Length(0, 100)),
	)
}

func (r healthRequest) snapshot(at time.Time) models.HealthSnapshot {
	h := models.NewHealthSnapshot(at, r.WeightKg.float(), r.SleepHours.float(), r.CaloriesGoal.int(), r.ProteinGoal.int())
	h.CarbsGoal = models.IntPtr(r.CarbsGoal.int())
	h.FatsGoal = models.IntPtr(r.FatsGoal.int())
	h.HeightCm = models.FloatPtr(r.HeightCm.float())
	h.Age = models.IntPtr(r.Age.int())
	h.GoalLabel = models.StringPtr(r.GoalLabel)
	return h
}

type mealRequest struct {
	Name     string      `json:"name"`
	Calories numberInput `json:"calories"`
	Protein  numberInput `json:"proteinG"`
	Carbs    numberInput `json:"carbsG"`
	Fats     numberInput `json:"fatsG"`
	Fiber    numberInput `json:"fiberG"`
}

func (r mealRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Length(0, 200)),
	)
}

// portionRequest computes a portion from per-100 values. With Save set the
// resulting meal is logged as well.
type portionRequest struct {
	Baseline portion.Baseline `json:"baseline"`
	Quantity *numberInput     `json:"quantity,omitempty"`
	Save     bool             `json:"save"`
}

func (r portionRequest) Validate() error {
	return validation.ValidateStruct(&r.Baseline,
		validation.Field(&r.Baseline.Unit, validation.In(portion.Grams, portion.Milliliters)),
		validation.Field(&r.Baseline.Name, validation.Length(0, 200)),
	)
}

type portionResponse struct {
	Baseline portion.Baseline  `json:"baseline"`
	Quantity float64           `json:"quantity"`
	Portion  portion.Portion   `json:"portion"`
	Meal     *models.MealEntry `json:"meal,omitempty"`
}

type scanRequest struct {
	// Image is a data URL or bare base64 payload.
	Image string `json:"image"`
}

func (r scanRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Image, validation.Required),
	)
}

type scanResponse struct {
	Kind     string           `json:"kind"`
	Name     string           `json:"name"`
	Fixed    bool             `json:"fixed"`
	Baseline portion.Baseline `json:"baseline"`
	Quantity float64          `json:"quantity"`
	Portion  portion.Portion  `json:"portion"`
}

type syncResponse struct {
	Added  int                  `json:"added"`
	Cardio []models.CardioEntry `json:"cardio"`
}

type errResponse struct {
	Error  string `json:"error"`
	Fields error  `json:"fields,omitempty"`
}

func errorBody(msg string) errResponse {
	return errResponse{Error: msg}
}
