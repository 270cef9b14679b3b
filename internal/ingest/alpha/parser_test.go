package alpha

import (
	"strings"
	"testing"
	"time"
)

const sampleCSV = `
"Legs · Day 2 · Week 4 · Push-Pull-Legs";"2026-02-19 4:54 h";"1:02 hr"
"1. Hack Squats · Machine · 8 reps";"WU1 · 37,5 kg · 9 reps<br>WU2 · 72,5 kg · 7 reps"
#;KG;REPS;RIR
1;115;8;1
2;115;10;1
3;115;10;1
"2. Sumo Squats · Smith machine · 10 reps";"WU1 · 35 kg · 8 reps"
#;KG;REPS;RIR
1;70;8;1
2;70;12;1
"3. Hyperextensions on Roman Chair · Bodyweight · 10 reps";"WU1 · +0 kg · 8 reps"
#;KG;REPS;RIR
1;+35;10;0
2;+35;9;1
3;+35;10;0
"4. Reverse Lunges · Dumbbells · 10 reps"
#;KG;REPS;RIR
1;10;10;1
2;10;10;1
3;10;10;0
"5. Standing Calf Raises · Machine · 12 reps";"WU1 · 47,5 kg · 8 reps"
#;KG;REPS;RIR
1;157,5;11;1
2;157,5;11;0
3;157,5;10;0
"6. Hanging Leg Raises · Bodyweight · 12 reps · 2 dropsets"
#;KG;REPS;RIR
1;+0;12;1
2;+0;12;1
3;+0;12;0

"Push · Day 1 · Week 4 · Push-Pull-Legs";"2026-02-17 5:04 h";"1:12 hr"
"1. Bench Press · Barbell · 6 reps";"WU1 · 22,5 kg · 10 reps<br>WU2 · 47,5 kg · 8 reps<br>WU3 · 77,5 kg · 6 reps"
#;KG;REPS;RIR
1;102,5;6;0
2;102,5;6;0
3;100;6;0
`

// TestParseCompleteSessions verifies parsing a multi-session CSV with exercises and sets.
func TestParseCompleteSessions(t *testing.T) {
	sessions, err := Parse(strings.NewReader(sampleCSV), time.UTC)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("sessions = %d, want 2", len(sessions))
	}

	// First session: all 6 exercises
	s1 := sessions[0]
	if s1.Name != "Legs · Day 2 · Week 4 · Push-Pull-Legs" {
		t.Errorf("s1.Name = %q", s1.Name)
	}
	if s1.Duration != "1:02 hr" {
		t.Errorf("s1.Duration = %q", s1.Duration)
	}
	if want := time.Date(2026, 2, 19, 4, 54, 0, 0, time.UTC); !s1.Date.Equal(want) {
		t.Errorf("s1.Date = %v, want %v", s1.Date, want)
	}
	if len(s1.Exercises) != 6 {
		t.Fatalf("s1 exercises = %d, want 6", len(s1.Exercises))
	}

	exercises := []struct {
		name       string
		equipment  string
		targetReps int
		sets       int
	}{
		{"Hack Squats", "Machine", 8, 5},
		{"Sumo Squats", "Smith machine", 10, 3},
		{"Hyperextensions on Roman Chair", "Bodyweight", 10, 4},
		{"Reverse Lunges", "Dumbbells", 10, 3},
		{"Standing Calf Raises", "Machine", 12, 4},
		{"Hanging Leg Raises", "Bodyweight", 12, 3},
	}
	for i, want := range exercises {
		got := s1.Exercises[i]
		if got.Name != want.name || got.Equipment != want.equipment {
			t.Errorf("exercise %d = %q (%q), want %q (%q)", i+1, got.Name, got.Equipment, want.name, want.equipment)
		}
		if got.TargetReps != want.targetReps {
			t.Errorf("%s target reps = %d, want %d", want.name, got.TargetReps, want.targetReps)
		}
		if len(got.Sets) != want.sets {
			t.Errorf("%s sets = %d, want %d", want.name, len(got.Sets), want.sets)
		}
	}

	// Second session
	s2 := sessions[1]
	if s2.Name != "Push · Day 1 · Week 4 · Push-Pull-Legs" {
		t.Errorf("s2.Name = %q", s2.Name)
	}
}

// TestParseWeight verifies the KG column: decimal commas and the "+N"
// bodyweight-plus notation, where "+0" is bodyweight only.
func TestParseWeight(t *testing.T) {
	tests := []struct {
		in     string
		weight float64
		bwPlus bool
	}{
		{"100", 100, false},
		{"102,5", 102.5, false},
		{"+35", 35, true},
		{"+0", 0, true},
		{" 7.5 ", 7.5, false},
	}
	for _, tt := range tests {
		w, bw := parseWeight(tt.in)
		if w != tt.weight || bw != tt.bwPlus {
			t.Errorf("parseWeight(%q) = %v, %v, want %v, %v", tt.in, w, bw, tt.weight, tt.bwPlus)
		}
	}
}

// TestFractionalRIR verifies half-RIR values like "0,5" on set rows.
func TestFractionalRIR(t *testing.T) {
	sessions, err := Parse(strings.NewReader(`"Pull";"2026-02-20 18:00 h";"0:45 hr"
"1. Rows · Cable · 10 reps"
#;KG;REPS;RIR
1;60;10;0,5
`), time.UTC)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if got := sessions[0].Exercises[0].Sets[0].RIR; got != 0.5 {
		t.Errorf("RIR = %v, want 0.5", got)
	}
}

// TestParseWarmups verifies warm-up extraction from the exercise header's
// second field: "<br>" separated, European decimals, bodyweight-plus allowed.
func TestParseWarmups(t *testing.T) {
	tests := []struct {
		in   string
		want []Set
	}{
		{"", nil},
		{"WU1 · 37,5 kg · 9 reps<br>WU2 · 72,5 kg · 7 reps", []Set{
			{Number: 1, WeightKg: 37.5, Reps: 9, IsWarmup: true},
			{Number: 2, WeightKg: 72.5, Reps: 7, IsWarmup: true},
		}},
		{"WU1 · +0 kg · 8 reps", []Set{
			{Number: 1, WeightKg: 0, IsBodyweightPlus: true, Reps: 8, IsWarmup: true},
		}},
	}
	for _, tt := range tests {
		got := parseWarmups(tt.in)
		if len(got) != len(tt.want) {
			t.Errorf("parseWarmups(%q) = %d sets, want %d", tt.in, len(got), len(tt.want))
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("parseWarmups(%q)[%d] = %+v, want %+v", tt.in, i, got[i], tt.want[i])
			}
		}
	}
}

// TestEmptyInput verifies that empty input returns no sessions without error.
func TestEmptyInput(t *testing.T) {
	sessions, err := Parse(strings.NewReader(""), time.UTC)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sessions) != 0 {
		t.Errorf("sessions = %d, want 0", len(sessions))
	}
}

// TestSetWithoutExercise verifies a set row before any exercise header is rejected.
func TestSetWithoutExercise(t *testing.T) {
	_, err := Parse(strings.NewReader(`"Pull";"2026-02-20 18:00 h";"0:45 hr"
1;60;10;1
`), time.UTC)
	if err == nil {
		t.Error("expected error for set data without exercise")
	}
}
