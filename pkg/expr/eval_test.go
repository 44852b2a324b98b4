package expr

import (
	"testing"
	"time"
)

func fixedClock() *Evaluator {
	// Monday 2024-03-11.
	return &Evaluator{Now: func() time.Time {
		return time.Date(2024, 3, 11, 15, 30, 0, 0, time.UTC)
	}}
}

func TestEvaluate(t *testing.T) {
	e := fixedClock()

	tests := []struct {
		in   string
		want string
	}{
		{"today", "2024-03-11"},
		{"TODAY", "2024-03-11"},
		{"  today  ", "2024-03-11"},
		{"yesterday", "2024-03-10"},
		{"tomorrow", "2024-03-12"},
		{"today - 7 days", "2024-03-04"},
		{"today-7days", "2024-03-04"},
		{"today + 1 day", "2024-03-12"},
		{"today - 2 weeks", "2024-02-26"},
		{"today - 1 month", "2024-02-11"},
		{"today + 1 year", "2025-03-11"},
		{"2024-01-15", "2024-01-15"},
	}
	for _, tt := range tests {
		if got := e.Evaluate(tt.in); got != tt.want {
			t.Errorf("Evaluate(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestEvaluateUnresolvableReturnsInput(t *testing.T) {
	e := fixedClock()

	inputs := []string{
		"last tuesday",
		"today - banana days",
		"gibberish",
		"",
	}
	for _, in := range inputs {
		if got := e.Evaluate(in); got != in {
			t.Errorf("Evaluate(%q) = %q, want the input unchanged", in, got)
		}
	}
}

func TestNewUsesWallClock(t *testing.T) {
	e := New()
	got := e.Evaluate("today")
	want := time.Now().Format("2006-01-02")
	if got != want {
		t.Errorf("Evaluate(today) = %q, want %q", got, want)
	}
}
