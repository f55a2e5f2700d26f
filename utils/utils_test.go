package utils

import "testing"

func TestRoundPercent(t *testing.T) {
	tests := []struct {
		part, total, want int
	}{
		{2, 3, 67},
		{1, 3, 33},
		{0, 0, 0},
		{5, 5, 100},
		{1, 8, 13},
	}
	for _, tt := range tests {
		if got := RoundPercent(tt.part, tt.total); got != tt.want {
			t.Errorf("RoundPercent(%d, %d): expected %d, got %d", tt.part, tt.total, tt.want, got)
		}
	}
}

func TestFormatClock(t *testing.T) {
	if got := FormatClock(3725); got != "01:02:05" {
		t.Errorf("expected 01:02:05, got %s", got)
	}
	if got := FormatClock(-4); got != "00:00:00" {
		t.Errorf("expected 00:00:00, got %s", got)
	}
}

func TestContainsString(t *testing.T) {
	if !ContainsString([]string{"admin", "editor"}, "admin") {
		t.Error("expected admin to be found")
	}
	if ContainsString(nil, "admin") {
		t.Error("expected nil slice to contain nothing")
	}
}
