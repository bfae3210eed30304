package measure

import "testing"

func TestRound2(t *testing.T) {
	tests := []struct {
		name string
		in   float64
		want float64
	}{
		{"integer stays", 13, 13},
		{"two decimals kept", 10.46, 10.46},
		{"third decimal rounds up", 10.456, 10.46},
		{"third decimal rounds down", 10.454, 10.45},
		{"negative", -3.789, -3.79},
		{"zero", 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Round2(tt.in); got != tt.want {
				t.Errorf("Round2(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestFormatNumber(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{13, "13"},
		{10.46, "10.46"},
		{10.5, "10.5"},
		{0, "0"},
		{-2.25, "-2.25"},
	}

	for _, tt := range tests {
		if got := FormatNumber(tt.in); got != tt.want {
			t.Errorf("FormatNumber(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatValueUnit(t *testing.T) {
	tests := []struct {
		name string
		v    float64
		unit string
		want string
	}{
		{"value with unit", 10.456, "mm", "10.46 mm"},
		{"integer drops decimals", 13.0, "mm", "13 mm"},
		{"degree unit", 45.671, DegreeUnit, "45.67 °"},
		{"empty unit collapses space", 7.5, "", "7.5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatValueUnit(tt.v, tt.unit); got != tt.want {
				t.Errorf("FormatValueUnit(%v, %q) = %q, want %q", tt.v, tt.unit, got, tt.want)
			}
		})
	}
}

func TestSecondaryLine(t *testing.T) {
	tests := []struct {
		name           string
		seriesNumber   string
		instanceNumber int
		frameNumber    int
		isMultiFrame   bool
		want           string
	}{
		{"series and instance", "3", 12, 1, false, "S: 3 I: 12"},
		{"multiframe adds frame", "3", 12, 5, true, "S: 3 I: 12 F: 5"},
		{"no instance match omits segment", "3", 0, 1, false, "S: 3"},
		{"no series yields instance only", "", 4, 1, false, "I: 4"},
		{"nothing resolvable", "", 0, 0, false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SecondaryLine(tt.seriesNumber, tt.instanceNumber, tt.frameNumber, tt.isMultiFrame)
			if got != tt.want {
				t.Errorf("SecondaryLine() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestUnitForModality(t *testing.T) {
	tests := []struct {
		modality string
		want     string
	}{
		{"CT", "HU"},
		{"PT", "SUV"},
		{"MR", ""},
		{"US", ""},
		{"", ""},
	}

	for _, tt := range tests {
		if got := UnitForModality(tt.modality); got != tt.want {
			t.Errorf("UnitForModality(%q) = %q, want %q", tt.modality, got, tt.want)
		}
	}
}
