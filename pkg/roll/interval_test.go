package roll

import "testing"

func TestClassify(t *testing.T) {
	tests := []struct {
		pitch int
		root  int
		class IntervalClass
		label string
	}{
		{60, 0, ClassRoot, "Root"},           // C over C
		{63, 0, ClassStable, "Minor 3rd"},    // Eb
		{64, 0, ClassStable, "Major 3rd"},    // E
		{67, 0, ClassStable, "Perfect 5th"},  // G
		{62, 0, ClassColor, "Major 2nd (9th)"},
		{69, 0, ClassColor, "Major 6th (13th)"},
		{70, 0, ClassColor, "Minor 7th"},
		{71, 0, ClassColor, "Major 7th"},
		{61, 0, ClassChromatic, "Minor 2nd"},
		{65, 0, ClassChromatic, "Perfect 4th"},
		{66, 0, ClassChromatic, "Tritone"},
		{68, 0, ClassChromatic, "Minor 6th"},
		{60, 9, ClassStable, "Minor 3rd"}, // C over A
		{69, 9, ClassRoot, "Root"},        // A over A
	}
	for _, tt := range tests {
		class, label := Classify(tt.pitch, tt.root)
		if class != tt.class || label != tt.label {
			t.Errorf("Classify(%d, %d) = (%d, %q), want (%d, %q)",
				tt.pitch, tt.root, class, label, tt.class, tt.label)
		}
	}
}

func TestClassify_OctaveInvariant(t *testing.T) {
	for pitch := 0; pitch < 128-12; pitch++ {
		a, _ := Classify(pitch, 7)
		b, _ := Classify(pitch+12, 7)
		if a != b {
			t.Fatalf("Classify(%d) = %d but Classify(%d) = %d", pitch, a, pitch+12, b)
		}
	}
}

func TestParseKey(t *testing.T) {
	tests := []struct {
		name string
		want int
	}{
		{"C", 0}, {"c", 0}, {" C ", 0},
		{"C#", 1}, {"Db", 1},
		{"F#", 6}, {"Gb", 6},
		{"A", 9}, {"Bb", 10}, {"B", 11},
	}
	for _, tt := range tests {
		got, err := ParseKey(tt.name)
		if err != nil {
			t.Errorf("ParseKey(%q) failed: %v", tt.name, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseKey(%q) = %d, want %d", tt.name, got, tt.want)
		}
	}
}

func TestParseKey_Unknown(t *testing.T) {
	for _, name := range []string{"H", "C##", "", "12"} {
		if _, err := ParseKey(name); err == nil {
			t.Errorf("ParseKey(%q) succeeded, want error", name)
		}
	}
}

func TestPitchName(t *testing.T) {
	tests := []struct {
		pitch int
		want  string
	}{
		{60, "C4"}, {69, "A4"}, {0, "C-1"}, {127, "G9"}, {61, "C#4"},
	}
	for _, tt := range tests {
		if got := PitchName(tt.pitch); got != tt.want {
			t.Errorf("PitchName(%d) = %q, want %q", tt.pitch, got, tt.want)
		}
	}
}

func TestPitchName_OutOfRange(t *testing.T) {
	if got := PitchName(-1); got != "?-1" {
		t.Errorf("PitchName(-1) = %q", got)
	}
	if got := PitchName(128); got != "?128" {
		t.Errorf("PitchName(128) = %q", got)
	}
}
