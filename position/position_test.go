package position

import "testing"

func TestFromStringRoundTrip(t *testing.T) {
	cases := []struct {
		text string
		pos  Position
	}{
		{"A1", Position{Row: 0, Col: 0}},
		{"Z1", Position{Row: 0, Col: 25}},
		{"AA1", Position{Row: 0, Col: 26}},
		{"AZ1", Position{Row: 0, Col: 51}},
		{"BA1", Position{Row: 0, Col: 52}},
		{"A10", Position{Row: 9, Col: 0}},
		{"Z9", Position{Row: 8, Col: 25}},
	}

	for _, c := range cases {
		pos, ok := FromString(c.text)
		if !ok {
			t.Errorf("FromString(%q): ok = false, want true", c.text)
			continue
		}
		if pos != c.pos {
			t.Errorf("FromString(%q) = %+v, want %+v", c.text, pos, c.pos)
		}
		if got := pos.String(); got != c.text {
			t.Errorf("Position{%d,%d}.String() = %q, want %q", pos.Row, pos.Col, got, c.text)
		}
	}
}

func TestFromStringRejectsInvalidShapes(t *testing.T) {
	invalid := []string{"", "1", "A", "1A", "A1A", "a1", "A0", "A-1", "A1.5", "AAAAAAAAAA1"}
	for _, text := range invalid {
		if _, ok := FromString(text); ok {
			t.Errorf("FromString(%q): ok = true, want false", text)
		}
	}
}

func TestFromStringRejectsOutOfRange(t *testing.T) {
	if _, ok := FromString("A100000"); ok {
		t.Errorf("FromString(A100000): ok = true, want false (row out of range)")
	}
}

func TestIsValid(t *testing.T) {
	if !(Position{Row: 0, Col: 0}).IsValid() {
		t.Errorf("Position{0,0} should be valid")
	}
	if (Position{Row: -1, Col: 0}).IsValid() {
		t.Errorf("Position{-1,0} should be invalid")
	}
	if (Position{Row: MaxRows, Col: 0}).IsValid() {
		t.Errorf("Position{MaxRows,0} should be invalid")
	}
}

func TestMustFromStringPanicsOnInvalid(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Errorf("MustFromString(invalid) did not panic")
		}
	}()
	MustFromString("not a position")
}

func TestPositionRoundTripSampledPositions(t *testing.T) {
	for _, text := range []string{"A1", "B2", "Z26", "AA1", "ZZ100"} {
		pos := MustFromString(text)
		if got, ok := FromString(pos.String()); !ok || got != pos {
			t.Errorf("round trip failed for %q", text)
		}
	}
}
