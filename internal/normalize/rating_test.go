package normalize

import "testing"

func TestRoundOneDecimal(t *testing.T) {
	cases := map[float64]float64{
		0:     0,
		0.15:  0.2,
		7.45:  7.5,
		7.44:  7.4,
		9.999: 10,
		26.0 / 3: 8.7,
	}
	for in, want := range cases {
		if got := roundOneDecimal(in); got != want {
			t.Errorf("roundOneDecimal(%v) = %v, want %v", in, got, want)
		}
	}
}

func TestCanonicalTimestamp(t *testing.T) {
	got, err := canonicalTimestamp("2024-03-15 14:30:00")
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if got != "2024-03-15T14:30:00.000Z" {
		t.Fatalf("got %s", got)
	}
	for _, bad := range []string{"", "2024-03-15T14:30:00Z", "2024-03-15 14:30", " 2024-03-15 14:30:00", "2024-3-15 14:30:00"} {
		if _, err := canonicalTimestamp(bad); err == nil {
			t.Errorf("expected error for %q", bad)
		}
	}
}
