package core

import "testing"

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"12.34", 1234, false},
		{"12,34", 1234, false},
		{"-12.34", -1234, false},
		{"0", 0, false},
		{"12.345", 1235, false},
		{"12.344", 1234, false},
		{"-0.005", -1, false},
		{" 7.1 ", 710, false},
		{"", 0, true},
		{"abc", 0, true},
		{"1,234.56", 0, true},
		{"92233720368547758.08", 0, true},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("ParseAmount(%q) expected error, got %d", tc.in, got)
			}
			continue
		}
		if err != nil {
			t.Fatalf("ParseAmount(%q) unexpected error: %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("ParseAmount(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestMoneyString(t *testing.T) {
	cases := map[int64]string{
		0:     "0.00",
		1250:  "12.50",
		-1250: "-12.50",
		-5:    "-0.05",
	}
	for cents, want := range cases {
		if got := (Money{Cents: cents}).String(); got != want {
			t.Fatalf("Money{%d}.String() = %q, want %q", cents, got, want)
		}
	}
}
