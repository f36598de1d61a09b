// Copyright (C) kenshin contributors.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package retention

import "testing"

func TestParseTimeStringUnits(t *testing.T) {
	cases := map[string]int64{
		"60s":  60,
		"5m":   300,
		"2h":   7200,
		"7d":   604800,
		"1w":   604800,
		"1y":   31536000,
		"10seconds": 10,
	}
	for in, want := range cases {
		got, err := ParseTimeString(in)
		if err != nil {
			t.Fatalf("ParseTimeString(%q): %v", in, err)
		}
		if got != want {
			t.Errorf("ParseTimeString(%q) = %d, want %d", in, got, want)
		}
	}
}

func TestParseTimeStringInvalid(t *testing.T) {
	for _, in := range []string{"", "abc", "60", "60x", "-1s"} {
		if _, err := ParseTimeString(in); err == nil {
			t.Errorf("ParseTimeString(%q): expected error", in)
		}
	}
}

func TestParseRetentionDef(t *testing.T) {
	spec, err := ParseRetentionDef("60s:7d")
	if err != nil {
		t.Fatal(err)
	}
	if spec.SecondsPerPoint != 60 || spec.Count != 10080 {
		t.Errorf("got %+v, want step=60 count=10080", spec)
	}
}

func TestParseRetentionDefPlainCount(t *testing.T) {
	spec, err := ParseRetentionDef("1s:60")
	if err != nil {
		t.Fatal(err)
	}
	if spec.SecondsPerPoint != 1 || spec.Count != 60 {
		t.Errorf("got %+v, want step=1 count=60", spec)
	}
}
