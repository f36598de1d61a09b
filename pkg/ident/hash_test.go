// Copyright (C) kenshin contributors.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package ident

import "testing"

func TestHashStable(t *testing.T) {
	a := Hash("cpu.load.1")
	b := Hash("cpu.load.1")
	if a != b {
		t.Fatalf("hash not stable: %d != %d", a, b)
	}
}

func TestInstanceBounded(t *testing.T) {
	for i := 0; i < 1000; i++ {
		metric := "metric." + string(rune('a'+i%26))
		idx := Instance(metric, 7)
		if idx < 0 || idx >= 7 {
			t.Fatalf("Instance(%q, 7) = %d out of range", metric, idx)
		}
	}
}
