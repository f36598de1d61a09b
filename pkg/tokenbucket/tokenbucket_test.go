// Copyright (C) kenshin contributors.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package tokenbucket

import (
	"testing"
	"time"
)

func TestConsumeUpToCapacity(t *testing.T) {
	b := New(60, 1)
	clock := time.Now()
	b.now = func() time.Time { return clock }

	for i := 0; i < 60; i++ {
		if !b.Consume(1) {
			t.Fatalf("consume %d: expected success", i)
		}
	}
	if b.Consume(1) {
		t.Fatal("61st consume: expected failure, bucket should be empty")
	}
}

func TestRefillIsLazyAndLinear(t *testing.T) {
	b := New(60, 1)
	clock := time.Now()
	b.now = func() time.Time { return clock }

	for i := 0; i < 60; i++ {
		b.Consume(1)
	}

	clock = clock.Add(1 * time.Second)
	if !b.Consume(1) {
		t.Fatal("expected one token to have refilled after 1s at fill rate 1/s")
	}
}

func TestTokensNeverExceedCapacity(t *testing.T) {
	b := New(10, 5)
	clock := time.Now()
	b.now = func() time.Time { return clock }

	clock = clock.Add(1 * time.Hour)
	if got := b.Tokens(); got != 10 {
		t.Fatalf("Tokens() = %v, want capped at capacity 10", got)
	}
}
