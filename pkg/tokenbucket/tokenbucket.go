// Copyright (C) kenshin contributors.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package tokenbucket implements the classic leaky-bucket rate limiter
// used to cap how many new metric slots MetricCache may allocate per
// minute.
package tokenbucket

import "time"

// Bucket is a token bucket with lazy linear refill: tokens top up only
// when read, rather than on a ticking goroutine, matching the source
// this is grounded on.
type Bucket struct {
	capacity  float64
	fillRate  float64 // tokens per second
	tokens    float64
	timestamp time.Time
	now       func() time.Time
}

// New creates a bucket starting full at capacity, refilling at
// fillRate tokens/sec.
func New(capacity, fillRate float64) *Bucket {
	return &Bucket{
		capacity:  capacity,
		fillRate:  fillRate,
		tokens:    capacity,
		timestamp: time.Now(),
		now:       time.Now,
	}
}

// Tokens returns the current token count after applying any refill
// owed since the last read.
func (b *Bucket) Tokens() float64 {
	now := b.now()
	if b.tokens < b.capacity {
		delta := b.fillRate * now.Sub(b.timestamp).Seconds()
		b.tokens = min(b.capacity, b.tokens+delta)
	}
	b.timestamp = now
	return b.tokens
}

// Consume attempts to withdraw n tokens. It returns false and leaves the
// bucket unchanged if fewer than n tokens are currently available.
func (b *Bucket) Consume(n float64) bool {
	if n > b.Tokens() {
		return false
	}
	b.tokens -= n
	return true
}
