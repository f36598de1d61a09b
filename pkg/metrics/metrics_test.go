// Copyright (C) kenshin contributors.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestIncDroppedIncrementsCounter(t *testing.T) {
	r := New()
	r.IncDropped()
	r.IncDropped()

	if got := testutil.ToFloat64(r.DroppedTotal); got != 2 {
		t.Errorf("DroppedTotal = %v, want 2", got)
	}
}

func TestCollectorsReturnsAllFour(t *testing.T) {
	r := New()
	if len(r.Collectors()) != 4 {
		t.Errorf("Collectors() len = %d, want 4", len(r.Collectors()))
	}
}

func TestUpdateDurationObserve(t *testing.T) {
	r := New()
	r.UpdateDuration.Observe(0.5)
	if got := testutil.CollectAndCount(r.UpdateDuration); got != 1 {
		t.Errorf("CollectAndCount = %d, want 1", got)
	}
}
