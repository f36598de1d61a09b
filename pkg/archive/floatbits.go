// Copyright (C) kenshin contributors.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package archive

import (
	"math"

	"github.com/kenshin-db/kenshin/pkg/schema"
)

func ieeeBits(v schema.Float) uint64 {
	return math.Float64bits(float64(v))
}

func floatFromBits(bits uint64) schema.Float {
	return schema.Float(math.Float64frombits(bits))
}
