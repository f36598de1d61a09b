// Copyright (C) kenshin contributors.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package ident provides the 32-bit FNV-1a hash used to route a metric
// name to one of several instances.
//
// The source this core is grounded on carries two subtly different
// hash implementations for this purpose ("bug-free" FNV-1a in one
// module, a plain FNV-1a in another) without documenting which is
// canonical. This package picks the textbook FNV-1a algorithm via the
// standard library's hash/fnv — no third-party FNV implementation
// appears anywhere in the retrieval pack, and hash/fnv is the ordinary
// Go answer for this, not a fallback.
package ident

import "hash/fnv"

// Hash returns the 32-bit FNV-1a hash of metric.
func Hash(metric string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(metric))
	return h.Sum32()
}

// Instance maps metric onto one of numInstances buckets by hashing its
// name and reducing modulo the instance count.
func Instance(metric string, numInstances int) int {
	if numInstances <= 0 {
		return 0
	}
	return int(Hash(metric) % uint32(numInstances))
}
