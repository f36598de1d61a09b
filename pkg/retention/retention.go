// Copyright (C) kenshin contributors.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package retention parses the human-readable retention strings used in
// schema configuration ("60s:7d") into (step, count) pairs.
package retention

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/kenshin-db/kenshin/pkg/schema"
)

// ErrInvalidTime is returned for any retention or time string that does
// not match the accepted grammar.
var ErrInvalidTime = errors.New("retention: invalid time string")

// unitSeconds gives the number of seconds per unit, in the order their
// full names are matched against a prefix.
var unitNames = []string{"seconds", "minutes", "hours", "days", "weeks", "years"}
var unitSeconds = []int64{1, 60, 3600, 86400, 604800, 31536000}

// unitByPrefix returns the seconds-per-unit for the unit whose full name
// starts with prefix, matching the original's prefix-match lookup (so
// "s", "sec", "seconds" all resolve to the same unit).
func unitByPrefix(prefix string) (int64, bool) {
	prefix = strings.ToLower(prefix)
	for i, name := range unitNames {
		if strings.HasPrefix(name, prefix) {
			return unitSeconds[i], true
		}
	}
	return 0, false
}

// ParseTimeString parses "<number><unit>" where unit is any prefix of
// seconds/minutes/hours/days/weeks/years (so "s", "min", "h", "d", "w",
// "y" all work), returning the duration in seconds.
func ParseTimeString(s string) (int64, error) {
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i == 0 || i == len(s) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}
	n, err := strconv.ParseInt(s[:i], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}
	unit, ok := unitByPrefix(s[i:])
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}
	return n * unit, nil
}

// ParseRetentionDef parses a single "<precision>:<count>" retention
// definition into an ArchiveSpec. precision is always a time string;
// count may either be a plain integer (number of points) or itself a
// time string, in which case the point count is derived as
// count_time/precision.
func ParseRetentionDef(def string) (schema.ArchiveSpec, error) {
	parts := strings.SplitN(def, ":", 2)
	if len(parts) != 2 {
		return schema.ArchiveSpec{}, fmt.Errorf("%w: %q", ErrInvalidTime, def)
	}
	precision, err := ParseTimeString(parts[0])
	if err != nil {
		return schema.ArchiveSpec{}, err
	}

	var count int64
	if n, perr := strconv.ParseInt(parts[1], 10, 64); perr == nil {
		count = n
	} else {
		countTime, terr := ParseTimeString(parts[1])
		if terr != nil {
			return schema.ArchiveSpec{}, fmt.Errorf("%w: %q", ErrInvalidTime, def)
		}
		if precision == 0 {
			return schema.ArchiveSpec{}, fmt.Errorf("%w: zero precision in %q", ErrInvalidTime, def)
		}
		count = countTime / precision
	}

	if precision <= 0 || count <= 0 {
		return schema.ArchiveSpec{}, fmt.Errorf("%w: %q", ErrInvalidTime, def)
	}
	return schema.ArchiveSpec{SecondsPerPoint: uint32(precision), Count: uint32(count)}, nil
}
