// Copyright (C) kenshin contributors.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package config loads the per-instance settings and the storage-schema
// document that configure a kenshin instance: where archive files and
// symlinks live, the token-bucket creation rate, and the metric-matching
// patterns that decide which ArchiveSpec list and cache parameters a new
// metric gets.
package config

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"regexp"

	"github.com/kenshin-db/kenshin/pkg/retention"
	"github.com/kenshin-db/kenshin/pkg/schema"
)

// DefaultWaitTime is the default for Instance.WaitTime, in seconds.
// Instance.WaitTime is loaded but not consulted elsewhere: FileCache
// flush eligibility uses filecache.DefaultWaitTime.
const DefaultWaitTime = 10

// DefaultMaxCreatesPerMinute is used when an instance settings document
// omits the field, matching the original's unthrottled default.
const DefaultMaxCreatesPerMinute = math.MaxFloat64

// Instance holds the settings that are specific to one running instance
// of the storage core rather than to any particular metric.
type Instance struct {
	Name                string  `json:"instance"`
	DataDir             string  `json:"dataDir"`
	LinkDir             string  `json:"linkDir"`
	IndexFile           string  `json:"indexFile"`
	MaxCreatesPerMinute float64 `json:"maxCreatesPerMinute"`
	WaitTime            int     `json:"waitTime"`
}

// LoadInstance reads and validates an instance settings document.
func LoadInstance(path string) (*Instance, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read instance settings: %w", err)
	}
	if err := Validate(instanceSettingsJSON, raw); err != nil {
		return nil, err
	}

	inst := &Instance{MaxCreatesPerMinute: DefaultMaxCreatesPerMinute, WaitTime: DefaultWaitTime}
	if err := json.Unmarshal(raw, inst); err != nil {
		return nil, fmt.Errorf("config: decode instance settings: %w", err)
	}
	return inst, nil
}

// rawSchema is the wire shape of one entry in a storage-schema document,
// before its pattern and retentions are parsed into a schema.Schema.
type rawSchema struct {
	Name              string   `json:"name"`
	Pattern           string   `json:"pattern"`
	XFilesFactor      float32  `json:"xFilesFactor"`
	AggregationMethod string   `json:"aggregationMethod"`
	Retentions        []string `json:"retentions"`
	CacheRetention    string   `json:"cacheRetention"`
	MetricsPerFile    int      `json:"metricsPerFile"`
	CacheRatio        float64  `json:"cacheRatio"`
}

type rawDocument struct {
	Schemas []rawSchema `json:"schemas"`
}

// DefaultSchema is the fallback schema applied to any metric that no
// pattern in the loaded document matches, mirroring rurouni's
// defaultSchema: one week of minutely averages.
var DefaultSchema = &schema.Schema{
	Name:              "default",
	XFilesFactor:      1.0,
	AggregationMethod: schema.Average,
	ArchiveList:       []schema.ArchiveSpec{{SecondsPerPoint: 60, Count: 60 * 24 * 7}},
	CacheRetention:    600,
	MetricsMaxNum:     40,
	CacheRatio:        1.2,
}

// StorageSchemas is an ordered list of pattern schemas plus the default
// schema applied when nothing matches, implementing metriccache.SchemaMatcher.
type StorageSchemas struct {
	schemas []*schema.Schema
	byName  map[string]*schema.Schema
}

// LoadStorageSchemas reads and validates a storage-schema document,
// parsing every entry's pattern and retention list.
func LoadStorageSchemas(path string) (*StorageSchemas, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read storage schemas: %w", err)
	}
	if err := Validate(storageSchemaJSON, raw); err != nil {
		return nil, err
	}

	var doc rawDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("config: decode storage schemas: %w", err)
	}

	ss := &StorageSchemas{byName: map[string]*schema.Schema{DefaultSchema.Name: DefaultSchema}}
	for _, rs := range doc.Schemas {
		s, err := buildSchema(rs)
		if err != nil {
			return nil, fmt.Errorf("config: schema %q: %w", rs.Name, err)
		}
		ss.schemas = append(ss.schemas, s)
		ss.byName[s.Name] = s
	}
	return ss, nil
}

func buildSchema(rs rawSchema) (*schema.Schema, error) {
	pattern, err := regexp.Compile(rs.Pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %w", rs.Pattern, err)
	}

	agg, ok := schema.AggregationMethodByName(rs.AggregationMethod)
	if !ok {
		return nil, fmt.Errorf("unknown aggregation method %q", rs.AggregationMethod)
	}

	archives := make([]schema.ArchiveSpec, 0, len(rs.Retentions))
	for _, def := range rs.Retentions {
		a, err := retention.ParseRetentionDef(def)
		if err != nil {
			return nil, fmt.Errorf("invalid retention %q: %w", def, err)
		}
		archives = append(archives, a)
	}

	cacheRetention, err := retention.ParseTimeString(rs.CacheRetention)
	if err != nil {
		return nil, fmt.Errorf("invalid cacheRetention %q: %w", rs.CacheRetention, err)
	}

	cacheRatio := rs.CacheRatio
	if cacheRatio <= 0 {
		cacheRatio = 1.2
	}

	return &schema.Schema{
		Name:              rs.Name,
		Pattern:           pattern,
		XFilesFactor:      rs.XFilesFactor,
		AggregationMethod: agg,
		ArchiveList:       archives,
		CacheRetention:    uint32(cacheRetention),
		MetricsMaxNum:     rs.MetricsPerFile,
		CacheRatio:        cacheRatio,
	}, nil
}

// Match returns the first pattern schema whose pattern matches metric,
// or DefaultSchema if none does.
func (ss *StorageSchemas) Match(metric string) *schema.Schema {
	for _, s := range ss.schemas {
		if s.Matches(metric) {
			return s
		}
	}
	return DefaultSchema
}

// SchemaByName returns the schema registered under name, or nil.
func (ss *StorageSchemas) SchemaByName(name string) *schema.Schema {
	return ss.byName[name]
}
