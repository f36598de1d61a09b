// Copyright (C) kenshin contributors.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package config

// storageSchemaJSON is the JSON Schema that a storage-schema document must
// validate against. It mirrors the shape rurouni's storage-schemas.conf
// expressed as INI sections, one object per pattern schema.
const storageSchemaJSON = `{
  "type": "object",
  "description": "Storage schemas: metric-matching patterns and their retention policy.",
  "properties": {
    "schemas": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "name": { "type": "string" },
          "pattern": {
            "description": "Regular expression matched against a metric name.",
            "type": "string"
          },
          "xFilesFactor": {
            "description": "Scales the span of fine points that triggers propagation into the next tier; a coarse point is aggregated from any non-null fine points, however few.",
            "type": "number",
            "minimum": 0,
            "maximum": 1
          },
          "aggregationMethod": {
            "type": "string",
            "enum": ["average", "sum", "last", "max", "min"]
          },
          "retentions": {
            "description": "List of \"precision:retention\" archive definitions, finest first.",
            "type": "array",
            "items": { "type": "string" },
            "minItems": 1
          },
          "cacheRetention": {
            "description": "How long a point stays in the in-memory ring before it must be flushed.",
            "type": "string"
          },
          "metricsPerFile": {
            "description": "Maximum number of metrics packed into one archive file.",
            "type": "integer",
            "minimum": 1
          },
          "cacheRatio": {
            "description": "Ring buffer size multiplier over the minimum required by cacheRetention.",
            "type": "number",
            "exclusiveMinimum": 0
          }
        },
        "required": ["name", "pattern", "xFilesFactor", "aggregationMethod", "retentions", "cacheRetention", "metricsPerFile"]
      }
    }
  },
  "required": ["schemas"]
}`

// instanceSettingsJSON is the JSON Schema that an instance settings
// document must validate against.
const instanceSettingsJSON = `{
  "type": "object",
  "description": "Per-instance settings for a kenshin storage instance.",
  "properties": {
    "instance": { "type": "string" },
    "dataDir": { "type": "string" },
    "linkDir": { "type": "string" },
    "indexFile": { "type": "string" },
    "maxCreatesPerMinute": { "type": "number", "exclusiveMinimum": 0 },
    "waitTime": { "type": "integer", "minimum": 0 }
  },
  "required": ["instance", "dataDir", "linkDir", "indexFile"]
}`
