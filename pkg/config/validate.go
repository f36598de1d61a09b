// Copyright (C) kenshin contributors.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package config

import (
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Validate checks raw against the given embedded JSON Schema document.
func Validate(schemaDoc string, raw json.RawMessage) error {
	sch, err := jsonschema.CompileString("schema.json", schemaDoc)
	if err != nil {
		return fmt.Errorf("config: compile schema: %w", err)
	}

	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return fmt.Errorf("config: unmarshal document: %w", err)
	}

	if err := sch.Validate(v); err != nil {
		return fmt.Errorf("config: validate document: %w", err)
	}
	return nil
}
