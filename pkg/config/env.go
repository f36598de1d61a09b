// Copyright (C) kenshin contributors.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package config

import (
	"os"

	"github.com/joho/godotenv"
)

// Environment variable names an instance's .env file may set to override
// the corresponding field of Instance after it has been loaded from the
// settings document. EnvLogLevel has no Instance field and is not read by
// ApplyEnv or anywhere else; the log level comes from SetLogLevel.
const (
	EnvInstance = "KENSHIN_INSTANCE"
	EnvDataDir  = "KENSHIN_DATA_DIR"
	EnvLinkDir  = "KENSHIN_LINK_DIR"
	EnvLogLevel = "KENSHIN_LOG_LEVEL"
)

// LoadEnv reads envPath (if present) into the process environment without
// overwriting variables already set there, matching godotenv's usual
// bootstrapping contract. A missing file is not an error: instances that
// configure everything through the settings document need no .env at all.
func LoadEnv(envPath string) error {
	if _, err := os.Stat(envPath); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return godotenv.Load(envPath)
}

// ApplyEnv overlays KENSHIN_INSTANCE, KENSHIN_DATA_DIR and
// KENSHIN_LINK_DIR onto inst, giving the process environment the final
// say over the settings document.
func ApplyEnv(inst *Instance) {
	if v := os.Getenv(EnvInstance); v != "" {
		inst.Name = v
	}
	if v := os.Getenv(EnvDataDir); v != "" {
		inst.DataDir = v
	}
	if v := os.Getenv(EnvLinkDir); v != "" {
		inst.LinkDir = v
	}
}
