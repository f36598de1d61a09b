// Copyright (C) kenshin contributors.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// kenshind wires together one storage instance: it loads configuration,
// initializes the metric index, restores any checkpointed ring state,
// and runs the writer and checkpoint workers until a shutdown signal
// arrives. Ingest and query are external collaborators: nothing here
// opens a network listener.
package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/kenshin-db/kenshin/pkg/checkpoint"
	"github.com/kenshin-db/kenshin/pkg/config"
	"github.com/kenshin-db/kenshin/pkg/log"
	"github.com/kenshin-db/kenshin/pkg/metriccache"
	"github.com/kenshin-db/kenshin/pkg/metrics"
	"github.com/kenshin-db/kenshin/pkg/writer"
)

func main() {
	var flagInstanceConfig, flagStorageSchemas, flagEnvFile, flagCheckpointDir, flagLogLevel string
	flag.StringVar(&flagInstanceConfig, "config", "./instance.json", "path to the instance settings document")
	flag.StringVar(&flagStorageSchemas, "schemas", "./storage-schemas.json", "path to the storage-schema document")
	flag.StringVar(&flagEnvFile, "env", "./.env", "optional .env file with KENSHIN_* overrides")
	flag.StringVar(&flagCheckpointDir, "checkpoint-dir", "./var/checkpoints", "directory for FileCache ring-state snapshots")
	flag.StringVar(&flagLogLevel, "log-level", "info", "log level: debug, info, warn, err, crit")
	flag.Parse()

	log.SetLogLevel(flagLogLevel)

	if err := config.LoadEnv(flagEnvFile); err != nil {
		log.Fatalf("loading %s: %v", flagEnvFile, err)
	}

	inst, err := config.LoadInstance(flagInstanceConfig)
	if err != nil {
		log.Fatalf("loading instance settings: %v", err)
	}
	config.ApplyEnv(inst)

	schemas, err := config.LoadStorageSchemas(flagStorageSchemas)
	if err != nil {
		log.Fatalf("loading storage schemas: %v", err)
	}

	rec := metrics.New()

	mc := metriccache.New(metriccache.Options{
		DataDir:             inst.DataDir,
		LinkDir:             inst.LinkDir,
		Instance:            inst.Name,
		IndexPath:           inst.IndexFile,
		MaxCreatesPerMinute: inst.MaxCreatesPerMinute,
		Schemas:             schemas,
		Drops:               rec,
	})
	if err := mc.Init(); err != nil {
		log.Fatalf("initializing metric cache: %v", err)
	}
	defer mc.Close()

	if err := checkpoint.RestoreAll(mc, flagCheckpointDir); err != nil {
		log.Errorf("restoring checkpoints: %v", err)
	}

	w := writer.New(mc, rec, true)
	if err := w.Start(); err != nil {
		log.Fatalf("starting writer: %v", err)
	}

	cp := checkpoint.NewWorker(mc, flagCheckpointDir)
	if err := cp.Start(); err != nil {
		log.Fatalf("starting checkpoint worker: %v", err)
	}

	log.Infof("kenshind: instance %q running (data_dir=%s, link_dir=%s)", inst.Name, inst.DataDir, inst.LinkDir)

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs

	log.Info("kenshind: shutting down, flushing remaining buffered points")
	if err := w.Stop(); err != nil {
		log.Errorf("stopping writer: %v", err)
	}
	if err := cp.Stop(); err != nil {
		log.Errorf("stopping checkpoint worker: %v", err)
	}
}
