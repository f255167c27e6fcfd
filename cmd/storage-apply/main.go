// Copyright 2015 CoreOS, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Command storage-apply drives the custom-mode storage graph executor
// over a declarative entity list. Flag parsing stays deliberately thin:
// it loads the storage config file, validates the entity list through
// the entity store, and runs the executor. The simple (whole-disk)
// installer path is not implemented here.
package main

import (
	"fmt"
	"os"

	"gopkg.in/alecthomas/kingpin.v2"

	"github.com/flatcar-linux/storage-apply/internal/config"
	"github.com/flatcar-linux/storage-apply/internal/log"
	"github.com/flatcar-linux/storage-apply/internal/storage/executor"
	"github.com/flatcar-linux/storage-apply/internal/storage/handlers"
	"github.com/flatcar-linux/storage-apply/internal/storage/probe"
	"github.com/flatcar-linux/storage-apply/internal/storage/resolve"
	"github.com/flatcar-linux/storage-apply/internal/storage/shell"
	"github.com/flatcar-linux/storage-apply/internal/storage/sidefiles"
	"github.com/flatcar-linux/storage-apply/internal/storage/store"
	"github.com/flatcar-linux/storage-apply/internal/storage/sync"
	"github.com/flatcar-linux/storage-apply/internal/storage/wipe"
)

var (
	app = kingpin.New("storage-apply", "Custom-mode storage graph executor")

	configPath = app.Flag("config", "path to the storage config (JSON or YAML)").Required().String()
	target     = app.Flag("target", "chroot root under which mounts are made").Default("/target").String()
	fstab      = app.Flag("fstab", "absolute path of the fstab file to append to").String()
	toStdout   = app.Flag("log-to-stdout", "log to stdout instead of stderr").Bool()
)

func main() {
	kingpin.MustParse(app.Parse(os.Args[1:]))

	logger := log.New(*toStdout)
	defer logger.Close()

	if err := run(&logger); err != nil {
		logger.Crit("%v", err)
		os.Exit(1)
	}
}

func run(logger *log.Logger) error {
	entities, err := config.LoadEntities(*configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	st, err := store.New(entities)
	if err != nil {
		return fmt.Errorf("validating config: %w", err)
	}

	gw := shell.New(logger)
	sy := sync.New(gw)
	resolver := resolve.New(st, sy)

	ctx := &handlers.Context{
		Store:     st,
		Resolver:  resolver,
		Gateway:   gw,
		Wipe:      wipe.New(gw),
		Probe:     probe.New(gw),
		Sidefiles: sidefiles.New(*fstab, logger),
		Logger:    logger,
		Target:    *target,
	}

	return executor.New(ctx).Run()
}
