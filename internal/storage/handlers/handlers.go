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

// Package handlers implements the nine type handlers (spec §4.6): the
// per-entity actions the executor dispatches to. Each handler shares
// the skeleton spec §4.6 describes: validate, honor preserve,
// act, persist side-state.
package handlers

import (
	"github.com/flatcar-linux/storage-apply/internal/log"
	"github.com/flatcar-linux/storage-apply/internal/storage/model"
	"github.com/flatcar-linux/storage-apply/internal/storage/probe"
	"github.com/flatcar-linux/storage-apply/internal/storage/resolve"
	"github.com/flatcar-linux/storage-apply/internal/storage/shell"
	"github.com/flatcar-linux/storage-apply/internal/storage/sidefiles"
	"github.com/flatcar-linux/storage-apply/internal/storage/store"
	"github.com/flatcar-linux/storage-apply/internal/storage/wipe"
	"github.com/flatcar-linux/storage-apply/internal/storage/xerr"
)

// SectorSize is assumed uniform across every device this executor
// touches, matching curtin's own reliance on a disk's reported logical
// sector size defaulting to 512 in the overwhelming majority of real
// installer targets.
const SectorSize = 512

// Context bundles everything a handler needs: the entity store, the
// path resolver, the subprocess gateway and its derived engines, the
// side-file writer, and the target root mounts are made under.
type Context struct {
	Store     *store.Store
	Resolver  *resolve.Resolver
	Gateway   *shell.Gateway
	Wipe      *wipe.Engine
	Probe     *probe.Prober
	Sidefiles *sidefiles.Writer
	Logger    *log.Logger
	Target    string
}

// Handler performs one entity's action.
type Handler func(ctx *Context, e model.Entity) error

// Dispatch maps each entity type to its handler, per spec §4.7.
var Dispatch = map[model.Type]Handler{
	model.Disk:         Disk,
	model.Partition:    Partition,
	model.Format:       Format,
	model.Mount:        Mount,
	model.LVMVolgroup:  LVMVolgroup,
	model.LVMPartition: LVMPartition,
	model.DMCrypt:      DMCrypt,
	model.Raid:         Raid,
	model.Bcache:       Bcache,
}

func dispatch(ctx *Context, e model.Entity) error {
	h, ok := Dispatch[e.Type]
	if !ok {
		return xerr.Configf("no handler registered for type %q", e.Type)
	}
	return h(ctx, e)
}
