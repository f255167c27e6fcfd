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

// Package executor is the custom-mode storage graph executor (spec
// §4.7): it iterates the declarative entity list in input order and
// dispatches each record to its type handler, with no checkpointing
// and no retry.
package executor

import (
	"github.com/flatcar-linux/storage-apply/internal/log"
	"github.com/flatcar-linux/storage-apply/internal/storage/handlers"
	"github.com/flatcar-linux/storage-apply/internal/storage/xerr"
)

// Executor drives handlers.Context's handlers over a handlers.Context's
// store, one entity at a time.
type Executor struct {
	Context *handlers.Context
	Logger  *log.Logger
}

// New returns an Executor over ctx.
func New(ctx *handlers.Context) *Executor {
	return &Executor{Context: ctx, Logger: ctx.Logger}
}

// Run iterates every entity in the store's input order, running its
// handler to completion before the next begins. The first failure
// aborts the run: it's annotated with the entity id and error class,
// logged, and returned.
func (ex *Executor) Run() error {
	for _, e := range ex.Context.Store.Ordered() {
		h, ok := handlers.Dispatch[e.Type]
		if !ok {
			return xerr.WithEntity(e.ID, xerr.Configf("no handler registered for type %q", e.Type))
		}

		ex.Logger.PushPrefix("%s", e.ID)
		err := h(ex.Context, e)
		ex.Logger.PopPrefix()

		if err != nil {
			tagged := xerr.WithEntity(e.ID, err)
			ex.Logger.Crit("entity %q failed (%s): %v", e.ID, xerr.TagOf(tagged), tagged)
			return tagged
		}
		ex.Logger.Info("entity %q realized", e.ID)
	}
	return nil
}
