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

package executor

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flatcar-linux/storage-apply/internal/log"
	"github.com/flatcar-linux/storage-apply/internal/storage/handlers"
	"github.com/flatcar-linux/storage-apply/internal/storage/model"
	"github.com/flatcar-linux/storage-apply/internal/storage/store"
	"github.com/flatcar-linux/storage-apply/internal/storage/xerr"
)

func withFakeDispatch(t *testing.T, fake map[model.Type]handlers.Handler) {
	orig := handlers.Dispatch
	handlers.Dispatch = fake
	t.Cleanup(func() { handlers.Dispatch = orig })
}

func TestRunRealizesEntitiesInOrder(t *testing.T) {
	var seen []string
	withFakeDispatch(t, map[model.Type]handlers.Handler{
		model.Disk: func(ctx *handlers.Context, e model.Entity) error {
			seen = append(seen, e.ID)
			return nil
		},
		model.Partition: func(ctx *handlers.Context, e model.Entity) error {
			seen = append(seen, e.ID)
			return nil
		},
	})

	st, err := store.New([]model.Entity{
		{ID: "sda", Type: model.Disk, Path: "/dev/sda", Ptable: "gpt"},
		{ID: "sda1", Type: model.Partition, Device: "sda", Size: "1GiB"},
	})
	require.NoError(t, err)

	logger := log.New(false)
	ex := New(&handlers.Context{Store: st, Logger: &logger})
	require.NoError(t, ex.Run())
	assert.Equal(t, []string{"sda", "sda1"}, seen)
}

func TestRunStopsAndTagsEntityOnFirstError(t *testing.T) {
	var seen []string
	withFakeDispatch(t, map[model.Type]handlers.Handler{
		model.Disk: func(ctx *handlers.Context, e model.Entity) error {
			seen = append(seen, e.ID)
			return nil
		},
		model.Partition: func(ctx *handlers.Context, e model.Entity) error {
			seen = append(seen, e.ID)
			return xerr.Configf("boom")
		},
		model.Format: func(ctx *handlers.Context, e model.Entity) error {
			seen = append(seen, e.ID)
			return nil
		},
	})

	st, err := store.New([]model.Entity{
		{ID: "sda", Type: model.Disk, Path: "/dev/sda", Ptable: "gpt"},
		{ID: "sda1", Type: model.Partition, Device: "sda", Size: "1GiB"},
		{ID: "fmt0", Type: model.Format, Volume: "sda1", Fstype: "ext4"},
	})
	require.NoError(t, err)

	logger := log.New(false)
	ex := New(&handlers.Context{Store: st, Logger: &logger})
	err = ex.Run()
	require.Error(t, err)
	assert.Equal(t, []string{"sda", "sda1"}, seen)

	var tagged *xerr.Error
	require.True(t, errors.As(err, &tagged))
	assert.Equal(t, "sda1", tagged.Entity)
}
