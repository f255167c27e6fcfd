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

package handlers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flatcar-linux/storage-apply/internal/storage/model"
	"github.com/flatcar-linux/storage-apply/internal/storage/store"
	"github.com/flatcar-linux/storage-apply/internal/storage/xerr"
)

func TestLVMPartitionRejectsPtable(t *testing.T) {
	ctx := newTestContext()
	err := LVMPartition(ctx, model.Entity{ID: "lv1", Ptable: "gpt"})
	require.Error(t, err)
	assert.Equal(t, xerr.Unsupported, xerr.TagOf(err))
}

func TestLVMPartitionRejectsAsymmetricPreserve(t *testing.T) {
	entities := []model.Entity{
		{ID: "vg0", Type: model.LVMVolgroup, Name: "vg0", Devices: []string{"sda1"}, Preserve: true},
	}
	// a standalone partial store suffices: MustGet only needs the volgroup entry.
	st, err := store.New(append([]model.Entity{
		{ID: "sda", Type: model.Disk, Path: "/dev/sda", Ptable: "gpt"},
		{ID: "sda1", Type: model.Partition, Device: "sda", Size: "1GiB", Preserve: true},
	}, entities...))
	require.NoError(t, err)

	ctx := newTestContext()
	ctx.Store = st

	err = LVMPartition(ctx, model.Entity{ID: "lv1", Volgroup: "vg0", Name: "data"})
	require.Error(t, err)
	assert.Equal(t, xerr.Unsupported, xerr.TagOf(err))
}

func TestLVMVolgroupRequiresDevices(t *testing.T) {
	ctx := newTestContext()
	err := LVMVolgroup(ctx, model.Entity{ID: "vg0", Name: "vg0"})
	assert.Error(t, err)
}

func TestLVMVolgroupRequiresName(t *testing.T) {
	ctx := newTestContext()
	err := LVMVolgroup(ctx, model.Entity{ID: "vg0", Devices: []string{"sda1"}})
	assert.Error(t, err)
}
