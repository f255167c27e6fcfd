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

	"github.com/flatcar-linux/storage-apply/internal/storage/distro"
	"github.com/flatcar-linux/storage-apply/internal/storage/model"
	"github.com/flatcar-linux/storage-apply/internal/storage/probe"
	"github.com/flatcar-linux/storage-apply/internal/storage/resolve"
	"github.com/flatcar-linux/storage-apply/internal/storage/store"
	"github.com/flatcar-linux/storage-apply/internal/storage/testutil"
)

func TestMountRequiresPathForNonSwap(t *testing.T) {
	st, err := store.New([]model.Entity{
		{ID: "sda", Type: model.Disk, Path: "/dev/sda", Ptable: "gpt"},
		{ID: "sda1", Type: model.Partition, Device: "sda", Size: "1GiB"},
		{ID: "fmt0", Type: model.Format, Volume: "sda1", Fstype: "ext4"},
		{ID: "mnt0", Type: model.Mount, Device: "fmt0"},
	})
	require.NoError(t, err)

	ctx := newTestContext()
	ctx.Store = st

	err = Mount(ctx, model.Entity{ID: "mnt0", Device: "fmt0"})
	assert.Error(t, err)
}

func TestMountSwapNeedsNoPath(t *testing.T) {
	st, err := store.New([]model.Entity{
		{ID: "sda", Type: model.Disk, Path: "/dev/sda", Ptable: "gpt"},
		{ID: "sda1", Type: model.Partition, Device: "sda", Size: "1GiB"},
		{ID: "fmt0", Type: model.Format, Volume: "sda1", Fstype: "swap"},
		{ID: "mnt0", Type: model.Mount, Device: "fmt0"},
	})
	require.NoError(t, err)

	ctx := newTestContext()
	ctx.Store = st
	ctx.Resolver = resolve.New(st, nil)

	// Swap entries never validate a path, but resolving the volume still
	// hits the (nonexistent, in this test) disk; this only exercises
	// the path-required check above it.
	err = Mount(ctx, model.Entity{ID: "mnt0", Device: "fmt0"})
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "path to mountpoint")
}

func TestFstabLocationRaidUsesResolvedPath(t *testing.T) {
	ctx := newTestContext()
	loc, err := fstabLocation(ctx, model.Entity{Type: model.Raid}, "/dev/md0")
	require.NoError(t, err)
	assert.Equal(t, "/dev/md0", loc)
}

func TestFstabLocationPartitionUsesUUID(t *testing.T) {
	ctx := newTestContext()
	fake := testutil.NewFakeCmdOutput(t, "blkid", "UUID=abcd-1234\n", 0)
	distro.SetOverride("blkid", fake.Path())
	defer distro.SetOverride("blkid", "blkid")
	ctx.Probe = probe.New(ctx.Gateway)

	loc, err := fstabLocation(ctx, model.Entity{Type: model.Partition}, "/dev/sda1")
	require.NoError(t, err)
	assert.Equal(t, "UUID=abcd-1234", loc)
}

func TestFstabLocationPartitionNoUUIDFails(t *testing.T) {
	ctx := newTestContext()
	fake := testutil.NewFakeCmdOutput(t, "blkid", "", 2)
	distro.SetOverride("blkid", fake.Path())
	defer distro.SetOverride("blkid", "blkid")
	ctx.Probe = probe.New(ctx.Gateway)

	_, err := fstabLocation(ctx, model.Entity{Type: model.Partition}, "/dev/sda1")
	assert.Error(t, err)
}

func TestFstabLocationRejectsUnknownType(t *testing.T) {
	ctx := newTestContext()
	_, err := fstabLocation(ctx, model.Entity{Type: model.Disk}, "/dev/sda")
	assert.Error(t, err)
}
