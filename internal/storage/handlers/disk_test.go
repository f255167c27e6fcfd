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
	"github.com/flatcar-linux/storage-apply/internal/storage/testutil"
)

func TestPreserveDiskNoPtableIsNoop(t *testing.T) {
	ctx := newTestContext()
	err := preserveDisk(ctx, model.Entity{ID: "sda"}, "/dev/sda")
	assert.NoError(t, err)
}

func TestPreserveDiskMatchingGPT(t *testing.T) {
	ctx := newTestContext()
	fake := testutil.NewFakeCmdOutput(t, "blkid", "PTTYPE=gpt\n", 0)
	distro.SetOverride("blkid", fake.Path())
	defer distro.SetOverride("blkid", "blkid")
	ctx.Probe = probe.New(ctx.Gateway)

	err := preserveDisk(ctx, model.Entity{ID: "sda", Ptable: "gpt"}, "/dev/sda")
	assert.NoError(t, err)
}

func TestPreserveDiskMismatch(t *testing.T) {
	ctx := newTestContext()
	fake := testutil.NewFakeCmdOutput(t, "blkid", "PTTYPE=dos\n", 0)
	distro.SetOverride("blkid", fake.Path())
	defer distro.SetOverride("blkid", "blkid")
	ctx.Probe = probe.New(ctx.Gateway)

	err := preserveDisk(ctx, model.Entity{ID: "sda", Ptable: "gpt"}, "/dev/sda")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected")
}

func TestPreserveDiskNoReadableTable(t *testing.T) {
	ctx := newTestContext()
	fake := testutil.NewFakeCmdOutput(t, "blkid", "", 2)
	distro.SetOverride("blkid", fake.Path())
	defer distro.SetOverride("blkid", "blkid")
	ctx.Probe = probe.New(ctx.Gateway)

	err := preserveDisk(ctx, model.Entity{ID: "sda", Ptable: "gpt"}, "/dev/sda")
	assert.Error(t, err)
}

func TestWipeDiskNoPartitionsIsNoop(t *testing.T) {
	ctx := newTestContext()
	err := wipeDisk(ctx, "/dev/nonexistent-disk-for-test")
	assert.NoError(t, err)
}

func TestTeardownLVMNoPvdisplayIsNoop(t *testing.T) {
	ctx := newTestContext()
	fake := testutil.NewFakeCmd(t, "pvdisplay", 1)
	distro.SetOverride("pvdisplay", fake.Path())
	defer distro.SetOverride("pvdisplay", "pvdisplay")

	err := teardownLVM(ctx, []string{"/dev/sda1"})
	assert.NoError(t, err)
}
