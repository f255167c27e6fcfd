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
	"github.com/flatcar-linux/storage-apply/internal/storage/model"
	"github.com/flatcar-linux/storage-apply/internal/storage/parttable"
	"github.com/flatcar-linux/storage-apply/internal/storage/resolve"
	"github.com/flatcar-linux/storage-apply/internal/storage/util"
	"github.com/flatcar-linux/storage-apply/internal/storage/xerr"
)

// Partition implements spec §4.6.2: exact-geometry partition creation,
// following curtin's own offset computation rule so partition layout
// matches what a human reading the config would expect.
func Partition(ctx *Context, e model.Entity) error {
	if e.Device == "" {
		return xerr.Configf("device must be set for partition %q to be created", e.ID)
	}
	if e.Size == "" && !e.Preserve {
		return xerr.Configf("size must be specified for partition %q to be created", e.ID)
	}

	diskPath, err := ctx.Resolver.Resolve(e.Device)
	if err != nil {
		return err
	}
	parentDisk, err := ctx.Store.MustGet(e.Device)
	if err != nil {
		return err
	}

	tbl, err := resolve.OpenTable(diskPath)
	if err != nil {
		return err
	}

	partnumber := ctx.Store.PartitionNumber(e)
	existing := tbl.Partitions()

	offset, err := computeOffset(parentDisk, existing, partnumber, tbl.SectorSize())
	if err != nil {
		return err
	}

	if e.Preserve {
		return preservePartition(ctx, e, existing, partnumber, offset)
	}
	if !e.Preserve && parentDisk.Preserve {
		return xerr.Unsupportedf(
			"partition %q is not marked to be preserved, but disk %q is", e.ID, e.Device)
	}

	length, err := util.SizeToSectors(e.Size, tbl.SectorSize())
	if err != nil {
		return err
	}

	class := parttable.ClassOf(e.Flag)
	if e.Flag != "" && e.Flag != "extended" && e.Flag != "logical" {
		if err := parttable.ValidateFlag(e.Flag); err != nil {
			return xerr.Configf("%v", err)
		}
	}

	ctx.Logger.Info("adding partition %q to disk %q", e.ID, e.Device)
	if _, err := tbl.AddPartition(offset, length, class, e.Flag); err != nil {
		return err
	}
	if err := tbl.Commit(); err != nil {
		return err
	}

	if e.Wipe != "" && e.Wipe != model.WipeNone {
		partPath, err := ctx.Resolver.Resolve(e.ID)
		if err != nil {
			return err
		}
		if err := ctx.Wipe.Wipe(partPath, e.Wipe); err != nil {
			return err
		}
	}
	return nil
}

// computeOffset applies spec §4.6.2 step 3: 2048 for the first
// partition of an msdos table, 16KiB worth of sectors plus two for the
// first partition of anything else, or a gap based on the previous
// partition's class otherwise.
func computeOffset(parentDisk model.Entity, existing []parttable.Partition, partnumber int, sectorSize uint64) (uint64, error) {
	if partnumber > 1 {
		if partnumber-2 >= len(existing) || partnumber-2 < 0 {
			return 0, xerr.Configf(
				"partition numbered %d does not exist, cannot create partition %d", partnumber-1, partnumber)
		}
		prev := existing[partnumber-2]
		switch prev.Class {
		case parttable.ClassExtended:
			return prev.Start + 1, nil
		case parttable.ClassLogical:
			return prev.End() + 2, nil
		default:
			return prev.End() + 1, nil
		}
	}
	if parentDisk.Ptable == "msdos" || parentDisk.Ptable == "dos" {
		return 2048, nil
	}
	n, err := util.SizeToSectors("16KiB", sectorSize)
	if err != nil {
		return 0, err
	}
	return n + 2, nil
}

func preservePartition(ctx *Context, e model.Entity, existing []parttable.Partition, partnumber int, offset uint64) error {
	if partnumber < 1 || partnumber > len(existing) {
		return xerr.PreserveMismatchf("partition %q has no existing entry at index %d", e.ID, partnumber)
	}
	p := existing[partnumber-1]
	length, err := util.SizeToSectors(e.Size, SectorSize)
	if e.Size != "" && err == nil && (p.Start != offset || p.Length != length) {
		return xerr.PreserveMismatchf("partition %q does not match what exists on disk", e.ID)
	}
	if e.Size == "" && p.Start != offset {
		return xerr.PreserveMismatchf("partition %q does not match what exists on disk", e.ID)
	}
	return nil
}
