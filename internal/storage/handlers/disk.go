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
	"strings"

	"github.com/flatcar-linux/storage-apply/internal/storage/distro"
	"github.com/flatcar-linux/storage-apply/internal/storage/model"
	"github.com/flatcar-linux/storage-apply/internal/storage/resolve"
	"github.com/flatcar-linux/storage-apply/internal/storage/xerr"
)

// Disk implements spec §4.6.1: preserve verification, ordered teardown
// of whatever was previously layered on the disk, and creation of a
// fresh partition table.
func Disk(ctx *Context, e model.Entity) error {
	disk, err := ctx.Resolver.Resolve(e.ID)
	if err != nil {
		return err
	}

	if e.Preserve {
		return preserveDisk(ctx, e, disk)
	}

	if e.Wipe != "" && e.Wipe != model.WipeNone {
		if err := wipeDisk(ctx, disk); err != nil {
			return err
		}
		if err := ctx.Wipe.Wipe(disk, e.Wipe); err != nil {
			return err
		}
	}

	if e.Ptable != "" {
		ctx.Logger.Info("labeling device %q with %q partition table", disk, e.Ptable)
		if err := resolve.CreateTable(disk, e.Ptable, SectorSize); err != nil {
			return err
		}
	}
	return nil
}

func preserveDisk(ctx *Context, e model.Entity, disk string) error {
	if e.Ptable == "" {
		return nil
	}
	current := ctx.Probe.PartitionTableType(disk)
	if current == "" {
		return xerr.PreserveMismatchf("disk %q has no readable partition table, but preserve is set", e.ID)
	}
	want := e.Ptable
	if want == "dos" {
		want = "msdos"
	}
	if (current == "dos" && want != "msdos") || (current == "gpt" && want != "gpt") {
		return xerr.PreserveMismatchf("disk %q has partition table %q, expected %q", e.ID, current, e.Ptable)
	}
	ctx.Logger.Info("disk %q marked to be preserved, keeping partition table", e.ID)
	return nil
}

// wipeDisk implements the ordered teardown of spec §4.6.1.3: LVM, then
// bcache, then MD, then per-partition superblock wipes, matching
// curtin's disk_handler exactly. Any failure enumerating an empty or
// unlabeled disk is swallowed, same as curtin's parted exception catch.
func wipeDisk(ctx *Context, disk string) error {
	partitions, _ := resolve.ListPartitionPaths(disk)
	if len(partitions) == 0 {
		return nil
	}

	if err := teardownLVM(ctx, partitions); err != nil {
		return err
	}
	if err := teardownBcache(ctx, partitions); err != nil {
		return err
	}
	if err := teardownMD(ctx, disk); err != nil {
		return err
	}
	for _, p := range partitions {
		if err := ctx.Wipe.Wipe(p, model.WipeSuperblock); err != nil {
			return err
		}
	}
	return nil
}

func teardownLVM(ctx *Context, partitions []string) error {
	out, err := ctx.Gateway.Run(distro.PvdisplayCmd(), []string{
		"-C", "--separator", "=", "-o", "vg_name,pv_name", "--noheadings",
	}, 0, 5)
	if err != nil {
		return nil // no LVM present, or pvdisplay unavailable; nothing to tear down
	}

	isPartition := make(map[string]bool, len(partitions))
	for _, p := range partitions {
		isPartition[p] = true
	}

	var volgroups []string
	seen := map[string]bool{}
	for _, line := range strings.Split(out, "\n") {
		vg, pv, ok := strings.Cut(strings.TrimSpace(line), "=")
		if !ok {
			continue
		}
		vg = strings.TrimSpace(vg)
		if isPartition[pv] && !seen[vg] {
			seen[vg] = true
			volgroups = append(volgroups, vg)
		}
	}
	if len(volgroups) > 0 {
		args := append([]string{"--force"}, volgroups...)
		if _, err := ctx.Gateway.Run(distro.VgremoveCmd(), args); err != nil {
			return err
		}
	}
	for _, p := range partitions {
		if err := ctx.Wipe.Wipe(p, model.WipePvremove); err != nil {
			return err
		}
	}
	return nil
}

func teardownBcache(ctx *Context, partitions []string) error {
	var uuids []string
	seen := map[string]bool{}
	for _, p := range partitions {
		out, err := ctx.Gateway.Run(distro.BcacheSuperShowCmd(), []string{p}, 0, 1)
		if err != nil {
			continue
		}
		for _, line := range strings.Split(out, "\n") {
			if !strings.Contains(line, "cset.uuid") {
				continue
			}
			fields := strings.Fields(line)
			if len(fields) == 0 {
				continue
			}
			uuid := fields[len(fields)-1]
			if !seen[uuid] {
				seen[uuid] = true
				uuids = append(uuids, uuid)
			}
		}
	}
	if len(uuids) == 0 {
		return nil
	}
	for _, uuid := range uuids {
		if err := writeSysfs("/sys/fs/bcache/"+uuid+"/stop", "1"); err != nil {
			return err
		}
	}
	if _, err := ctx.Gateway.Run(distro.ModprobeCmd(), []string{"-r", "bcache"}, 0, 1); err != nil {
		return err
	}
	for _, p := range partitions {
		if err := ctx.Wipe.Wipe(p, model.WipeSuperblock); err != nil {
			return err
		}
	}
	_, err := ctx.Gateway.Run(distro.ModprobeCmd(), []string{"bcache"})
	return err
}

func teardownMD(ctx *Context, disk string) error {
	ctx.Gateway.RunBestEffort(distro.PartprobeCmd(), []string{disk})
	out, err := ctx.Gateway.Run(distro.MdadmCmd(), []string{"--detail", "--scan"}, 0, 1)
	if err != nil {
		return nil
	}
	var arrays []string
	seen := map[string]bool{}
	for _, line := range strings.Split(out, "\n") {
		if !strings.Contains(line, "ARRAY") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		arr := fields[1]
		if !seen[arr] {
			seen[arr] = true
			arrays = append(arrays, arr)
		}
	}
	for _, arr := range arrays {
		ctx.Gateway.Run(distro.MdadmCmd(), []string{"--stop", arr}, 0, 1)
		ctx.Gateway.Run(distro.MdadmCmd(), []string{"--remove", arr}, 0, 1)
	}
	return nil
}
