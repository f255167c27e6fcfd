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

// Package resolve is the path resolver (spec §4.5): it walks the entity
// graph, recursively resolving dependencies, and maps an entity id to
// its live device node. It is the one component every type handler
// calls into before it can touch a device.
package resolve

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/flatcar-linux/storage-apply/internal/storage/model"
	"github.com/flatcar-linux/storage-apply/internal/storage/parttable"
	"github.com/flatcar-linux/storage-apply/internal/storage/store"
	"github.com/flatcar-linux/storage-apply/internal/storage/sync"
	"github.com/flatcar-linux/storage-apply/internal/storage/util"
	"github.com/flatcar-linux/storage-apply/internal/storage/xerr"
)

const sysBlockDir = "/sys/block"

// Resolver maps entity ids to live device nodes, per spec §4.5.
type Resolver struct {
	Store *store.Store
	Sync  *sync.Synchronizer

	// ByIDDir is where disk serials are looked up; overridden in tests.
	ByIDDir string
}

// New returns a Resolver backed by store and synced through sy.
func New(st *store.Store, sy *sync.Synchronizer) *Resolver {
	return &Resolver{Store: st, Sync: sy, ByIDDir: "/dev/disk/by-id"}
}

// Resolve maps id to its current device node, following §4.5's
// per-type rules, then synchronizes on the result (on the parent
// disk's path, for a partition) before returning.
func (r *Resolver) Resolve(id string) (string, error) {
	e, err := r.Store.MustGet(id)
	if err != nil {
		return "", err
	}

	path, syncPath, err := r.resolveEntity(e)
	if err != nil {
		return "", xerr.WithEntity(id, xerr.ResolutionFailedf("%v", err))
	}

	if r.Sync != nil {
		if err := r.Sync.Sync(syncPath); err != nil {
			return "", xerr.WithEntity(id, err)
		}
		if _, err := util.CreateDeviceAlias(path); err != nil {
			return "", xerr.WithEntity(id, err)
		}
	}
	return path, nil
}

func (r *Resolver) resolveEntity(e model.Entity) (path, syncPath string, err error) {
	switch e.Type {
	case model.Disk:
		p, err := r.resolveDisk(e)
		return p, p, err

	case model.Partition:
		diskPath, err := r.Resolve(e.Device)
		if err != nil {
			return "", "", err
		}
		p, err := r.resolvePartition(e, diskPath)
		return p, diskPath, err

	case model.LVMPartition:
		vg, err := r.Store.MustGet(e.Volgroup)
		if err != nil {
			return "", "", err
		}
		p := fmt.Sprintf("/dev/%s/%s", vg.Name, e.Name)
		return p, p, nil

	case model.DMCrypt:
		p := fmt.Sprintf("/dev/mapper/%s", e.DMNameOrID())
		return p, p, nil

	case model.Raid:
		p := fmt.Sprintf("/dev/%s", e.ID)
		return p, p, nil

	case model.Bcache:
		p, err := r.resolveBcache(e)
		return p, p, err

	default:
		return "", "", xerr.Unsupportedf("entity %q of type %q is not a resolvable block device", e.ID, e.Type)
	}
}

func (r *Resolver) resolveDisk(e model.Entity) (string, error) {
	if e.Serial != "" {
		p := filepath.Join(r.ByIDDir, e.Serial)
		if _, err := os.Lstat(p); err != nil {
			return "", fmt.Errorf("serial %q: %w", e.Serial, err)
		}
		real, err := filepath.EvalSymlinks(p)
		if err != nil {
			return "", err
		}
		return real, nil
	}
	if e.Path != "" {
		return e.Path, nil
	}
	return "", xerr.Configf("disk %q declares neither serial nor path", e.ID)
}

func (r *Resolver) resolvePartition(e model.Entity, diskPath string) (string, error) {
	number := r.Store.PartitionNumber(e)
	if number < 1 {
		return "", xerr.Configf("partition %q resolved to invalid number %d", e.ID, number)
	}

	tbl, err := openTable(diskPath)
	if err != nil {
		return "", err
	}
	parts := tbl.Partitions()
	if number > len(parts) {
		return "", xerr.Configf("no partition at index %d on %s (table has %d)", number, diskPath, len(parts))
	}
	return partitionNodePath(diskPath, number), nil
}

// partitionNodePath applies the usual Linux kernel partition-naming
// convention: a trailing-digit device name gets a "p" separator
// (nvme0n1p1, mmcblk0p1), everything else doesn't (sda1).
func partitionNodePath(diskPath string, number int) string {
	base := filepath.Base(diskPath)
	if len(base) > 0 {
		last := base[len(base)-1]
		if last >= '0' && last <= '9' {
			return fmt.Sprintf("%sp%d", diskPath, number)
		}
	}
	return fmt.Sprintf("%s%d", diskPath, number)
}

func openTable(diskPath string) (parttable.Table, error) {
	if t, err := parttable.OpenGPT(diskPath, 512); err == nil {
		return t, nil
	}
	if t, err := parttable.OpenMBR(diskPath, 512); err == nil {
		return t, nil
	}
	return nil, xerr.ResolutionFailedf("%s: no recognizable partition table", diskPath)
}

// ListPartitionPaths returns the device node path of every partition
// currently on diskPath, used by the disk handler to enumerate what a
// wipe needs to tear down. A disk with no recognizable table yields an
// empty, non-error result: that's routine for a disk being wiped for
// the first time, the same way curtin's disk_handler swallows
// parted.DiskLabelException during wipe.
func ListPartitionPaths(diskPath string) ([]string, error) {
	tbl, err := openTable(diskPath)
	if err != nil {
		return nil, nil
	}
	var out []string
	for _, p := range tbl.Partitions() {
		out = append(out, partitionNodePath(diskPath, p.Number))
	}
	return out, nil
}

// CreateTable formats diskPath with a fresh table of the given format
// ("gpt" or "msdos"/"dos") and commits it immediately.
func CreateTable(diskPath, format string, sectorSize uint64) error {
	size, err := parttable.DeviceSizeSectors(diskPath, sectorSize)
	if err != nil {
		return err
	}
	switch normalizeFormat(format) {
	case "gpt":
		return parttable.CreateGPT(diskPath, sectorSize, size).Commit()
	case "msdos":
		return parttable.CreateMBR(diskPath, sectorSize, size).Commit()
	default:
		return xerr.Configf("unsupported partition table format %q", format)
	}
}

// OpenTable opens diskPath's existing partition table, GPT or MBR.
func OpenTable(diskPath string) (parttable.Table, error) {
	return openTable(diskPath)
}

func normalizeFormat(format string) string {
	if format == "dos" {
		return "msdos"
	}
	return format
}

// resolveBcache implements spec §4.5's sysfs slave-kname match: find a
// /sys/block/bcache*/slaves/* entry whose basename equals the backing
// device's kname, and return the enclosing bcache directory as /dev/<name>.
func (r *Resolver) resolveBcache(e model.Entity) (string, error) {
	backingPath, err := r.Resolve(e.BackingDevice)
	if err != nil {
		return "", err
	}
	backingKname := filepath.Base(backingPath)

	entries, err := os.ReadDir(sysBlockDir)
	if err != nil {
		return "", err
	}
	for _, ent := range entries {
		name := ent.Name()
		if !strings.HasPrefix(name, "bcache") {
			continue
		}
		slaves, err := os.ReadDir(filepath.Join(sysBlockDir, name, "slaves"))
		if err != nil {
			continue
		}
		for _, s := range slaves {
			if s.Name() == backingKname {
				return "/dev/" + name, nil
			}
		}
	}
	return "", xerr.ResolutionFailedf("no bcache device found with backing slave %q", backingKname)
}
