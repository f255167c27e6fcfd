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
	"os"
	"path/filepath"
	"strings"

	"github.com/flatcar-linux/storage-apply/internal/storage/distro"
	"github.com/flatcar-linux/storage-apply/internal/storage/model"
	"github.com/flatcar-linux/storage-apply/internal/storage/xerr"
)

// Mount implements spec §4.6.4: mount the referenced format's volume
// under the target root, then append an fstab entry.
func Mount(ctx *Context, e model.Entity) error {
	format, err := ctx.Store.MustGet(e.Device)
	if err != nil {
		return err
	}
	if format.Path == "" && e.Path == "" && format.Fstype != "swap" {
		return xerr.Configf("path to mountpoint must be specified for mount %q", e.ID)
	}

	volume, err := ctx.Store.MustGet(format.Volume)
	if err != nil {
		return err
	}
	volumePath, err := ctx.Resolver.Resolve(format.Volume)
	if err != nil {
		return err
	}

	mountPath := e.Path
	if format.Fstype != "swap" {
		rel := strings.TrimLeft(mountPath, "/")
		target := filepath.Join(ctx.Target, rel)
		if err := os.MkdirAll(target, 0755); err != nil {
			return err
		}
		if _, err := ctx.Gateway.Run(distro.MountCmd(), []string{volumePath, target}); err != nil {
			return err
		}
	}

	location, err := fstabLocation(ctx, volume, volumePath)
	if err != nil {
		return err
	}
	return ctx.Sidefiles.AppendFstab(location, mountPath, format.Fstype)
}

// fstabLocation implements spec §6's location rule: a resolved device
// path for raid/bcache/lvm_partition, else a UUID= reference for
// partition/dm_crypt.
func fstabLocation(ctx *Context, volume model.Entity, volumePath string) (string, error) {
	switch volume.Type {
	case model.Raid, model.Bcache, model.LVMPartition:
		return volumePath, nil
	case model.Partition, model.DMCrypt:
		uuid := ctx.Probe.UUID(volumePath)
		if uuid == "" {
			return "", xerr.ResolutionFailedf("could not determine UUID of %s", volumePath)
		}
		return "UUID=" + uuid, nil
	default:
		return "", xerr.Configf("cannot write fstab for volume type %q", volume.Type)
	}
}
