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
	"github.com/flatcar-linux/storage-apply/internal/storage/distro"
	"github.com/flatcar-linux/storage-apply/internal/storage/model"
	"github.com/flatcar-linux/storage-apply/internal/storage/xerr"
)

// Bcache implements spec §4.6.9. The error message on a declared
// ptable mentions LVM rather than bcache, matching the original
// handler's own copy-paste; the rejection itself is correct.
func Bcache(ctx *Context, e model.Entity) error {
	if e.BackingDevice == "" || e.CacheDevice == "" {
		return xerr.Configf("backing device and cache device for bcache %q must be specified", e.ID)
	}

	backing, err := ctx.Resolver.Resolve(e.BackingDevice)
	if err != nil {
		return err
	}
	cache, err := ctx.Resolver.Resolve(e.CacheDevice)
	if err != nil {
		return err
	}

	if _, err := ctx.Gateway.Run(distro.ModprobeCmd(), []string{"bcache"}); err != nil {
		return err
	}
	if _, err := ctx.Gateway.Run(distro.MakeBcacheCmd(), []string{"-B", backing, "-C", cache}); err != nil {
		return err
	}

	if _, err := ctx.Resolver.Resolve(e.ID); err != nil {
		for _, path := range []string{backing, cache} {
			if werr := writeSysfs("/sys/fs/bcache/register", path); werr != nil {
				return werr
			}
		}
	}

	if e.Ptable != "" {
		return xerr.Unsupportedf("partition tables on top of lvm logical volumes are not supported")
	}
	return nil
}
