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
	"github.com/flatcar-linux/storage-apply/internal/storage/xerr"
)

// Format implements spec §4.6.3: dispatch mkfs by fstype.
func Format(ctx *Context, e model.Entity) error {
	if e.Volume == "" {
		return xerr.Configf("volume must be specified for format %q", e.ID)
	}

	volumePath, err := ctx.Resolver.Resolve(e.Volume)
	if err != nil {
		return err
	}

	if e.Preserve {
		return nil
	}

	name, args, err := formatCommand(ctx, e, volumePath)
	if err != nil {
		return err
	}

	ctx.Logger.Info("formatting volume %q with format %q", volumePath, e.Fstype)
	_, err = ctx.Gateway.Run(name, args)
	return err
}

func formatCommand(ctx *Context, e model.Entity, volumePath string) (string, []string, error) {
	switch {
	case e.Fstype == "ext3" || e.Fstype == "ext4":
		args := []string{"-q"}
		if e.Label != "" {
			if len(e.Label) > 16 {
				return "", nil, xerr.Configf("ext3/4 partition labels cannot be longer than 16 characters")
			}
			args = append(args, "-L", e.Label)
		}
		args = append(args, volumePath)
		return distro.MkfsCmd(e.Fstype), args, nil

	case isFatFstype(e.Fstype):
		args := []string{}
		if size := strings.TrimLeft(e.Fstype, "fat"); size == "12" || size == "16" || size == "32" {
			args = append(args, "-F", size)
			if e.Label != "" {
				if len(e.Label) > 11 {
					return "", nil, xerr.Configf("fat partition names cannot be longer than 11 characters")
				}
				args = append(args, "-n", e.Label)
			}
		}
		args = append(args, volumePath)
		return distro.MkfsFatCmd(), args, nil

	case e.Fstype == "swap":
		return distro.MkswapCmd(), []string{volumePath}, nil

	default:
		if _, err := ctx.Gateway.Run(distro.WhichCmd(), []string{distro.MkfsCmd(e.Fstype)}); err != nil {
			return "", nil, xerr.Configf("fstype %q not supported", e.Fstype)
		}
		return distro.MkfsCmd(e.Fstype), []string{volumePath}, nil
	}
}

func isFatFstype(fstype string) bool {
	switch fstype {
	case "fat12", "fat16", "fat32", "fat":
		return true
	}
	return false
}
