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

// LVMVolgroup implements spec §4.6.5.
func LVMVolgroup(ctx *Context, e model.Entity) error {
	if len(e.Devices) == 0 {
		return xerr.Configf("devices for volgroup %q must be specified", e.ID)
	}
	if e.Name == "" {
		return xerr.Configf("name for volgroup %q must be specified", e.ID)
	}

	devicePaths := make([]string, 0, len(e.Devices))
	for _, id := range e.Devices {
		p, err := ctx.Resolver.Resolve(id)
		if err != nil {
			return err
		}
		devicePaths = append(devicePaths, p)
	}

	if e.Preserve {
		if _, err := ctx.Gateway.Run(distro.VgchangeCmd(), []string{"-a", "y"}, 0, 1, 5); err != nil {
			return err
		}
		out, err := ctx.Gateway.Run(distro.PvdisplayCmd(), []string{
			"-C", "--separator", "=", "-o", "vg_name,pv_name", "--noheadings",
		})
		if err != nil {
			return err
		}
		current := map[string]bool{}
		for _, line := range strings.Split(out, "\n") {
			line = strings.TrimSpace(line)
			if !strings.Contains(line, e.Name) {
				continue
			}
			_, pv, ok := strings.Cut(line, "=")
			if ok {
				current[pv] = true
			}
		}
		if len(current) != len(devicePaths) {
			return xerr.PreserveMismatchf(
				"volgroup %q marked to be preserved, but does not contain the right physical volumes", e.ID)
		}
		for _, p := range devicePaths {
			if !current[p] {
				return xerr.PreserveMismatchf(
					"volgroup %q marked to be preserved, but does not contain the right physical volumes", e.ID)
			}
		}
		return nil
	}

	args := append([]string{e.Name}, devicePaths...)
	_, err := ctx.Gateway.Run(distro.VgcreateCmd(), args)
	return err
}

// LVMPartition implements spec §4.6.6.
func LVMPartition(ctx *Context, e model.Entity) error {
	if e.Ptable != "" {
		return xerr.Unsupportedf("partition tables on top of LVM logical volumes are not supported")
	}

	volgroup, err := ctx.Store.MustGet(e.Volgroup)
	if err != nil {
		return err
	}
	if volgroup.Name == "" {
		return xerr.Configf("lvm volgroup for lvm partition %q must be specified", e.ID)
	}
	if e.Name == "" {
		return xerr.Configf("lvm partition name must be specified for %q", e.ID)
	}

	if e.Preserve {
		out, err := ctx.Gateway.Run(distro.LvdisplayCmd(), []string{
			"-C", "--separator", "=", "-o", "lv_name,vg_name", "--noheadings",
		})
		if err != nil {
			return err
		}
		found := false
		for _, line := range strings.Split(out, "\n") {
			line = strings.TrimSpace(line)
			if !strings.Contains(line, e.Name) {
				continue
			}
			_, vg, ok := strings.Cut(line, "=")
			if ok && vg == volgroup.Name {
				found = true
				break
			}
		}
		if !found {
			return xerr.PreserveMismatchf(
				"lvm partition %q marked to be preserved, but does not match storage configuration", e.ID)
		}
		return nil
	}

	if volgroup.Preserve {
		return xerr.Unsupportedf(
			"lvm partition %q is not marked to be preserved, but volgroup %q is", e.ID, e.Volgroup)
	}

	args := []string{volgroup.Name, "-n", e.Name}
	if e.Size != "" {
		args = append(args, "-L", e.Size)
	} else {
		args = append(args, "-l", "100%FREE")
	}
	_, err = ctx.Gateway.Run(distro.LvcreateCmd(), args)
	return err
}
