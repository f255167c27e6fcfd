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
	"fmt"
	"strconv"
	"strings"

	"github.com/flatcar-linux/storage-apply/internal/storage/distro"
	"github.com/flatcar-linux/storage-apply/internal/storage/model"
	"github.com/flatcar-linux/storage-apply/internal/storage/xerr"
)

// Raid implements spec §4.6.8: zero each member's MD superblock,
// create the array via a yes-piped mdadm invocation, record it in
// mdadm.conf, and, if a ptable was declared, recurse into the disk
// handler on the freshly created array.
func Raid(ctx *Context, e model.Entity) error {
	if len(e.Devices) == 0 {
		return xerr.Configf("devices for raid %q must be specified", e.ID)
	}
	if e.RaidLevel != 0 && e.RaidLevel != 1 && e.RaidLevel != 5 {
		return xerr.Configf("invalid raidlevel %d for raid %q", e.RaidLevel, e.ID)
	}

	devicePaths, err := resolveAll(ctx, e.Devices)
	if err != nil {
		return err
	}
	sparePaths, err := resolveAll(ctx, e.SpareDevices)
	if err != nil {
		return err
	}

	for _, p := range devicePaths {
		if _, err := ctx.Gateway.Run(distro.MdadmCmd(), []string{"--zero-superblock", p}); err != nil {
			return err
		}
	}
	for _, p := range sparePaths {
		if _, err := ctx.Gateway.Run(distro.MdadmCmd(), []string{"--zero-superblock", p}); err != nil {
			return err
		}
	}

	script := buildRaidCreateScript(e, devicePaths, sparePaths)
	if _, err := ctx.Gateway.RunShell(script); err != nil {
		return err
	}

	scan, err := ctx.Gateway.Run(distro.MdadmCmd(), []string{"--detail", "--scan"})
	if err != nil {
		return err
	}
	if err := ctx.Sidefiles.WriteMdadmConf(scan); err != nil {
		return err
	}

	if e.Ptable != "" {
		return dispatch(ctx, model.Entity{
			ID:       e.ID,
			Type:     model.Disk,
			Path:     "/dev/" + e.ID,
			Ptable:   e.Ptable,
			Wipe:     e.Wipe,
			Preserve: false,
		})
	}
	return nil
}

func resolveAll(ctx *Context, ids []string) ([]string, error) {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		p, err := ctx.Resolver.Resolve(id)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func buildRaidCreateScript(e model.Entity, devicePaths, sparePaths []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s | %s --create /dev/%s --level=%s --raid-devices=%d",
		distro.YesCmd(), distro.MdadmCmd(), e.ID, strconv.Itoa(e.RaidLevel), len(devicePaths))
	for _, p := range devicePaths {
		b.WriteString(" " + p)
	}
	if len(sparePaths) > 0 {
		fmt.Fprintf(&b, " --spare-devices=%d", len(sparePaths))
		for _, p := range sparePaths {
			b.WriteString(" " + p)
		}
	}
	return b.String()
}
