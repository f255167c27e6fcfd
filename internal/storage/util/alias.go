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

// Package util holds small helpers shared across the storage handlers,
// starting with device aliasing: a stable name for a device path that
// survives the kernel recycling /dev nodes mid-run.
package util

import (
	"os"
	"path/filepath"

	"github.com/coreos/go-systemd/unit"
)

// AliasDir is where device aliases are created, mirroring ignition's own
// /run/ignition/dev_aliases.
var AliasDir = "/run/storage-apply/dev_aliases"

// DeviceAlias returns the alias path that CreateDeviceAlias would create
// for dev, without touching the filesystem. The alias name is the
// device path escaped the same way systemd escapes a device path into
// its "<name>.device" unit name (github.com/coreos/go-systemd/unit),
// since that escaping already produces a name that's both unique and
// filesystem-safe.
func DeviceAlias(dev string) string {
	return filepath.Join(AliasDir, unit.UnitNamePathEscape(dev))
}

// CreateDeviceAlias resolves dev to its real path and symlinks the
// stable alias name to it, creating AliasDir if necessary. It returns
// the real path the alias now points to.
func CreateDeviceAlias(dev string) (string, error) {
	target, err := filepath.EvalSymlinks(dev)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(AliasDir, 0755); err != nil {
		return "", err
	}
	alias := DeviceAlias(dev)
	_ = os.Remove(alias)
	if err := os.Symlink(target, alias); err != nil {
		return "", err
	}
	return target, nil
}
