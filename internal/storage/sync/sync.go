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

// Package sync is the device-node synchronizer (spec §4.2): it tells
// the kernel to re-read partition tables, waits for udev to settle, and
// then polls for the device node to actually appear, bounded.
package sync

import (
	"os"
	"time"

	systemddbus "github.com/coreos/go-systemd/dbus"
	"github.com/coreos/go-systemd/unit"

	"github.com/flatcar-linux/storage-apply/internal/storage/distro"
	"github.com/flatcar-linux/storage-apply/internal/storage/shell"
	"github.com/flatcar-linux/storage-apply/internal/storage/xerr"
)

// PollInterval and PollAttempts bound the poll loop; tests shrink them.
var (
	PollInterval = time.Second
	PollAttempts = 10
)

// Synchronizer drives partprobe/udevadm and the exists() poll.
type Synchronizer struct {
	Gateway *shell.Gateway
}

// New returns a Synchronizer that shells out through gw.
func New(gw *shell.Gateway) *Synchronizer {
	return &Synchronizer{Gateway: gw}
}

// Sync issues partprobe (ignoring its exit code) and udevadm settle,
// then polls for path to exist, up to PollAttempts times at
// PollInterval. Before the poll loop it makes a single best-effort
// attempt, bounded at 200ms, to watch the corresponding "<path>.device"
// systemd unit over dbus become active, and returns if it did and path
// exists; any dbus failure (no system bus, unit doesn't exist, timeout)
// is swallowed and the poll loop runs as usual. The poll loop checks
// for path before its first sleep.
func (s *Synchronizer) Sync(path string) error {
	s.Gateway.RunBestEffort(distro.PartprobeCmd(), []string{path})
	if _, err := s.Gateway.Run(distro.UdevadmCmd(), []string{"settle"}); err != nil {
		return err
	}

	if waitForDeviceUnitActive(path, 200*time.Millisecond) && exists(path) {
		return nil
	}

	for i := 0; i < PollAttempts; i++ {
		if exists(path) {
			return nil
		}
		time.Sleep(PollInterval)
	}
	return xerr.DeviceNotAppearingf(path)
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// waitForDeviceUnitActive makes a best-effort, short, swallowed-error
// attempt to observe path's systemd device unit reach the "active"
// state over dbus.
func waitForDeviceUnitActive(path string, timeout time.Duration) bool {
	conn, err := systemddbus.NewSystemConnection()
	if err != nil {
		return false
	}
	defer conn.Close()

	unitName := unit.UnitNamePathEscape(path) + ".device"
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		props, err := conn.GetUnitProperties(unitName)
		if err == nil {
			if state, ok := props["ActiveState"]; ok && state == "active" {
				return true
			}
		}
		time.Sleep(20 * time.Millisecond)
	}
	return false
}
