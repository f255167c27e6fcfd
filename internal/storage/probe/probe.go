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

// Package probe reads block device metadata with blkid. Several
// handlers need the same lookups curtin's block.get_volume_uuid and its
// disk-preserve PTTYPE check perform, so they live here once.
package probe

import (
	"strings"

	"github.com/flatcar-linux/storage-apply/internal/storage/distro"
	"github.com/flatcar-linux/storage-apply/internal/storage/shell"
)

// Prober reads blkid export-format key=value output.
type Prober struct {
	Gateway *shell.Gateway
}

// New returns a Prober that shells out through gw.
func New(gw *shell.Gateway) *Prober {
	return &Prober{Gateway: gw}
}

// export runs `blkid -o export <path>` and parses its KEY=value lines.
// A non-existent or unlabeled device yields an empty map rather than an
// error: blkid exits non-zero when a device has no recognizable
// metadata, which is routine for this package's callers (disk
// preserve-state checks, a freshly-created but not-yet-formatted
// volume).
func (p *Prober) export(path string) map[string]string {
	out, err := p.Gateway.Run(distro.BlkidCmd(), []string{"-o", "export", path}, 0, 2)
	fields := map[string]string{}
	if err != nil {
		return fields
	}
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		k, v, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		fields[k] = v
	}
	return fields
}

// PartitionTableType returns blkid's PTTYPE for path ("dos" or "gpt"),
// or "" if it can't be determined.
func (p *Prober) PartitionTableType(path string) string {
	return p.export(path)["PTTYPE"]
}

// FilesystemType returns blkid's TYPE for path, or "" if none.
func (p *Prober) FilesystemType(path string) string {
	return p.export(path)["TYPE"]
}

// UUID returns blkid's UUID for path, or "" if none.
func (p *Prober) UUID(path string) string {
	return p.export(path)["UUID"]
}

// Label returns blkid's LABEL for path, or "" if none.
func (p *Prober) Label(path string) string {
	return p.export(path)["LABEL"]
}
