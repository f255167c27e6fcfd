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

package util

import (
	"github.com/alecthomas/units"

	"github.com/flatcar-linux/storage-apply/internal/storage/xerr"
)

// SizeToSectors parses a "<int><unit>" size string (B, KiB, MiB, GiB, ...,
// per spec §3) and returns the number of sectorSize-byte sectors it
// occupies, rounded up. It reuses the same byte-quantity grammar
// kingpin's own flag value types lean on for "--size" style flags.
func SizeToSectors(size string, sectorSize uint64) (uint64, error) {
	n, err := units.ParseStrictBytes(size)
	if err != nil {
		return 0, xerr.Configf("invalid size %q: %v", size, err)
	}
	if n <= 0 {
		return 0, xerr.Configf("size %q must be positive", size)
	}
	bytes := uint64(n)
	return (bytes + sectorSize - 1) / sectorSize, nil
}
