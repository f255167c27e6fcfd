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

package parttable

import (
	"crypto/rand"
	"encoding/binary"
)

// guid is a 16-byte UEFI-style GUID: the first three fields are stored
// little-endian on disk, the last two big-endian, per the UEFI spec.
type guid [16]byte

func mustGUID(hi1 uint32, hi2, hi3 uint16, rest [8]byte) guid {
	var g guid
	binary.LittleEndian.PutUint32(g[0:4], hi1)
	binary.LittleEndian.PutUint16(g[4:6], hi2)
	binary.LittleEndian.PutUint16(g[6:8], hi3)
	copy(g[8:16], rest[:])
	return g
}

var (
	typeLinuxFilesystem = mustGUID(0x0FC63DAF, 0x8483, 0x4772, [8]byte{0x8E, 0x79, 0x3D, 0x69, 0xD8, 0x47, 0x7D, 0xE4})
	typeLinuxLVM        = mustGUID(0xE6D6D379, 0xF507, 0x44C2, [8]byte{0xA2, 0x3C, 0x23, 0x8F, 0x2A, 0x3D, 0xF9, 0x28})
	typeLinuxRAID       = mustGUID(0xA19D880F, 0x08B5, 0x4394, [8]byte{0xA4, 0xC3, 0xC3, 0xA8, 0xB6, 0xEF, 0xD8, 0xEE})
	typeBIOSBoot        = mustGUID(0x21686148, 0x6449, 0x6E6F, [8]byte{0x74, 0x4E, 0x65, 0x65, 0x64, 0x45, 0x46, 0x49})
	typePReP            = mustGUID(0x9E1A2D38, 0xC612, 0x4316, [8]byte{0xAA, 0x26, 0x8B, 0x49, 0x52, 0x1E, 0x5A, 0x8B})
	typeEFISystem       = mustGUID(0xC12A7328, 0xF81F, 0x11D2, [8]byte{0xBA, 0x4B, 0x00, 0xA0, 0xC9, 0x3E, 0xC9, 0x3B})
)

// flagToTypeGUID maps a declared partition flag to the GPT partition
// type GUID it should carry. "boot" is handled separately as the legacy
// BIOS bootable attribute bit, not a type change, matching parted's own
// PARTITION_BOOT semantics on GPT disks.
func flagToTypeGUID(flag string) guid {
	switch flag {
	case "lvm":
		return typeLinuxLVM
	case "raid":
		return typeLinuxRAID
	case "bios_grub":
		return typeBIOSBoot
	case "prep":
		return typePReP
	default:
		return typeLinuxFilesystem
	}
}

func randomGUID() guid {
	var g guid
	_, _ = rand.Read(g[:])
	// set version 4, variant per RFC 4122, cosmetic for our purposes.
	g[6] = (g[6] & 0x0f) | 0x40
	g[8] = (g[8] & 0x3f) | 0x80
	return g
}
