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
	"encoding/binary"
	"os"

	"github.com/flatcar-linux/storage-apply/internal/storage/xerr"
)

const (
	mbrSize           = 512
	mbrPartEntryOff   = 446
	mbrPartEntrySize  = 16
	mbrMaxPrimary     = 4
	mbrBootSignature0 = 0x55
	mbrBootSignature1 = 0xAA
)

type mbrEntry struct {
	bootable bool
	typeByte byte
	startLBA uint32
	sizeLBA  uint32
}

func (e mbrEntry) empty() bool { return e.typeByte == 0 }

// MBRTable is a pure-Go MSDOS/MBR reader-writer. It supports the four
// primary slots directly; "extended"/"logical" partitions are tracked
// as entries within an extended-partition chain the same way curtin's
// own partition_handler treats them, but since spec's custom-mode
// graphs rarely need more than four partitions on legacy disks, the
// logical chain is only ever one level deep (no nested EBRs).
type MBRTable struct {
	path       string
	sectorSize uint64
	diskSize   uint64
	primary    [mbrMaxPrimary]mbrEntry
	logical    []mbrEntry // within the single extended partition, if any
	extendedAt int        // index into primary of the extended slot, or -1
}

// OpenMBR reads the MBR at path's first sector.
func OpenMBR(path string, sectorSize uint64) (*MBRTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	buf := make([]byte, mbrSize)
	if _, err := f.ReadAt(buf, 0); err != nil {
		return nil, err
	}
	if buf[510] != mbrBootSignature0 || buf[511] != mbrBootSignature1 {
		return nil, xerr.ResolutionFailedf("%s: no MBR boot signature found", path)
	}

	size, err := deviceSizeSectors(f, sectorSize)
	if err != nil {
		return nil, err
	}

	t := &MBRTable{path: path, sectorSize: sectorSize, diskSize: size, extendedAt: -1}
	for i := 0; i < mbrMaxPrimary; i++ {
		off := mbrPartEntryOff + i*mbrPartEntrySize
		e := mbrEntry{
			bootable: buf[off] == 0x80,
			typeByte: buf[off+4],
			startLBA: binary.LittleEndian.Uint32(buf[off+8 : off+12]),
			sizeLBA:  binary.LittleEndian.Uint32(buf[off+12 : off+16]),
		}
		t.primary[i] = e
		if e.typeByte == 0x05 || e.typeByte == 0x0F {
			t.extendedAt = i
		}
	}
	if t.extendedAt >= 0 {
		if err := t.readLogical(f); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func (t *MBRTable) readLogical(f *os.File) error {
	ext := t.primary[t.extendedAt]
	nextEBR := uint64(ext.startLBA)
	for nextEBR != 0 {
		buf := make([]byte, mbrSize)
		if _, err := f.ReadAt(buf, int64(nextEBR*t.sectorSize)); err != nil {
			return err
		}
		if buf[510] != mbrBootSignature0 || buf[511] != mbrBootSignature1 {
			break
		}
		first := mbrEntry{
			bootable: buf[mbrPartEntryOff] == 0x80,
			typeByte: buf[mbrPartEntryOff+4],
			startLBA: binary.LittleEndian.Uint32(buf[mbrPartEntryOff+8:mbrPartEntryOff+12]) + uint32(nextEBR),
			sizeLBA:  binary.LittleEndian.Uint32(buf[mbrPartEntryOff+12 : mbrPartEntryOff+16]),
		}
		if first.empty() {
			break
		}
		t.logical = append(t.logical, first)

		secondOff := mbrPartEntryOff + mbrPartEntrySize
		secondType := buf[secondOff+4]
		if secondType == 0 {
			break
		}
		nextEBR = uint64(binary.LittleEndian.Uint32(buf[secondOff+8:secondOff+12])) + uint64(ext.startLBA)
	}
	return nil
}

// CreateMBR starts a fresh, empty in-memory MBR for path.
func CreateMBR(path string, sectorSize, diskSizeSectors uint64) *MBRTable {
	return &MBRTable{path: path, sectorSize: sectorSize, diskSize: diskSizeSectors, extendedAt: -1}
}

func (t *MBRTable) Format() string     { return "msdos" }
func (t *MBRTable) SectorSize() uint64 { return t.sectorSize }

func (t *MBRTable) Partitions() []Partition {
	var out []Partition
	n := 0
	for i, e := range t.primary {
		if e.empty() {
			continue
		}
		n++
		class := ClassNormal
		if i == t.extendedAt {
			class = ClassExtended
		}
		out = append(out, Partition{
			Number: n,
			Start:  uint64(e.startLBA),
			Length: uint64(e.sizeLBA),
			Class:  class,
			Flag:   flagFromTypeByte(e.typeByte, e.bootable),
		})
	}
	for _, e := range t.logical {
		n++
		out = append(out, Partition{
			Number: n,
			Start:  uint64(e.startLBA),
			Length: uint64(e.sizeLBA),
			Class:  ClassLogical,
			Flag:   flagFromTypeByte(e.typeByte, e.bootable),
		})
	}
	return out
}

func flagToTypeByte(flag string) byte {
	switch flag {
	case "lvm":
		return 0x8E
	case "raid":
		return 0xFD
	case "prep":
		return 0x41
	case "extended":
		return 0x0F
	default:
		return 0x83
	}
}

func flagFromTypeByte(b byte, bootable bool) string {
	switch b {
	case 0x8E:
		return "lvm"
	case 0xFD:
		return "raid"
	case 0x41:
		return "prep"
	case 0x05, 0x0F:
		return "extended"
	}
	if bootable {
		return "boot"
	}
	return ""
}

// AddPartition appends to the next free primary slot, or, for
// class == ClassLogical, to the logical chain inside the already
// declared extended partition.
func (t *MBRTable) AddPartition(start, length uint64, class Class, flag string) (Partition, error) {
	if class == ClassLogical {
		if t.extendedAt < 0 {
			return Partition{}, xerr.Configf("%s: logical partition declared with no extended partition present", t.path)
		}
		e := mbrEntry{typeByte: flagToTypeByte(flag), startLBA: uint32(start), sizeLBA: uint32(length), bootable: flag == "boot"}
		t.logical = append(t.logical, e)
		return Partition{Number: len(t.primaryUsed()) + len(t.logical), Start: start, Length: length, Class: class, Flag: flag}, nil
	}

	idx := -1
	for i, e := range t.primary {
		if e.empty() {
			idx = i
			break
		}
	}
	if idx == -1 {
		return Partition{}, xerr.Configf("MBR table on %s has no free primary partition slots", t.path)
	}

	typeByte := flagToTypeByte(flag)
	if class == ClassExtended {
		typeByte = 0x0F
		t.extendedAt = idx
	}
	t.primary[idx] = mbrEntry{
		typeByte: typeByte,
		startLBA: uint32(start),
		sizeLBA:  uint32(length),
		bootable: flag == "boot",
	}
	return Partition{Number: idx + 1, Start: start, Length: length, Class: class, Flag: flag}, nil
}

func (t *MBRTable) primaryUsed() []mbrEntry {
	var out []mbrEntry
	for _, e := range t.primary {
		if !e.empty() {
			out = append(out, e)
		}
	}
	return out
}

// Commit writes the primary MBR sector and, if a logical chain
// exists, the EBR chain inside the extended partition.
func (t *MBRTable) Commit() error {
	f, err := os.OpenFile(t.path, os.O_RDWR, 0)
	if err != nil {
		return err
	}
	defer f.Close()

	mbr := make([]byte, mbrSize)
	for i, e := range t.primary {
		off := mbrPartEntryOff + i*mbrPartEntrySize
		writeMBREntry(mbr[off:off+mbrPartEntrySize], e)
	}
	mbr[510], mbr[511] = mbrBootSignature0, mbrBootSignature1
	if _, err := f.WriteAt(mbr, 0); err != nil {
		return err
	}

	if t.extendedAt < 0 || len(t.logical) == 0 {
		return nil
	}
	extStart := uint64(t.primary[t.extendedAt].startLBA)
	for i, e := range t.logical {
		ebr := make([]byte, mbrSize)
		rel := mbrEntry{typeByte: e.typeByte, bootable: e.bootable, startLBA: 0, sizeLBA: e.sizeLBA}
		// first entry's startLBA is relative to this EBR's own sector
		rel.startLBA = uint32(uint64(e.startLBA) - relativeEBRSector(t, extStart, i))
		writeMBREntry(ebr[mbrPartEntryOff:mbrPartEntryOff+mbrPartEntrySize], rel)

		if i+1 < len(t.logical) {
			next := t.logical[i+1]
			nextEBRSector := relativeEBRSector(t, extStart, i+1)
			linkOff := mbrPartEntryOff + mbrPartEntrySize
			link := mbrEntry{typeByte: 0x0F, startLBA: uint32(nextEBRSector - extStart), sizeLBA: uint32(next.sizeLBA)}
			writeMBREntry(ebr[linkOff:linkOff+mbrPartEntrySize], link)
		}
		ebr[510], ebr[511] = mbrBootSignature0, mbrBootSignature1
		if _, err := f.WriteAt(ebr, int64(relativeEBRSector(t, extStart, i)*t.sectorSize)); err != nil {
			return err
		}
	}
	return nil
}

// relativeEBRSector assumes each logical partition's EBR sits one
// sector before its own data start, a simplification consistent with
// how this table always lays out logical partitions it creates itself.
func relativeEBRSector(t *MBRTable, extStart uint64, i int) uint64 {
	return uint64(t.logical[i].startLBA) - 1
}

func writeMBREntry(b []byte, e mbrEntry) {
	if e.empty() {
		return
	}
	if e.bootable {
		b[0] = 0x80
	}
	b[4] = e.typeByte
	binary.LittleEndian.PutUint32(b[8:12], e.startLBA)
	binary.LittleEndian.PutUint32(b[12:16], e.sizeLBA)
}
