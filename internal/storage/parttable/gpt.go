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
	"fmt"
	"hash/crc32"
	"os"

	"github.com/flatcar-linux/storage-apply/internal/storage/xerr"
)

const (
	gptSignature       = "EFI PART"
	gptHeaderSize      = 92
	gptEntrySize       = 128
	gptDefaultEntries  = 128
	gptAttrLegacyBoot  = 1 << 2
)

type gptEntry struct {
	typeGUID   guid
	uniqueGUID guid
	firstLBA   uint64
	lastLBA    uint64
	attributes uint64
	name       [72]byte // UTF-16LE, unused here
}

func (e gptEntry) empty() bool {
	return e.typeGUID == guid{}
}

// GPTTable is a pure-Go GPT reader/writer good enough to satisfy the
// storage executor's needs: enumerate existing partitions and append
// new ones at an exact sector geometry. It intentionally does not
// implement alignment heuristics, hybrid MBRs, or partition deletion;
// spec's custom-mode executor never needs them.
type GPTTable struct {
	path       string
	sectorSize uint64
	diskSize   uint64 // sectors
	diskGUID   guid
	entries    []gptEntry
	numEntries uint32
}

// OpenGPT reads the primary GPT header and entry array from path. It
// returns an error if no valid GPT signature is found.
func OpenGPT(path string, sectorSize uint64) (*GPTTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	hdr := make([]byte, sectorSize)
	if _, err := f.ReadAt(hdr, int64(sectorSize)); err != nil {
		return nil, err
	}
	if string(hdr[0:8]) != gptSignature {
		return nil, xerr.ResolutionFailedf("%s: no GPT signature found", path)
	}

	numEntries := binary.LittleEndian.Uint32(hdr[80:84])
	entrySize := binary.LittleEndian.Uint32(hdr[84:88])
	entriesLBA := binary.LittleEndian.Uint64(hdr[72:80])

	var diskGUID guid
	copy(diskGUID[:], hdr[56:72])

	size, err := deviceSizeSectors(f, sectorSize)
	if err != nil {
		return nil, err
	}

	buf := make([]byte, uint64(numEntries)*uint64(entrySize))
	if _, err := f.ReadAt(buf, int64(entriesLBA*sectorSize)); err != nil {
		return nil, err
	}

	t := &GPTTable{
		path:       path,
		sectorSize: sectorSize,
		diskSize:   size,
		diskGUID:   diskGUID,
		numEntries: numEntries,
	}
	for i := uint32(0); i < numEntries; i++ {
		off := uint64(i) * uint64(entrySize)
		var e gptEntry
		copy(e.typeGUID[:], buf[off:off+16])
		copy(e.uniqueGUID[:], buf[off+16:off+32])
		e.firstLBA = binary.LittleEndian.Uint64(buf[off+32 : off+40])
		e.lastLBA = binary.LittleEndian.Uint64(buf[off+40 : off+48])
		e.attributes = binary.LittleEndian.Uint64(buf[off+48 : off+56])
		t.entries = append(t.entries, e)
	}
	return t, nil
}

// CreateGPT starts a fresh, empty in-memory GPT for path; nothing is
// written until Commit.
func CreateGPT(path string, sectorSize, diskSizeSectors uint64) *GPTTable {
	return &GPTTable{
		path:       path,
		sectorSize: sectorSize,
		diskSize:   diskSizeSectors,
		diskGUID:   randomGUID(),
		numEntries: gptDefaultEntries,
		entries:    make([]gptEntry, gptDefaultEntries),
	}
}

func (t *GPTTable) Format() string     { return "gpt" }
func (t *GPTTable) SectorSize() uint64 { return t.sectorSize }

func (t *GPTTable) Partitions() []Partition {
	var out []Partition
	n := 0
	for _, e := range t.entries {
		if e.empty() {
			continue
		}
		n++
		out = append(out, Partition{
			Number: n,
			Start:  e.firstLBA,
			Length: e.lastLBA - e.firstLBA + 1,
			Class:  ClassNormal,
			Flag:   flagFromTypeGUID(e.typeGUID, e.attributes),
		})
	}
	return out
}

func flagFromTypeGUID(t guid, attrs uint64) string {
	switch t {
	case typeLinuxLVM:
		return "lvm"
	case typeLinuxRAID:
		return "raid"
	case typeBIOSBoot:
		return "bios_grub"
	case typePReP:
		return "prep"
	}
	if attrs&gptAttrLegacyBoot != 0 {
		return "boot"
	}
	return ""
}

// AddPartition appends a partition at the exact [start, start+length)
// geometry given; GPT has no notion of extended/logical classes, so
// class is accepted but ignored beyond validation elsewhere.
func (t *GPTTable) AddPartition(start, length uint64, class Class, flag string) (Partition, error) {
	idx := -1
	for i, e := range t.entries {
		if e.empty() {
			idx = i
			break
		}
	}
	if idx == -1 {
		return Partition{}, xerr.Configf("GPT table on %s has no free partition entries", t.path)
	}

	e := gptEntry{
		typeGUID:   flagToTypeGUID(flag),
		uniqueGUID: randomGUID(),
		firstLBA:   start,
		lastLBA:    start + length - 1,
	}
	if flag == "boot" {
		e.attributes |= gptAttrLegacyBoot
	}
	t.entries[idx] = e

	return Partition{Number: idx + 1, Start: start, Length: length, Class: class, Flag: flag}, nil
}

// Commit writes the protective MBR, primary header+array, and backup
// header+array to disk.
func (t *GPTTable) Commit() error {
	f, err := os.OpenFile(t.path, os.O_RDWR, 0)
	if err != nil {
		return err
	}
	defer f.Close()

	entrySize := uint32(gptEntrySize)
	entryArrayBytes := make([]byte, uint64(t.numEntries)*uint64(entrySize))
	for i, e := range t.entries {
		off := uint64(i) * uint64(entrySize)
		copy(entryArrayBytes[off:off+16], e.typeGUID[:])
		copy(entryArrayBytes[off+16:off+32], e.uniqueGUID[:])
		binary.LittleEndian.PutUint64(entryArrayBytes[off+32:off+40], e.firstLBA)
		binary.LittleEndian.PutUint64(entryArrayBytes[off+40:off+48], e.lastLBA)
		binary.LittleEndian.PutUint64(entryArrayBytes[off+48:off+56], e.attributes)
	}
	entriesCRC := crc32.ChecksumIEEE(entryArrayBytes)
	entryArraySectors := (uint64(len(entryArrayBytes)) + t.sectorSize - 1) / t.sectorSize

	primaryEntriesLBA := uint64(2)
	backupHeaderLBA := t.diskSize - 1
	backupEntriesLBA := backupHeaderLBA - entryArraySectors
	firstUsableLBA := primaryEntriesLBA + entryArraySectors
	lastUsableLBA := backupEntriesLBA - 1

	primary := t.buildHeader(1, backupHeaderLBA, firstUsableLBA, lastUsableLBA, primaryEntriesLBA, entriesCRC)
	backup := t.buildHeader(backupHeaderLBA, 1, firstUsableLBA, lastUsableLBA, backupEntriesLBA, entriesCRC)

	if err := writeProtectiveMBR(f, t.sectorSize, t.diskSize); err != nil {
		return err
	}
	if _, err := f.WriteAt(primary, int64(t.sectorSize)); err != nil {
		return err
	}
	if _, err := f.WriteAt(entryArrayBytes, int64(primaryEntriesLBA*t.sectorSize)); err != nil {
		return err
	}
	if _, err := f.WriteAt(entryArrayBytes, int64(backupEntriesLBA*t.sectorSize)); err != nil {
		return err
	}
	if _, err := f.WriteAt(backup, int64(backupHeaderLBA*t.sectorSize)); err != nil {
		return err
	}
	return nil
}

func (t *GPTTable) buildHeader(myLBA, altLBA, firstUsable, lastUsable, entriesLBA uint64, entriesCRC uint32) []byte {
	hdr := make([]byte, t.sectorSize)
	copy(hdr[0:8], gptSignature)
	binary.LittleEndian.PutUint32(hdr[8:12], 0x00010000) // revision 1.0
	binary.LittleEndian.PutUint32(hdr[12:16], gptHeaderSize)
	binary.LittleEndian.PutUint64(hdr[24:32], myLBA)
	binary.LittleEndian.PutUint64(hdr[32:40], altLBA)
	binary.LittleEndian.PutUint64(hdr[40:48], firstUsable)
	binary.LittleEndian.PutUint64(hdr[48:56], lastUsable)
	copy(hdr[56:72], t.diskGUID[:])
	binary.LittleEndian.PutUint64(hdr[72:80], entriesLBA)
	binary.LittleEndian.PutUint32(hdr[80:84], t.numEntries)
	binary.LittleEndian.PutUint32(hdr[84:88], gptEntrySize)
	binary.LittleEndian.PutUint32(hdr[88:92], entriesCRC)

	headerCRC := crc32.ChecksumIEEE(hdr[0:gptHeaderSize])
	binary.LittleEndian.PutUint32(hdr[16:20], headerCRC)
	return hdr
}

func writeProtectiveMBR(f *os.File, sectorSize, diskSizeSectors uint64) error {
	mbr := make([]byte, sectorSize)
	sizeLBA := diskSizeSectors - 1
	if sizeLBA > 0xFFFFFFFF {
		sizeLBA = 0xFFFFFFFF
	}
	// single partition entry, type 0xEE (GPT protective), covering the disk
	entry := mbr[446:462]
	entry[4] = 0xEE
	binary.LittleEndian.PutUint32(entry[8:12], 1)
	binary.LittleEndian.PutUint32(entry[12:16], uint32(sizeLBA))
	mbr[510] = 0x55
	mbr[511] = 0xAA
	_, err := f.WriteAt(mbr, 0)
	return err
}

// DeviceSizeSectors opens path and reports its size in sectorSize-byte
// sectors, working for both regular files and block devices.
func DeviceSizeSectors(path string, sectorSize uint64) (uint64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	return deviceSizeSectors(f, sectorSize)
}

func deviceSizeSectors(f *os.File, sectorSize uint64) (uint64, error) {
	info, err := f.Stat()
	if err != nil {
		return 0, err
	}
	if info.Size() > 0 {
		return uint64(info.Size()) / sectorSize, nil
	}
	// block devices report size 0 from Stat; fall back to seeking to
	// the end, which works for both regular files and block devices.
	end, err := f.Seek(0, os.SEEK_END)
	if err != nil {
		return 0, fmt.Errorf("determining size of %s: %w", f.Name(), err)
	}
	return uint64(end) / sectorSize, nil
}
