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

// Package parttable is the optional "partition library" spec §9 refers
// to: a pure-Go GPT and MBR/dos reader-writer. It's kept as its own
// package, imported by the resolver and the handlers; a missing or
// unreadable table on disk surfaces as an error from the call that
// opens it.
package parttable

import (
	"fmt"
)

// Class distinguishes the three partition roles spec §4.6.2 names.
type Class int

const (
	ClassNormal Class = iota
	ClassExtended
	ClassLogical
)

// Partition is one entry of an open table, in sectors.
type Partition struct {
	Number int
	Start  uint64 // inclusive, sectors
	Length uint64 // sectors
	Class  Class
	Flag   string // "", "boot", "lvm", "raid", "bios_grub", "prep", "extended"
}

// End returns the last sector (inclusive) occupied by p.
func (p Partition) End() uint64 {
	if p.Length == 0 {
		return p.Start
	}
	return p.Start + p.Length - 1
}

// Table is an open partition table: GPT or MBR/dos.
type Table interface {
	// Format reports "gpt" or "msdos".
	Format() string
	// SectorSize in bytes.
	SectorSize() uint64
	// Partitions lists existing partitions, 1-indexed by Number.
	Partitions() []Partition

	// AddPartition appends a partition with an exact geometry
	// constraint: start and length are taken verbatim, never adjusted
	// for alignment. It does not write anything to disk until Commit.
	AddPartition(start, length uint64, class Class, flag string) (Partition, error)

	// Commit writes the table to disk.
	Commit() error
}

// ErrUnknownFlag is returned when a flag isn't one of the known
// class-setting or table-flag values spec §4.6.2 enumerates.
type ErrUnknownFlag struct{ Flag string }

func (e ErrUnknownFlag) Error() string { return fmt.Sprintf("invalid partition flag %q", e.Flag) }

// ClassOf maps a declared "flag" attribute to its partition class. Only
// "extended" and "logical" are class-setting; everything else (known or
// not) yields ClassNormal here, and is validated by known-flag-set
// membership separately.
func ClassOf(flag string) Class {
	switch flag {
	case "extended":
		return ClassExtended
	case "logical":
		return ClassLogical
	default:
		return ClassNormal
	}
}

// KnownFlags are the table-flag values spec §4.6.2 recognizes in
// addition to the class-setting "extended"/"logical".
var KnownFlags = map[string]bool{
	"boot":      true,
	"lvm":       true,
	"raid":      true,
	"bios_grub": true,
	"prep":      true,
}

// ValidateFlag rejects anything that isn't a class-setting value or a
// known table flag.
func ValidateFlag(flag string) error {
	if flag == "" || flag == "extended" || flag == "logical" || KnownFlags[flag] {
		return nil
	}
	return ErrUnknownFlag{Flag: flag}
}
