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

// Package model describes the declarative storage entities (spec §3):
// the closed set of entity types and their type-specific attributes, as
// a single flattened struct the way a discriminated-union wire format
// is conventionally modeled in Go.
package model

// Type is one of the nine entity kinds the executor understands.
type Type string

const (
	Disk         Type = "disk"
	Partition    Type = "partition"
	Format       Type = "format"
	Mount        Type = "mount"
	LVMVolgroup  Type = "lvm_volgroup"
	LVMPartition Type = "lvm_partition"
	DMCrypt      Type = "dm_crypt"
	Raid         Type = "raid"
	Bcache       Type = "bcache"
)

// Types lists every entity type the executor dispatches, in the order
// they're documented in spec §3.
var Types = []Type{Disk, Partition, Format, Mount, LVMVolgroup, LVMPartition, DMCrypt, Raid, Bcache}

// KnownType reports whether t is a member of the closed type set.
func KnownType(t Type) bool {
	for _, k := range Types {
		if k == t {
			return true
		}
	}
	return false
}

// WipeMode is one of the wipe engine's erase strengths, or WipeNone to
// skip wiping entirely.
type WipeMode string

const (
	WipeNone       WipeMode = "none"
	WipeSuperblock WipeMode = "superblock"
	WipeZero       WipeMode = "zero"
	WipeRandom     WipeMode = "random"
	WipePvremove   WipeMode = "pvremove"
)

// Entity is one record of the declarative storage configuration (spec
// §3). Only the fields relevant to Type are meaningful; a field like
// Path means "device node" for a disk and "mountpoint" for a mount —
// context, not the field, disambiguates, exactly as the wire format
// curtin's storage config and this system's JSON/YAML encoding share a
// single flat key namespace per record.
type Entity struct {
	ID   string `json:"id" yaml:"id"`
	Type Type   `json:"type" yaml:"type"`

	// disk
	Serial   string   `json:"serial,omitempty" yaml:"serial,omitempty"`
	Path     string   `json:"path,omitempty" yaml:"path,omitempty"`
	Ptable   string   `json:"ptable,omitempty" yaml:"ptable,omitempty"`
	Wipe     WipeMode `json:"wipe,omitempty" yaml:"wipe,omitempty"`
	Preserve bool     `json:"preserve,omitempty" yaml:"preserve,omitempty"`

	// partition
	Device string `json:"device,omitempty" yaml:"device,omitempty"`
	Number int    `json:"number,omitempty" yaml:"number,omitempty"`
	Size   string `json:"size,omitempty" yaml:"size,omitempty"`
	Flag   string `json:"flag,omitempty" yaml:"flag,omitempty"`

	// format
	Volume string `json:"volume,omitempty" yaml:"volume,omitempty"`
	Fstype string `json:"fstype,omitempty" yaml:"fstype,omitempty"`
	Label  string `json:"label,omitempty" yaml:"label,omitempty"`

	// lvm_volgroup / lvm_partition
	Name    string   `json:"name,omitempty" yaml:"name,omitempty"`
	Devices []string `json:"devices,omitempty" yaml:"devices,omitempty"`

	Volgroup string `json:"volgroup,omitempty" yaml:"volgroup,omitempty"`

	// dm_crypt
	Key     string `json:"key,omitempty" yaml:"key,omitempty"`
	Keysize string `json:"keysize,omitempty" yaml:"keysize,omitempty"`
	Cipher  string `json:"cipher,omitempty" yaml:"cipher,omitempty"`
	DMName  string `json:"dm_name,omitempty" yaml:"dm_name,omitempty"`

	// raid
	RaidLevel    int      `json:"raidlevel,omitempty" yaml:"raidlevel,omitempty"`
	SpareDevices []string `json:"spare_devices,omitempty" yaml:"spare_devices,omitempty"`

	// bcache
	BackingDevice string `json:"backing_device,omitempty" yaml:"backing_device,omitempty"`
	CacheDevice   string `json:"cache_device,omitempty" yaml:"cache_device,omitempty"`
}

// References returns the ids of every entity this one points to, in the
// order they'd need to already be realized. Used both to validate the
// DAG invariant (spec §3.1) and, transitively, by anything that wants
// to walk dependency edges without duplicating per-type knowledge.
func (e Entity) References() []string {
	switch e.Type {
	case Partition:
		return []string{e.Device}
	case Format:
		return []string{e.Volume}
	case Mount:
		return []string{e.Device}
	case LVMVolgroup:
		return append([]string{}, e.Devices...)
	case LVMPartition:
		return []string{e.Volgroup}
	case DMCrypt:
		return []string{e.Volume}
	case Raid:
		refs := append([]string{}, e.Devices...)
		return append(refs, e.SpareDevices...)
	case Bcache:
		return []string{e.BackingDevice, e.CacheDevice}
	default: // Disk
		return nil
	}
}

// DMNameOrID returns the dm-crypt mapper name to use: the declared
// DMName, defaulting to the entity's own id (spec §3).
func (e Entity) DMNameOrID() string {
	if e.DMName != "" {
		return e.DMName
	}
	return e.ID
}
