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

// Package distro centralizes the names of external tools the storage
// executor shells out to, the same way ignition's own internal/distro
// lets each distribution's build override a command's name or full
// path without touching call sites.
package distro

var overrides = map[string]string{}

// SetOverride lets a caller (tests, or a distro-specific build) point a
// logical command name at a different binary, e.g. a fake on PATH.
func SetOverride(name, path string) {
	overrides[name] = path
}

func cmd(name string) string {
	if p, ok := overrides[name]; ok {
		return p
	}
	return name
}

func ShCmd() string             { return cmd("sh") }
func DdCmd() string             { return cmd("dd") }
func PartprobeCmd() string      { return cmd("partprobe") }
func UdevadmCmd() string        { return cmd("udevadm") }
func SgdiskCmd() string         { return cmd("sgdisk") }
func WipefsCmd() string         { return cmd("wipefs") }
func PvdisplayCmd() string      { return cmd("pvdisplay") }
func PvremoveCmd() string       { return cmd("pvremove") }
func PvscanCmd() string         { return cmd("pvscan") }
func VgscanCmd() string         { return cmd("vgscan") }
func VgcreateCmd() string       { return cmd("vgcreate") }
func VgchangeCmd() string       { return cmd("vgchange") }
func VgremoveCmd() string       { return cmd("vgremove") }
func LvdisplayCmd() string      { return cmd("lvdisplay") }
func LvcreateCmd() string       { return cmd("lvcreate") }
func MdadmCmd() string          { return cmd("mdadm") }
func MakeBcacheCmd() string     { return cmd("make-bcache") }
func BcacheSuperShowCmd() string { return cmd("bcache-super-show") }
func CryptsetupCmd() string     { return cmd("cryptsetup") }
func MkswapCmd() string         { return cmd("mkswap") }
func MkfsFatCmd() string        { return cmd("mkfs.fat") }
func MountCmd() string          { return cmd("mount") }
func ModprobeCmd() string       { return cmd("modprobe") }
func BlkidCmd() string          { return cmd("blkid") }
func WhichCmd() string          { return cmd("which") }
func YesCmd() string            { return cmd("yes") }

// MkfsCmd returns the mkfs frontend for fstype, e.g. "mkfs.ext4".
func MkfsCmd(fstype string) string { return cmd("mkfs." + fstype) }
