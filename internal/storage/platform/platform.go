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

// Package platform reports machine facts (spec §9's C9): architecture
// and UEFI bootable state. Custom mode never consults this; it exists
// for the simple-mode installer path that picks a default partition
// table format, and is kept here for completeness only.
package platform

import (
	"os"
	"runtime"
)

// Arch returns the running machine's architecture, as Go names it
// (amd64, arm64, ...).
func Arch() string {
	return runtime.GOARCH
}

// UEFIBootable reports whether the running machine booted via UEFI, by
// checking for the efivarfs mount the kernel exposes when it did.
func UEFIBootable() bool {
	_, err := os.Stat("/sys/firmware/efi")
	return err == nil
}

// DefaultPtable returns the partition table format simple mode would
// pick absent an explicit override: gpt on a UEFI-booted machine, dos
// everywhere else.
func DefaultPtable() string {
	if UEFIBootable() {
		return "gpt"
	}
	return "msdos"
}
