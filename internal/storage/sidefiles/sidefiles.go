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

// Package sidefiles is the side-file writer (spec §4.8): fstab,
// crypttab, and mdadm.conf all live next to the fstab path the
// environment supplies. If no fstab path is configured, writes are
// skipped with an informational notice rather than an error.
package sidefiles

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/flatcar-linux/storage-apply/internal/log"
	"github.com/flatcar-linux/storage-apply/internal/storage/xerr"
)

// Writer appends/writes fstab, crypttab, and mdadm.conf beside a single
// configured fstab path.
type Writer struct {
	FstabPath string
	Logger    *log.Logger
}

// New returns a Writer rooted at fstabPath ("" disables all side writes).
func New(fstabPath string, logger *log.Logger) *Writer {
	return &Writer{FstabPath: fstabPath, Logger: logger}
}

func (w *Writer) enabled() bool { return w.FstabPath != "" }

func (w *Writer) sibling(name string) string {
	return filepath.Join(filepath.Dir(w.FstabPath), name)
}

func (w *Writer) skip(what string) {
	if w.Logger != nil {
		w.Logger.Info("no fstab path configured, skipping %s write", what)
	}
}

// fstypeForFstab collapses any fat12/fat16/fat32/fat variant to vfat,
// per spec §6; anything else passes through unchanged.
func fstypeForFstab(fstype string) string {
	if strings.HasPrefix(fstype, "fat") {
		return "vfat"
	}
	return fstype
}

// AppendFstab writes one fstab line (spec §6). location is either a
// resolved device path (raid/bcache/lvm_partition) or a "UUID=..."
// string (partition/dm_crypt); mountPath is "" for swap.
func (w *Writer) AppendFstab(location, mountPath, fstype string) error {
	if !w.enabled() {
		w.skip("fstab")
		return nil
	}

	path := mountPath
	opts := "defaults"
	if fstype == "swap" {
		path = "none"
		opts = "sw"
	} else if path == "" {
		return xerr.Configf("mount entry for fstype %q requires a path", fstype)
	} else if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	line := fmt.Sprintf("%s %s %s %s 0 0\n", location, path, fstypeForFstab(fstype), opts)
	return appendFile(w.sibling("fstab"), line)
}

// AppendCrypttab writes one crypttab line (spec §6).
func (w *Writer) AppendCrypttab(dmName, backingUUID string) error {
	if !w.enabled() {
		w.skip("crypttab")
		return nil
	}
	line := fmt.Sprintf("%s UUID=%s none luks\n", dmName, backingUUID)
	return appendFile(w.sibling("crypttab"), line)
}

// WriteMdadmConf truncate-writes mdadm.conf with the raw output of
// `mdadm --detail --scan`.
func (w *Writer) WriteMdadmConf(scanOutput string) error {
	if !w.enabled() {
		w.skip("mdadm.conf")
		return nil
	}
	if !strings.HasSuffix(scanOutput, "\n") {
		scanOutput += "\n"
	}
	return os.WriteFile(w.sibling("mdadm.conf"), []byte(scanOutput), 0644)
}

func appendFile(path, line string) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.WriteString(line)
	return err
}
