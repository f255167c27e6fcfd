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

package sidefiles

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendFstabRoot(t *testing.T) {
	dir := t.TempDir()
	w := New(filepath.Join(dir, "fstab"), nil)

	require.NoError(t, w.AppendFstab("UUID=abcd-1234", "/", "ext4"))

	data, err := os.ReadFile(filepath.Join(dir, "fstab"))
	require.NoError(t, err)
	assert.Equal(t, "UUID=abcd-1234 / ext4 defaults 0 0\n", string(data))
}

func TestAppendFstabSwap(t *testing.T) {
	dir := t.TempDir()
	w := New(filepath.Join(dir, "fstab"), nil)

	require.NoError(t, w.AppendFstab("/dev/sda2", "", "swap"))

	data, err := os.ReadFile(filepath.Join(dir, "fstab"))
	require.NoError(t, err)
	assert.Equal(t, "/dev/sda2 none swap sw 0 0\n", string(data))
}

func TestAppendFstabCollapsesFatVariants(t *testing.T) {
	dir := t.TempDir()
	w := New(filepath.Join(dir, "fstab"), nil)

	require.NoError(t, w.AppendFstab("UUID=abcd", "/boot", "fat32"))

	data, err := os.ReadFile(filepath.Join(dir, "fstab"))
	require.NoError(t, err)
	assert.Contains(t, string(data), " vfat ")
}

func TestAppendFstabSkippedWithoutPath(t *testing.T) {
	w := New("", nil)
	assert.NoError(t, w.AppendFstab("UUID=abcd", "/", "ext4"))
}

func TestAppendCrypttab(t *testing.T) {
	dir := t.TempDir()
	w := New(filepath.Join(dir, "fstab"), nil)

	require.NoError(t, w.AppendCrypttab("cryptroot", "abcd-1234"))

	data, err := os.ReadFile(filepath.Join(dir, "crypttab"))
	require.NoError(t, err)
	assert.Equal(t, "cryptroot UUID=abcd-1234 none luks\n", string(data))
}

func TestWriteMdadmConfTruncates(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mdadm.conf")
	require.NoError(t, os.WriteFile(path, []byte("stale\n"), 0644))

	w := New(filepath.Join(dir, "fstab"), nil)
	require.NoError(t, w.WriteMdadmConf("ARRAY /dev/md0 level=raid1\n"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "ARRAY /dev/md0 level=raid1\n", string(data))
}

func TestAppendFstabRequiresPathForNonSwap(t *testing.T) {
	dir := t.TempDir()
	w := New(filepath.Join(dir, "fstab"), nil)
	assert.Error(t, w.AppendFstab("UUID=abcd", "", "ext4"))
}
