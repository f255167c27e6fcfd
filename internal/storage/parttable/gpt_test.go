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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const testSectorSize = 512

func makeBackingFile(t *testing.T, sizeSectors uint64) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "disk.img")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, f.Truncate(int64(sizeSectors*testSectorSize)))
	return path
}

func TestGPTRoundTrip(t *testing.T) {
	path := makeBackingFile(t, 1<<20) // 512MiB image

	tbl := CreateGPT(path, testSectorSize, 1<<20)
	p, err := tbl.AddPartition(2048, 204800, ClassNormal, "boot")
	require.NoError(t, err)
	require.Equal(t, 1, p.Number)
	require.NoError(t, tbl.Commit())

	reopened, err := OpenGPT(path, testSectorSize)
	require.NoError(t, err)

	parts := reopened.Partitions()
	require.Len(t, parts, 1)
	require.Equal(t, uint64(2048), parts[0].Start)
	require.Equal(t, uint64(204800), parts[0].Length)
	require.Equal(t, "boot", parts[0].Flag)
}

func TestGPTAddPartitionFlags(t *testing.T) {
	path := makeBackingFile(t, 1<<20)
	tbl := CreateGPT(path, testSectorSize, 1<<20)

	_, err := tbl.AddPartition(2048, 2048, ClassNormal, "lvm")
	require.NoError(t, err)
	require.NoError(t, tbl.Commit())

	reopened, err := OpenGPT(path, testSectorSize)
	require.NoError(t, err)
	require.Equal(t, "lvm", reopened.Partitions()[0].Flag)
}

func TestOpenGPTRejectsUnlabeledDisk(t *testing.T) {
	path := makeBackingFile(t, 2048)
	_, err := OpenGPT(path, testSectorSize)
	require.Error(t, err)
}
