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

package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSizeToSectors(t *testing.T) {
	n, err := SizeToSectors("1MiB", 512)
	require.NoError(t, err)
	assert.Equal(t, uint64(2048), n)
}

func TestSizeToSectorsRoundsUp(t *testing.T) {
	n, err := SizeToSectors("513B", 512)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), n)
}

func TestSizeToSectorsRejectsGarbage(t *testing.T) {
	_, err := SizeToSectors("bogus", 512)
	assert.Error(t, err)
}

func TestSizeToSectorsRejectsZero(t *testing.T) {
	_, err := SizeToSectors("0B", 512)
	assert.Error(t, err)
}
