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
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateFlag(t *testing.T) {
	for _, ok := range []string{"", "boot", "lvm", "raid", "bios_grub", "prep", "extended", "logical"} {
		assert.NoError(t, ValidateFlag(ok), ok)
	}
	assert.Error(t, ValidateFlag("frobnicate"))
}

func TestClassOf(t *testing.T) {
	assert.Equal(t, ClassExtended, ClassOf("extended"))
	assert.Equal(t, ClassLogical, ClassOf("logical"))
	assert.Equal(t, ClassNormal, ClassOf("boot"))
	assert.Equal(t, ClassNormal, ClassOf(""))
}

func TestPartitionEnd(t *testing.T) {
	p := Partition{Start: 2048, Length: 1000}
	assert.Equal(t, uint64(3047), p.End())
}
