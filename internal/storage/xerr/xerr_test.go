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

package xerr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWithEntityStampsID(t *testing.T) {
	err := WithEntity("sda1", Configf("bad size %q", "xyz"))
	assert.Equal(t, Config, TagOf(err))

	var te *Error
	ok := errors.As(err, &te)
	assert.True(t, ok)
	assert.Equal(t, "sda1", te.Entity)
}

func TestWithEntityNilIsNil(t *testing.T) {
	assert.Nil(t, WithEntity("sda1", nil))
}

func TestTagOfUnrelatedError(t *testing.T) {
	assert.Equal(t, Tag(""), TagOf(errors.New("boom")))
}

func TestToolErrorMessage(t *testing.T) {
	err := Toolf(&ToolError{Cmd: "mkfs.ext4", Args: []string{"/dev/sda1"}, Code: 1, Stderr: "no such device"})
	assert.Equal(t, Tool, TagOf(err))
	assert.Contains(t, err.Error(), "exit code 1")
	assert.Contains(t, err.Error(), "no such device")
}

func TestDeviceNotAppearing(t *testing.T) {
	err := DeviceNotAppearingf("/dev/sda1")
	assert.Equal(t, DeviceNotAppearing, TagOf(err))
	assert.Contains(t, err.Error(), "/dev/sda1")
}
