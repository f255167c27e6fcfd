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

package handlers

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/flatcar-linux/storage-apply/internal/storage/model"
)

func TestBuildRaidCreateScriptNoSpares(t *testing.T) {
	e := model.Entity{ID: "md0", RaidLevel: 1}
	script := buildRaidCreateScript(e, []string{"/dev/sda1", "/dev/sdb1"}, nil)
	assert.Equal(t, "yes | mdadm --create /dev/md0 --level=1 --raid-devices=2 /dev/sda1 /dev/sdb1", script)
}

func TestBuildRaidCreateScriptWithSpares(t *testing.T) {
	e := model.Entity{ID: "md0", RaidLevel: 5}
	script := buildRaidCreateScript(e, []string{"/dev/sda1", "/dev/sdb1", "/dev/sdc1"}, []string{"/dev/sdd1"})
	assert.Equal(t, "yes | mdadm --create /dev/md0 --level=5 --raid-devices=3 /dev/sda1 /dev/sdb1 /dev/sdc1 --spare-devices=1 /dev/sdd1", script)
}

func TestRaidRejectsInvalidLevel(t *testing.T) {
	ctx := newTestContext()
	err := Raid(ctx, model.Entity{ID: "md0", Devices: []string{"sda1"}, RaidLevel: 6})
	assert.Error(t, err)
}

func TestRaidRejectsNoDevices(t *testing.T) {
	ctx := newTestContext()
	err := Raid(ctx, model.Entity{ID: "md0", RaidLevel: 1})
	assert.Error(t, err)
}
