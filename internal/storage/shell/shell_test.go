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

package shell

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flatcar-linux/storage-apply/internal/log"
	"github.com/flatcar-linux/storage-apply/internal/storage/testutil"
	"github.com/flatcar-linux/storage-apply/internal/storage/xerr"
)

func newGateway(t *testing.T) *Gateway {
	logger := log.New(false)
	return New(&logger)
}

func TestRunAllowsDefaultZero(t *testing.T) {
	fake := testutil.NewFakeCmd(t, "true", 0)
	gw := newGateway(t)

	_, err := gw.Run(fake.Path(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"a", "b"}}, fake.Calls())
}

func TestRunRejectsDisallowedCode(t *testing.T) {
	fake := testutil.NewFakeCmd(t, "false", 3)
	gw := newGateway(t)

	_, err := gw.Run(fake.Path(), nil)
	require.Error(t, err)
	assert.Equal(t, xerr.Tool, xerr.TagOf(err))
}

func TestRunAllowsExtraCodes(t *testing.T) {
	fake := testutil.NewFakeCmd(t, "pvremove", 5)
	gw := newGateway(t)

	_, err := gw.Run(fake.Path(), []string{"/dev/sda1"}, 0, 1, 2, 5)
	require.NoError(t, err)
}

func TestRunBestEffortSwallowsFailure(t *testing.T) {
	fake := testutil.NewFakeCmd(t, "partprobe", 1)
	gw := newGateway(t)

	out := gw.RunBestEffort(fake.Path(), []string{"/dev/sda"})
	assert.Equal(t, "", out)
}

func TestRunShellAllowsDefaultZero(t *testing.T) {
	gw := newGateway(t)
	_, err := gw.RunShell("exit 0")
	require.NoError(t, err)
}

func TestRunShellRejectsDisallowedCode(t *testing.T) {
	gw := newGateway(t)
	_, err := gw.RunShell("exit 7")
	require.Error(t, err)
	assert.Equal(t, xerr.Tool, xerr.TagOf(err))
}
