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

// Package testutil provides a fake-PATH subprocess harness for testing
// code that shells out, in the spirit of canonical-snapd's
// testutil.MockCommand: write a tiny shell script in place of the real
// binary, point distro's overrides (or PATH) at it, and assert on what
// it recorded.
package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// FakeCmd is one faked external command. Calls records every
// invocation's arguments, one line per call, space-joined.
type FakeCmd struct {
	t    *testing.T
	dir  string
	path string
}

// NewFakeCmd writes an executable script named name under a fresh
// temp directory that appends its arguments to a log file and exits
// with exitCode. It returns the FakeCmd handle; its Path method gives
// the script's path, suitable for distro.SetOverride.
func NewFakeCmd(t *testing.T, name string, exitCode int) *FakeCmd {
	t.Helper()
	dir := t.TempDir()
	scriptPath := filepath.Join(dir, name)

	script := fmt.Sprintf("#!/bin/sh\necho \"$@\" >> %q\nexit %d\n",
		filepath.Join(dir, "calls.log"), exitCode)
	if err := os.WriteFile(scriptPath, []byte(script), 0755); err != nil {
		t.Fatalf("writing fake command %s: %v", name, err)
	}

	return &FakeCmd{t: t, dir: dir, path: scriptPath}
}

// NewFakeCmdOutput is NewFakeCmd plus a fixed stdout, for callers (like
// blkid or pvdisplay parsers) that need output shaped, not just a call
// log and exit code.
func NewFakeCmdOutput(t *testing.T, name, stdout string, exitCode int) *FakeCmd {
	t.Helper()
	dir := t.TempDir()
	scriptPath := filepath.Join(dir, name)

	stdoutPath := filepath.Join(dir, "stdout")
	if err := os.WriteFile(stdoutPath, []byte(stdout), 0644); err != nil {
		t.Fatalf("writing fake command %s output: %v", name, err)
	}
	script := fmt.Sprintf("#!/bin/sh\necho \"$@\" >> %q\ncat %q\nexit %d\n",
		filepath.Join(dir, "calls.log"), stdoutPath, exitCode)
	if err := os.WriteFile(scriptPath, []byte(script), 0755); err != nil {
		t.Fatalf("writing fake command %s: %v", name, err)
	}

	return &FakeCmd{t: t, dir: dir, path: scriptPath}
}

// Path returns the fake binary's path, to pass to distro.SetOverride.
func (f *FakeCmd) Path() string { return f.path }

// Calls returns every call recorded so far, each as its space-split
// argument list.
func (f *FakeCmd) Calls() [][]string {
	f.t.Helper()
	data, err := os.ReadFile(filepath.Join(f.dir, "calls.log"))
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		f.t.Fatalf("reading fake command log: %v", err)
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	out := make([][]string, 0, len(lines))
	for _, l := range lines {
		if l == "" {
			continue
		}
		out = append(out, strings.Fields(l))
	}
	return out
}
