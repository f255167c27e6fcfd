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

// Package shell is the subprocess gateway (spec §4.1): it runs external
// tools, captures their output, and turns any exit code outside an
// allow-list into a *xerr.ToolError.
package shell

import (
	"bytes"
	"os/exec"
	"strings"

	"github.com/flatcar-linux/storage-apply/internal/log"
	"github.com/flatcar-linux/storage-apply/internal/storage/distro"
	"github.com/flatcar-linux/storage-apply/internal/storage/xerr"
)

// Gateway runs external tools on behalf of the storage executor.
type Gateway struct {
	Logger *log.Logger
}

// New returns a Gateway that logs through logger.
func New(logger *log.Logger) *Gateway {
	return &Gateway{Logger: logger}
}

var defaultAllowed = []int{0}

// Run executes name with args. stdout is returned trimmed of leading
// and trailing whitespace. If the process exits with a code not in allowed (default
// {0}), Run returns a *xerr.Error tagged xerr.Tool wrapping a
// *xerr.ToolError with the captured stderr.
func (g *Gateway) Run(name string, args []string, allowed ...int) (string, error) {
	if len(allowed) == 0 {
		allowed = defaultAllowed
	}
	cmd := exec.Command(name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdout, runErr := g.Logger.LogCmd(cmd, "running %s", name)
	code := exitCode(runErr)
	if !codeAllowed(code, allowed) {
		return strings.TrimSpace(stdout), xerr.Toolf(&xerr.ToolError{
			Cmd:    name,
			Args:   args,
			Code:   code,
			Stderr: stderr.String(),
		})
	}
	return strings.TrimSpace(stdout), nil
}

// RunBestEffort executes name with args and returns its stdout,
// discarding any error from a non-zero exit code. Used where the spec
// explicitly tolerates failure (e.g. partprobe during device sync).
func (g *Gateway) RunBestEffort(name string, args []string) string {
	cmd := exec.Command(name, args...)
	stdout, _ := g.Logger.LogCmd(cmd, "running %s (best effort)", name)
	return strings.TrimSpace(stdout)
}

// RunShell executes script through sh -c, for the one case (RAID
// creation) that needs a piped "yes" confirmation.
func (g *Gateway) RunShell(script string, allowed ...int) (string, error) {
	if len(allowed) == 0 {
		allowed = defaultAllowed
	}
	cmd := exec.Command(distro.ShCmd(), "-c", script)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdout, runErr := g.Logger.LogCmd(cmd, "running shell: %s", script)
	code := exitCode(runErr)
	if !codeAllowed(code, allowed) {
		return strings.TrimSpace(stdout), xerr.Toolf(&xerr.ToolError{
			Cmd:    distro.ShCmd(),
			Args:   []string{"-c", script},
			Code:   code,
			Stderr: stderr.String(),
		})
	}
	return strings.TrimSpace(stdout), nil
}

func exitCode(err error) int {
	if err == nil {
		return 0
	}
	if exitErr, ok := err.(*exec.ExitError); ok {
		return exitErr.ExitCode()
	}
	// Command never ran (not found, etc): treat as a distinguishable
	// non-zero code so it's never accidentally allow-listed.
	return -1
}

func codeAllowed(code int, allowed []int) bool {
	for _, a := range allowed {
		if code == a {
			return true
		}
	}
	return false
}
