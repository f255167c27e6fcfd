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

// Package wipe implements the wipe engine (spec §4.3): erasing volume
// content at one of several strengths.
package wipe

import (
	"github.com/flatcar-linux/storage-apply/internal/storage/distro"
	"github.com/flatcar-linux/storage-apply/internal/storage/model"
	"github.com/flatcar-linux/storage-apply/internal/storage/shell"
	"github.com/flatcar-linux/storage-apply/internal/storage/xerr"
)

// Engine runs wipe operations through a shell.Gateway.
type Engine struct {
	Gateway *shell.Gateway
}

// New returns an Engine that shells out through gw.
func New(gw *shell.Gateway) *Engine {
	return &Engine{Gateway: gw}
}

// Wipe erases path according to mode.
func (e *Engine) Wipe(path string, mode model.WipeMode) error {
	switch mode {
	case model.WipeSuperblock:
		if _, err := e.Gateway.Run(distro.SgdiskCmd(), []string{"--zap-all", path}); err != nil {
			return err
		}
		_, err := e.Gateway.Run(distro.WipefsCmd(), []string{"-a", path})
		return err
	case model.WipeZero:
		_, err := e.Gateway.Run(distro.DdCmd(), []string{"bs=512", "if=/dev/zero", "of=" + path}, 0, 1)
		return err
	case model.WipeRandom:
		_, err := e.Gateway.Run(distro.DdCmd(), []string{"bs=512", "if=/dev/urandom", "of=" + path}, 0, 1)
		return err
	case model.WipePvremove:
		if _, err := e.Gateway.Run(distro.PvremoveCmd(), []string{"--force", "--force", "--yes", path}, 0, 1, 2, 5); err != nil {
			return err
		}
		if _, err := e.Gateway.Run(distro.PvscanCmd(), []string{"--cache"}); err != nil {
			return err
		}
		_, err := e.Gateway.Run(distro.VgscanCmd(), []string{"--mknodes", "--cache"})
		return err
	default:
		return xerr.Configf("unsupported wipe mode %q", mode)
	}
}
