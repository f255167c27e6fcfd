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
	"os"

	"github.com/google/uuid"

	"github.com/flatcar-linux/storage-apply/internal/storage/distro"
	"github.com/flatcar-linux/storage-apply/internal/storage/model"
	"github.com/flatcar-linux/storage-apply/internal/storage/xerr"
)

// DMCrypt implements spec §4.6.7: a short-lived key file, luksFormat,
// luksOpen, then a crypttab line recording the mapping for boot.
func DMCrypt(ctx *Context, e model.Entity) error {
	if e.Volume == "" {
		return xerr.Configf("volume for cryptsetup to operate on must be specified for %q", e.ID)
	}
	if e.Key == "" {
		return xerr.Configf("encryption key must be specified for %q", e.ID)
	}

	volumePath, err := ctx.Resolver.Resolve(e.Volume)
	if err != nil {
		return err
	}

	keyPath, err := writeTempKeyfile(e.Key)
	if err != nil {
		return err
	}
	defer os.Remove(keyPath)

	formatArgs := []string{}
	if e.Cipher != "" {
		formatArgs = append(formatArgs, "--cipher", e.Cipher)
	}
	if e.Keysize != "" {
		formatArgs = append(formatArgs, "--key-size", e.Keysize)
	}
	formatArgs = append(formatArgs, "luksFormat", volumePath, keyPath)
	if _, err := ctx.Gateway.Run(distro.CryptsetupCmd(), formatArgs); err != nil {
		return err
	}

	dmName := e.DMNameOrID()
	openArgs := []string{"open", "--type", "luks", volumePath, dmName, "--key-file", keyPath}
	if _, err := ctx.Gateway.Run(distro.CryptsetupCmd(), openArgs); err != nil {
		return err
	}

	backingUUID := ctx.Probe.UUID(volumePath)
	if backingUUID == "" {
		return xerr.ResolutionFailedf("could not determine UUID of %s", volumePath)
	}
	return ctx.Sidefiles.AppendCrypttab(dmName, backingUUID)
}

// writeTempKeyfile writes key to a short-lived, uniquely-named temp
// file the dm-crypt handler deletes as soon as cryptsetup is done with
// it, the same fleeting-exposure window curtin's own tempfile.mkstemp
// use accepts.
func writeTempKeyfile(key string) (string, error) {
	path := os.TempDir() + "/storage-apply-key-" + uuid.NewString()
	if err := os.WriteFile(path, []byte(key), 0600); err != nil {
		return "", err
	}
	return path, nil
}
