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

// Package config loads the declarative storage entity list (spec §3).
// It also defines Environment, the shape of the minimal environment
// mapping (spec §6): a chroot target and an optional fstab path. This
// package does not load or fill in an Environment.
package config

import (
	"os"
	"path/filepath"
	"strings"

	json "github.com/coreos/go-json"
	"gopkg.in/yaml.v3"

	"github.com/flatcar-linux/storage-apply/internal/storage/model"
)

// Environment is the minimal context the executor needs beyond the
// entity list itself (spec §6).
type Environment struct {
	// Target is the chroot root under which mounts are made.
	Target string
	// Fstab is the absolute path of the fstab file to append to. Empty
	// disables all side-file writes (spec §4.8).
	Fstab string
}

// storageDocument is the top-level shape both the JSON and YAML
// encodings share: a single "storage" key holding the ordered entity
// list, mirroring curtin's own storage-config YAML block.
type storageDocument struct {
	Storage []model.Entity `json:"storage" yaml:"storage"`
}

// LoadEntities reads an ordered entity list from path. YAML is
// detected by extension (.yaml/.yml); everything else is parsed as
// strict JSON via coreos/go-json, which rejects duplicate keys the way
// the standard library's encoding/json silently accepts.
func LoadEntities(path string) ([]model.Entity, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var doc storageDocument
	if isYAMLPath(path) {
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, err
		}
		return doc.Storage, nil
	}

	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return doc.Storage, nil
}

func isYAMLPath(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	default:
		return false
	}
}
