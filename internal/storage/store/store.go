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

// Package store implements the entity store (spec §4.4): an indexed,
// order-preserving view of the declarative configuration.
package store

import (
	"github.com/flatcar-linux/storage-apply/internal/storage/model"
	"github.com/flatcar-linux/storage-apply/internal/storage/xerr"
)

// Store indexes a list of entities by id while preserving input order.
// It is built once and never mutated.
type Store struct {
	order []model.Entity
	byID  map[string]model.Entity
	index map[string]int
}

// New builds a Store from entities, validating the global invariants of
// spec §3.1-2: unique ids, every reference resolves to an id declared
// earlier in the sequence, and a partition's device is a disk or raid
// that declared a ptable.
func New(entities []model.Entity) (*Store, error) {
	s := &Store{
		byID:  make(map[string]model.Entity, len(entities)),
		index: make(map[string]int, len(entities)),
	}
	for i, e := range entities {
		if e.ID == "" {
			return nil, xerr.Configf("entity at position %d has no id", i)
		}
		if !model.KnownType(e.Type) {
			return nil, xerr.Configf("entity %q has unknown type %q", e.ID, e.Type)
		}
		if _, exists := s.byID[e.ID]; exists {
			return nil, xerr.Configf("duplicate entity id %q", e.ID)
		}
		s.byID[e.ID] = e
		s.index[e.ID] = i
		s.order = append(s.order, e)
	}

	for _, e := range s.order {
		for _, ref := range e.References() {
			if ref == "" {
				continue
			}
			refIdx, ok := s.index[ref]
			if !ok {
				return nil, xerr.WithEntity(e.ID, xerr.UnknownEntityf("references unknown entity %q", ref))
			}
			if refIdx >= s.index[e.ID] {
				return nil, xerr.WithEntity(e.ID, xerr.Configf("references %q, which is not declared earlier in the sequence", ref))
			}
		}

		if e.Type == model.Partition {
			dev, ok := s.byID[e.Device]
			if !ok {
				return nil, xerr.WithEntity(e.ID, xerr.UnknownEntityf("device %q not found", e.Device))
			}
			if dev.Type != model.Disk && dev.Type != model.Raid {
				return nil, xerr.WithEntity(e.ID, xerr.Configf("device %q is a %s, not a disk or raid", e.Device, dev.Type))
			}
			if dev.Ptable == "" {
				return nil, xerr.WithEntity(e.ID, xerr.Configf("device %q did not declare a ptable", e.Device))
			}
			if !e.Preserve && dev.Preserve {
				return nil, xerr.WithEntity(e.ID, xerr.Unsupportedf("partition is not preserved but parent disk %q is", e.Device))
			}
		}
	}

	return s, nil
}

// Get looks up an entity by id.
func (s *Store) Get(id string) (model.Entity, bool) {
	e, ok := s.byID[id]
	return e, ok
}

// MustGet looks up an entity by id, returning a tagged UnknownEntity
// error if absent.
func (s *Store) MustGet(id string) (model.Entity, error) {
	e, ok := s.byID[id]
	if !ok {
		return model.Entity{}, xerr.UnknownEntityf("entity %q not found", id)
	}
	return e, nil
}

// Ordered returns every entity in input order.
func (s *Store) Ordered() []model.Entity {
	return s.order
}

// PartitionNumber computes the 1-based partition number for e as spec §3
// describes: the declared Number if present, else one past the count of
// partitions already declared for the same device, in input order.
func (s *Store) PartitionNumber(e model.Entity) int {
	if e.Number > 0 {
		return e.Number
	}
	n := 0
	for _, other := range s.order {
		if other.Type != model.Partition || other.Device != e.Device {
			continue
		}
		n++
		if other.ID == e.ID {
			return n
		}
	}
	return n
}
