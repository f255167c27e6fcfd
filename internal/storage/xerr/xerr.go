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

// Package xerr defines the storage executor's error taxonomy: a small,
// fixed set of tags (not Go types) that the executor uses to annotate
// and log failures with the entity that caused them, per spec §7.
package xerr

import (
	"errors"
	"fmt"
	"strings"
)

// Tag classifies a failure into one of the taxonomy's buckets.
type Tag string

const (
	Config             Tag = "ConfigError"
	UnknownEntity      Tag = "UnknownEntity"
	ResolutionFailed   Tag = "ResolutionFailed"
	PreserveMismatch   Tag = "PreserveMismatch"
	Unsupported        Tag = "Unsupported"
	Tool               Tag = "ToolError"
	DeviceNotAppearing Tag = "DeviceNotAppearing"
)

// Error is a tagged error carrying an optional entity id for context.
// The id is attached through WithEntity, by the executor, the store's
// validation and the resolver; handlers only set Tag and Err.
type Error struct {
	Tag    Tag
	Entity string
	Err    error
}

func (e *Error) Error() string {
	if e.Entity != "" {
		return fmt.Sprintf("entity %q: %s: %v", e.Entity, e.Tag, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Tag, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// WithEntity returns a copy of err annotated with the entity id that was
// being processed when it occurred. If err is not already a *Error, it's
// wrapped in one with an empty Tag.
func WithEntity(id string, err error) error {
	if err == nil {
		return nil
	}
	var te *Error
	if errors.As(err, &te) {
		cp := *te
		cp.Entity = id
		return &cp
	}
	return &Error{Entity: id, Err: err}
}

// TagOf returns the taxonomy tag of err, or "" if err wasn't produced by
// this package.
func TagOf(err error) Tag {
	var te *Error
	if errors.As(err, &te) {
		return te.Tag
	}
	return ""
}

func tagged(tag Tag, format string, a ...interface{}) error {
	return &Error{Tag: tag, Err: fmt.Errorf(format, a...)}
}

func Configf(format string, a ...interface{}) error           { return tagged(Config, format, a...) }
func UnknownEntityf(format string, a ...interface{}) error    { return tagged(UnknownEntity, format, a...) }
func ResolutionFailedf(format string, a ...interface{}) error { return tagged(ResolutionFailed, format, a...) }
func PreserveMismatchf(format string, a ...interface{}) error { return tagged(PreserveMismatch, format, a...) }
func Unsupportedf(format string, a ...interface{}) error      { return tagged(Unsupported, format, a...) }

// ToolError reports an external command that exited with a code outside
// its caller's allow-list.
type ToolError struct {
	Cmd    string
	Args   []string
	Code   int
	Stderr string
}

func (e *ToolError) Error() string {
	stderr := strings.TrimSpace(e.Stderr)
	if stderr != "" {
		return fmt.Sprintf("%s %s: exit code %d: %s", e.Cmd, strings.Join(e.Args, " "), e.Code, stderr)
	}
	return fmt.Sprintf("%s %s: exit code %d", e.Cmd, strings.Join(e.Args, " "), e.Code)
}

// Toolf wraps a *ToolError as a tagged taxonomy error.
func Toolf(te *ToolError) error {
	return &Error{Tag: Tool, Err: te}
}

// DeviceNotAppearingError reports a device node that failed to
// materialize within the device synchronizer's budget.
type DeviceNotAppearingError struct {
	Path string
}

func (e *DeviceNotAppearingError) Error() string {
	return fmt.Sprintf("device did not appear: %s", e.Path)
}

func DeviceNotAppearingf(path string) error {
	return &Error{Tag: DeviceNotAppearing, Err: &DeviceNotAppearingError{Path: path}}
}
