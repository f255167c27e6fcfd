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

// Package log provides the small structured logger used throughout the
// storage executor. It mirrors the shape of ignition's own internal
// logger: leveled output, a prefix stack for nested operations, and
// helpers that log the start/end of an operation or subprocess
// invocation around the thing actually doing the work.
package log

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
)

// Logger writes leveled, prefixed messages to an underlying writer. The
// zero value is not usable; construct with New.
type Logger struct {
	out io.Writer

	mu     sync.Mutex
	prefix []string
}

// New creates a Logger. When toStdout is true, messages go to stdout;
// otherwise they go to stderr. Both are acceptable destinations for an
// installer-time tool that has no syslog of its own yet.
func New(toStdout bool) Logger {
	if toStdout {
		return Logger{out: os.Stdout}
	}
	return Logger{out: os.Stderr}
}

// Close releases any resources held by the logger's destination.
func (l *Logger) Close() {
	if c, ok := l.out.(interface{ Close() error }); ok {
		_ = c.Close()
	}
}

func (l *Logger) line(level, format string, a ...interface{}) string {
	l.mu.Lock()
	prefix := strings.Join(l.prefix, ": ")
	l.mu.Unlock()
	msg := fmt.Sprintf(format, a...)
	if prefix != "" {
		return fmt.Sprintf("%s: %s: %s", level, prefix, msg)
	}
	return fmt.Sprintf("%s: %s", level, msg)
}

func (l *Logger) emit(level, format string, a ...interface{}) {
	fmt.Fprintln(l.out, l.line(level, format, a...))
}

func (l *Logger) Debug(format string, a ...interface{}) { l.emit("DEBUG", format, a...) }
func (l *Logger) Info(format string, a ...interface{})  { l.emit("INFO", format, a...) }
func (l *Logger) Err(format string, a ...interface{})   { l.emit("ERROR", format, a...) }
func (l *Logger) Crit(format string, a ...interface{})  { l.emit("CRITICAL", format, a...) }

// PushPrefix adds ctxt to the nesting stack used to label subsequent
// messages until the matching PopPrefix.
func (l *Logger) PushPrefix(format string, a ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.prefix = append(l.prefix, fmt.Sprintf(format, a...))
}

// PopPrefix removes the innermost nesting prefix.
func (l *Logger) PopPrefix() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.prefix) > 0 {
		l.prefix = l.prefix[:len(l.prefix)-1]
	}
}

// LogOp logs the start and outcome of op, which is assumed to be the only
// thing in the call stack actually doing work worth narrating.
func (l *Logger) LogOp(op func() error, format string, a ...interface{}) error {
	msg := fmt.Sprintf(format, a...)
	l.Debug("op: %s", msg)
	err := op()
	if err != nil {
		l.Err("op failed: %s: %v", msg, err)
	} else {
		l.Debug("op succeeded: %s", msg)
	}
	return err
}

// LogCmd runs cmd, logging its invocation, and returns its captured
// stdout. cmd.Stdout is overwritten; cmd.Stderr is left alone so callers
// can capture it separately (the subprocess gateway does, to build a
// ToolError).
func (l *Logger) LogCmd(cmd *exec.Cmd, format string, a ...interface{}) (string, error) {
	msg := fmt.Sprintf(format, a...)
	l.Debug("running %v (%s)", cmd.Args, msg)
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	err := cmd.Run()
	if err != nil {
		l.Err("%v failed (%s): %v", cmd.Args, msg, err)
	} else {
		l.Debug("%v succeeded (%s)", cmd.Args, msg)
	}
	return stdout.String(), err
}
