// Copyright (c) 2025, GTach Project.  All rights reserved.
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

package updater

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/gtach/provision/pkg/errors"
	"github.com/gtach/provision/pkg/semver"
)

// FileKind identifies the flavor of managed project file. The set is closed:
// every kind carries its own detection pattern in the strategy table below,
// and constructing an updater for an unknown kind fails.
type FileKind string

const (
	// KindPyProject matches a `version = "X"` assignment in a TOML
	// project-metadata block (pyproject.toml).
	KindPyProject FileKind = "pyproject"

	// KindSetupScript matches a `version="X"` keyword argument inside a
	// setup() invocation (setup.py).
	KindSetupScript FileKind = "setup"

	// KindModuleInit matches a `__version__ = "X"` module attribute
	// (package __init__.py).
	KindModuleInit FileKind = "init"

	// KindConfigDefault matches a `version: <type> = "X"` field default in
	// a configuration declaration (dataclass-style source).
	KindConfigDefault FileKind = "config_default"
)

// maxFileSize bounds managed files to guard against scanning binaries or
// runaway files. Project metadata files are tiny in practice.
const maxFileSize = 1 << 20 // 1MB

// patterns is the per-kind detection table. Each pattern captures three
// groups: the text before the version literal, the version itself, and the
// closing quote, so a substitution can splice in a new version exactly once.
var patterns = map[FileKind]*regexp.Regexp{
	KindPyProject:     regexp.MustCompile(`(?m)^(\s*version\s*=\s*")([^"]+)(")`),
	KindSetupScript:   regexp.MustCompile(`(version\s*=\s*["'])([^"']+)(["'])`),
	KindModuleInit:    regexp.MustCompile(`(?m)^(__version__\s*=\s*["'])([^"']+)(["'])`),
	KindConfigDefault: regexp.MustCompile(`(?m)^(\s*version\s*:\s*[\w.\[\]]+\s*=\s*["'])([^"']+)(["'])`),
}

// SupportedKinds returns all managed file kinds.
func SupportedKinds() []FileKind {
	return []FileKind{KindPyProject, KindSetupScript, KindModuleInit, KindConfigDefault}
}

// Updater detects and rewrites the embedded version string of one managed
// project file. An instance is bound to a single path and kind at
// construction and performs no caching; every operation re-reads the file.
type Updater struct {
	path    string
	kind    FileKind
	pattern *regexp.Regexp
}

// New creates an updater for the given path and kind. Unknown kinds are a
// construction error; the file itself is not required to exist yet.
func New(path string, kind FileKind) (*Updater, error) {
	pattern, ok := patterns[kind]
	if !ok {
		return nil, errors.NewWithContext(errors.ErrCodeInvalidRequest,
			"unknown managed file kind", map[string]any{"kind": string(kind)})
	}
	if strings.TrimSpace(path) == "" {
		return nil, errors.New(errors.ErrCodeInvalidRequest, "file path cannot be empty")
	}
	return &Updater{path: path, kind: kind, pattern: pattern}, nil
}

// Path reports the managed file path.
func (u *Updater) Path() string { return u.path }

// Kind reports the managed file kind.
func (u *Updater) Kind() FileKind { return u.kind }

// Detect scans the file for the kind-specific version pattern and returns
// the first embedded version literal. A missing file or absent pattern is a
// detection miss, not an error: it logs a warning and reports ok=false.
func (u *Updater) Detect() (version string, ok bool) {
	content, err := u.read()
	if err != nil {
		slog.Warn("cannot read managed file for version detection",
			"path", u.path,
			"kind", u.kind,
			"error", err)
		return "", false
	}

	m := u.pattern.FindStringSubmatch(content)
	if m == nil {
		slog.Warn("no version pattern found in managed file",
			"path", u.path,
			"kind", u.kind)
		return "", false
	}
	return m[2], true
}

// Update replaces the first embedded version literal with newVersion and
// rewrites the file in place, preserving its mode. It fails closed: an
// invalid version returns an error before any read or write. A pattern miss
// is a no-op reported as (false, nil), leaving the file untouched.
func (u *Updater) Update(newVersion string) (bool, error) {
	if _, err := semver.Parse(newVersion); err != nil {
		return false, errors.WrapWithContext(errors.ErrCodeInvalidVersion,
			"refusing to write invalid version", err,
			map[string]any{"path": u.path, "version": newVersion})
	}

	content, err := u.read()
	if err != nil {
		return false, errors.Wrap(errors.ErrCodeIOFailure, "cannot read managed file", err)
	}

	loc := u.pattern.FindStringSubmatchIndex(content)
	if loc == nil {
		slog.Warn("no version pattern found, leaving file untouched",
			"path", u.path,
			"kind", u.kind)
		return false, nil
	}

	// Splice the new version into the second capture group only; everything
	// else, including later matches, stays byte-identical.
	updated := content[:loc[4]] + newVersion + content[loc[5]:]

	info, err := os.Stat(u.path)
	if err != nil {
		return false, errors.Wrap(errors.ErrCodeIOFailure, "cannot stat managed file", err)
	}
	if err := os.WriteFile(u.path, []byte(updated), info.Mode().Perm()); err != nil {
		return false, errors.Wrap(errors.ErrCodeIOFailure, "cannot rewrite managed file", err)
	}

	slog.Debug("managed file updated",
		"path", u.path,
		"kind", u.kind,
		"old", content[loc[4]:loc[5]],
		"new", newVersion)
	return true, nil
}

// Backup copies the managed file into dir under a deterministic name,
// preserving content, mode, and modification time. The returned path feeds
// Restore. I/O failures are returned to the caller, which must refuse the
// surrounding update rather than proceed without a backup.
func (u *Updater) Backup(dir string) (string, error) {
	backupPath := filepath.Join(dir, fmt.Sprintf("%s-%s.bak", u.kind, filepath.Base(u.path)))
	if err := copyFile(u.path, backupPath); err != nil {
		return "", errors.WrapWithContext(errors.ErrCodeIOFailure,
			"cannot back up managed file", err,
			map[string]any{"path": u.path, "backup": backupPath})
	}
	slog.Debug("managed file backed up", "path", u.path, "backup", backupPath)
	return backupPath, nil
}

// Restore copies a backup back over the live file.
func (u *Updater) Restore(backupPath string) error {
	if err := copyFile(backupPath, u.path); err != nil {
		return errors.WrapWithContext(errors.ErrCodeIOFailure,
			"cannot restore managed file from backup", err,
			map[string]any{"path": u.path, "backup": backupPath})
	}
	slog.Info("managed file restored from backup", "path", u.path, "backup", backupPath)
	return nil
}

// read loads the managed file as UTF-8 text, enforcing the size bound.
func (u *Updater) read() (string, error) {
	b, err := os.ReadFile(u.path)
	if err != nil {
		return "", err
	}
	if len(b) > maxFileSize {
		return "", fmt.Errorf("file %q exceeds maximum size of %d bytes", u.path, maxFileSize)
	}
	if !utf8.Valid(b) {
		return "", fmt.Errorf("content of file %q is not valid UTF-8", u.path)
	}
	return string(b), nil
}

// copyFile copies content, permissions, and modification time.
func copyFile(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	if err := os.WriteFile(dst, data, info.Mode().Perm()); err != nil {
		return err
	}
	return os.Chtimes(dst, info.ModTime(), info.ModTime())
}
