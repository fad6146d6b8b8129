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

package manager

import (
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"

	gterrors "github.com/gtach/provision/pkg/errors"
	"github.com/gtach/provision/pkg/state"
	"github.com/gtach/provision/pkg/updater"
)

// StateSource labels the state store entry in consistency reports, where
// file-backed versions are keyed by path.
const StateSource = "state"

// Manager coordinates version changes across all managed project files and
// the persistent state store. One mutex serializes every mutating entry
// point; reads take the same lock so reports never observe a half-applied
// transaction.
type Manager struct {
	mu       sync.Mutex
	root     string
	store    *state.Store
	updaters []*updater.Updater
	logPath  string
}

// New builds a manager for the project rooted at root. The files map binds
// each managed file kind to a path relative to root; paths that do not
// exist are skipped with a warning so a partially scaffolded project still
// works.
func New(root string, store *state.Store, files map[updater.FileKind]string) (*Manager, error) {
	if store == nil {
		return nil, gterrors.New(gterrors.ErrCodeInvalidRequest, "manager requires a state store")
	}

	m := &Manager{
		root:    root,
		store:   store,
		logPath: filepath.Join(root, OperationsLogName),
	}

	for _, kind := range updater.SupportedKinds() {
		rel, ok := files[kind]
		if !ok || rel == "" {
			continue
		}
		path := rel
		if !filepath.IsAbs(path) {
			path = filepath.Join(root, rel)
		}
		if _, err := os.Stat(path); err != nil {
			slog.Warn("managed file not found, skipping",
				"kind", kind,
				"path", path)
			continue
		}
		u, err := updater.New(path, kind)
		if err != nil {
			return nil, err
		}
		m.updaters = append(m.updaters, u)
	}

	slog.Debug("manager initialized",
		"root", root,
		"managed_files", len(m.updaters))
	return m, nil
}

// ManagedFiles returns the paths of all files under management.
func (m *Manager) ManagedFiles() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]string, 0, len(m.updaters))
	for _, u := range m.updaters {
		out = append(out, u.Path())
	}
	return out
}

// Store exposes the underlying state store for read-oriented callers.
func (m *Manager) Store() *state.Store { return m.store }

// CurrentVersions reports the detected version of every managed file plus
// the state store, keyed by source. Files whose version cannot be detected
// map to the empty string. It never fails; detection problems are logged by
// the updaters.
func (m *Manager) CurrentVersions() map[string]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.currentVersionsLocked()
}

func (m *Manager) currentVersionsLocked() map[string]string {
	out := make(map[string]string, len(m.updaters)+1)
	out[StateSource] = m.store.CurrentVersion()
	for _, u := range m.updaters {
		v, ok := u.Detect()
		if !ok {
			v = ""
		}
		out[u.Path()] = v
	}
	return out
}

// ConsistencyReport describes how the managed versions agree.
type ConsistencyReport struct {
	// Consistent is true when every detected version matches the
	// authoritative one.
	Consistent bool `json:"consistent" yaml:"consistent"`

	// Authoritative is the state store version, the source of truth for
	// conflict resolution.
	Authoritative string `json:"authoritative" yaml:"authoritative"`

	// Groups maps each distinct version to the sources carrying it.
	Groups map[string][]string `json:"groups" yaml:"groups"`

	// Missing lists managed files whose version could not be detected.
	Missing []string `json:"missing,omitempty" yaml:"missing,omitempty"`
}

// DetectInconsistencies compares every managed source and groups them by
// version. The state store version is always marked authoritative;
// undetectable files are reported separately and do not affect consistency.
func (m *Manager) DetectInconsistencies() *ConsistencyReport {
	m.mu.Lock()
	defer m.mu.Unlock()

	versions := m.currentVersionsLocked()

	report := &ConsistencyReport{
		Authoritative: versions[StateSource],
		Groups:        make(map[string][]string),
	}

	for source, v := range versions {
		if v == "" {
			report.Missing = append(report.Missing, source)
			continue
		}
		report.Groups[v] = append(report.Groups[v], source)
	}
	for _, sources := range report.Groups {
		sort.Strings(sources)
	}
	sort.Strings(report.Missing)

	report.Consistent = len(report.Groups) == 1

	if !report.Consistent {
		slog.Warn("version inconsistency detected",
			"authoritative", report.Authoritative,
			"distinct_versions", len(report.Groups))
	}
	return report
}
