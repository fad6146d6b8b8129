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

package state

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	gterrors "github.com/gtach/provision/pkg/errors"
	"github.com/gtach/provision/pkg/semver"
)

const (
	// StateFileName is the version state document kept at the project root.
	StateFileName = ".gtach-version"

	// backupSuffix names the on-disk safety copy refreshed before every
	// mutation.
	backupSuffix = ".backup"

	// SeedVersion initializes a project that has no state file yet.
	SeedVersion = "0.1.0-dev.1"

	// DefaultHistoryLimit caps the persisted increment history at the most
	// recent entries so the state file stays bounded.
	DefaultHistoryLimit = 100
)

// Store owns the persistent version state of one project. All mutating
// entry points serialize on the store mutex; every write to disk is atomic
// (temp file, fsync, rename) and preceded by a backup refresh, so a crash
// at any point leaves either the previous or the new document intact.
type Store struct {
	mu           sync.Mutex
	fileName     string
	path         string
	backupPath   string
	sessionID    string
	historyLimit int
	backups      bool
	state        *VersionState
}

// Option adjusts store behavior at Open time.
type Option func(*Store)

// WithFileName overrides the state document name within the project root.
// An empty name keeps the default.
func WithFileName(name string) Option {
	return func(s *Store) {
		if name != "" {
			s.fileName = name
		}
	}
}

// WithHistoryLimit overrides the retained increment history cap. Values
// below one keep the default.
func WithHistoryLimit(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.historyLimit = n
		}
	}
}

// WithBackups toggles the pre-mutation backup refresh. With backups
// disabled an unreadable state file is fatal; there is nothing to recover
// from.
func WithBackups(enabled bool) Option {
	return func(s *Store) { s.backups = enabled }
}

// Open loads or initializes the version state for the project rooted at
// dir. A readable state file wins; an unreadable one falls back to the
// backup copy, and when both exist but neither parses the store refuses to
// start rather than guess. Only a project with no state file at all is
// seeded fresh.
func Open(dir string, opts ...Option) (*Store, error) {
	s := &Store{
		fileName:     StateFileName,
		sessionID:    uuid.NewString(),
		historyLimit: DefaultHistoryLimit,
		backups:      true,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.path = filepath.Join(dir, s.fileName)
	s.backupPath = s.path + backupSuffix

	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

// Path reports the state file location.
func (s *Store) Path() string { return s.path }

// SessionID reports the identifier stamped on every increment this store
// instance records.
func (s *Store) SessionID() string { return s.sessionID }

// CurrentVersion returns the current version string.
func (s *Store) CurrentVersion() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.CurrentVersion
}

// CurrentStage returns the current release stage.
func (s *Store) CurrentStage() Stage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Stage
}

// CurrentState returns a deep copy of the full state document. Callers can
// mutate the copy freely.
func (s *Store) CurrentState() *VersionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

// History returns the most recent increments, newest last. A non-positive
// limit returns the full retained history.
func (s *Store) History(limit int) []IncrementHistory {
	s.mu.Lock()
	defer s.mu.Unlock()

	h := s.state.IncrementHistory
	if limit > 0 && limit < len(h) {
		h = h[len(h)-limit:]
	}
	out := make([]IncrementHistory, len(h))
	copy(out, h)
	return out
}

// UpdateVersion transitions the store to newVersion, recording an increment
// history entry. The sequence is: validate, snapshot the in-memory state,
// refresh the on-disk backup, mutate, persist atomically. Any failure after
// validation restores the snapshot so the in-memory state never drifts from
// what disk holds.
func (s *Store) UpdateVersion(newVersion, incrementType, userContext string, opCtx map[string]any) (*IncrementHistory, error) {
	start := time.Now()

	parsed, err := semver.Parse(newVersion)
	if err != nil {
		stateUpdatesTotal.WithLabelValues("rejected").Inc()
		return nil, gterrors.WrapWithContext(gterrors.ErrCodeInvalidVersion,
			"refusing to record invalid version", err,
			map[string]any{"version": newVersion})
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.state.clone()

	if err := s.refreshBackup(); err != nil {
		stateUpdatesTotal.WithLabelValues("failure").Inc()
		return nil, gterrors.Wrap(gterrors.ErrCodeIOFailure,
			"cannot refresh state backup before mutation", err)
	}

	fromStage := s.state.Stage
	toStage := DeriveStage(newVersion)
	now := time.Now().UTC()

	entry := IncrementHistory{
		IncrementID:      uuid.NewString(),
		Timestamp:        now,
		FromVersion:      s.state.CurrentVersion,
		ToVersion:        newVersion,
		IncrementType:    incrementType,
		FromStage:        fromStage,
		ToStage:          toStage,
		StageTransition:  fromStage != toStage,
		UserContext:      userContext,
		SessionID:        s.sessionID,
		Platform:         runtime.GOOS + "/" + runtime.GOARCH,
		ValidationPassed: true,
		Metadata:         copyAnyMap(opCtx),
	}
	// Recorded before persist so the on-disk entry carries the real value.
	// The write itself is excluded from the measurement.
	entry.ProcessingTimeMS = time.Since(start).Milliseconds()

	s.state.CurrentVersion = newVersion
	s.state.Stage = toStage
	s.state.Major = parsed.Major()
	s.state.Minor = parsed.Minor()
	s.state.Patch = parsed.Patch()
	s.state.PrereleaseCounter = prereleaseCounter(parsed)
	s.state.LastUpdated = now
	s.state.TotalIncrements++
	s.state.IncrementHistory = append(s.state.IncrementHistory, entry)
	if len(s.state.IncrementHistory) > s.historyLimit {
		trimmed := make([]IncrementHistory, s.historyLimit)
		copy(trimmed, s.state.IncrementHistory[len(s.state.IncrementHistory)-s.historyLimit:])
		s.state.IncrementHistory = trimmed
	}
	if entry.StageTransition {
		s.state.StageHistory = append(s.state.StageHistory, StageTransition{
			Timestamp: now,
			From:      fromStage,
			To:        toStage,
			Version:   newVersion,
		})
	}

	if err := s.persist(); err != nil {
		s.state = snapshot
		stateUpdatesTotal.WithLabelValues("failure").Inc()
		return nil, gterrors.WrapWithContext(gterrors.ErrCodeIOFailure,
			"cannot persist version state", err,
			map[string]any{"path": s.path, "version": newVersion})
	}

	stateUpdatesTotal.WithLabelValues("success").Inc()
	persistDuration.Observe(time.Since(start).Seconds())

	slog.Info("version state updated",
		"from", entry.FromVersion,
		"to", entry.ToVersion,
		"stage", toStage,
		"stage_transition", entry.StageTransition)

	return &entry, nil
}

// SuggestNext proposes candidate next versions for the given increment type
// (major, minor, patch, prerelease, or empty for all). Suggestions are
// advisory; nothing is recorded.
func (s *Store) SuggestNext(incrementType string) []string {
	s.mu.Lock()
	current := s.state.CurrentVersion
	s.mu.Unlock()

	v, err := semver.Parse(current)
	if err != nil {
		return nil
	}

	switch incrementType {
	case "major":
		return []string{v.BumpMajor().String()}
	case "minor":
		return []string{v.BumpMinor().String()}
	case "patch":
		return []string{v.BumpPatch().String()}
	case "prerelease":
		return []string{nextPrerelease(v)}
	}

	var out []string
	if v.IsPrerelease() {
		// Finalizing the current prerelease is usually the next step.
		out = append(out, v.WithPrerelease("").String(), nextPrerelease(v))
	}
	out = append(out,
		v.BumpPatch().String(),
		v.BumpMinor().String(),
		v.BumpMajor().String())
	return out
}

// nextPrerelease increments the trailing numeric identifier of a
// prerelease, or starts a dev series on a release version.
func nextPrerelease(v semver.Version) string {
	pre := v.Prerelease()
	if pre == "" {
		return v.BumpPatch().WithPrerelease("dev.1").String()
	}

	ids := strings.Split(pre, ".")
	last := ids[len(ids)-1]
	if n, err := strconv.Atoi(last); err == nil {
		next := append(append([]string{}, ids[:len(ids)-1]...), strconv.Itoa(n+1))
		return v.WithPrerelease(strings.Join(next, ".")).String()
	}
	// No numeric tail, start one: rc -> rc.1
	return v.WithPrerelease(strings.Join(append(append([]string{}, ids...), "1"), ".")).String()
}

// prereleaseCounter extracts the trailing numeric prerelease identifier, or
// zero when the version has none (release versions, non-numeric tails).
func prereleaseCounter(v semver.Version) int {
	pre := v.Prerelease()
	if pre == "" {
		return 0
	}
	ids := strings.Split(pre, ".")
	if n, err := strconv.Atoi(ids[len(ids)-1]); err == nil {
		return n
	}
	return 0
}

// load implements the open lifecycle: primary file, then backup recovery,
// then fresh seed only when neither exists.
func (s *Store) load() error {
	primary, primaryErr := readStateFile(s.path)
	if primaryErr == nil {
		s.state = primary
		slog.Debug("version state loaded", "path", s.path, "version", primary.CurrentVersion)
		return nil
	}

	if os.IsNotExist(primaryErr) {
		if _, err := os.Stat(s.backupPath); os.IsNotExist(err) {
			return s.initialize()
		}
	}

	if !s.backups {
		if os.IsNotExist(primaryErr) {
			return s.initialize()
		}
		return gterrors.NewWithContext(gterrors.ErrCodeStateCorrupt,
			"version state unreadable and backups are disabled",
			map[string]any{"path": s.path, "state_error": primaryErr.Error()})
	}

	backup, backupErr := readStateFile(s.backupPath)
	if backupErr != nil {
		return gterrors.NewWithContext(gterrors.ErrCodeStateCorrupt,
			"version state and backup are both unreadable, refusing to guess",
			map[string]any{
				"path":         s.path,
				"state_error":  primaryErr.Error(),
				"backup_error": backupErr.Error(),
			})
	}

	stateRecoveriesTotal.Inc()
	slog.Warn("version state unreadable, recovered from backup",
		"path", s.path,
		"backup", s.backupPath,
		"error", primaryErr)

	s.state = backup
	if err := s.persist(); err != nil {
		return gterrors.Wrap(gterrors.ErrCodeIOFailure,
			"cannot rewrite recovered state", err)
	}
	return nil
}

// initialize seeds a project that has never been versioned.
func (s *Store) initialize() error {
	now := time.Now().UTC()
	hostname, _ := os.Hostname()

	seed := semver.MustParse(SeedVersion)
	s.state = &VersionState{
		CurrentVersion:    SeedVersion,
		Stage:             DeriveStage(SeedVersion),
		Major:             seed.Major(),
		Minor:             seed.Minor(),
		Patch:             seed.Patch(),
		PrereleaseCounter: prereleaseCounter(seed),
		CreatedAt:         now,
		LastUpdated:       now,
		AutoIncrement:     true,
		StageProgression:  defaultStageProgression(),
		Platform: PlatformInfo{
			OS:       runtime.GOOS,
			Arch:     runtime.GOARCH,
			Hostname: hostname,
		},
	}

	if err := s.persist(); err != nil {
		return gterrors.Wrap(gterrors.ErrCodeIOFailure,
			"cannot write initial version state", err)
	}

	slog.Info("version state initialized", "path", s.path, "version", SeedVersion)
	return nil
}

// refreshBackup copies the current on-disk document to the backup path.
// Called before every mutation so the backup always holds the last
// known-good state. A missing primary (first persist still pending) is
// fine.
func (s *Store) refreshBackup() error {
	if !s.backups {
		return nil
	}
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	return os.WriteFile(s.backupPath, data, 0600)
}

// persist writes the state document atomically: marshal to a temp file in
// the same directory, fsync, then rename over the live file. Windows cannot
// rename over an existing file, so the target is removed first.
func (s *Store) persist() error {
	data, err := yaml.Marshal(s.state)
	if err != nil {
		return fmt.Errorf("failed to marshal version state: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, StateFileName+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp state file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write temp state file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to sync temp state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp state file: %w", err)
	}

	if runtime.GOOS == "windows" {
		// Rename cannot replace an existing file on Windows.
		if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
			os.Remove(tmpName)
			return fmt.Errorf("failed to remove previous state file: %w", err)
		}
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace state file: %w", err)
	}

	return nil
}

// readStateFile loads and validates one state document.
func readStateFile(path string) (*VersionState, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var state VersionState
	if err := yaml.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to parse state file %s: %w", path, err)
	}

	if _, err := semver.Parse(state.CurrentVersion); err != nil {
		return nil, fmt.Errorf("state file %s holds invalid version %q: %w",
			path, state.CurrentVersion, err)
	}

	return &state, nil
}
