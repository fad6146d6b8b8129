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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	gterrors "github.com/gtach/provision/pkg/errors"
)

func TestOpenInitializesFreshProject(t *testing.T) {
	dir := t.TempDir()

	s, err := Open(dir)
	require.NoError(t, err)

	assert.Equal(t, SeedVersion, s.CurrentVersion())
	assert.Equal(t, StageDev, s.CurrentStage())

	// The seed state is persisted immediately.
	_, err = os.Stat(filepath.Join(dir, StateFileName))
	assert.NoError(t, err)

	// A second open reads it back rather than reseeding.
	s2, err := Open(dir)
	require.NoError(t, err)
	assert.Equal(t, SeedVersion, s2.CurrentVersion())
	assert.Equal(t, s.CurrentState().CreatedAt, s2.CurrentState().CreatedAt)
}

func TestUpdateVersion(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)

	entry, err := s.UpdateVersion("0.2.0", "minor", "tester", map[string]any{"reason": "feature"})
	require.NoError(t, err)

	assert.Equal(t, SeedVersion, entry.FromVersion)
	assert.Equal(t, "0.2.0", entry.ToVersion)
	assert.Equal(t, StageDev, entry.FromStage)
	assert.Equal(t, StageRelease, entry.ToStage)
	assert.True(t, entry.StageTransition)
	assert.NotEmpty(t, entry.IncrementID)
	assert.Equal(t, s.SessionID(), entry.SessionID)

	st := s.CurrentState()
	assert.Equal(t, "0.2.0", st.CurrentVersion)
	assert.Equal(t, StageRelease, st.Stage)
	assert.Equal(t, 1, st.TotalIncrements)
	require.Len(t, st.IncrementHistory, 1)
	require.Len(t, st.StageHistory, 1)
	assert.Equal(t, StageDev, st.StageHistory[0].From)
}

func TestVersionCounters(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)

	// The seed state already carries counters for 0.1.0-dev.1.
	st := s.CurrentState()
	assert.Equal(t, 0, st.Major)
	assert.Equal(t, 1, st.Minor)
	assert.Equal(t, 0, st.Patch)
	assert.Equal(t, 1, st.PrereleaseCounter)
	assert.Equal(t, defaultStageProgression(), st.StageProgression)

	entry, err := s.UpdateVersion("2.3.4-rc.7", "minor", "", nil)
	require.NoError(t, err)
	assert.True(t, entry.ValidationPassed)
	assert.Empty(t, entry.ValidationErrors)

	st = s.CurrentState()
	assert.Equal(t, 2, st.Major)
	assert.Equal(t, 3, st.Minor)
	assert.Equal(t, 4, st.Patch)
	assert.Equal(t, 7, st.PrereleaseCounter)

	// Finalizing drops the counter back to zero.
	_, err = s.UpdateVersion("2.3.4", "explicit", "", nil)
	require.NoError(t, err)
	assert.Equal(t, 0, s.CurrentState().PrereleaseCounter)
}

func TestProcessingTimePersisted(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	require.NoError(t, err)

	entry, err := s.UpdateVersion("0.2.0", "minor", "", nil)
	require.NoError(t, err)

	// The on-disk entry carries the same value that was returned, not a
	// placeholder patched in after the write.
	s2, err := Open(dir)
	require.NoError(t, err)
	history := s2.CurrentState().IncrementHistory
	require.Len(t, history, 1)
	assert.Equal(t, entry.ProcessingTimeMS, history[0].ProcessingTimeMS)
	assert.True(t, history[0].ValidationPassed)
}

func TestUpdateVersionRejectsInvalid(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)

	_, err = s.UpdateVersion("not-a-version", "patch", "", nil)
	require.Error(t, err)
	assert.Equal(t, gterrors.ErrCodeInvalidVersion, gterrors.CodeOf(err))

	// Rejected updates leave state untouched.
	assert.Equal(t, SeedVersion, s.CurrentVersion())
	assert.Equal(t, 0, s.CurrentState().TotalIncrements)
}

func TestUpdateVersionDurable(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	require.NoError(t, err)

	_, err = s.UpdateVersion("1.0.0-rc.1", "minor", "", nil)
	require.NoError(t, err)

	// A fresh store sees the update.
	s2, err := Open(dir)
	require.NoError(t, err)
	assert.Equal(t, "1.0.0-rc.1", s2.CurrentVersion())
	assert.Equal(t, StageRC, s2.CurrentStage())
	assert.Equal(t, 1, s2.CurrentState().TotalIncrements)
}

func TestHistoryCap(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	require.NoError(t, err)

	for i := 1; i <= DefaultHistoryLimit+50; i++ {
		_, err := s.UpdateVersion(fmt.Sprintf("0.1.%d", i), "patch", "", nil)
		require.NoError(t, err)
	}

	st := s.CurrentState()
	assert.Len(t, st.IncrementHistory, DefaultHistoryLimit)
	assert.Equal(t, DefaultHistoryLimit+50, st.TotalIncrements)

	// The retained entries are the most recent ones, newest last.
	newest := st.IncrementHistory[len(st.IncrementHistory)-1]
	assert.Equal(t, fmt.Sprintf("0.1.%d", DefaultHistoryLimit+50), newest.ToVersion)
	oldest := st.IncrementHistory[0]
	assert.Equal(t, fmt.Sprintf("0.1.%d", 51), oldest.ToVersion)

	// The cap survives persistence.
	s2, err := Open(dir)
	require.NoError(t, err)
	assert.Len(t, s2.CurrentState().IncrementHistory, DefaultHistoryLimit)
}

func TestHistoryLimitArg(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)

	for i := 1; i <= 5; i++ {
		_, err := s.UpdateVersion(fmt.Sprintf("0.1.%d", i), "patch", "", nil)
		require.NoError(t, err)
	}

	assert.Len(t, s.History(0), 5)
	assert.Len(t, s.History(3), 3)
	assert.Equal(t, "0.1.5", s.History(1)[0].ToVersion)
}

func TestOpenOptions(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir, WithFileName(".custom-version"), WithHistoryLimit(3))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, ".custom-version"), s.Path())

	for i := 1; i <= 5; i++ {
		_, err := s.UpdateVersion(fmt.Sprintf("0.1.%d", i), "patch", "", nil)
		require.NoError(t, err)
	}
	st := s.CurrentState()
	assert.Len(t, st.IncrementHistory, 3)
	assert.Equal(t, "0.1.3", st.IncrementHistory[0].ToVersion)
}

func TestOpenWithBackupsDisabled(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir, WithBackups(false))
	require.NoError(t, err)

	_, err = s.UpdateVersion("0.2.0", "minor", "", nil)
	require.NoError(t, err)

	// No backup file appears, and a corrupt primary is fatal on reopen.
	_, err = os.Stat(filepath.Join(dir, StateFileName+backupSuffix))
	assert.True(t, os.IsNotExist(err))

	require.NoError(t, os.WriteFile(filepath.Join(dir, StateFileName), []byte("{{{ nope"), 0600))
	_, err = Open(dir, WithBackups(false))
	require.Error(t, err)
	assert.Equal(t, gterrors.ErrCodeStateCorrupt, gterrors.CodeOf(err))
}

func TestBackupRecovery(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	require.NoError(t, err)
	_, err = s.UpdateVersion("0.5.0", "minor", "", nil)
	require.NoError(t, err)

	// Corrupt the primary; the backup written before the mutation still
	// holds the previous good state.
	statePath := filepath.Join(dir, StateFileName)
	require.NoError(t, os.WriteFile(statePath, []byte("{{{ not yaml"), 0600))

	s2, err := Open(dir)
	require.NoError(t, err)
	assert.Equal(t, SeedVersion, s2.CurrentVersion())

	// Recovery rewrote the primary.
	recovered, err := readStateFile(statePath)
	require.NoError(t, err)
	assert.Equal(t, SeedVersion, recovered.CurrentVersion)
}

func TestBothCopiesCorruptIsFatal(t *testing.T) {
	dir := t.TempDir()
	statePath := filepath.Join(dir, StateFileName)
	require.NoError(t, os.WriteFile(statePath, []byte("{{{ not yaml"), 0600))
	require.NoError(t, os.WriteFile(statePath+backupSuffix, []byte("also broken: [}"), 0600))

	_, err := Open(dir)
	require.Error(t, err)
	assert.Equal(t, gterrors.ErrCodeStateCorrupt, gterrors.CodeOf(err))
}

func TestInvalidVersionInStateIsCorrupt(t *testing.T) {
	dir := t.TempDir()
	statePath := filepath.Join(dir, StateFileName)
	require.NoError(t, os.WriteFile(statePath, []byte("current_version: banana\n"), 0600))

	_, err := Open(dir)
	require.Error(t, err)
	assert.Equal(t, gterrors.ErrCodeStateCorrupt, gterrors.CodeOf(err))
}

func TestCurrentStateIsACopy(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	_, err = s.UpdateVersion("0.2.0", "minor", "", nil)
	require.NoError(t, err)

	st := s.CurrentState()
	st.CurrentVersion = "9.9.9"
	st.IncrementHistory[0].ToVersion = "9.9.9"

	assert.Equal(t, "0.2.0", s.CurrentVersion())
	assert.Equal(t, "0.2.0", s.CurrentState().IncrementHistory[0].ToVersion)
}

func TestDeriveStage(t *testing.T) {
	tests := []struct {
		version string
		want    Stage
	}{
		{"1.0.0-alpha.1", StageAlpha},
		{"1.0.0-beta.2", StageBeta},
		{"1.0.0-rc.1", StageRC},
		{"0.1.0-dev.1", StageDev},
		{"1.0.0-SNAPSHOT", StageSnapshot},
		{"1.0.1-hotfix.1", StageHotfix},
		{"1.0.0-stable", StageStable},
		{"1.0.0", StageRelease},
		{"2.3.4+build.9", StageRelease},
	}

	for _, tt := range tests {
		t.Run(tt.version, func(t *testing.T) {
			assert.Equal(t, tt.want, DeriveStage(tt.version))
		})
	}
}

func TestSuggestNext(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	require.NoError(t, err)
	_, err = s.UpdateVersion("1.2.3", "minor", "", nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"2.0.0"}, s.SuggestNext("major"))
	assert.Equal(t, []string{"1.3.0"}, s.SuggestNext("minor"))
	assert.Equal(t, []string{"1.2.4"}, s.SuggestNext("patch"))
	assert.Equal(t, []string{"1.2.4-dev.1"}, s.SuggestNext("prerelease"))

	all := s.SuggestNext("")
	assert.Contains(t, all, "1.2.4")
	assert.Contains(t, all, "1.3.0")
	assert.Contains(t, all, "2.0.0")
}

func TestSuggestNextOnPrerelease(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	_, err = s.UpdateVersion("2.0.0-rc.1", "minor", "", nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"2.0.0-rc.2"}, s.SuggestNext("prerelease"))

	all := s.SuggestNext("")
	// Finalizing the prerelease leads the list.
	require.NotEmpty(t, all)
	assert.Equal(t, "2.0.0", all[0])
	assert.Contains(t, all, "2.0.0-rc.2")
}
