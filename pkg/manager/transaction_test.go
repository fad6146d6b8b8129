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
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	gterrors "github.com/gtach/provision/pkg/errors"
	"github.com/gtach/provision/pkg/state"
	"github.com/gtach/provision/pkg/updater"
)

func TestUpdateAll(t *testing.T) {
	root, store, files := project(t, "0.8.2")
	m, err := New(root, store, files)
	require.NoError(t, err)

	res, err := m.UpdateAll(t.Context(), "0.9.0")
	require.NoError(t, err)

	assert.Equal(t, 4, res.Updated)
	assert.Equal(t, 0, res.Unchanged)
	assert.NotEmpty(t, res.OperationID)
	for _, fr := range res.Files {
		assert.Equal(t, OutcomeUpdated, fr.Outcome)
		assert.Equal(t, "0.8.2", fr.Previous)
	}

	// Files, state, and the consistency report all agree.
	for source, v := range m.CurrentVersions() {
		assert.Equal(t, "0.9.0", v, "source %s", source)
	}
	assert.True(t, m.DetectInconsistencies().Consistent)

	// The operations log recorded every file.
	logData, err := os.ReadFile(filepath.Join(root, OperationsLogName))
	require.NoError(t, err)
	assert.Equal(t, 4, strings.Count(string(logData), res.OperationID))

	// No backup directory is left behind.
	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.HasPrefix(e.Name(), ".gtach-backup-"),
			"leftover backup directory %s", e.Name())
	}
}

func TestUpdateAllRejectsInvalidTarget(t *testing.T) {
	root, store, files := project(t, "0.8.2")
	m, err := New(root, store, files)
	require.NoError(t, err)

	_, err = m.UpdateAll(t.Context(), "banana")
	require.Error(t, err)
	assert.Equal(t, gterrors.ErrCodeInvalidVersion, gterrors.CodeOf(err))

	// Nothing moved.
	versions := m.CurrentVersions()
	assert.Equal(t, "0.8.2", versions[filepath.Join(root, "pyproject.toml")])
	assert.Equal(t, state.SeedVersion, store.CurrentVersion())
}

func TestUpdateAllNoChange(t *testing.T) {
	root, store, files := project(t, "0.8.2")
	_, err := store.UpdateVersion("0.8.2", "explicit", "test", nil)
	require.NoError(t, err)

	m, err := New(root, store, files)
	require.NoError(t, err)

	before := store.CurrentState().TotalIncrements
	res, err := m.UpdateAll(t.Context(), "0.8.2")
	require.NoError(t, err)

	assert.Equal(t, 0, res.Updated)
	assert.Equal(t, 4, res.Unchanged)
	// A no-op transaction records no increment.
	assert.Equal(t, before, store.CurrentState().TotalIncrements)
}

func TestUpdateAllRefusesWhenBackupImpossible(t *testing.T) {
	root, store, files := project(t, "0.8.2")
	m, err := New(root, store, files)
	require.NoError(t, err)

	// A managed file that vanishes after construction cannot be backed up,
	// so the transaction must refuse before touching anything.
	require.NoError(t, os.Remove(filepath.Join(root, "config.py")))

	_, err = m.UpdateAll(t.Context(), "0.9.0")
	require.Error(t, err)
	assert.Equal(t, gterrors.ErrCodeTransactionFailed, gterrors.CodeOf(err))

	for _, name := range []string{"pyproject.toml", "setup.py", "__init__.py"} {
		u, err := updater.New(filepath.Join(root, name), kindFor(name))
		require.NoError(t, err)
		v, ok := u.Detect()
		require.True(t, ok)
		assert.Equal(t, "0.8.2", v, "refused transaction must not touch %s", name)
	}
	assert.Equal(t, state.SeedVersion, store.CurrentVersion())
}

func TestUpdateAllRollsBackOnFailure(t *testing.T) {
	root, store, files := project(t, "0.8.2")
	m, err := New(root, store, files)
	require.NoError(t, err)

	// Occupying the state backup path with a directory makes the state
	// store mutation fail after every file has already been rewritten,
	// forcing the rollback path.
	require.NoError(t, os.Mkdir(filepath.Join(root, state.StateFileName+".backup"), 0700))

	_, err = m.UpdateAll(t.Context(), "0.9.0")
	require.Error(t, err)
	assert.Equal(t, gterrors.ErrCodeTransactionFailed, gterrors.CodeOf(err))

	// Every file is back at its pre-transaction version.
	for _, name := range []string{"pyproject.toml", "setup.py", "__init__.py", "config.py"} {
		u, err := updater.New(filepath.Join(root, name), kindFor(name))
		require.NoError(t, err)
		v, ok := u.Detect()
		require.True(t, ok, "version missing in %s after rollback", name)
		assert.Equal(t, "0.8.2", v, "file %s not rolled back", name)
	}

	// The state store never moved.
	assert.Equal(t, state.SeedVersion, store.CurrentVersion())

	// The failed transaction is in the operations log: every file closed
	// as restored_from_backup. The backup directory was cleaned up after
	// the verified restore.
	logData, err := os.ReadFile(filepath.Join(root, OperationsLogName))
	require.NoError(t, err)
	assert.Equal(t, 4, strings.Count(string(logData), string(OutcomeRestoredFromBackup)))
	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.HasPrefix(e.Name(), ".gtach-backup-"))
	}
}

func TestUpdateAllRestoresEveryFileOnFailure(t *testing.T) {
	names := []string{"pyproject.toml", "setup.py", "__init__.py", "config.py"}

	// Force a mid-transaction failure on each file in turn and check that
	// rollback leaves every file byte-for-byte untouched, including the one
	// whose update failed and the ones never reached.
	for _, broken := range names {
		t.Run(broken, func(t *testing.T) {
			root, store, files := project(t, "0.8.2")
			m, err := New(root, store, files)
			require.NoError(t, err)

			// Oversizing one file makes its rewrite fail while leaving it
			// perfectly copyable for the backup phase.
			f, err := os.OpenFile(filepath.Join(root, broken), os.O_APPEND|os.O_WRONLY, 0)
			require.NoError(t, err)
			_, err = f.WriteString(strings.Repeat("#", 1<<20))
			require.NoError(t, err)
			require.NoError(t, f.Close())

			before := checksums(t, root, names)

			_, err = m.UpdateAll(t.Context(), "0.9.0")
			require.Error(t, err)
			assert.Equal(t, gterrors.ErrCodeTransactionFailed, gterrors.CodeOf(err))

			assert.Equal(t, before, checksums(t, root, names),
				"rollback must restore every file when %s fails", broken)
			assert.Equal(t, state.SeedVersion, store.CurrentVersion())

			// The failed attempt is retained in the operations log.
			logData, err := os.ReadFile(filepath.Join(root, OperationsLogName))
			require.NoError(t, err)
			assert.Contains(t, string(logData), string(OutcomeFailed))
			assert.Contains(t, string(logData), string(OutcomeRestoredFromBackup))
		})
	}
}

func checksums(t *testing.T, root string, names []string) map[string]string {
	t.Helper()
	sums := make(map[string]string, len(names))
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(root, name))
		require.NoError(t, err)
		sums[name] = fmt.Sprintf("%x", sha256.Sum256(data))
	}
	return sums
}

func kindFor(name string) updater.FileKind {
	switch name {
	case "pyproject.toml":
		return updater.KindPyProject
	case "setup.py":
		return updater.KindSetupScript
	case "__init__.py":
		return updater.KindModuleInit
	default:
		return updater.KindConfigDefault
	}
}

func TestUpdateAllRecordsStageTransition(t *testing.T) {
	root, store, files := project(t, "0.8.2")
	m, err := New(root, store, files)
	require.NoError(t, err)

	_, err = m.UpdateAll(t.Context(), "1.0.0-rc.1")
	require.NoError(t, err)

	assert.Equal(t, state.StageRC, store.CurrentStage())
	history := store.History(1)
	require.Len(t, history, 1)
	assert.True(t, history[0].StageTransition)
	assert.Equal(t, "1.0.0-rc.1", history[0].ToVersion)
}

func TestPlanResolutionSyncToAuthoritative(t *testing.T) {
	root, store, files := project(t, "0.8.2")
	_, err := store.UpdateVersion("1.0.0", "explicit", "test", nil)
	require.NoError(t, err)

	m, err := New(root, store, files)
	require.NoError(t, err)

	plan, err := m.PlanResolution(StrategySyncToAuthoritative, "")
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", plan.Target)
	assert.False(t, plan.Report.Consistent)

	res, err := m.Resolve(t.Context(), plan)
	require.NoError(t, err)
	assert.Equal(t, "5/5 sources", res.Summary())
	assert.True(t, m.DetectInconsistencies().Consistent)
}

func TestPlanResolutionPromoteMostCommon(t *testing.T) {
	root, store, files := project(t, "0.8.2")
	m, err := New(root, store, files)
	require.NoError(t, err)

	// Four files at 0.8.2 outvote the seed state version.
	plan, err := m.PlanResolution(StrategyPromoteMostCommon, "")
	require.NoError(t, err)
	assert.Equal(t, "0.8.2", plan.Target)
}

func TestPlanResolutionSetExplicit(t *testing.T) {
	root, store, files := project(t, "0.8.2")
	m, err := New(root, store, files)
	require.NoError(t, err)

	plan, err := m.PlanResolution(StrategySetExplicit, "2.0.0")
	require.NoError(t, err)
	assert.Equal(t, "2.0.0", plan.Target)

	_, err = m.PlanResolution(StrategySetExplicit, "nope")
	require.Error(t, err)
	assert.Equal(t, gterrors.ErrCodeInvalidVersion, gterrors.CodeOf(err))

	_, err = m.PlanResolution(Strategy("coin_flip"), "")
	require.Error(t, err)
}

func TestMostCommonVersionTieBreak(t *testing.T) {
	report := &ConsistencyReport{Groups: map[string][]string{
		"1.0.0": {"a", "b"},
		"1.2.0": {"c", "d"},
	}}
	v, err := mostCommonVersion(report)
	require.NoError(t, err)
	assert.Equal(t, "1.2.0", v)
}
