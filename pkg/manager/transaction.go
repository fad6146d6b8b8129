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
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/gtach/provision/pkg/checksum"
	gterrors "github.com/gtach/provision/pkg/errors"
	"github.com/gtach/provision/pkg/semver"
	"github.com/gtach/provision/pkg/updater"
)

// OperationsLogName is the append-only transaction log at the project root.
const OperationsLogName = ".gtach-operations.log"

// FileOutcome is the per-file result of an update transaction.
type FileOutcome string

const (
	// OutcomeUpdated means the file version was rewritten.
	OutcomeUpdated FileOutcome = "updated"

	// OutcomeNoChange means the file already carried the target version.
	OutcomeNoChange FileOutcome = "no_change"

	// OutcomeSkipped means no version pattern was found, so the file was
	// left untouched.
	OutcomeSkipped FileOutcome = "skipped"

	// OutcomeFailed means the write failed; the transaction rolled back.
	OutcomeFailed FileOutcome = "failed"

	// OutcomeBackupCreated means the file was backed up but the transaction
	// failed before a verified restore could run; the backup is retained.
	OutcomeBackupCreated FileOutcome = "backup_created"

	// OutcomeRestoredFromBackup means the file was put back to its
	// pre-transaction content during rollback.
	OutcomeRestoredFromBackup FileOutcome = "restored_from_backup"
)

// FileResult records what happened to one managed file.
type FileResult struct {
	Path     string           `json:"path" yaml:"path"`
	Kind     updater.FileKind `json:"kind" yaml:"kind"`
	Previous string           `json:"previous,omitempty" yaml:"previous,omitempty"`
	Outcome  FileOutcome      `json:"outcome" yaml:"outcome"`
	Backup   string           `json:"backup,omitempty" yaml:"backup,omitempty"`
	Error    string           `json:"error,omitempty" yaml:"error,omitempty"`
}

// UpdateResult summarizes one committed transaction.
type UpdateResult struct {
	OperationID string       `json:"operation_id" yaml:"operation_id"`
	Target      string       `json:"target" yaml:"target"`
	StartedAt   time.Time    `json:"started_at" yaml:"started_at"`
	Files       []FileResult `json:"files" yaml:"files"`
	Updated     int          `json:"updated" yaml:"updated"`
	Unchanged   int          `json:"unchanged" yaml:"unchanged"`
}

// operationRecord is one line of the append-only operations log.
type operationRecord struct {
	OperationID string    `json:"operation_id"`
	Timestamp   time.Time `json:"timestamp"`
	Target      string    `json:"target"`
	Path        string    `json:"path"`
	Previous    string    `json:"previous,omitempty"`
	Outcome     string    `json:"outcome"`
	Backup      string    `json:"backup,omitempty"`
	Error       string    `json:"error,omitempty"`
}

// UpdateAll sets every managed file and the state store to target inside a
// single transaction. The sequence is strict: validate the target, back up
// every participating file (a single backup failure aborts before any
// write), apply the file updates, record the increment in the state store,
// then log the operations and discard the backups. Any failure after the
// first write restores every file from its checksum-verified backup, and
// the state store rolls its own mutation back, so the project is never left
// half-updated.
func (m *Manager) UpdateAll(ctx context.Context, target string) (*UpdateResult, error) {
	if _, err := semver.Parse(target); err != nil {
		transactionsTotal.WithLabelValues("rejected").Inc()
		return nil, gterrors.WrapWithContext(gterrors.ErrCodeInvalidVersion,
			"refusing transaction with invalid target version", err,
			map[string]any{"target": target})
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		transactionsTotal.WithLabelValues("cancelled").Inc()
		return nil, gterrors.Wrap(gterrors.ErrCodeInternal, "transaction cancelled", err)
	}

	res := &UpdateResult{
		OperationID: uuid.NewString(),
		Target:      target,
		StartedAt:   time.Now().UTC(),
	}

	tx, err := m.openTransaction(res.OperationID)
	if err != nil {
		transactionsTotal.WithLabelValues("failure").Inc()
		return nil, err
	}

	applyErr := m.apply(ctx, tx, target, res)
	if applyErr == nil {
		applyErr = m.recordIncrement(target, res)
	}

	if applyErr != nil {
		restored := tx.rollback()
		m.markRollback(res, tx, restored)
		if err := m.appendOperations(res); err != nil {
			slog.Error("cannot append to operations log", "path", m.logPath, "error", err)
		}
		transactionsTotal.WithLabelValues("failure").Inc()
		return nil, gterrors.WrapWithContext(gterrors.ErrCodeTransactionFailed,
			"update transaction rolled back", applyErr,
			map[string]any{"operation_id": res.OperationID, "target": target})
	}

	if err := m.appendOperations(res); err != nil {
		// The transaction itself committed; a log write failure is not
		// grounds to undo it.
		slog.Error("cannot append to operations log", "path", m.logPath, "error", err)
	}
	tx.discard()

	transactionsTotal.WithLabelValues("success").Inc()
	slog.Info("update transaction committed",
		"operation_id", res.OperationID,
		"target", target,
		"updated", res.Updated,
		"unchanged", res.Unchanged)
	return res, nil
}

// transaction tracks the backup directory and every participating file.
// Rollback restores all of them, not just the ones already written: a write
// that fails partway can leave its file corrupted without ever reporting a
// clean update.
type transaction struct {
	id        string
	backupDir string
	backups   map[string]string // live path -> backup path
	files     []*updater.Updater
}

// openTransaction backs up every managed file into a fresh directory and
// seals it with a checksum manifest. Refusal is total: if any file cannot
// be backed up, no transaction starts.
func (m *Manager) openTransaction(id string) (*transaction, error) {
	backupDir, err := os.MkdirTemp(m.root, ".gtach-backup-*")
	if err != nil {
		return nil, gterrors.Wrap(gterrors.ErrCodeIOFailure,
			"cannot create transaction backup directory", err)
	}

	tx := &transaction{
		id:        id,
		backupDir: backupDir,
		backups:   make(map[string]string, len(m.updaters)),
	}

	files := make([]string, 0, len(m.updaters))
	for _, u := range m.updaters {
		backupPath, err := u.Backup(backupDir)
		if err != nil {
			os.RemoveAll(backupDir)
			return nil, gterrors.WrapWithContext(gterrors.ErrCodeTransactionFailed,
				"refusing transaction, managed file cannot be backed up", err,
				map[string]any{"path": u.Path()})
		}
		tx.backups[u.Path()] = backupPath
		tx.files = append(tx.files, u)
		files = append(files, backupPath)
	}

	if err := checksum.GenerateManifest(backupDir, files); err != nil {
		os.RemoveAll(backupDir)
		return nil, gterrors.Wrap(gterrors.ErrCodeTransactionFailed,
			"refusing transaction, cannot seal backups", err)
	}

	return tx, nil
}

// apply rewrites each managed file that is not already at target.
func (m *Manager) apply(ctx context.Context, tx *transaction, target string, res *UpdateResult) error {
	for _, u := range m.updaters {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("cancelled before updating %s: %w", u.Path(), err)
		}

		fr := FileResult{Path: u.Path(), Kind: u.Kind(), Backup: tx.backups[u.Path()]}
		current, detected := u.Detect()
		fr.Previous = current

		switch {
		case detected && current == target:
			fr.Outcome = OutcomeNoChange
			res.Unchanged++

		default:
			changed, err := u.Update(target)
			if err != nil {
				fr.Outcome = OutcomeFailed
				fr.Error = err.Error()
				res.Files = append(res.Files, fr)
				return fmt.Errorf("failed to update %s: %w", u.Path(), err)
			}
			if !changed {
				fr.Outcome = OutcomeSkipped
			} else {
				fr.Outcome = OutcomeUpdated
				res.Updated++
			}
		}
		res.Files = append(res.Files, fr)
	}
	return nil
}

// recordIncrement coordinates the state store with the file updates. The
// store performs its own snapshot and restore, so a failure here only needs
// the file-level rollback.
func (m *Manager) recordIncrement(target string, res *UpdateResult) error {
	from := m.store.CurrentVersion()
	if from == target {
		return nil
	}
	_, err := m.store.UpdateVersion(target, classifyIncrement(from, target), "manager",
		map[string]any{"operation_id": res.OperationID})
	return err
}

// rollback restores every backed-up file, reporting which restores
// succeeded. All participating files are restored, not only those already
// rewritten: a failed write can leave its file partially updated without a
// recorded success. Backups are checksum-verified first; a corrupt backup
// set is surfaced loudly rather than copied over live files. The backup
// directory is kept on any restore problem so nothing is lost.
func (tx *transaction) rollback() map[string]bool {
	if err := checksum.VerifyManifest(tx.backupDir); err != nil {
		slog.Error("backup verification failed, keeping backup directory for manual recovery",
			"operation_id", tx.id,
			"backup_dir", tx.backupDir,
			"error", err)
		return nil
	}

	restored := make(map[string]bool, len(tx.files))
	clean := true
	for _, u := range tx.files {
		if err := u.Restore(tx.backups[u.Path()]); err != nil {
			clean = false
			slog.Error("cannot restore managed file, backup retained",
				"operation_id", tx.id,
				"path", u.Path(),
				"backup", tx.backups[u.Path()],
				"error", err)
			continue
		}
		restored[u.Path()] = true
	}

	if clean {
		tx.discard()
	}
	slog.Warn("update transaction rolled back",
		"operation_id", tx.id,
		"restored_files", len(restored))
	return restored
}

// markRollback rewrites the per-file outcomes after a rollback so the
// operations log records how the transaction actually closed. The failed
// file keeps its outcome and error; every other restored file becomes
// restored_from_backup, and files whose restore did not run keep their
// retained backup as backup_created.
func (m *Manager) markRollback(res *UpdateResult, tx *transaction, restored map[string]bool) {
	seen := make(map[string]bool, len(res.Files))
	for i := range res.Files {
		fr := &res.Files[i]
		seen[fr.Path] = true
		if fr.Outcome == OutcomeFailed {
			continue
		}
		if restored[fr.Path] {
			fr.Outcome = OutcomeRestoredFromBackup
		} else {
			fr.Outcome = OutcomeBackupCreated
		}
	}

	// Files the apply loop never reached still closed the transaction with
	// a backup, and belong in the log.
	for _, u := range m.updaters {
		if seen[u.Path()] {
			continue
		}
		outcome := OutcomeBackupCreated
		if restored[u.Path()] {
			outcome = OutcomeRestoredFromBackup
		}
		res.Files = append(res.Files, FileResult{
			Path:    u.Path(),
			Kind:    u.Kind(),
			Outcome: outcome,
			Backup:  tx.backups[u.Path()],
		})
	}
	res.Updated = 0
}

func (tx *transaction) discard() {
	if err := os.RemoveAll(tx.backupDir); err != nil {
		slog.Warn("cannot remove backup directory", "path", tx.backupDir, "error", err)
	}
}

// appendOperations writes one JSON line per file result to the append-only
// operations log.
func (m *Manager) appendOperations(res *UpdateResult) error {
	f, err := os.OpenFile(m.logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	for _, fr := range res.Files {
		rec := operationRecord{
			OperationID: res.OperationID,
			Timestamp:   res.StartedAt,
			Target:      res.Target,
			Path:        fr.Path,
			Previous:    fr.Previous,
			Outcome:     string(fr.Outcome),
			Backup:      fr.Backup,
			Error:       fr.Error,
		}
		if err := enc.Encode(rec); err != nil {
			return err
		}
	}
	return nil
}

// classifyIncrement names the increment type between two versions for the
// state history.
func classifyIncrement(from, to string) string {
	a, errA := semver.Parse(from)
	b, errB := semver.Parse(to)
	if errA != nil || errB != nil {
		return "explicit"
	}
	switch {
	case a.Major() != b.Major():
		return "major"
	case a.Minor() != b.Minor():
		return "minor"
	case a.Patch() != b.Patch():
		return "patch"
	default:
		return "prerelease"
	}
}
