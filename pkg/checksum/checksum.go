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

// Package checksum writes and verifies SHA256 manifests for backup
// directories. A transaction snapshots managed files into a backup
// directory before touching them; the manifest lets the rollback path prove
// the snapshots are intact before copying them back over live files.
package checksum

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// ManifestFileName is the standard name for checksum manifests.
const ManifestFileName = "checksums.txt"

// GenerateManifest creates a checksums.txt file in dir containing SHA256
// checksums for all provided files. Paths are recorded relative to dir so
// the manifest stays valid if the directory is moved.
func GenerateManifest(dir string, files []string) error {
	lines := make([]string, 0, len(files))

	for _, file := range files {
		sum, err := hashFile(file)
		if err != nil {
			return fmt.Errorf("failed to checksum %s: %w", file, err)
		}

		relPath, err := filepath.Rel(dir, file)
		if err != nil {
			relPath = file
		}
		lines = append(lines, fmt.Sprintf("%s  %s", sum, relPath))
	}

	manifestPath := filepath.Join(dir, ManifestFileName)
	content := strings.Join(lines, "\n") + "\n"

	if err := os.WriteFile(manifestPath, []byte(content), 0600); err != nil {
		return fmt.Errorf("failed to write checksum manifest: %w", err)
	}

	slog.Debug("checksum manifest generated",
		"file_count", len(lines),
		"path", manifestPath,
	)

	return nil
}

// VerifyManifest re-hashes every file listed in dir's manifest and returns
// an error naming the first file whose content no longer matches. A missing
// manifest is an error: a backup directory without one cannot be trusted.
func VerifyManifest(dir string) error {
	manifestPath := filepath.Join(dir, ManifestFileName)
	f, err := os.Open(manifestPath)
	if err != nil {
		return fmt.Errorf("failed to open checksum manifest: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		sum, relPath, ok := strings.Cut(line, "  ")
		if !ok {
			return fmt.Errorf("malformed manifest line in %s: %q", manifestPath, line)
		}

		path := relPath
		if !filepath.IsAbs(path) {
			path = filepath.Join(dir, relPath)
		}
		actual, err := hashFile(path)
		if err != nil {
			return fmt.Errorf("failed to checksum %s during verification: %w", path, err)
		}
		if actual != sum {
			return fmt.Errorf("checksum mismatch for %s: manifest has %s, file has %s", relPath, sum, actual)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read checksum manifest: %w", err)
	}

	return nil
}

// ManifestPath returns the full path to the checksums.txt file in dir.
func ManifestPath(dir string) string {
	return filepath.Join(dir, ManifestFileName)
}

func hashFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:]), nil
}
