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

// Package config loads project configuration for the provisioning tools.
// Values layer in order: built-in defaults, the project YAML file, then
// GTPROV_* environment variables. Managed files not named explicitly are
// discovered by scanning well-known candidate paths.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/caarlos0/env/v11"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/gtach/provision/pkg/state"
	"github.com/gtach/provision/pkg/updater"
)

// DefaultFileName is the project configuration file looked up at the
// project root.
const DefaultFileName = ".gtach.yaml"

// ManagedFiles names the version-carrying files of a project, each relative
// to the project root. Empty entries are filled by discovery.
type ManagedFiles struct {
	PyProject     string `yaml:"pyproject" env:"GTPROV_FILE_PYPROJECT"`
	SetupScript   string `yaml:"setup_script" env:"GTPROV_FILE_SETUP"`
	ModuleInit    string `yaml:"module_init" env:"GTPROV_FILE_INIT"`
	ConfigDefault string `yaml:"config_default" env:"GTPROV_FILE_CONFIG"`
}

// StateConfig tunes the persistent version state store.
type StateConfig struct {
	FileName       string `yaml:"file_name" env:"GTPROV_STATE_FILE"`
	BackupsEnabled bool   `yaml:"backups_enabled" env:"GTPROV_STATE_BACKUPS"`
	HistoryLimit   int    `yaml:"history_limit" env:"GTPROV_HISTORY_LIMIT"`
}

// Config is the effective tool configuration.
type Config struct {
	ProjectRoot string       `yaml:"project_root" env:"GTPROV_PROJECT_ROOT"`
	LogLevel    string       `yaml:"log_level" env:"GTPROV_LOG_LEVEL"`
	State       StateConfig  `yaml:"state"`
	Files       ManagedFiles `yaml:"files"`
}

// Default returns the built-in configuration rooted at the current
// directory.
func Default() *Config {
	return &Config{
		ProjectRoot: ".",
		LogLevel:    "info",
		State: StateConfig{
			FileName:       state.StateFileName,
			BackupsEnabled: true,
			HistoryLimit:   state.DefaultHistoryLimit,
		},
	}
}

// Load builds the effective configuration: defaults, overlaid by the YAML
// file at path when it exists, overlaid by environment variables. A missing
// file is fine; an unreadable or malformed one is not.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
			// Defaults plus environment only.
		case err != nil:
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
			}
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	if cfg.ProjectRoot == "" {
		cfg.ProjectRoot = "."
	}
	return cfg, nil
}

// candidates lists the well-known relative locations scanned per file kind,
// in preference order.
var candidates = map[updater.FileKind][]string{
	updater.KindPyProject:     {"pyproject.toml"},
	updater.KindSetupScript:   {"setup.py"},
	updater.KindModuleInit:    {"__init__.py", "src/__init__.py", "gtach/__init__.py"},
	updater.KindConfigDefault: {"config.py", "gtach/config.py", "src/config.py"},
}

// ResolveFiles returns the managed file set as kind to relative path.
// Explicit configuration wins; kinds left empty fall back to scanning the
// candidate locations under the project root. Kind scans run concurrently;
// each is a handful of stat calls and never modifies anything.
func (c *Config) ResolveFiles() (map[updater.FileKind]string, error) {
	explicit := map[updater.FileKind]string{
		updater.KindPyProject:     c.Files.PyProject,
		updater.KindSetupScript:   c.Files.SetupScript,
		updater.KindModuleInit:    c.Files.ModuleInit,
		updater.KindConfigDefault: c.Files.ConfigDefault,
	}

	var mu sync.Mutex
	resolved := make(map[updater.FileKind]string, len(explicit))

	var g errgroup.Group
	for kind, path := range explicit {
		if path != "" {
			resolved[kind] = path
			continue
		}
		g.Go(func() error {
			for _, rel := range candidates[kind] {
				if _, err := os.Stat(filepath.Join(c.ProjectRoot, rel)); err == nil {
					mu.Lock()
					resolved[kind] = rel
					mu.Unlock()
					return nil
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return resolved, nil
}
