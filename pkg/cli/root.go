/*
Copyright © 2025 GTach Project
SPDX-License-Identifier: Apache-2.0
*/
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"

	"github.com/gtach/provision/pkg/config"
	"github.com/gtach/provision/pkg/logging"
	"github.com/gtach/provision/pkg/manager"
	"github.com/gtach/provision/pkg/state"
)

const (
	name           = "gtprov"
	versionDefault = "dev"
)

var (
	// overridden during build with ldflags
	version = versionDefault
	commit  = "unknown"
	date    = "unknown"
)

// stdin is swapped out by interactive-prompt tests.
var stdin io.Reader = os.Stdin

var (
	projectFlag = &cli.StringFlag{
		Name:    "project",
		Aliases: []string{"p"},
		Usage:   "Project root directory",
		Sources: cli.EnvVars("GTPROV_PROJECT_ROOT"),
		Value:   ".",
	}
	configFlag = &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to project configuration file",
		Sources: cli.EnvVars("GTPROV_CONFIG"),
	}
	logLevelFlag = &cli.StringFlag{
		Name:    "log-level",
		Usage:   "Log level (debug, info, warn, error)",
		Sources: cli.EnvVars(logging.EnvLogLevel),
	}
	outputFlag = &cli.StringFlag{
		Name:    "output",
		Aliases: []string{"o"},
		Usage:   "Output file path (default: stdout)",
	}
	formatFlag = &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Usage:   "Output format: json, yaml, or table",
		Value:   "table",
	}
)

// Run assembles the root command and executes it.
func Run(ctx context.Context, args []string) error {
	root := &cli.Command{
		Name:    name,
		Usage:   "Version management for gtach provisioning projects",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		Flags: []cli.Flag{
			projectFlag,
			configFlag,
			logLevelFlag,
		},
		Commands: []*cli.Command{
			currentCmd(),
			checkCmd(),
			setCmd(),
			bumpCmd(),
			suggestCmd(),
			historyCmd(),
			syncCmd(),
			resolveCmd(),
		},
	}
	return root.Run(ctx, args)
}

// loadProject builds the manager stack for the invoked command: effective
// configuration, state store, and one updater per resolved managed file.
// It also finishes logger setup now that the flags are parsed.
func loadProject(cmd *cli.Command) (*manager.Manager, *config.Config, error) {
	root := cmd.String("project")

	cfgPath := cmd.String("config")
	if cfgPath == "" {
		cfgPath = filepath.Join(root, config.DefaultFileName)
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, nil, err
	}
	if cmd.IsSet("project") || cfg.ProjectRoot == "" {
		cfg.ProjectRoot = root
	}

	level := cmd.String("log-level")
	if level == "" {
		level = cfg.LogLevel
	}
	logging.SetDefaultStructuredLoggerWithLevel(name, version, level)

	files, err := cfg.ResolveFiles()
	if err != nil {
		return nil, nil, err
	}

	store, err := state.Open(cfg.ProjectRoot,
		state.WithFileName(cfg.State.FileName),
		state.WithHistoryLimit(cfg.State.HistoryLimit),
		state.WithBackups(cfg.State.BackupsEnabled))
	if err != nil {
		return nil, nil, err
	}

	m, err := manager.New(cfg.ProjectRoot, store, files)
	if err != nil {
		return nil, nil, err
	}
	return m, cfg, nil
}
