/*
Copyright © 2025 GTach Project
SPDX-License-Identifier: Apache-2.0
*/
package cli

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"
)

func setCmd() *cli.Command {
	return &cli.Command{
		Name:                  "set",
		EnableShellCompletion: true,
		Usage:                 "Set every managed source to an explicit version",
		ArgsUsage:             "<version>",
		Description: `Set every managed project file and the version state store to the
given version in one transaction. All files are backed up before the first
write; any failure restores them, so the project is never left
half-updated.

Example:
  gtprov set 1.4.0`,
		Flags: []cli.Flag{
			outputFlag,
			formatFlag,
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			target := cmd.Args().First()
			if target == "" {
				return fmt.Errorf("target version is required")
			}

			m, _, err := loadProject(cmd)
			if err != nil {
				return err
			}

			res, err := m.UpdateAll(ctx, target)
			if err != nil {
				return err
			}
			return writeOut(cmd, res)
		},
	}
}

func bumpCmd() *cli.Command {
	return &cli.Command{
		Name:                  "bump",
		EnableShellCompletion: true,
		Usage:                 "Increment the project version",
		ArgsUsage:             "<major|minor|patch|prerelease>",
		Description: `Increment the current project version and apply the result to every
managed source in one transaction.

  major      1.2.3 -> 2.0.0
  minor      1.2.3 -> 1.3.0
  patch      1.2.3 -> 1.2.4
  prerelease 2.0.0-rc.1 -> 2.0.0-rc.2`,
		Flags: []cli.Flag{
			outputFlag,
			formatFlag,
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			kind := cmd.Args().First()
			switch kind {
			case "major", "minor", "patch", "prerelease":
			default:
				return fmt.Errorf("increment type must be one of major, minor, patch, prerelease, got %q", kind)
			}

			m, _, err := loadProject(cmd)
			if err != nil {
				return err
			}

			candidates := m.Store().SuggestNext(kind)
			if len(candidates) == 0 {
				return fmt.Errorf("cannot derive next %s version from %q", kind, m.Store().CurrentVersion())
			}

			res, err := m.UpdateAll(ctx, candidates[0])
			if err != nil {
				return err
			}
			return writeOut(cmd, res)
		},
	}
}
