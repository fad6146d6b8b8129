/*
Copyright © 2025 GTach Project
SPDX-License-Identifier: Apache-2.0
*/
package cli

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/gtach/provision/pkg/manager"
)

func syncCmd() *cli.Command {
	return &cli.Command{
		Name:                  "sync",
		EnableShellCompletion: true,
		Usage:                 "Sync every managed file to the authoritative version",
		Description: `Bring every managed project file in line with the version state
store, which is the source of truth. This is shorthand for resolving with
the sync-to-authoritative strategy and never prompts.`,
		Flags: []cli.Flag{
			outputFlag,
			formatFlag,
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			m, _, err := loadProject(cmd)
			if err != nil {
				return err
			}

			plan, err := m.PlanResolution(manager.StrategySyncToAuthoritative, "")
			if err != nil {
				return err
			}
			res, err := m.Resolve(ctx, plan)
			if err != nil {
				return err
			}
			return writeOut(cmd, res)
		},
	}
}
