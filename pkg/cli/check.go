/*
Copyright © 2025 GTach Project
SPDX-License-Identifier: Apache-2.0
*/
package cli

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/gtach/provision/pkg/semver"
)

func checkCmd() *cli.Command {
	return &cli.Command{
		Name:                  "check",
		EnableShellCompletion: true,
		Usage:                 "Evaluate a version constraint",
		ArgsUsage:             "<constraint>",
		Description: `Evaluate a constraint expression against a version. Supported
operators: >=, <=, ==, !=, ~ (same major.minor), ^ (same major). A bare
version means exact match.

By default the constraint is checked against the project's current version;
use --against to check an arbitrary one.

Examples:
  gtprov check ">=1.2.0"
  gtprov check "^2.0.0" --against 2.4.1

The command exits non-zero when the constraint is not satisfied.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "against",
				Usage: "Version to evaluate (default: current project version)",
			},
			outputFlag,
			formatFlag,
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			expr := cmd.Args().First()
			if expr == "" {
				return fmt.Errorf("constraint expression is required")
			}

			c, err := semver.ParseConstraint(expr)
			if err != nil {
				return err
			}

			target := cmd.String("against")
			if target == "" {
				m, _, err := loadProject(cmd)
				if err != nil {
					return err
				}
				target = m.Store().CurrentVersion()
			}

			v, err := semver.Parse(target)
			if err != nil {
				return err
			}
			satisfied := c.Matches(v)

			result := struct {
				Constraint string `json:"constraint" yaml:"constraint"`
				Version    string `json:"version" yaml:"version"`
				Satisfied  bool   `json:"satisfied" yaml:"satisfied"`
			}{c.String(), target, satisfied}

			if err := writeOut(cmd, result); err != nil {
				return err
			}
			if !satisfied {
				return cli.Exit(fmt.Sprintf("version %s does not satisfy %s", target, c), 1)
			}
			return nil
		},
	}
}
