/*
Copyright © 2025 GTach Project
SPDX-License-Identifier: Apache-2.0
*/
package cli

import (
	"context"

	"github.com/urfave/cli/v3"
)

func suggestCmd() *cli.Command {
	return &cli.Command{
		Name:                  "suggest",
		EnableShellCompletion: true,
		Usage:                 "Suggest candidate next versions",
		Description: `List candidate next versions for the project. With --type the list
is narrowed to one increment kind; without it all candidates are shown,
leading with prerelease finalization when the current version has one.
Suggestions are advisory and record nothing.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "type",
				Usage: "Increment type: major, minor, patch, or prerelease",
			},
			outputFlag,
			formatFlag,
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			m, _, err := loadProject(cmd)
			if err != nil {
				return err
			}

			out := struct {
				Current     string   `json:"current" yaml:"current"`
				Suggestions []string `json:"suggestions" yaml:"suggestions"`
			}{
				Current:     m.Store().CurrentVersion(),
				Suggestions: m.Store().SuggestNext(cmd.String("type")),
			}
			return writeOut(cmd, out)
		},
	}
}

func historyCmd() *cli.Command {
	return &cli.Command{
		Name:                  "history",
		EnableShellCompletion: true,
		Usage:                 "Show recorded version increments",
		Description: `Show the retained increment history of the version state store,
newest last. The store keeps the most recent entries only.`,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "limit",
				Aliases: []string{"n"},
				Usage:   "Maximum entries to show (0 for all retained)",
				Value:   20,
			},
			outputFlag,
			formatFlag,
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			m, _, err := loadProject(cmd)
			if err != nil {
				return err
			}
			return writeOut(cmd, m.Store().History(int(cmd.Int("limit"))))
		},
	}
}
