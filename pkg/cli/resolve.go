/*
Copyright © 2025 GTach Project
SPDX-License-Identifier: Apache-2.0
*/
package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/urfave/cli/v3"

	gterrors "github.com/gtach/provision/pkg/errors"
	"github.com/gtach/provision/pkg/manager"
	"github.com/gtach/provision/pkg/semver"
)

// promptAttempts bounds the interactive strategy prompt.
const promptAttempts = 3

// promptOut is swapped out by interactive-prompt tests. Prompts go to
// stderr so stdout stays clean for the report.
var promptOut io.Writer = os.Stderr

func resolveCmd() *cli.Command {
	return &cli.Command{
		Name:                  "resolve",
		EnableShellCompletion: true,
		Usage:                 "Resolve version inconsistencies across managed sources",
		Description: `Detect version disagreements between managed files and the state
store, decide a winning version, and apply it in one transaction.

Strategies:
  authoritative  take the state store version (the default source of truth)
  common         take the version carried by the most sources, ties going
                 to the higher version
  explicit       take the version given with --set

Without --strategy the command prompts for a choice. A project that is
already consistent is reported and left untouched.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "strategy",
				Aliases: []string{"s"},
				Usage:   "Resolution strategy: authoritative, common, or explicit",
			},
			&cli.StringFlag{
				Name:  "set",
				Usage: "Winning version for the explicit strategy",
			},
			outputFlag,
			formatFlag,
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			m, _, err := loadProject(cmd)
			if err != nil {
				return err
			}

			report := m.DetectInconsistencies()
			if report.Consistent {
				return writeOut(cmd, report)
			}

			strategy, explicit := manager.Strategy(""), cmd.String("set")
			if name := cmd.String("strategy"); name != "" {
				strategy, err = parseStrategy(name)
				if err != nil {
					return err
				}
			} else {
				strategy, explicit, err = promptStrategy(stdin, promptOut, report)
				if err != nil {
					return err
				}
			}

			plan, err := m.PlanResolution(strategy, explicit)
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

func parseStrategy(name string) (manager.Strategy, error) {
	switch name {
	case "authoritative":
		return manager.StrategySyncToAuthoritative, nil
	case "common":
		return manager.StrategyPromoteMostCommon, nil
	case "explicit":
		return manager.StrategySetExplicit, nil
	default:
		return "", fmt.Errorf("unknown strategy %q (supported: authoritative, common, explicit)", name)
	}
}

// promptStrategy walks the user through picking a resolution strategy,
// allowing a bounded number of invalid answers before giving up.
func promptStrategy(r io.Reader, w io.Writer, report *manager.ConsistencyReport) (manager.Strategy, string, error) {
	fmt.Fprintf(w, "Version sources disagree (authoritative: %s):\n", report.Authoritative)
	versions := make([]string, 0, len(report.Groups))
	for v := range report.Groups {
		versions = append(versions, v)
	}
	sort.Strings(versions)
	for _, v := range versions {
		fmt.Fprintf(w, "  %-16s %s\n", v, strings.Join(report.Groups[v], ", "))
	}

	scanner := bufio.NewScanner(r)
	for attempt := 0; attempt < promptAttempts; attempt++ {
		fmt.Fprintln(w, "Resolution: [1] sync to authoritative  [2] promote most common  [3] set explicit version")
		fmt.Fprint(w, "> ")
		if !scanner.Scan() {
			break
		}

		switch strings.TrimSpace(scanner.Text()) {
		case "1":
			return manager.StrategySyncToAuthoritative, "", nil
		case "2":
			return manager.StrategyPromoteMostCommon, "", nil
		case "3":
			fmt.Fprint(w, "version: ")
			if !scanner.Scan() {
				return "", "", promptAbandoned()
			}
			v := strings.TrimSpace(scanner.Text())
			if semver.IsValid(v) {
				return manager.StrategySetExplicit, v, nil
			}
			fmt.Fprintf(w, "%q is not a valid version\n", v)
		default:
			fmt.Fprintln(w, "invalid choice")
		}
	}
	return "", "", promptAbandoned()
}

func promptAbandoned() error {
	return gterrors.New(gterrors.ErrCodeInvalidRequest,
		"no valid resolution choice, giving up")
}
