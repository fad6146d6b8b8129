/*
Copyright © 2025 GTach Project
SPDX-License-Identifier: Apache-2.0
*/
package cli

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/gtach/provision/pkg/serializer"
)

func currentCmd() *cli.Command {
	return &cli.Command{
		Name:                  "current",
		EnableShellCompletion: true,
		Usage:                 "Show the version carried by every managed source",
		Description: `Show the version carried by each managed project file and the
version state store, plus whether they agree. Sources whose version cannot
be detected are listed separately.`,
		Flags: []cli.Flag{
			outputFlag,
			formatFlag,
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			m, _, err := loadProject(cmd)
			if err != nil {
				return err
			}

			report := m.DetectInconsistencies()
			out := struct {
				Versions   map[string]string   `json:"versions" yaml:"versions"`
				Consistent bool                `json:"consistent" yaml:"consistent"`
				Missing    []string            `json:"missing,omitempty" yaml:"missing,omitempty"`
				Groups     map[string][]string `json:"groups,omitempty" yaml:"groups,omitempty"`
			}{
				Versions:   m.CurrentVersions(),
				Consistent: report.Consistent,
				Missing:    report.Missing,
			}
			if !report.Consistent {
				out.Groups = report.Groups
			}
			return writeOut(cmd, out)
		},
	}
}

// writeOut renders v with the command's --format and --output flags.
func writeOut(cmd *cli.Command, v any) error {
	format := serializer.Format(cmd.String("format"))
	if format.IsUnknown() {
		return fmt.Errorf("unknown output format: %q (supported: %v)",
			format, serializer.SupportedFormats())
	}

	w := serializer.NewFileWriterOrStdout(format, cmd.String("output"))
	defer w.Close()
	return w.Write(v)
}
