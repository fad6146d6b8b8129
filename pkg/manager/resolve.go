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
	"fmt"
	"log/slog"

	gterrors "github.com/gtach/provision/pkg/errors"
	"github.com/gtach/provision/pkg/semver"
)

// Strategy names a way to pick the winning version when managed sources
// disagree.
type Strategy string

const (
	// StrategySyncToAuthoritative takes the state store version.
	StrategySyncToAuthoritative Strategy = "sync_to_authoritative"

	// StrategyPromoteMostCommon takes the version carried by the most
	// sources; ties go to the higher version.
	StrategyPromoteMostCommon Strategy = "promote_most_common"

	// StrategySetExplicit takes a caller-supplied version.
	StrategySetExplicit Strategy = "set_explicit"
)

// ResolutionPlan is a pure decision: which version wins and why. Building a
// plan performs no writes; Resolve applies it.
type ResolutionPlan struct {
	Strategy Strategy           `json:"strategy" yaml:"strategy"`
	Target   string             `json:"target" yaml:"target"`
	Report   *ConsistencyReport `json:"report" yaml:"report"`
}

// ResolutionResult reports a resolution attempt with explicit per-source
// counts, so a partial success is never mistaken for a full one.
type ResolutionResult struct {
	Plan    *ResolutionPlan `json:"plan" yaml:"plan"`
	Update  *UpdateResult   `json:"update,omitempty" yaml:"update,omitempty"`
	Applied int             `json:"applied" yaml:"applied"`
	Total   int             `json:"total" yaml:"total"`
}

// Summary renders the applied count as "N/M sources".
func (r *ResolutionResult) Summary() string {
	return fmt.Sprintf("%d/%d sources", r.Applied, r.Total)
}

// PlanResolution inspects the current inconsistencies and decides the
// winning version for the given strategy. explicit is only consulted for
// StrategySetExplicit.
func (m *Manager) PlanResolution(strategy Strategy, explicit string) (*ResolutionPlan, error) {
	report := m.DetectInconsistencies()

	plan := &ResolutionPlan{Strategy: strategy, Report: report}

	switch strategy {
	case StrategySyncToAuthoritative:
		plan.Target = report.Authoritative

	case StrategyPromoteMostCommon:
		target, err := mostCommonVersion(report)
		if err != nil {
			return nil, err
		}
		plan.Target = target

	case StrategySetExplicit:
		if _, err := semver.Parse(explicit); err != nil {
			return nil, gterrors.WrapWithContext(gterrors.ErrCodeInvalidVersion,
				"explicit resolution target is not a valid version", err,
				map[string]any{"target": explicit})
		}
		plan.Target = explicit

	default:
		return nil, gterrors.NewWithContext(gterrors.ErrCodeInvalidRequest,
			"unknown resolution strategy", map[string]any{"strategy": string(strategy)})
	}

	slog.Debug("resolution planned",
		"strategy", strategy,
		"target", plan.Target,
		"consistent", report.Consistent)
	return plan, nil
}

// Resolve applies a resolution plan through a normal update transaction.
// A plan over an already-consistent project is a cheap no-op.
func (m *Manager) Resolve(ctx context.Context, plan *ResolutionPlan) (*ResolutionResult, error) {
	res := &ResolutionResult{Plan: plan}

	update, err := m.UpdateAll(ctx, plan.Target)
	if err != nil {
		return nil, err
	}
	res.Update = update

	res.Total = len(update.Files) + 1 // managed files plus the state store
	res.Applied = update.Updated + update.Unchanged
	if m.store.CurrentVersion() == plan.Target {
		res.Applied++
	}

	slog.Info("resolution applied",
		"strategy", plan.Strategy,
		"target", plan.Target,
		"applied", res.Summary())
	return res, nil
}

// mostCommonVersion picks the version carried by the most sources,
// breaking ties toward the higher version.
func mostCommonVersion(report *ConsistencyReport) (string, error) {
	if len(report.Groups) == 0 {
		return "", gterrors.New(gterrors.ErrCodeNotFound,
			"no detectable versions to promote")
	}

	var best string
	bestCount := -1
	for v, sources := range report.Groups {
		switch {
		case len(sources) > bestCount:
			best, bestCount = v, len(sources)
		case len(sources) == bestCount && higherVersion(v, best):
			best = v
		}
	}
	return best, nil
}

func higherVersion(a, b string) bool {
	va, errA := semver.Parse(a)
	vb, errB := semver.Parse(b)
	if errA != nil || errB != nil {
		return a > b
	}
	return semver.Compare(va, vb) > 0
}
