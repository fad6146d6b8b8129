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

package semver

import (
	"fmt"
	"strings"

	"github.com/gtach/provision/pkg/errors"
)

// Operator represents a comparison operator in constraint expressions.
type Operator string

const (
	// OperatorGTE represents ">=" (greater than or equal).
	OperatorGTE Operator = ">="

	// OperatorLTE represents "<=" (less than or equal).
	OperatorLTE Operator = "<="

	// OperatorEQ represents "==" (exact match, build metadata ignored).
	OperatorEQ Operator = "=="

	// OperatorNE represents "!=" (not equal).
	OperatorNE Operator = "!="

	// OperatorTilde represents "~" (same major and minor, at least the target).
	OperatorTilde Operator = "~"

	// OperatorCaret represents "^" (same major, at least the target).
	OperatorCaret Operator = "^"
)

// constraintOperators is checked longest-prefix-first so ">" style typos
// fail parsing instead of silently matching a shorter operator.
var constraintOperators = []Operator{
	OperatorGTE, OperatorLTE, OperatorEQ, OperatorNE, OperatorTilde, OperatorCaret,
}

// Constraint pairs an operator with a target version. It is a stateless
// predicate over versions.
type Constraint struct {
	Operator Operator
	Target   Version
}

// ParseConstraint parses a constraint expression such as ">= 1.2.0",
// "~1.4.0", or "^2.0.0-rc.1". An expression without an operator prefix is
// treated as an exact match ("=="). Whitespace around the operator and
// version is ignored.
func ParseConstraint(expr string) (Constraint, error) {
	trimmed := strings.TrimSpace(expr)
	if trimmed == "" {
		return Constraint{}, errors.New(errors.ErrCodeInvalidConstraint, "constraint expression cannot be empty")
	}

	c := Constraint{Operator: OperatorEQ}
	rest := trimmed
	for _, op := range constraintOperators {
		if strings.HasPrefix(trimmed, string(op)) {
			c.Operator = op
			rest = strings.TrimSpace(strings.TrimPrefix(trimmed, string(op)))
			break
		}
	}

	if rest == "" {
		return Constraint{}, errors.New(errors.ErrCodeInvalidConstraint, "constraint value cannot be empty after operator")
	}

	target, err := Parse(rest)
	if err != nil {
		return Constraint{}, errors.WrapWithContext(errors.ErrCodeInvalidConstraint,
			"constraint target is not a valid version", err, map[string]any{"expression": expr})
	}
	c.Target = target
	return c, nil
}

// String returns the canonical expression form of the constraint.
func (c Constraint) String() string {
	return fmt.Sprintf("%s%s", c.Operator, c.Target)
}

// Matches reports whether the version satisfies the constraint.
func (c Constraint) Matches(v Version) bool {
	switch c.Operator {
	case OperatorGTE:
		return Compare(v, c.Target) >= 0
	case OperatorLTE:
		return Compare(v, c.Target) <= 0
	case OperatorEQ:
		return Compare(v, c.Target) == 0
	case OperatorNE:
		return Compare(v, c.Target) != 0
	case OperatorTilde:
		// Same major and minor, at least the target.
		return v.major == c.Target.major &&
			v.minor == c.Target.minor &&
			Compare(v, c.Target) >= 0
	case OperatorCaret:
		// Same major, at least the target.
		return v.major == c.Target.major &&
			Compare(v, c.Target) >= 0
	default:
		return false
	}
}

// MatchesString parses the version and reports whether it satisfies the
// constraint. Unparseable versions never match.
func (c Constraint) MatchesString(version string) bool {
	v, err := Parse(version)
	if err != nil {
		return false
	}
	return c.Matches(v)
}
