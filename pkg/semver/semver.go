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
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Error types for version parsing failures
var (
	ErrEmptyVersion    = errors.New("version string is empty")
	ErrMalformedCore   = errors.New("version core must be major.minor.patch")
	ErrNonNumeric      = errors.New("version component is not numeric")
	ErrLeadingZero     = errors.New("version component has a leading zero")
	ErrEmptyIdentifier = errors.New("empty identifier")
	ErrBadIdentifier   = errors.New("identifier contains invalid characters")
)

// Version represents an immutable semantic version per SemVer 2.0.0:
// major.minor.patch with optional dot-separated prerelease identifiers and
// build metadata. Build metadata is preserved for formatting but excluded
// from comparison and equality. Bump operations return new values; a Version
// is never mutated in place.
type Version struct {
	major      int
	minor      int
	patch      int
	prerelease []string
	build      string
}

// New creates a Version with the given core components and no prerelease
// or build metadata.
func New(major, minor, patch int) Version {
	return Version{major: major, minor: minor, patch: patch}
}

// Major reports the major version component.
func (v Version) Major() int { return v.major }

// Minor reports the minor version component.
func (v Version) Minor() int { return v.minor }

// Patch reports the patch version component.
func (v Version) Patch() int { return v.patch }

// Prerelease reports the dotted prerelease string without the "-" prefix,
// or "" when the version has no prerelease tag.
func (v Version) Prerelease() string { return strings.Join(v.prerelease, ".") }

// Build reports the build metadata string without the "+" prefix.
func (v Version) Build() string { return v.build }

// IsPrerelease reports whether the version carries a prerelease tag.
func (v Version) IsPrerelease() bool { return len(v.prerelease) > 0 }

// String returns the canonical string form of the version.
func (v Version) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d.%d.%d", v.major, v.minor, v.patch)
	if len(v.prerelease) > 0 {
		sb.WriteByte('-')
		sb.WriteString(strings.Join(v.prerelease, "."))
	}
	if v.build != "" {
		sb.WriteByte('+')
		sb.WriteString(v.build)
	}
	return sb.String()
}

// Equal reports whether v and other are equivalent semantic versions.
// Build metadata is ignored, per SemVer.
func (v Version) Equal(other Version) bool {
	return Compare(v, other) == 0
}

// Compare returns -1 if v sorts before other, 0 if they are equivalent,
// and 1 if v sorts after other. See the package-level Compare.
func (v Version) Compare(other Version) int {
	return Compare(v, other)
}

// Compare compares two versions in full SemVer 2.0.0 precedence order:
//
//   - The core major, minor, and patch components compare numerically.
//   - A version without a prerelease tag sorts after the same core with one.
//   - Prerelease identifiers compare field by field: numeric identifiers
//     compare numerically and always sort below alphanumeric identifiers at
//     the same position; alphanumeric identifiers compare lexically.
//   - When one identifier list is a prefix of the other, the shorter sorts
//     first.
//   - Build metadata is ignored.
func Compare(a, b Version) int {
	if c := compareInt(a.major, b.major); c != 0 {
		return c
	}
	if c := compareInt(a.minor, b.minor); c != 0 {
		return c
	}
	if c := compareInt(a.patch, b.patch); c != 0 {
		return c
	}

	// A release sorts after any prerelease of the same core.
	switch {
	case len(a.prerelease) == 0 && len(b.prerelease) == 0:
		return 0
	case len(a.prerelease) == 0:
		return 1
	case len(b.prerelease) == 0:
		return -1
	}

	for i := 0; i < len(a.prerelease) && i < len(b.prerelease); i++ {
		if c := compareIdentifier(a.prerelease[i], b.prerelease[i]); c != 0 {
			return c
		}
	}
	return compareInt(len(a.prerelease), len(b.prerelease))
}

// compareIdentifier compares two prerelease identifiers. Numeric identifiers
// compare numerically and sort below alphanumeric ones.
func compareIdentifier(a, b string) int {
	aNum := isNumericIdentifier(a)
	bNum := isNumericIdentifier(b)
	switch {
	case aNum && bNum:
		// Parsed numeric identifiers never carry leading zeros, so the
		// longer string is the larger number and equal lengths compare
		// digit by digit. No integer conversion, so no overflow for
		// arbitrarily long identifiers.
		if c := compareInt(len(a), len(b)); c != 0 {
			return c
		}
		return strings.Compare(a, b)
	case aNum:
		return -1
	case bNum:
		return 1
	default:
		return strings.Compare(a, b)
	}
}

func compareInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// isNumericIdentifier reports whether an identifier consists solely of
// decimal digits.
func isNumericIdentifier(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return s != ""
}

// MustParse parses a version string and panics if parsing fails.
// Only use this for hardcoded strings or in tests. For user input or runtime
// data, always use Parse and handle errors explicitly.
func MustParse(s string) Version {
	v, err := Parse(s)
	if err != nil {
		panic(fmt.Sprintf("MustParse %q: %v", s, err))
	}
	return v
}

// IsValid reports whether s parses as a semantic version.
func IsValid(s string) bool {
	_, err := Parse(s)
	return err == nil
}

// Parse parses a version string into a Version. The input must match the
// SemVer grammar major.minor.patch[-prerelease][+build] with non-negative
// integer core components without leading zeros (except the literal "0").
// Results for repeated inputs are served from a bounded process-lifetime
// cache keyed by the exact input string.
func Parse(s string) (Version, error) {
	if v, ok := parseCache.get(s); ok {
		return v, nil
	}
	v, err := parse(s)
	if err != nil {
		return Version{}, err
	}
	parseCache.put(s, v)
	return v, nil
}

func parse(s string) (Version, error) {
	if s == "" {
		return Version{}, ErrEmptyVersion
	}

	// Split off prerelease and build metadata. The core contains only digits
	// and dots, so the first "-" or "+" terminates it.
	core := s
	var prerelease, build string
	var hasPrerelease, hasBuild bool
	if i := strings.IndexAny(s, "-+"); i >= 0 {
		core = s[:i]
		rest := s[i:]
		if p, ok := strings.CutPrefix(rest, "-"); ok {
			hasPrerelease = true
			prerelease, build, hasBuild = strings.Cut(p, "+")
		} else {
			build = strings.TrimPrefix(rest, "+")
			hasBuild = true
		}
	}

	parts := strings.Split(core, ".")
	if len(parts) != 3 {
		return Version{}, fmt.Errorf("%w: %q", ErrMalformedCore, s)
	}

	var v Version
	for i, part := range parts {
		num, err := parseCoreComponent(part)
		if err != nil {
			return Version{}, fmt.Errorf("%w: %q", err, part)
		}
		switch i {
		case 0:
			v.major = num
		case 1:
			v.minor = num
		case 2:
			v.patch = num
		}
	}

	if hasPrerelease {
		ids, err := parseIdentifiers(prerelease, true)
		if err != nil {
			return Version{}, fmt.Errorf("invalid prerelease %q: %w", prerelease, err)
		}
		v.prerelease = ids
	}
	if hasBuild {
		if _, err := parseIdentifiers(build, false); err != nil {
			return Version{}, fmt.Errorf("invalid build metadata %q: %w", build, err)
		}
		v.build = build
	}
	return v, nil
}

// parseCoreComponent parses a major/minor/patch component: decimal digits
// only, no leading zeros except the literal "0".
func parseCoreComponent(s string) (int, error) {
	if s == "" {
		return 0, ErrNonNumeric
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, ErrNonNumeric
		}
	}
	if len(s) > 1 && s[0] == '0' {
		return 0, ErrLeadingZero
	}
	num, err := strconv.Atoi(s)
	if err != nil {
		return 0, ErrNonNumeric
	}
	return num, nil
}

// parseIdentifiers validates a dot-separated identifier list. When numeric
// is true, purely numeric identifiers must not carry leading zeros (the
// prerelease rule; build metadata has no such restriction).
func parseIdentifiers(s string, numeric bool) ([]string, error) {
	ids := strings.Split(s, ".")
	for _, id := range ids {
		if id == "" {
			return nil, ErrEmptyIdentifier
		}
		for i := 0; i < len(id); i++ {
			c := id[i]
			ok := c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c == '-'
			if !ok {
				return nil, ErrBadIdentifier
			}
		}
		if numeric && isNumericIdentifier(id) && len(id) > 1 && id[0] == '0' {
			return nil, ErrLeadingZero
		}
	}
	return ids, nil
}

// MarshalText implements encoding.TextMarshaler so versions embed cleanly
// in YAML and JSON documents.
func (v Version) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (v *Version) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}
