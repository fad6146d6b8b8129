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

// BumpMajor returns a new version with the major component incremented and
// minor, patch, prerelease, and build metadata cleared.
func (v Version) BumpMajor() Version {
	return Version{major: v.major + 1}
}

// BumpMinor returns a new version with the minor component incremented and
// patch, prerelease, and build metadata cleared.
func (v Version) BumpMinor() Version {
	return Version{major: v.major, minor: v.minor + 1}
}

// BumpPatch returns a new version with the patch component incremented and
// prerelease and build metadata cleared.
func (v Version) BumpPatch() Version {
	return Version{major: v.major, minor: v.minor, patch: v.patch + 1}
}

// WithPrerelease returns a copy of v with its prerelease tag replaced by the
// given dot-separated identifier string, or cleared when id is empty.
// The identifiers must already be valid; invalid input leaves v unchanged.
func (v Version) WithPrerelease(id string) Version {
	if id == "" {
		v.prerelease = nil
		return v
	}
	ids, err := parseIdentifiers(id, true)
	if err != nil {
		return v
	}
	v.prerelease = ids
	return v
}

// Compatibility classifies how far apart two versions are.
type Compatibility string

const (
	// Compatible indicates the versions share major and minor components;
	// only patch, prerelease, or build metadata differ (or nothing does).
	Compatible Compatibility = "compatible"
	// MinorBreaking indicates the versions share a major component but
	// differ in minor.
	MinorBreaking Compatibility = "minor_breaking"
	// MajorBreaking indicates the versions differ in major component.
	MajorBreaking Compatibility = "major_breaking"
	// Incompatible indicates at least one version string could not be
	// parsed, so no structural comparison is possible.
	Incompatible Compatibility = "incompatible"
)

// Classify reports the compatibility relation between two versions.
func Classify(a, b Version) Compatibility {
	switch {
	case a.major != b.major:
		return MajorBreaking
	case a.minor != b.minor:
		return MinorBreaking
	default:
		return Compatible
	}
}

// ClassifyStrings parses both inputs and classifies them. Either input
// failing to parse yields Incompatible.
func ClassifyStrings(a, b string) Compatibility {
	va, err := Parse(a)
	if err != nil {
		return Incompatible
	}
	vb, err := Parse(b)
	if err != nil {
		return Incompatible
	}
	return Classify(va, vb)
}
