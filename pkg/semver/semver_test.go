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
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		wantMajor  int
		wantMinor  int
		wantPatch  int
		wantPre    string
		wantBuild  string
		expectErr  bool
	}{
		{name: "plain release", input: "1.2.3", wantMajor: 1, wantMinor: 2, wantPatch: 3},
		{name: "zeros", input: "0.0.0"},
		{name: "large components", input: "999.999.999", wantMajor: 999, wantMinor: 999, wantPatch: 999},
		{name: "prerelease single", input: "1.0.0-alpha", wantMajor: 1, wantPre: "alpha"},
		{name: "prerelease dotted", input: "1.0.0-alpha.1", wantMajor: 1, wantPre: "alpha.1"},
		{name: "prerelease numeric", input: "1.0.0-0.3.7", wantMajor: 1, wantPre: "0.3.7"},
		{name: "prerelease hyphenated", input: "1.0.0-x-y-z.4", wantMajor: 1, wantPre: "x-y-z.4"},
		{name: "build only", input: "1.2.3+build.42", wantMajor: 1, wantMinor: 2, wantPatch: 3, wantBuild: "build.42"},
		{name: "prerelease and build", input: "2.0.0-rc.1+sha.5114f85", wantMajor: 2, wantPre: "rc.1", wantBuild: "sha.5114f85"},
		{name: "build with leading zeros", input: "1.0.0+001", wantMajor: 1, wantBuild: "001"},

		// Error cases
		{name: "empty", input: "", expectErr: true},
		{name: "one component", input: "1", expectErr: true},
		{name: "two components", input: "1.2", expectErr: true},
		{name: "four components", input: "1.2.3.4", expectErr: true},
		{name: "v prefix", input: "v1.2.3", expectErr: true},
		{name: "leading zero major", input: "01.2.3", expectErr: true},
		{name: "leading zero minor", input: "1.02.3", expectErr: true},
		{name: "leading zero patch", input: "1.2.03", expectErr: true},
		{name: "negative component", input: "1.-2.3", expectErr: true},
		{name: "alpha component", input: "1.a.3", expectErr: true},
		{name: "empty component", input: "1..3", expectErr: true},
		{name: "trailing dot", input: "1.2.", expectErr: true},
		{name: "whitespace", input: " 1.2.3", expectErr: true},
		{name: "empty prerelease", input: "1.2.3-", expectErr: true},
		{name: "empty prerelease identifier", input: "1.2.3-alpha..1", expectErr: true},
		{name: "prerelease leading zero numeric", input: "1.2.3-01", expectErr: true},
		{name: "prerelease invalid char", input: "1.2.3-al_pha", expectErr: true},
		{name: "empty build", input: "1.2.3+", expectErr: true},
		{name: "empty build identifier", input: "1.2.3+a..b", expectErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := Parse(tt.input)
			if tt.expectErr {
				if err == nil {
					t.Fatalf("Parse(%q) expected error, got %v", tt.input, v)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse(%q) unexpected error: %v", tt.input, err)
			}
			if v.Major() != tt.wantMajor || v.Minor() != tt.wantMinor || v.Patch() != tt.wantPatch {
				t.Errorf("core = %d.%d.%d, want %d.%d.%d",
					v.Major(), v.Minor(), v.Patch(), tt.wantMajor, tt.wantMinor, tt.wantPatch)
			}
			if v.Prerelease() != tt.wantPre {
				t.Errorf("prerelease = %q, want %q", v.Prerelease(), tt.wantPre)
			}
			if v.Build() != tt.wantBuild {
				t.Errorf("build = %q, want %q", v.Build(), tt.wantBuild)
			}
		})
	}
}

func TestRoundTrip(t *testing.T) {
	inputs := []string{
		"0.0.0",
		"1.2.3",
		"10.20.30",
		"1.0.0-alpha",
		"1.0.0-alpha.1",
		"1.0.0-0.3.7",
		"1.0.0-x-y-z.4",
		"1.2.3+build",
		"1.2.3-rc.1+sha.5114f85",
	}

	for _, input := range inputs {
		t.Run(input, func(t *testing.T) {
			v, err := Parse(input)
			if err != nil {
				t.Fatalf("Parse(%q) failed: %v", input, err)
			}
			if got := v.String(); got != input {
				t.Errorf("round-trip = %q, want %q", got, input)
			}
		})
	}
}

// TestPrecedenceChain verifies the canonical SemVer ordering example.
func TestPrecedenceChain(t *testing.T) {
	chain := []string{
		"1.0.0-alpha",
		"1.0.0-alpha.1",
		"1.0.0-alpha.beta",
		"1.0.0-beta",
		"1.0.0-beta.2",
		"1.0.0-beta.11",
		"1.0.0-rc.1",
		"1.0.0",
		"2.0.0",
		"2.1.0",
		"2.1.1",
	}

	for i := 0; i < len(chain)-1; i++ {
		a := MustParse(chain[i])
		b := MustParse(chain[i+1])
		if Compare(a, b) != -1 {
			t.Errorf("expected %s < %s", chain[i], chain[i+1])
		}
		if Compare(b, a) != 1 {
			t.Errorf("expected %s > %s", chain[i+1], chain[i])
		}
	}
}

func TestCompareTotalOrder(t *testing.T) {
	versions := []string{
		"0.9.0", "1.0.0-alpha", "1.0.0-alpha.2", "1.0.0-beta", "1.0.0", "1.0.1", "1.1.0", "2.0.0",
	}

	// Exactly one of <, ==, > holds for every pair, and ordering is transitive.
	for i := range versions {
		for j := range versions {
			a, b := MustParse(versions[i]), MustParse(versions[j])
			ab, ba := Compare(a, b), Compare(b, a)
			if ab != -ba {
				t.Errorf("Compare(%s,%s)=%d but Compare(%s,%s)=%d", versions[i], versions[j], ab, versions[j], versions[i], ba)
			}
			if (i == j) != (ab == 0) {
				t.Errorf("Compare(%s,%s)=%d, equality mismatch", versions[i], versions[j], ab)
			}
			for k := range versions {
				c := MustParse(versions[k])
				if Compare(a, b) < 0 && Compare(b, c) < 0 && Compare(a, c) >= 0 {
					t.Errorf("transitivity violated for %s < %s < %s", versions[i], versions[j], versions[k])
				}
			}
		}
	}
}

func TestEqualityIgnoresBuildMetadata(t *testing.T) {
	a := MustParse("1.2.3+build1")
	b := MustParse("1.2.3+build2")
	c := MustParse("1.2.3")

	if !a.Equal(b) {
		t.Errorf("expected %s == %s", a, b)
	}
	if !a.Equal(c) {
		t.Errorf("expected %s == %s", a, c)
	}
	if Compare(a, b) != 0 {
		t.Errorf("Compare should ignore build metadata")
	}
}

func TestNumericIdentifiersSortBelowAlphanumeric(t *testing.T) {
	a := MustParse("1.0.0-1")
	b := MustParse("1.0.0-alpha")
	if Compare(a, b) != -1 {
		t.Errorf("numeric identifier should sort below alphanumeric: %s vs %s", a, b)
	}

	// Numeric identifiers compare numerically, not lexically.
	two := MustParse("1.0.0-beta.2")
	eleven := MustParse("1.0.0-beta.11")
	if Compare(two, eleven) != -1 {
		t.Errorf("expected beta.2 < beta.11")
	}
}

// TestLongNumericIdentifiers exercises numeric prerelease identifiers far
// beyond the int64 range. The longer digit string is the larger number.
func TestLongNumericIdentifiers(t *testing.T) {
	// 18 digits versus 25 digits, both beyond safe int accumulation.
	small := MustParse("1.0.0-999999999999999999")
	big := MustParse("1.0.0-1111111111111111111111111")
	if Compare(small, big) != -1 {
		t.Errorf("expected %s < %s", small, big)
	}
	if Compare(big, small) != 1 {
		t.Errorf("expected %s > %s", big, small)
	}

	// Equal length, digit-by-digit order.
	lo := MustParse("1.0.0-19999999999999999999")
	hi := MustParse("1.0.0-20000000000000000000")
	if Compare(lo, hi) != -1 {
		t.Errorf("expected %s < %s", lo, hi)
	}
	if !lo.Equal(MustParse("1.0.0-19999999999999999999")) {
		t.Error("identical long identifiers should compare equal")
	}
}

func TestMustParsePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("MustParse should panic on invalid input")
		}
	}()
	MustParse("not-a-version")
}

func TestIsValid(t *testing.T) {
	if !IsValid("1.2.3-rc.1") {
		t.Error("expected 1.2.3-rc.1 to be valid")
	}
	if IsValid("1.2") {
		t.Error("expected 1.2 to be invalid")
	}
	if IsValid("") {
		t.Error("expected empty string to be invalid")
	}
}

func TestParseCache(t *testing.T) {
	cache := newLRUCache(2)
	cache.put("1.0.0", MustParse("1.0.0"))
	cache.put("2.0.0", MustParse("2.0.0"))
	cache.put("3.0.0", MustParse("3.0.0"))

	if cache.len() != 2 {
		t.Fatalf("cache length = %d, want 2", cache.len())
	}
	if _, ok := cache.get("1.0.0"); ok {
		t.Error("oldest entry should have been evicted")
	}
	if _, ok := cache.get("3.0.0"); !ok {
		t.Error("newest entry should be present")
	}

	// Access order matters: touching 2.0.0 makes 3.0.0 the eviction candidate.
	cache.get("2.0.0")
	cache.put("4.0.0", MustParse("4.0.0"))
	if _, ok := cache.get("2.0.0"); !ok {
		t.Error("recently used entry should survive eviction")
	}
	if _, ok := cache.get("3.0.0"); ok {
		t.Error("least recently used entry should have been evicted")
	}
}

func TestTextMarshalRoundTrip(t *testing.T) {
	v := MustParse("2.0.0-rc.1+sha.abc")
	text, err := v.MarshalText()
	if err != nil {
		t.Fatalf("MarshalText failed: %v", err)
	}

	var parsed Version
	if err := parsed.UnmarshalText(text); err != nil {
		t.Fatalf("UnmarshalText failed: %v", err)
	}
	if parsed.String() != v.String() {
		t.Errorf("round-trip = %q, want %q", parsed.String(), v.String())
	}

	var invalid Version
	if err := invalid.UnmarshalText([]byte("nope")); err == nil {
		t.Error("UnmarshalText should reject invalid input")
	}
}
