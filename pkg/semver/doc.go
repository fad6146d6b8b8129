// Package semver implements parsing, comparison, and constraint evaluation
// for Semantic Versioning 2.0.0 version strings.
//
// Versions are immutable values created by Parse or New; bump operations
// return new values. Comparison follows full SemVer precedence, including
// prerelease identifier ordering, and ignores build metadata. Repeated
// parses of identical input strings are served from a bounded LRU cache.
//
// Constraint expressions pair one of the operators >=, <=, ==, !=, ~, ^
// with a target version; an expression without an operator is an exact
// match. The tilde operator matches versions with the same major and minor
// components at or above the target; caret matches the same major component
// at or above the target.
package semver
