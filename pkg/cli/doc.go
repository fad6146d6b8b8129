// Package cli implements the gtprov command-line interface for managing
// project versions in gtach provisioning projects.
//
// # Overview
//
// gtprov keeps the version embedded in a project's metadata files
// (pyproject.toml, setup.py, package __init__.py, configuration defaults)
// and its persistent version state in agreement. Updates run as atomic
// multi-file transactions with automatic rollback.
//
// # Commands
//
// current - Show every managed version:
//
//	gtprov current [--format json|yaml|table]
//
// check - Evaluate a version constraint:
//
//	gtprov check ">=1.2.0" [--against VERSION]
//
// set - Set all managed sources to an explicit version:
//
//	gtprov set 1.4.0
//
// bump - Increment the current version:
//
//	gtprov bump patch
//
// suggest - List candidate next versions:
//
//	gtprov suggest [--type major|minor|patch|prerelease]
//
// history - Show recorded increments:
//
//	gtprov history [--limit N]
//
// sync - Align managed files with the state store:
//
//	gtprov sync
//
// resolve - Resolve cross-file version disagreements:
//
//	gtprov resolve [--strategy authoritative|common|explicit [--set VERSION]]
//
// # Global Flags
//
//	--project, -p   Project root directory (default: current directory)
//	--config, -c    Project configuration file
//	--log-level     Log level: debug, info, warn, error
//	--help, -h      Show command help
//	--version, -v   Show version information
package cli
