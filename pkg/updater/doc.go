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

// Package updater rewrites the version string embedded in managed project
// files. Each supported file kind (pyproject metadata, setup script, module
// init, configuration default) carries a fixed detection pattern; an updater
// binds one path to one kind and offers detect, update, backup, and restore
// primitives. Updates validate the incoming version before touching the
// file and only ever replace the first pattern occurrence, so a file that
// does not match is left exactly as found.
package updater
