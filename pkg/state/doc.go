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

// Package state persists a project's version lifecycle in a YAML document
// (.gtach-version) at the project root. The store records the current
// version and release stage, a bounded increment history, and stage
// transitions. Every mutation refreshes an on-disk backup first and writes
// the document atomically; opening a project with a corrupt state file
// recovers from the backup, and fails loudly when both copies are bad.
package state
