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

// Package manager coordinates version changes across every managed project
// file and the persistent state store. Multi-file updates run as
// transactions: all participating files are backed up and checksummed
// before the first write, and any failure restores them from the verified
// backups. The package also detects cross-file version inconsistencies and
// plans their resolution; the decision of which version wins is pure and
// separated from the writes that enforce it.
package manager
