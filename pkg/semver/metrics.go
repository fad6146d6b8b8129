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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	parseCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gtprov_semver_parse_cache_hits_total",
			Help: "Number of version parses served from the parse cache",
		},
	)

	parseCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gtprov_semver_parse_cache_misses_total",
			Help: "Number of version parses that required a full parse",
		},
	)
)
