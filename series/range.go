//
// Copyright 2017 Gregory Trubetskoy. All Rights Reserved.
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

package series

import "math"

// Range tracks the time and value extremes over every point ever
// appended across all series. It only ever widens: eviction of the
// points that held the extremes does not narrow it, so a displayed
// axis range may exceed the currently retained data. This is
// intentional - the axes stay stable as old data rolls off.
type Range struct {
	MinT, MaxT float64
	MinV, MaxV float64
}

// NewRange returns a Range seeded with the +Inf/-Inf sentinels,
// i.e. one that has seen no data yet.
func NewRange() Range {
	return Range{
		MinT: math.Inf(1), MaxT: math.Inf(-1),
		MinV: math.Inf(1), MaxV: math.Inf(-1),
	}
}

// Widen folds a point into the range.
func (r *Range) Widen(p Point) {
	if p.T < r.MinT {
		r.MinT = p.T
	}
	if p.T > r.MaxT {
		r.MaxT = p.T
	}
	if p.V < r.MinV {
		r.MinV = p.V
	}
	if p.V > r.MaxV {
		r.MaxV = p.V
	}
}

// Empty is true until the first Widen.
func (r *Range) Empty() bool { return math.IsInf(r.MinT, 1) }
