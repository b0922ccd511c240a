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

// Package series provides fundamental series operations: the bounded
// chronological history of one monitored variable, tracking of the
// global time/value extremes, and the render-time downsampling
// transforms.
package series

// Point is one recorded value of a monitored variable. T is in
// simulation time units, not wall clock.
type Point struct {
	T float64
	V float64
}

// DftMaxPoints is the default capacity of a Bounded series.
const DftMaxPoints = 1000

// Bounded is a fixed-capacity chronologically ordered series of
// Points backed by a ring buffer. Appending beyond capacity evicts
// the oldest point, both append and eviction are O(1). A Bounded is
// not safe for concurrent use, callers serialize access (the pipeline
// does it under its lock).
type Bounded struct {
	points []Point
	size   int
	head   int // next write position
	count  int // number of retained points
}

func NewBounded(size int) *Bounded {
	if size <= 0 {
		size = DftMaxPoints
	}
	return &Bounded{points: make([]Point, size), size: size}
}

// Append adds a point as the newest entry, evicting the oldest one if
// the series is at capacity. Points must arrive in chronological
// order, this is a caller contract and is not checked here.
func (b *Bounded) Append(p Point) {
	b.points[b.head] = p
	b.head = (b.head + 1) % b.size
	if b.count < b.size {
		b.count++
	}
}

// Len returns the number of currently retained points.
func (b *Bounded) Len() int { return b.count }

// Cap returns the capacity.
func (b *Bounded) Cap() int { return b.size }

// Points returns the retained points oldest first. The result is a
// copy, the series is not mutated and the slice stays valid after
// further appends.
func (b *Bounded) Points() []Point {
	if b.count == 0 {
		return nil
	}
	result := make([]Point, b.count)
	start := (b.head - b.count + b.size) % b.size
	for i := 0; i < b.count; i++ {
		result[i] = b.points[(start+i)%b.size]
	}
	return result
}

// Latest returns the most recently appended point. The second return
// value is false when the series is empty.
func (b *Bounded) Latest() (Point, bool) {
	if b.count == 0 {
		return Point{}, false
	}
	return b.points[(b.head-1+b.size)%b.size], true
}
