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

// DftDownsampleTarget is the default target point count for
// Downsample.
const DftDownsampleTarget = 500

// Downsample reduces a point set for rendering by fixed-stride
// selection, stride = max(1, len/target). Series at or under the
// target are returned whole. Pure and deterministic: the input is
// never mutated and identical input always yields identical output.
// The result is always a fresh copy, safe to hand to a renderer.
func Downsample(pts []Point, target int) []Point {
	if target <= 0 {
		target = DftDownsampleTarget
	}
	if len(pts) == 0 {
		return nil
	}
	if len(pts) <= target {
		out := make([]Point, len(pts))
		copy(out, pts)
		return out
	}
	stride := len(pts) / target
	if stride < 1 {
		stride = 1
	}
	out := make([]Point, 0, len(pts)/stride+1)
	for i := 0; i < len(pts); i += stride {
		out = append(out, pts[i])
	}
	return out
}

// Steps expands a selected point set into the step-function polyline
// a chart should draw: a horizontal segment holding the previous
// value out to the next point's time, then a vertical segment to the
// new value. A monitored quantity holds its value until the next
// recorded change, so steps, not straight interpolation lines. Pure,
// the input is never mutated.
func Steps(pts []Point) []Point {
	if len(pts) == 0 {
		return nil
	}
	out := make([]Point, 0, len(pts)*2-1)
	out = append(out, pts[0])
	for i := 1; i < len(pts); i++ {
		out = append(out, Point{T: pts[i].T, V: pts[i-1].V})
		out = append(out, pts[i])
	}
	return out
}
