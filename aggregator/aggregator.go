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

// Package aggregator provides incremental running statistics over
// event streams. The aggregator only aggregates, it does not concern
// itself with history retention or render cadence, that is the job of
// its user.
package aggregator

// TimeWeighted accumulates the time-weighted average of a
// piecewise-constant signal: a variable holds each value until the
// next event, so each value is weighted by how long it was held.
//
// This is an illustration of a signal with events 5.0 at t=10, 10.0
// at t=20 and 4.0 at t=40. After the last event the average is
// (5*10 + 10*20) / 30 = 8.33 - the 4.0 has no weight yet because no
// time has elapsed at it.
//
//  ||         +--------------+
//  ||    5.0  |     10.0     | 4.0
//  ||---------+              +----
//  ||=========+====+====+====+====
//   0    10   20        40      ---> time
//
// The running state never revisits old events, each AddEvent is O(1)
// and the average is exact, not an approximation.
//
// To create an empty TimeWeighted, simply use its zero value.
type TimeWeighted struct {
	lastTime      float64
	lastValue     float64
	weightedSum   float64
	totalDuration float64
	seen          bool
}

// AddEvent folds in an observation of value v at time t. The first
// call only records the starting point and contributes nothing, a
// single sample has no duration to integrate over. Timestamps must be
// non-decreasing per instance. This is a caller contract, it is not
// validated here: an out-of-order timestamp contributes a negative
// duration and silently corrupts the average.
func (a *TimeWeighted) AddEvent(t, v float64) {
	if !a.seen {
		a.lastTime = t
		a.lastValue = v
		a.seen = true
		return
	}
	dur := t - a.lastTime
	a.weightedSum += a.lastValue * dur
	a.totalDuration += dur
	a.lastTime = t
	a.lastValue = v
}

// Average returns the time-weighted average of everything seen so
// far. When no duration has elapsed (one event, or several at the
// same instant) it falls back to the last observed value; with no
// events at all that is 0.
func (a *TimeWeighted) Average() float64 {
	if a.totalDuration > 0 {
		return a.weightedSum / a.totalDuration
	}
	return a.lastValue
}
