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

package aggregator

import (
	"math"
	"testing"
)

func Test_aggregator_TimeWeighted_AddEvent(t *testing.T) {
	a := &TimeWeighted{}

	a.AddEvent(10, 5)
	if a.totalDuration != 0 {
		t.Errorf("first event must contribute no duration, got %v", a.totalDuration)
	}

	a.AddEvent(20, 10)
	// value 5 held for 10 units: weightedSum 50, totalDuration 10
	if a.weightedSum != 50 || a.totalDuration != 10 {
		t.Errorf("after second event: weightedSum %v totalDuration %v", a.weightedSum, a.totalDuration)
	}
	if avg := a.Average(); avg != 5 {
		t.Errorf("average should be 5, got %v", avg)
	}

	a.AddEvent(40, 4)
	want := (5.0*10 + 10.0*20) / 30
	if avg := a.Average(); math.Abs(avg-want) > 1e-12 {
		t.Errorf("average should be %v, got %v", want, avg)
	}
	if a.lastTime != 40 || a.lastValue != 4 {
		t.Errorf("last event not recorded: t %v v %v", a.lastTime, a.lastValue)
	}
}

func Test_aggregator_TimeWeighted_Average_fallbacks(t *testing.T) {
	var a TimeWeighted

	// No events at all: the documented default is 0
	if avg := a.Average(); avg != 0 {
		t.Errorf("average with no events should be 0, got %v", avg)
	}

	// A single event has no duration to integrate over, the value
	// itself is the average
	a.AddEvent(0, 7)
	if avg := a.Average(); avg != 7 {
		t.Errorf("average after a single event should be 7, got %v", avg)
	}

	// Several events at the same instant: still zero duration
	a.AddEvent(0, 9)
	if avg := a.Average(); avg != 9 {
		t.Errorf("average with zero elapsed duration should be the last value, got %v", avg)
	}
}
