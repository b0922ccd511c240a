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

package daemon

import (
	"log"

	"github.com/simplot/simplot/pipeline"
)

// logRenderer is a minimal render consumer: it writes a one-line
// summary of every nth snapshot to the log. A chart widget would
// implement pipeline.Renderer the same way and draw the step polyline
// (series.Steps) of each KeyView instead.
type logRenderer struct {
	every int // log every nth snapshot, 0/1 means every one
	n     int
}

func (r *logRenderer) RenderSnapshot(s *pipeline.Snapshot) {
	r.n++
	if r.every > 1 && r.n%r.every != 0 {
		return
	}
	points := 0
	for _, kv := range s.Keys {
		points += len(kv.Points)
	}
	log.Printf("render: %d keys, %d render points, t: [%v %v] v: [%v %v], events: %d total, %d since last tick",
		len(s.Keys), points, s.Range.MinT, s.Range.MaxT, s.Range.MinV, s.Range.MaxV, s.TotalEvents, s.EventsSinceTick)
}
