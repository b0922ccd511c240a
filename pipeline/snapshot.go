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

package pipeline

import (
	"math"

	"github.com/simplot/simplot/series"
)

// Renderer is the render boundary. RenderSnapshot is called from the
// scheduler goroutine at most once per refresh interval, and only
// when new data arrived since the last call.
type Renderer interface {
	RenderSnapshot(*Snapshot)
}

// KeyView is the render-ready summary of one monitored key.
type KeyView struct {
	CurrentValue    float64 // last recorded value, NaN when no data yet
	TimeWeightedAvg float64
	Points          []series.Point // downsampled, oldest first
}

// Snapshot is what a renderer receives each dirty tick. It is a
// self-contained copy, the renderer may hold on to it or mutate it
// freely.
type Snapshot struct {
	Keys            map[string]*KeyView
	Range           series.Range
	TotalEvents     uint64
	EventsSinceTick uint64
}

// rawKey is the minimal per-key copy taken under the lock. The
// expensive part (downsampling) happens on it after the lock is
// released, so ingestion is never blocked behind rendering work.
type rawKey struct {
	cur float64
	avg float64
	pts []series.Point
	rev uint64
}

// snapshot produces the render snapshot, or nil if nothing new
// arrived since the last tick. Clears the dirty flag and resets the
// since-tick counter.
func (p *Pipeline) snapshot() *Snapshot {
	p.mu.Lock()
	if !p.dirty {
		p.mu.Unlock()
		return nil
	}

	raws := make(map[string]rawKey, len(p.monitored))
	for key := range p.monitored {
		ks := p.byKey[key]
		if ks == nil {
			// Monitored but nothing seen yet
			raws[key] = rawKey{cur: math.NaN()}
			continue
		}
		cur := math.NaN()
		if last, ok := ks.series.Latest(); ok {
			cur = last.V
		}
		raws[key] = rawKey{cur: cur, avg: ks.agg.Average(), pts: ks.series.Points(), rev: ks.rev}
	}

	snap := &Snapshot{
		Keys:            make(map[string]*KeyView, len(raws)),
		Range:           p.rng,
		TotalEvents:     p.total,
		EventsSinceTick: p.sinceTick,
	}
	p.dirty = false
	p.sinceTick = 0
	p.mu.Unlock()

	for key, raw := range raws {
		snap.Keys[key] = &KeyView{
			CurrentValue:    raw.cur,
			TimeWeightedAvg: raw.avg,
			Points:          p.downsampled(key, raw),
		}
	}
	return snap
}
