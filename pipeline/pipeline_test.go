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
	"bytes"
	"log"
	"math"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/simplot/simplot/event"
)

type fakeSource struct {
	subs int
}

func (f *fakeSource) Subscribe(event.Consumer) *event.Subscription {
	f.subs++
	return nil
}

type fakeRenderer struct {
	mu    sync.Mutex
	snaps []*Snapshot
}

func (f *fakeRenderer) RenderSnapshot(s *Snapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snaps = append(f.snaps, s)
}

func (f *fakeRenderer) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.snaps)
}

func Test_pipeline_New_clamps(t *testing.T) {
	p := New(&fakeSource{}, &fakeRenderer{}, Config{Keys: []string{"a"}})
	if p.interval != DftRefresh {
		t.Errorf("zero refresh interval should default to %v, got %v", DftRefresh, p.interval)
	}
	if p.maxPoints != 1000 || p.target != 500 {
		t.Errorf("defaults: maxPoints %d target %d", p.maxPoints, p.target)
	}

	p = New(&fakeSource{}, &fakeRenderer{}, Config{Keys: []string{"a"}, RefreshInterval: time.Millisecond})
	if p.interval != MinRefresh {
		t.Errorf("1ms should clamp to %v, got %v", MinRefresh, p.interval)
	}

	p = New(&fakeSource{}, &fakeRenderer{}, Config{Keys: []string{"a"}, RefreshInterval: 5 * time.Second})
	if p.interval != MaxRefresh {
		t.Errorf("5s should clamp to %v, got %v", MaxRefresh, p.interval)
	}
}

func Test_pipeline_ProcessEventBatch(t *testing.T) {
	p := New(&fakeSource{}, &fakeRenderer{}, Config{Keys: []string{"a", "b"}})

	p.ProcessEventBatch(event.Batch{
		{Key: "a", TimeStamp: 10, Value: 5, Type: "change"},
		{Key: "nope", TimeStamp: 10, Value: 99, Type: "change"}, // unmonitored, dropped
		{Key: "a", TimeStamp: 20, Value: 10, Type: "change"},
	})

	if !p.dirty {
		t.Errorf("dirty flag should be set after a batch with monitored events")
	}
	if p.total != 2 || p.sinceTick != 2 {
		t.Errorf("counters: total %d sinceTick %d", p.total, p.sinceTick)
	}
	if p.byKey["a"] == nil || p.byKey["a"].rev != 2 {
		t.Errorf("key state for \"a\" missing or wrong rev")
	}
	if p.byKey["nope"] != nil {
		t.Errorf("unmonitored key should not get state")
	}
	if p.byKey["b"] != nil {
		t.Errorf("state must be created lazily, \"b\" saw no events")
	}
}

func Test_pipeline_ProcessEventBatch_unmonitoredOnly(t *testing.T) {
	p := New(&fakeSource{}, &fakeRenderer{}, Config{Keys: []string{"a"}})

	p.ProcessEventBatch(event.Batch{
		{Key: "x", TimeStamp: 1, Value: 1},
		{Key: "y", TimeStamp: 2, Value: 2},
	})

	if p.dirty {
		t.Errorf("a batch of only unmonitored keys must not set the dirty flag")
	}
	if len(p.byKey) != 0 || p.total != 0 || !p.rng.Empty() {
		t.Errorf("a batch of only unmonitored keys must leave all state unchanged")
	}
}

func Test_pipeline_ProcessEventBatch_malformed(t *testing.T) {
	defer log.SetOutput(os.Stderr)
	var buf bytes.Buffer
	log.SetOutput(&buf)

	p := New(&fakeSource{}, &fakeRenderer{}, Config{Keys: []string{"a"}})

	p.ProcessEventBatch(event.Batch{
		{Key: "", TimeStamp: 1, Value: 1},
		{Key: "a", TimeStamp: math.NaN(), Value: 1},
		{Key: "a", TimeStamp: 2, Value: math.NaN()},
		{Key: "a", TimeStamp: 3, Value: 42},
	})

	if p.total != 1 {
		t.Errorf("only the well-formed event should process, total is %d", p.total)
	}
	if !strings.Contains(buf.String(), "malformed") {
		t.Errorf("malformed entries should be logged")
	}
}

func Test_pipeline_snapshot(t *testing.T) {
	p := New(&fakeSource{}, &fakeRenderer{}, Config{Keys: []string{"a", "b"}})

	if s := p.snapshot(); s != nil {
		t.Errorf("snapshot of a clean pipeline should be nil")
	}

	p.ProcessEventBatch(event.Batch{
		{Key: "a", TimeStamp: 10, Value: 5},
		{Key: "a", TimeStamp: 20, Value: 10},
	})

	s := p.snapshot()
	if s == nil {
		t.Fatalf("snapshot of a dirty pipeline should not be nil")
	}

	kv := s.Keys["a"]
	if kv == nil {
		t.Fatalf("snapshot missing key \"a\"")
	}
	if kv.CurrentValue != 10 {
		t.Errorf("CurrentValue should be the last point's value 10, got %v", kv.CurrentValue)
	}
	if kv.TimeWeightedAvg != 5 {
		t.Errorf("TimeWeightedAvg should be 5, got %v", kv.TimeWeightedAvg)
	}
	if len(kv.Points) != 2 {
		t.Errorf("expected 2 render points, got %d", len(kv.Points))
	}

	// Monitored but data-less keys appear with a NaN current value
	if b := s.Keys["b"]; b == nil || !math.IsNaN(b.CurrentValue) {
		t.Errorf("key \"b\" should be present with NaN current value: %+v", b)
	}

	if s.Range.MinT != 10 || s.Range.MaxT != 20 || s.Range.MinV != 5 || s.Range.MaxV != 10 {
		t.Errorf("unexpected range: %+v", s.Range)
	}
	if s.TotalEvents != 2 || s.EventsSinceTick != 2 {
		t.Errorf("counters in snapshot: total %d sinceTick %d", s.TotalEvents, s.EventsSinceTick)
	}

	// The tick consumed the dirty flag and the since-tick counter
	if p.dirty || p.sinceTick != 0 || p.total != 2 {
		t.Errorf("post-tick state: dirty %v sinceTick %d total %d", p.dirty, p.sinceTick, p.total)
	}
	if s2 := p.snapshot(); s2 != nil {
		t.Errorf("second snapshot with no new data should be nil")
	}
}

func Test_pipeline_snapshot_rangeNeverNarrows(t *testing.T) {
	p := New(&fakeSource{}, &fakeRenderer{}, Config{Keys: []string{"a"}, MaxPoints: 2})

	p.ProcessEventBatch(event.Batch{
		{Key: "a", TimeStamp: 1, Value: 100},
		{Key: "a", TimeStamp: 2, Value: -100},
		{Key: "a", TimeStamp: 3, Value: 1}, // evicts v=100
		{Key: "a", TimeStamp: 4, Value: 2}, // evicts v=-100
	})

	s := p.snapshot()
	if len(s.Keys["a"].Points) != 2 {
		t.Errorf("history should be capped at 2 points, got %d", len(s.Keys["a"].Points))
	}
	if s.Range.MinV != -100 || s.Range.MaxV != 100 || s.Range.MinT != 1 {
		t.Errorf("eviction must never narrow the global range: %+v", s.Range)
	}
}

func Test_pipeline_viewCache(t *testing.T) {
	p := New(&fakeSource{}, &fakeRenderer{}, Config{Keys: []string{"a"}})

	p.ProcessEventBatch(event.Batch{{Key: "a", TimeStamp: 1, Value: 1}})
	s1 := p.snapshot()
	if p.cacheMisses != 1 || p.cacheHits != 0 {
		t.Errorf("first snapshot: misses %d hits %d", p.cacheMisses, p.cacheHits)
	}

	// Force a tick without new data for "a": the cached view must be
	// reused, not recomputed.
	p.mu.Lock()
	p.dirty = true
	p.mu.Unlock()

	s2 := p.snapshot()
	if p.cacheHits != 1 {
		t.Errorf("unchanged series should hit the view cache, hits %d", p.cacheHits)
	}
	if &s1.Keys["a"].Points[0] != &s2.Keys["a"].Points[0] {
		t.Errorf("cache hit should reuse the same point slice")
	}

	// New data bumps the revision and invalidates the view
	p.ProcessEventBatch(event.Batch{{Key: "a", TimeStamp: 2, Value: 2}})
	p.snapshot()
	if p.cacheMisses != 2 {
		t.Errorf("changed series should miss the view cache, misses %d", p.cacheMisses)
	}
}

func Test_pipeline_StopClears(t *testing.T) {
	src := &fakeSource{}
	p := New(src, &fakeRenderer{}, Config{Keys: []string{"a"}})
	p.ProcessEventBatch(event.Batch{{Key: "a", TimeStamp: 1, Value: 1}})

	// Stop without Start: the worker WaitGroup is empty and the nil
	// subscription close is a no-op, teardown still proceeds.
	p.Stop()

	if len(p.byKey) != 0 || p.dirty || !p.rng.Empty() {
		t.Errorf("Stop should clear all stores")
	}
}

func Test_pipeline_concurrent(t *testing.T) {
	keys := []string{"k0", "k1", "k2", "k3"}
	p := New(&fakeSource{}, &fakeRenderer{}, Config{Keys: keys, MaxPoints: 100})

	const batches = 500

	var wg sync.WaitGroup
	for i := 0; i < len(keys); i++ {
		wg.Add(1)
		go func(key string) {
			defer wg.Done()
			for j := 0; j < batches; j++ {
				p.ProcessEventBatch(event.Batch{
					{Key: key, TimeStamp: float64(2 * j), Value: float64(j)},
					{Key: key, TimeStamp: float64(2*j + 1), Value: float64(j + 1)},
				})
			}
		}(keys[i])
	}

	// Render ticks interleaved with the producers. MaxPoints is under
	// the downsample target, so every retained point survives into the
	// view and the last view point must agree with CurrentValue - a
	// torn read would break that.
	for i := 0; i < 200; i++ {
		s := p.snapshot()
		if s == nil {
			continue
		}
		for key, kv := range s.Keys {
			if len(kv.Points) > 100 {
				t.Fatalf("key %s: %d points in snapshot exceeds maxPoints", key, len(kv.Points))
			}
			if len(kv.Points) > 0 && kv.CurrentValue != kv.Points[len(kv.Points)-1].V {
				t.Fatalf("key %s: CurrentValue %v inconsistent with last point %v",
					key, kv.CurrentValue, kv.Points[len(kv.Points)-1].V)
			}
		}
	}

	wg.Wait()

	p.mu.Lock()
	p.dirty = true // force one final full snapshot
	p.mu.Unlock()
	s := p.snapshot()
	if s.TotalEvents != uint64(len(keys)*batches*2) {
		t.Errorf("TotalEvents should be %d, got %d", len(keys)*batches*2, s.TotalEvents)
	}
}
