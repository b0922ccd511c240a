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

// Package pipeline manages the aggregating end of the data. All of
// the ingestion filtering, bounded history, running statistics and
// render scheduling logic is here. Ingestion may run arbitrarily
// fast, rendering work is coalesced to at most once per refresh
// interval via a dirty flag.
package pipeline

import (
	"log"
	"math"
	"os"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"github.com/simplot/simplot/aggregator"
	"github.com/simplot/simplot/event"
	"github.com/simplot/simplot/series"
)

var debug bool

func init() {
	debug = os.Getenv("SIMPLOT_PIPELINE_DEBUG") != ""
}

const (
	DftRefresh = 50 * time.Millisecond
	MinRefresh = 10 * time.Millisecond
	MaxRefresh = 1000 * time.Millisecond
)

// Config is the pipeline configuration. It is fixed at construction,
// a running pipeline is never reconfigured.
type Config struct {
	Keys             []string      // the monitored key set
	RefreshInterval  time.Duration // render cadence, clamped to [MinRefresh, MaxRefresh]
	MaxPoints        int           // per-key history capacity
	DownsampleTarget int           // render point count per key
}

// This is the event.Bus, or anything else subscriptions can be taken
// on.
type eventSource interface {
	Subscribe(event.Consumer) *event.Subscription
}

// keyState is the per-key mutable state, created lazily on the first
// monitored event for the key and kept until Stop.
type keyState struct {
	series *series.Bounded
	agg    aggregator.TimeWeighted
	rev    uint64 // bumped on every append, versions the downsample view cache
}

// Pipeline ties an event source to a renderer. All shared state is
// guarded by a single lock: a batch mutates it as one atomic unit and
// a render tick reads it as one atomic unit, so statistics and
// history can never tear apart.
type Pipeline struct {
	src      eventSource
	renderer Renderer

	monitored map[string]bool
	interval  time.Duration
	maxPoints int
	target    int

	mu        sync.Mutex
	byKey     map[string]*keyState
	rng       series.Range
	dirty     bool
	total     uint64
	sinceTick uint64

	// The view cache is only touched from the scheduler goroutine,
	// it needs no lock of its own.
	viewCache   *lru.Cache
	cacheHits   int
	cacheMisses int

	sub      *event.Subscription
	stopCh   chan struct{}
	workerWg sync.WaitGroup
}

func New(src eventSource, renderer Renderer, cfg Config) *Pipeline {
	interval := cfg.RefreshInterval
	if interval == 0 {
		interval = DftRefresh
	}
	if interval < MinRefresh {
		interval = MinRefresh
	}
	if interval > MaxRefresh {
		interval = MaxRefresh
	}
	maxPoints := cfg.MaxPoints
	if maxPoints <= 0 {
		maxPoints = series.DftMaxPoints
	}
	target := cfg.DownsampleTarget
	if target <= 0 {
		target = series.DftDownsampleTarget
	}

	p := &Pipeline{
		src:       src,
		renderer:  renderer,
		monitored: make(map[string]bool, len(cfg.Keys)),
		interval:  interval,
		maxPoints: maxPoints,
		target:    target,
		byKey:     make(map[string]*keyState),
		rng:       series.NewRange(),
		stopCh:    make(chan struct{}),
	}
	for _, k := range cfg.Keys {
		p.monitored[k] = true
	}

	cacheSize := 4 * len(cfg.Keys)
	if cacheSize < 64 {
		cacheSize = 64
	}
	p.viewCache, _ = lru.New(cacheSize)

	return p
}

// ProcessEventBatch filters a batch down to the monitored keys and
// folds the retained events into the per-key state. The whole batch
// is one exclusive region: a concurrent render tick sees either none
// or all of it. Events for unmonitored keys are silently dropped,
// that is not an error. A malformed entry (no key, NaN timestamp or
// value) is skipped and logged, the rest of the batch still
// processes.
func (p *Pipeline) ProcessEventBatch(batch event.Batch) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, e := range batch {
		if e.Key == "" || math.IsNaN(e.TimeStamp) || math.IsNaN(e.Value) {
			log.Printf("ProcessEventBatch: skipping malformed event (key: %q t: %v v: %v)", e.Key, e.TimeStamp, e.Value)
			continue
		}
		if !p.monitored[e.Key] {
			continue
		}

		ks := p.byKey[e.Key]
		if ks == nil {
			ks = &keyState{series: series.NewBounded(p.maxPoints)}
			p.byKey[e.Key] = ks
			if debug {
				log.Printf("ProcessEventBatch: first event for %q, state created", e.Key)
			}
		}

		pt := series.Point{T: e.TimeStamp, V: e.Value}
		ks.series.Append(pt)
		ks.agg.AddEvent(e.TimeStamp, e.Value)
		ks.rev++
		p.rng.Widen(pt)
		p.total++
		p.sinceTick++
		p.dirty = true
	}
}

// Start subscribes to the event source and starts the render
// scheduler.
func (p *Pipeline) Start() {
	p.sub = p.src.Subscribe(p)

	var startWg sync.WaitGroup
	startWg.Add(1)
	go renderWorker(&wrkCtl{wg: &p.workerWg, startWg: &startWg, id: "renderWorker"}, p, p.interval)
	startWg.Wait()

	log.Printf("Pipeline: ready, monitoring %d keys.", len(p.monitored))
}

// Stop shuts the pipeline down. Order matters here: the scheduler
// first so no tick can run during teardown, then the subscription,
// then the stores.
func (p *Pipeline) Stop() {
	log.Printf("Pipeline: stopping render scheduler...")
	close(p.stopCh)
	p.workerWg.Wait()

	log.Printf("Pipeline: releasing subscription...")
	p.sub.Close()

	p.mu.Lock()
	p.byKey = make(map[string]*keyState)
	p.rng = series.NewRange()
	p.dirty = false
	p.sinceTick = 0
	p.mu.Unlock()
	p.viewCache.Purge()

	log.Printf("Pipeline: stopped.")
}

// TotalEvents returns the number of monitored events aggregated since
// start. For status display only.
func (p *Pipeline) TotalEvents() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.total
}
