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
	"log"
	"sync"
	"time"
)

type wrkCtl struct {
	wg, startWg *sync.WaitGroup
	id          string
}

func (w *wrkCtl) ident() string { return w.id }
func (w *wrkCtl) onEnter()      { w.wg.Add(1) }
func (w *wrkCtl) onExit()       { w.wg.Done() }
func (w *wrkCtl) onStarted()    { w.startWg.Done() }

type wController interface {
	ident() string
	onEnter()
	onExit()
	onStarted()
}

// renderWorker is the render scheduler: one goroutine, one ticker.
// The stop signal is checked only at tick boundaries, a tick that has
// begun runs to completion. This is the coalescing backpressure
// point: no matter how fast batches arrive, a renderer sees at most
// one snapshot per interval.
var renderWorker = func(wc wController, p *Pipeline, every time.Duration) {
	wc.onEnter()
	defer wc.onExit()

	ticker := time.NewTicker(every)
	defer ticker.Stop()

	log.Printf("  - %s started (refresh every %v).", wc.ident(), every)
	wc.onStarted()

	for {
		select {
		case <-p.stopCh:
			log.Printf("%s: stop signal, exiting.", wc.ident())
			return
		case <-ticker.C:
			renderTick(p)
		}
	}
}

// renderTick computes and publishes one snapshot if there is new
// data. A panic in snapshot computation or in the renderer is
// isolated to this tick, the scheduler keeps ticking.
var renderTick = func(p *Pipeline) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("renderTick: recovered: %v (skipping this tick)", r)
		}
	}()
	if snap := p.snapshot(); snap != nil {
		p.renderer.RenderSnapshot(snap)
	}
}
