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

// Package procstat publishes some rudimentary runtime stats of the
// process itself as ordinary variable change events, so they can be
// monitored and charted like any other simulation variable.
package procstat

import (
	"runtime"
	"sync"
	"time"

	"github.com/shirou/gopsutil/cpu"
	"github.com/simplot/simplot/event"
)

type batchPublisher interface {
	Publish(event.Batch)
}

type Collector struct {
	bus    batchPublisher
	every  time.Duration
	prefix string
	start  time.Time
	stopCh chan struct{}
	wg     sync.WaitGroup
}

func New(bus batchPublisher, every time.Duration, prefix string) *Collector {
	if every == 0 {
		every = 5 * time.Second
	}
	if prefix == "" {
		prefix = "simplot"
	}
	c := &Collector{
		bus:    bus,
		every:  every,
		prefix: prefix,
		start:  time.Now(),
		stopCh: make(chan struct{}),
	}
	c.wg.Add(1)
	go collect(c)
	return c
}

func (c *Collector) Stop() {
	close(c.stopCh)
	c.wg.Wait()
}

// Keys returns the keys this collector publishes under, so they can
// be added to a pipeline's monitored set.
func (c *Collector) Keys() []string {
	return []string{c.prefix + ".runtime.cpu.percent", c.prefix + ".runtime.mem.alloc"}
}

var collect = func(c *Collector) {
	defer c.wg.Done()
	for {
		select {
		case <-c.stopCh:
			return
		case <-time.After(c.every):
		}
		now := time.Now().Sub(c.start).Seconds()
		c.bus.Publish(event.Batch{
			{Key: c.prefix + ".runtime.cpu.percent", TimeStamp: now, Value: runtimeCpuPercent(), Type: "gauge"},
			{Key: c.prefix + ".runtime.mem.alloc", TimeStamp: now, Value: float64(runtimeMemory()), Type: "gauge"},
		})
	}
}

func runtimeMemory() uint64 {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	return mem.Alloc
}

func runtimeCpuPercent() float64 {
	ps, _ := cpu.Percent(0, false)
	if len(ps) > 0 {
		return ps[0]
	}
	return 0
}
