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

package event

import (
	"log"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// Bus is an in-process event source. Producers call Publish, a single
// dispatcher goroutine delivers each batch, in publish order, to every
// registered consumer. There is no package-wide bus, a Bus is
// constructed explicitly and passed to whoever needs it.
type Bus struct {
	mu     sync.Mutex
	subs   map[uuid.UUID]Consumer
	pubCh  chan Batch
	wg     sync.WaitGroup
	total  uint64 // total events ever published, atomic
	closed bool
}

// Subscription is the handle returned by Subscribe. Releasing it is
// scoped: whoever subscribed calls Close when done.
type Subscription struct {
	id  uuid.UUID
	bus *Bus
}

func NewBus() *Bus {
	b := &Bus{
		subs: make(map[uuid.UUID]Consumer),
		// Large enough that a slow consumer does not immediately
		// block high-frequency producers.
		pubCh: make(chan Batch, 65536),
	}
	b.wg.Add(1)
	go dispatcher(b)
	return b
}

// Subscribe registers a consumer for batch delivery and returns its
// handle. The same consumer may be registered more than once, each
// registration is its own handle.
func (b *Bus) Subscribe(c Consumer) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := uuid.New()
	b.subs[id] = c
	return &Subscription{id: id, bus: b}
}

// Close releases the subscription. Closing an already closed or
// never registered handle is a no-op. After Close returns, no further
// batch delivery through this handle is guaranteed.
func (s *Subscription) Close() {
	if s == nil || s.bus == nil {
		return
	}
	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()
	delete(s.bus.subs, s.id)
}

// Publish queues a batch for delivery. Publishing to a closed Bus is
// a no-op. Empty batches are dropped.
func (b *Bus) Publish(batch Batch) {
	if len(batch) == 0 {
		return
	}
	defer func() { recover() }() // if we're writing to a closed channel below
	b.pubCh <- batch
	atomic.AddUint64(&b.total, uint64(len(batch)))
}

// QueueDepth returns the number of batches queued and not yet
// dispatched. For status display only.
func (b *Bus) QueueDepth() int { return len(b.pubCh) }

// TotalEvents returns the number of events ever published. For status
// display only.
func (b *Bus) TotalEvents() uint64 { return atomic.LoadUint64(&b.total) }

// Close drains the publish queue and stops the dispatcher. Publish
// calls racing with Close may be dropped, which is fine during
// shutdown.
func (b *Bus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	b.mu.Unlock()

	close(b.pubCh)
	b.wg.Wait()
	log.Printf("Bus: dispatcher finished.")
}

func (b *Bus) consumers() []Consumer {
	b.mu.Lock()
	defer b.mu.Unlock()
	cs := make([]Consumer, 0, len(b.subs))
	for _, c := range b.subs {
		cs = append(cs, c)
	}
	return cs
}

var dispatcher = func(b *Bus) {
	defer b.wg.Done()
	for batch := range b.pubCh {
		for _, c := range b.consumers() {
			c.ProcessEventBatch(batch)
		}
	}
}
