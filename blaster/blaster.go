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

// Package blaster provides some stress testing capabilities: a
// synthetic producer that publishes variable change events at a
// controlled rate, standing in for a simulation engine.
package blaster

import (
	"context"
	"log"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/simplot/simplot/event"
	"golang.org/x/time/rate"
)

type Blaster struct {
	keys    []string
	bus     batchPublisher
	limiter *rate.Limiter
	span    time.Duration
	start   time.Time

	mu sync.Mutex
}

// This is the event.Bus
type batchPublisher interface {
	Publish(event.Batch)
}

func New(bus batchPublisher, keys []string) *Blaster {
	b := &Blaster{
		bus:     bus,
		keys:    keys,
		limiter: rate.NewLimiter(rate.Limit(0), 1), // Zero limit allows no events
		span:    600 * time.Second,
		start:   time.Now(),
	}
	go blast(b)
	return b
}

func (b *Blaster) SetRate(perSec int) {
	// No need to lock, limiters already have a lock
	b.limiter.SetLimit(rate.Limit(perSec))
	log.Printf("Blaster: rate is now: %v per second across %v keys.", perSec, len(b.keys))
}

func (b *Blaster) cycle() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.limiter.Limit() == 0 {
		// rate.Limiter has a bug - Limit of zero should allow no events, but it
		// aparently allows infinite events?
		time.Sleep(time.Second)
		return 0
	}

	if len(b.keys) == 0 {
		return 0
	}

	// Pick a random key
	n := rand.Int() % len(b.keys)

	// Simulation time is seconds since the blaster started
	now := time.Now()
	simTime := now.Sub(b.start).Seconds()

	// The offset shifts the sinusoid to the right a bit based on the
	// key's number for fancier overall appearance.
	offset := time.Duration(n*10) * time.Second

	y := sinTime(now.Add(offset), b.span) * 100

	b.bus.Publish(event.Batch{
		{Key: b.keys[n], TimeStamp: simTime, Value: y, Type: "change"},
	})

	return 1
}

func blast(b *Blaster) {

	ctx := context.TODO()

	cnt := 0
	lastStat := time.Now()
	statPeriod := 10 * time.Second

	for {

		b.limiter.Wait(ctx)

		cnt += b.cycle()

		if cnt%1000 == 0 {
			if time.Now().Sub(lastStat) > statPeriod {
				log.Printf("Blaster: %v Count: %d \tper/sec: %v\n", time.Now(), cnt, float64(cnt)/time.Now().Sub(lastStat).Seconds())
				cnt = 0
				lastStat = time.Now()
			}
		}
	}
}

// Given a time, return a Y value that will draw a sinusoid spanning span
func sinTime(t time.Time, span time.Duration) float64 {
	seconds := span.Nanoseconds() / 1e9
	x := 2 * math.Pi / float64(seconds) * float64(t.Unix()%seconds)
	return math.Sin(x)
}
