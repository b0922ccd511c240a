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

import "github.com/simplot/simplot/series"

// A key that receives no events between two ticks keeps its revision,
// and its downsampled view can be reused instead of recomputed. The
// LRU holds these views. It is only ever touched from the scheduler
// goroutine, so it needs no locking beyond the LRU's own.

type cachedView struct {
	rev uint64
	pts []series.Point
}

// downsampled returns the render point set for a key, reusing the
// cached view when the series has not changed since it was computed.
func (p *Pipeline) downsampled(key string, raw rawKey) []series.Point {
	if v, ok := p.viewCache.Get(key); ok {
		if cv := v.(*cachedView); cv.rev == raw.rev {
			p.cacheHits++
			return cv.pts
		}
	}
	p.cacheMisses++
	pts := series.Downsample(raw.pts, p.target)
	p.viewCache.Add(key, &cachedView{rev: raw.rev, pts: pts})
	return pts
}
