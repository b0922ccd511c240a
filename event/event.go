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

// Package event defines the boundary between producers of variable
// change events (a simulation engine, a synthetic blaster, the process
// itself) and the consumers which aggregate them. The Bus is an
// in-process fan-out source; consumers register with Subscribe and
// receive ordered batches via ProcessEventBatch.
package event

// VariableEvent describes one change of one simulation variable. This
// is the form in which input data is expected, it is easy to convert
// to from most any event representation out there. Events are not
// modified once constructed.
type VariableEvent struct {
	Key       string  // identifier of the monitored quantity
	TimeStamp float64 // simulation time units, non-decreasing per key
	Value     float64
	Type      string // producer-specific tag, e.g. "change"
}

// Batch is an ordered list of events. The order within a batch is
// significant, it is the chronological order in which the changes
// happened.
type Batch []VariableEvent

// Consumer is the receiving end of the ingestion boundary. A consumer
// must be prepared to be called from the source's dispatcher
// goroutine, not from the producer that published the batch.
type Consumer interface {
	ProcessEventBatch(Batch)
}
