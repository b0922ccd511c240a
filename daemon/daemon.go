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

// Package daemon ties everything together: config, logging, the
// event bus, the producers and the pipeline, plus signal handling.
package daemon

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/simplot/simplot/blaster"
	"github.com/simplot/simplot/event"
	"github.com/simplot/simplot/pipeline"
	"github.com/simplot/simplot/procstat"
)

var (
	logFile    *os.File
	cycleLogCh      = make(chan int)
	quitting   bool = false
)

func savePid(pidPath string) {
	f, err := os.Create(pidPath)
	if err != nil {
		log.Fatalf("Unable to create pid file '%s': (%v)", pidPath, err)
	}
	fmt.Fprintf(f, "%d\n", os.Getpid())
	f.Close()
	log.Printf("Pid saved in %s.", pidPath)
}

// Periodically log the source-side diagnostics: how deep the publish
// queue is and how the published/aggregated counts compare.
var statusReporter = func(bus *event.Bus, p *pipeline.Pipeline, every time.Duration) {
	for {
		time.Sleep(every)
		if quitting {
			return
		}
		log.Printf("status: bus queue depth: %d, events published: %d, events aggregated: %d",
			bus.QueueDepth(), bus.TotalEvents(), p.TotalEvents())
	}
}

// Init runs the daemon until a SIGINT or SIGTERM. It returns the
// processed config so main can Finish with it, or nil if the config
// could not be read.
func Init(cfgPath string) *Config { // not to be confused with init()

	runtime.GOMAXPROCS(runtime.NumCPU())

	log.Printf("Simplot starting.")

	cfg, err := readConfig(cfgPath)
	if err != nil {
		log.Printf("Error reading config file %s: %v", cfgPath, err)
		return nil
	}

	wd, err := os.Getwd()
	if err != nil {
		log.Fatal(err)
	}

	if err := processConfig(configer(cfg), wd); err != nil { // This validates the config
		log.Fatalf("Error in config file %s: %v", cfgPath, err)
	}

	savePid(cfg.PidPath)

	// The bus is the sole event source, producers publish to it, the
	// pipeline subscribes to it.
	bus := event.NewBus()

	keys := append([]string(nil), cfg.Keys...)

	var prstat *procstat.Collector
	if cfg.ProcStat {
		prstat = procstat.New(bus, cfg.ProcStatInterval.Duration, "simplot")
		keys = append(keys, prstat.Keys()...)
		log.Printf("Process self-stats enabled (procstat).")
	}

	p := pipeline.New(bus, &logRenderer{every: 20}, pipeline.Config{
		Keys:             keys,
		RefreshInterval:  cfg.RefreshInterval.Duration,
		MaxPoints:        cfg.MaxPoints,
		DownsampleTarget: cfg.DownsampleTarget,
	})
	p.Start()

	var blstr *blaster.Blaster
	if cfg.BlastRate > 0 {
		if len(cfg.Keys) == 0 {
			log.Printf("blast-rate set but no keys configured, blaster not started.")
		} else {
			blstr = blaster.New(bus, cfg.Keys)
			blstr.SetRate(cfg.BlastRate)
		}
	}

	go statusReporter(bus, p, cfg.StatusInterval.Duration)

	log.Printf("Simplot running.")

	// Wait for a SIGINT or SIGTERM.
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	s := <-ch
	log.Printf("Got signal: %v", s)

	quitting = true

	// Teardown order matters: silence producers, stop the pipeline
	// (which stops its scheduler before releasing its subscription),
	// then close the bus.
	if blstr != nil {
		blstr.SetRate(0)
	}
	if prstat != nil {
		prstat.Stop()
	}
	p.Stop()
	bus.Close()

	return cfg
}

func Finish(cfg *Config) {
	log.Printf("main: Exiting.")

	// Close log
	log.SetOutput(os.Stderr)
	if logFile != nil {
		logFile.Close()
	}

	os.Remove(cfg.PidPath)
}
