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

package daemon

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/simplot/simplot/pipeline"
)

type Config struct { // Needs to be exported for TOML to work
	PidPath          string   `toml:"pid-file"`
	LogPath          string   `toml:"log-file"`
	LogCycle         duration `toml:"log-cycle-interval"`
	Keys             []string `toml:"keys"`
	RefreshInterval  duration `toml:"refresh-interval"`
	MaxPoints        int      `toml:"max-points"`
	DownsampleTarget int      `toml:"downsample-target"`
	BlastRate        int      `toml:"blast-rate"`
	ProcStat         bool     `toml:"procstat"`
	ProcStatInterval duration `toml:"procstat-interval"`
	StatusInterval   duration `toml:"status-interval"`
}

type duration struct{ time.Duration }

func (d *duration) UnmarshalText(text []byte) (err error) {
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

var readConfig = func(cfgPath string) (*Config, error) {
	cfg := &Config{}
	_, err := toml.DecodeFile(cfgPath, cfg)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) processConfigPidFile(wd string) error {
	if c.PidPath == "" {
		return fmt.Errorf("pid-file setting empty")
	}
	if !filepath.IsAbs(c.PidPath) {
		if wd == "" {
			return fmt.Errorf("pid-file must be absolute path if working directory cannot be determined")
		}
		c.PidPath = filepath.Join(wd, c.PidPath)
	}
	pidDir, _ := filepath.Split(c.PidPath)
	if err := os.MkdirAll(pidDir, 0755); err != nil {
		return fmt.Errorf("Unable to create directory: '%s' (%v).", pidDir, err)
	}
	return nil
}

func (c *Config) processConfigLogFile(wd string) error {
	if os.Getenv("SIMPLOT_LOG") != "" {
		c.LogPath = os.Getenv("SIMPLOT_LOG")
	}
	if c.LogPath == "" {
		return fmt.Errorf("log-file setting empty")
	}
	if !filepath.IsAbs(c.LogPath) {
		if wd == "" {
			return fmt.Errorf("log-file must be absolute path if working directory cannot be determined")
		}
		c.LogPath = filepath.Join(wd, c.LogPath)
	}
	logDir, _ := filepath.Split(c.LogPath)
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return fmt.Errorf("Unable to create directory: '%s' (%v).", logDir, err)
	}

	log.Printf("Logs will be written to '%s'.", c.LogPath)
	return nil
}

func (c *Config) processConfigLogCycleInterval() error {
	if c.LogCycle.Duration == 0 {
		return fmt.Errorf("log-cycle-interval setting empty")
	}
	log.Printf("Will cycle logs every %v (log-cycle-interval).", c.LogCycle.Duration)

	logDir, _ := filepath.Split(c.LogPath)
	log.Printf("All further status messages will be written to log file(s) in '%s'.", logDir)
	logFileCycler(c.LogPath, c.LogCycle.Duration)
	log.Print("Server starting.")

	return nil
}

func (c *Config) processKeys() error {
	if len(c.Keys) == 0 && !c.ProcStat {
		return fmt.Errorf("keys is empty and procstat is off, nothing to monitor")
	}
	log.Printf("Monitoring %d configured keys.", len(c.Keys))
	return nil
}

func (c *Config) processRefreshInterval() error {
	if c.RefreshInterval.Duration == 0 {
		log.Printf("refresh-interval unspecified, defaulting to %v.", pipeline.DftRefresh)
		c.RefreshInterval.Duration = pipeline.DftRefresh
	}
	if c.RefreshInterval.Duration < pipeline.MinRefresh {
		log.Printf("refresh-interval %v too small, clamping to %v.", c.RefreshInterval.Duration, pipeline.MinRefresh)
		c.RefreshInterval.Duration = pipeline.MinRefresh
	}
	if c.RefreshInterval.Duration > pipeline.MaxRefresh {
		log.Printf("refresh-interval %v too large, clamping to %v.", c.RefreshInterval.Duration, pipeline.MaxRefresh)
		c.RefreshInterval.Duration = pipeline.MaxRefresh
	}
	log.Printf("Snapshots will be rendered at most every %v (refresh-interval).", c.RefreshInterval.Duration)
	return nil
}

func (c *Config) processMaxPoints() error {
	if c.MaxPoints == 0 {
		log.Printf("max-points unspecified, defaulting to 1000.")
		c.MaxPoints = 1000
	} else if c.MaxPoints < 0 {
		return fmt.Errorf("max-points must be positive, got %d", c.MaxPoints)
	}
	log.Printf("Retaining up to %d points per key (max-points).", c.MaxPoints)
	return nil
}

func (c *Config) processDownsampleTarget() error {
	if c.DownsampleTarget == 0 {
		log.Printf("downsample-target unspecified, defaulting to 500.")
		c.DownsampleTarget = 500
	} else if c.DownsampleTarget < 0 {
		return fmt.Errorf("downsample-target must be positive, got %d", c.DownsampleTarget)
	}
	log.Printf("Downsampling render series to ~%d points (downsample-target).", c.DownsampleTarget)
	return nil
}

func (c *Config) processStatusInterval() error {
	if c.StatusInterval.Duration == 0 {
		c.StatusInterval.Duration = 30 * time.Second
	}
	log.Printf("Source status will be logged every %v (status-interval).", c.StatusInterval.Duration)
	return nil
}

type configer interface {
	processConfigPidFile(string) error
	processConfigLogFile(string) error
	processConfigLogCycleInterval() error
	processKeys() error
	processRefreshInterval() error
	processMaxPoints() error
	processDownsampleTarget() error
	processStatusInterval() error
}

var processConfig = func(c configer, wd string) error {

	if err := c.processConfigPidFile(wd); err != nil {
		return err
	}
	if err := c.processConfigLogFile(wd); err != nil {
		return err
	}
	if err := c.processConfigLogCycleInterval(); err != nil {
		return err
	}
	if err := c.processKeys(); err != nil {
		return err
	}
	if err := c.processRefreshInterval(); err != nil {
		return err
	}
	if err := c.processMaxPoints(); err != nil {
		return err
	}
	if err := c.processDownsampleTarget(); err != nil {
		return err
	}
	if err := c.processStatusInterval(); err != nil {
		return err
	}
	return nil
}
