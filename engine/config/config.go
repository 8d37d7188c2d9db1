// Copyright 2020-2021 Dolthub, Inc.
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

// Package config loads the small set of environment knobs the engine reads
// (NO_NET, RAND_SEED, TZ) plus an optional YAML overlay file, the way the
// teacher's driver.Options is a plain struct populated by its caller.
package config

import (
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v2"
)

// Options is the engine's environment/config surface.
type Options struct {
	// NoNet disables any network-touching builtin (SERVICE, IRI
	// dereference) when true.
	NoNet bool `yaml:"no_net"`
	// RandSeed seeds RAND()/UUID()/STRUUID(); zero means "seed from
	// time.Now()".
	RandSeed int64 `yaml:"rand_seed"`
	// TZ is the IANA timezone name engine.NewContext gives the context's
	// frozen Now. NOW() still reports that instant in UTC, and dateTime
	// literals without an explicit offset are not read in it. Empty means
	// UTC.
	TZ string `yaml:"tz"`
	// MaxDifferences bounds the diff payload compare.Compare returns.
	MaxDifferences int `yaml:"max_differences"`
	// SoftMemoryCeilingBytes is consulted by the gcnotifier-based resource
	// guard in engine/exec; zero disables the soft ceiling.
	SoftMemoryCeilingBytes int64 `yaml:"soft_memory_ceiling_bytes"`
}

// DefaultOptions returns the engine's baseline configuration.
func DefaultOptions() Options {
	return Options{MaxDifferences: 10}
}

// FromEnv overlays NO_NET, RAND_SEED and TZ from the process environment
// onto opts, following spec §6.
func FromEnv(opts Options) Options {
	if v, ok := os.LookupEnv("NO_NET"); ok {
		b, err := strconv.ParseBool(v)
		if err == nil {
			opts.NoNet = b
		}
	}
	if v, ok := os.LookupEnv("RAND_SEED"); ok {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			opts.RandSeed = n
		}
	}
	if v, ok := os.LookupEnv("TZ"); ok {
		opts.TZ = v
	}
	return opts
}

// FromYAMLFile overlays opts with the contents of a YAML config file.
func FromYAMLFile(opts Options, path string) (Options, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return opts, err
	}
	if err := yaml.Unmarshal(data, &opts); err != nil {
		return opts, err
	}
	return opts, nil
}

// Location resolves the TZ option to a *time.Location, defaulting to UTC.
func (o Options) Location() *time.Location {
	if o.TZ == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(o.TZ)
	if err != nil {
		return time.UTC
	}
	return loc
}
