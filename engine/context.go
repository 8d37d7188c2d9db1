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

// Package engine is the low-level execution context every rowsource is
// threaded through, the way the teacher threads *sql.Context through
// RowIter.Next(ctx)/Close(ctx). It intentionally holds no knowledge of
// rowsource or algebra (that driving logic lives in engine/exec) so that
// rowsource can import this package for the Context type without creating
// an import cycle.
package engine

import (
	"context"
	"math/rand"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sparqlgo/engine/engine/config"
)

// Context carries everything a rowsource or expression evaluation needs
// that isn't part of the row/variables data itself: cancellation, a
// logger, the query's frozen "now" instant, its PRNG, and the resolved
// config options (§6).
type Context struct {
	context.Context
	Logger *logrus.Entry
	Rand   *rand.Rand
	Now    time.Time
	Opts   config.Options
}

// NewContext builds a root Context. A zero RandSeed in opts seeds the PRNG
// from time.Now(), matching spec §6's RAND_SEED default.
func NewContext(parent context.Context, opts config.Options) *Context {
	seed := opts.RandSeed
	now := time.Now().In(opts.Location())
	if seed == 0 {
		seed = now.UnixNano()
	}
	logger := logrus.New()
	return &Context{
		Context: parent,
		Logger:  logger.WithField("component", "engine"),
		Rand:    rand.New(rand.NewSource(seed)),
		Now:     now,
		Opts:    opts,
	}
}

// WithLogger returns a shallow copy of ctx with a replaced logger entry,
// the way the teacher's sql.Context exposes WithLogger for per-component
// log fields.
func (c *Context) WithLogger(e *logrus.Entry) *Context {
	cp := *c
	cp.Logger = e
	return &cp
}
