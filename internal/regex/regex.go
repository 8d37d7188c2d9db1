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

// Package regex compiles XPath-flavored regular expressions (the REGEX()
// and REPLACE() functions' pattern/flags arguments) against Go's RE2 engine.
// The teacher keeps a pluggable registry of regex engines (oniguruma, go);
// this package keeps the same Compile-once, cache-by-(pattern,flags) shape
// but with a single backing engine, since RE2 already covers everything
// REGEX()/REPLACE() need.
package regex

import (
	"regexp"
	"strings"
	"sync"
)

// Matcher is a compiled pattern, reused across rows.
type Matcher struct {
	re *regexp.Regexp
}

func (m *Matcher) MatchString(s string) bool { return m.re.MatchString(s) }

func (m *Matcher) ReplaceAllString(s, repl string) string {
	return m.re.ReplaceAllString(s, repl)
}

var (
	cacheMu sync.Mutex
	cache   = map[string]*Matcher{}
)

// Compile translates an XPath-style pattern/flags pair into a Matcher,
// caching by the (pattern, flags) pair since the same literal pattern is
// typically re-evaluated once per row.
func Compile(pattern, flags string) (*Matcher, error) {
	key := flags + "\x00" + pattern
	cacheMu.Lock()
	if m, ok := cache[key]; ok {
		cacheMu.Unlock()
		return m, nil
	}
	cacheMu.Unlock()

	re, err := regexp.Compile(translate(pattern, flags))
	if err != nil {
		return nil, err
	}
	m := &Matcher{re: re}

	cacheMu.Lock()
	cache[key] = m
	cacheMu.Unlock()
	return m, nil
}

// translate maps XPath flags (i, s, m, x) onto RE2 inline flags. RE2 has no
// native "x" (extended/free-spacing) mode, so x is approximated by
// stripping unescaped whitespace and '#'-led comments before compiling,
// which covers the common case of a pattern authored for readability.
func translate(pattern, flags string) string {
	var inline strings.Builder
	extended := false
	for _, f := range flags {
		switch f {
		case 'i':
			inline.WriteByte('i')
		case 's':
			inline.WriteByte('s')
		case 'm':
			inline.WriteByte('m')
		case 'x':
			extended = true
		}
	}
	if extended {
		pattern = stripFreeSpacing(pattern)
	}
	if inline.Len() == 0 {
		return pattern
	}
	return "(?" + inline.String() + ")" + pattern
}

func stripFreeSpacing(pattern string) string {
	var b strings.Builder
	inClass := false
	escaped := false
	for i := 0; i < len(pattern); i++ {
		c := pattern[i]
		switch {
		case escaped:
			b.WriteByte('\\')
			b.WriteByte(c)
			escaped = false
		case c == '\\':
			escaped = true
		case c == '[':
			inClass = true
			b.WriteByte(c)
		case c == ']':
			inClass = false
			b.WriteByte(c)
		case !inClass && c == '#':
			for i < len(pattern) && pattern[i] != '\n' {
				i++
			}
		case !inClass && (c == ' ' || c == '\t' || c == '\n' || c == '\r'):
			// dropped
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}
