// Copyright 2024 Ross Light
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//		 https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0

package linkresolve

import (
	"fmt"
	"sort"
)

// A Cursor is a position in a block's source text.
// Unlike the tokens it produces, a Cursor can look ahead
// past line endings into the rest of the block.
//
// Offsets passed to [*Cursor.Char] and [*Cursor.Text]
// and returned by [*Cursor.Offset]
// are relative to the start of the block's source.
type Cursor struct {
	source     []byte
	base       int64
	pos        int
	lineStarts []int
}

// NewCursor returns a cursor at the beginning of source.
// base is the offset of source in the enclosing document,
// which is used by [*Cursor.ToCursorOffset].
func NewCursor(source []byte, base int64) *Cursor {
	c := &Cursor{
		source:     source,
		base:       base,
		lineStarts: []int{0},
	}
	for i, b := range source {
		switch {
		case b == '\n':
			c.lineStarts = append(c.lineStarts, i+1)
		case b == '\r' && (i+1 >= len(source) || source[i+1] != '\n'):
			c.lineStarts = append(c.lineStarts, i+1)
		}
	}
	return c
}

// Offset returns the cursor's current position.
func (c *Cursor) Offset() int {
	return c.pos
}

// Len returns the length of the source.
func (c *Cursor) Len() int {
	return len(c.source)
}

// AtEnd reports whether the cursor has consumed all of its source.
func (c *Cursor) AtEnd() bool {
	return c.pos >= len(c.source)
}

// Peek returns the byte at the given offset relative to the current position.
// ok is false if the offset is outside the source.
func (c *Cursor) Peek(offset int) (b byte, ok bool) {
	i := c.pos + offset
	if i < 0 || i >= len(c.source) {
		return 0, false
	}
	return c.source[i], true
}

// Char returns the byte at the given source offset.
func (c *Cursor) Char(i int) byte {
	return c.source[i]
}

// Text returns the source text between the two source offsets.
// NUL bytes are replaced with U+FFFD.
func (c *Cursor) Text(start, end int) string {
	return replaceNUL(c.source[start:end])
}

// Advance moves the cursor forward n bytes.
// It panics if the cursor would move outside the source.
func (c *Cursor) Advance(n int) {
	if n < 0 || c.pos+n > len(c.source) {
		panic(fmt.Sprintf("cursor advance %d from %d out of range [0,%d]", n, c.pos, len(c.source)))
	}
	c.pos += n
}

// ToCursorOffset converts an offset in the enclosing document
// into a source offset.
func (c *Cursor) ToCursorOffset(absolute int64) int {
	return int(absolute - c.base)
}

// AbsoluteOffset converts a source offset
// into an offset in the enclosing document.
func (c *Cursor) AbsoluteOffset(i int) int64 {
	return c.base + int64(i)
}

// Line returns the 0-based line number within the source
// that contains the given source offset.
func (c *Cursor) Line(i int) int {
	return sort.SearchInts(c.lineStarts, i+1) - 1
}

// LineStart returns the source offset of the start of the given line.
func (c *Cursor) LineStart(line int) int {
	return c.lineStarts[line]
}

// Match runs a grammar on the source
// starting at the given offset relative to the current position.
// The grammar may match past line endings.
// It returns a zero Match with ok false if the grammar does not match
// or the offset is past the end of the source.
func (c *Cursor) Match(offset int, g Grammar) (m Match, ok bool) {
	start := c.pos + offset
	if start < 0 || start > len(c.source) {
		return Match{}, false
	}
	return g(c.source, start)
}

// A Grammar is a lookahead matcher.
// It attempts to match source starting at start
// and reports whether it matched.
// Group spans in the returned [Match] are source offsets.
type Grammar func(source []byte, start int) (m Match, ok bool)

// Match is the result of a successful [Grammar] match.
type Match struct {
	Span   Span
	groups []Span
}

func newMatch(start, end int, ngroups int) Match {
	m := Match{
		Span:   Span{Start: start, End: end},
		groups: make([]Span, ngroups),
	}
	for i := range m.groups {
		m.groups[i] = NullSpan()
	}
	return m
}

// Has reports whether the i'th capture group participated in the match.
func (m Match) Has(i int) bool {
	return i >= 0 && i < len(m.groups) && m.groups[i].IsValid()
}

// Group returns the span of the i'th capture group.
// Group panics if the group did not participate in the match:
// callers must only ask for groups that the grammar guarantees.
func (m Match) Group(i int) Span {
	if !m.Has(i) {
		panic(fmt.Sprintf("match %v: capture group %d missing", m.Span, i))
	}
	return m.groups[i]
}

func (m *Match) setGroup(i int, span Span) {
	m.groups[i] = span
}

// Span is a contiguous range of a block's source.
type Span struct {
	Start int
	End   int
}

// NullSpan returns an invalid span.
func NullSpan() Span {
	return Span{Start: -1, End: -1}
}

// IsValid reports whether the span has non-negative bounds
// and its start does not come after its end.
func (span Span) IsValid() bool {
	return span.Start >= 0 && span.End >= 0 && span.Start <= span.End
}

// Len returns the length of the span or zero if the span is invalid.
func (span Span) Len() int {
	if !span.IsValid() {
		return 0
	}
	return span.End - span.Start
}

// String formats the span as a half-open interval.
func (span Span) String() string {
	return fmt.Sprintf("[%d,%d)", span.Start, span.End)
}

func spanSlice(b []byte, span Span) []byte {
	if !span.IsValid() {
		return nil
	}
	return b[span.Start:span.End]
}
