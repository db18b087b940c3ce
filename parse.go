// Copyright 2023 Ross Light
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

// Package linkresolve resolves the brackets in Markdown-style inline text
// into links, images, and link reference definitions,
// following [CommonMark] link semantics.
//
// Text is split into blocks at blank lines.
// Reference definitions anywhere in a document
// are visible to reference links everywhere in the document,
// so resolution runs in two passes:
// the first collects definitions into a [ReferenceMap]
// and the second resolves every block against the finished map.
//
// [CommonMark]: https://spec.commonmark.org/0.30/#links
package linkresolve

import (
	"bytes"
	"fmt"
	"io"
)

// RootBlock is a run of non-blank lines in a document.
// All position information in the block's inline tree
// is relative to the beginning of Source.
type RootBlock struct {
	// Source is the block's text exactly as it appears in the document.
	// NUL bytes are replaced with U+FFFD only in resolved output.
	Source []byte
	// StartLine is the 1-based line number of the first line of the block.
	StartLine int
	// StartOffset is the byte offset of Source in the document.
	StartOffset int64
	// EndOffset is the byte offset just past Source in the document.
	EndOffset int64

	inlines  []*Inline
	resolved bool
}

// IsResolved reports whether an [InlineParser] has rewritten the block.
func (root *RootBlock) IsResolved() bool {
	return root != nil && root.resolved
}

// ChildCount returns the number of top-level inline nodes in the block.
// It is zero until the block has been resolved.
func (root *RootBlock) ChildCount() int {
	if root == nil {
		return 0
	}
	return len(root.inlines)
}

// Child returns the i'th top-level inline node.
func (root *RootBlock) Child(i int) *Inline {
	return root.inlines[i]
}

// Emit sends the block's resolved inline content to a sink.
func (root *RootBlock) Emit(sink Sink) {
	for _, c := range root.inlines {
		c.Emit(root.Source, sink)
	}
}

// Definitions returns the reference definition nodes in the block, in source order.
func (root *RootBlock) Definitions() []*Inline {
	var defs []*Inline
	for _, inline := range root.inlines {
		Walk(inline, &WalkOptions{
			Pre: func(c *WalkCursor) bool {
				if c.Node().Kind() == ReferenceDefinitionKind {
					defs = append(defs, c.Node())
					return false
				}
				return true
			},
		})
	}
	return defs
}

// Options is the set of parameters to [ResolveDocument].
type Options struct {
	// MaxNesting is passed to [InlineParser].
	MaxNesting int
	// Predefined holds definitions available to every block.
	// Definitions in the document take precedence.
	Predefined ReferenceMap
	// If WrapLookup is not nil, it is called with the document's complete
	// reference map before the second pass
	// and the returned lookup is used to resolve reference links.
	WrapLookup func(ReferenceMap) ReferenceLookup
}

// Parse splits source into blocks and resolves them.
// It returns the blocks along with the document's reference definitions.
func Parse(source []byte) ([]*RootBlock, ReferenceMap) {
	p := &BlockParser{
		buf: source,
		err: io.EOF,
	}
	var blocks []*RootBlock
	for {
		block, err := p.NextBlock()
		if err == io.EOF {
			break
		}
		if err != nil {
			panic(err)
		}
		blocks = append(blocks, block)
	}
	return blocks, ResolveDocument(blocks, nil)
}

// ResolveDocument resolves all of a document's blocks in two passes.
// The first pass collects reference definitions from every block
// and the second resolves each block against the complete set.
// The returned map is the set of definitions used in the second pass.
func ResolveDocument(blocks []*RootBlock, opts *Options) ReferenceMap {
	if opts == nil {
		opts = new(Options)
	}
	refMap := make(ReferenceMap)
	collector := &InlineParser{MaxNesting: opts.MaxNesting}
	for _, b := range blocks {
		collector.Rewrite(b)
		refMap.Extract(b)
	}
	refMap.Merge(opts.Predefined)

	resolver := &InlineParser{
		References: refMap,
		MaxNesting: opts.MaxNesting,
	}
	if opts.WrapLookup != nil {
		resolver.References = opts.WrapLookup(refMap)
	}
	for _, b := range blocks {
		resolver.Rewrite(b)
	}
	return refMap
}

// A BlockParser splits a stream of text into blocks separated by blank lines.
type BlockParser struct {
	buf      []byte // current block being parsed
	offset   int64  // offset from beginning of stream to beginning of buf
	parsePos int    // parse position within buf
	lineno   int    // line number of parse position

	r   io.Reader
	err error // non-nil indicates there is no more data after end of buf
}

// NewBlockParser returns a block parser that reads from r.
func NewBlockParser(r io.Reader) *BlockParser {
	return &BlockParser{
		r: r,
	}
}

// NextBlock reads the next block from the stream.
// The block is not resolved.
// NextBlock returns io.EOF after the last block.
func (p *BlockParser) NextBlock() (*RootBlock, error) {
	// Keep going until we encounter a non-blank line.
	for {
		line := p.readline()
		if len(line) == 0 {
			return nil, p.err
		}
		if !isBlankLine(line) {
			p.parsePos -= len(line)
			p.lineno--
			break
		}
		p.consume()
	}

	root := &RootBlock{
		StartLine:   p.lineno + 1,
		StartOffset: p.offset,
	}
	for {
		lineStart := p.parsePos
		line := p.readline()
		if len(line) == 0 {
			break
		}
		if isBlankLine(line) {
			// Leave the blank line for the next call.
			p.parsePos = lineStart
			p.lineno--
			break
		}
	}
	root.Source = p.consume()
	root.EndOffset = root.StartOffset + int64(len(root.Source))
	if len(root.Source) == 0 && p.err != nil && p.err != io.EOF {
		return nil, p.err
	}
	return root, nil
}

// readline reads the next line of input, growing p.buf as necessary.
// It will return a zero-length slice if and only if it has reached the end of input.
// After calling readline, p.lineno will contain the current line's number.
func (p *BlockParser) readline() []byte {
	const (
		chunkSize    = 8 * 1024
		maxBlockSize = 1024 * 1024
	)

	eolEnd := -1
	for {
		// Check if we have a line ending available.
		if i := bytes.IndexAny(p.buf[p.parsePos:], "\r\n"); i >= 0 {
			eolStart := p.parsePos + i
			if p.buf[eolStart] == '\n' {
				eolEnd = eolStart + 1
				break
			}
			if eolStart+1 < len(p.buf) {
				// Carriage return with enough buffer for 1 byte lookahead.
				eolEnd = eolStart + 1
				if p.buf[eolEnd] == '\n' {
					eolEnd++
				}
				break
			}
			if p.err != nil {
				// Carriage return right before EOF.
				eolEnd = len(p.buf)
				break
			}
		}

		// If we don't have any more line ending available,
		// but we're at EOF, return everything we have.
		if p.err != nil {
			eolEnd = len(p.buf)
			break
		}

		// If we're already at the maximum block size,
		// then drop the line and pretend it's an EOF.
		if len(p.buf) >= maxBlockSize {
			p.lineno++
			p.buf = p.buf[:p.parsePos]
			p.err = fmt.Errorf("line %d: block too large", p.lineno)
			return nil
		}

		// Grab more data from the reader.
		newSize := len(p.buf) + chunkSize
		if newSize > maxBlockSize {
			newSize = maxBlockSize
		}
		if cap(p.buf) < newSize {
			newbuf := make([]byte, len(p.buf), newSize)
			copy(newbuf, p.buf)
			p.buf = newbuf
		}
		var n int
		n, p.err = p.r.Read(p.buf[len(p.buf):newSize])
		p.buf = p.buf[:len(p.buf)+n]
	}

	line := p.buf[p.parsePos:eolEnd]
	p.parsePos = eolEnd
	p.lineno++
	return line
}

func (p *BlockParser) consume() []byte {
	out := p.buf[:p.parsePos:p.parsePos]
	p.offset += int64(p.parsePos)
	p.buf = p.buf[p.parsePos:]
	p.parsePos = 0
	return out
}

// replaceNUL returns b as a string
// with any NUL bytes replaced by the Unicode replacement character.
func replaceNUL(b []byte) string {
	if bytes.IndexByte(b, 0) < 0 {
		return string(b)
	}
	return string(bytes.ReplaceAll(b, []byte{0}, []byte("\ufffd")))
}

func isBlankLine(line []byte) bool {
	for _, b := range line {
		if !(b == '\r' || b == '\n' || b == ' ' || b == '\t') {
			return false
		}
	}
	return true
}
