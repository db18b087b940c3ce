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

import "fmt"

type tokenKind int8

const (
	// tokenText is a run of literal text.
	// A text run never extends past a line ending.
	tokenText tokenKind = 1 + iota
	// tokenEscape is a backslash followed by escapable punctuation.
	tokenEscape
	// tokenLinkOpen is a "[".
	tokenLinkOpen
	// tokenImageOpen is a "![".
	tokenImageOpen
	// tokenClose is a "]".
	tokenClose
)

func (k tokenKind) String() string {
	switch k {
	case tokenText:
		return "text"
	case tokenEscape:
		return "escape"
	case tokenLinkOpen:
		return "["
	case tokenImageOpen:
		return "!["
	case tokenClose:
		return "]"
	default:
		return fmt.Sprintf("tokenKind(%d)", int8(k))
	}
}

type token struct {
	kind tokenKind
	span Span
}

// nextToken scans the token at the cursor's position
// without advancing the cursor.
// The cursor must not be at the end of its source.
func nextToken(c *Cursor) token {
	start := c.Offset()
	switch b, _ := c.Peek(0); b {
	case '[':
		return token{kind: tokenLinkOpen, span: Span{Start: start, End: start + 1}}
	case ']':
		return token{kind: tokenClose, span: Span{Start: start, End: start + 1}}
	case '!':
		if next, ok := c.Peek(1); ok && next == '[' {
			return token{kind: tokenImageOpen, span: Span{Start: start, End: start + 2}}
		}
	case '\\':
		if next, ok := c.Peek(1); ok && isEscapable(next) {
			return token{kind: tokenEscape, span: Span{Start: start, End: start + 2}}
		}
	}

	// Text run. The first byte is always consumed,
	// since it didn't start any other token.
	end := start + 1
	if c.Char(start) == '\n' || c.Char(start) == '\r' && (end >= c.Len() || c.Char(end) != '\n') {
		return token{kind: tokenText, span: Span{Start: start, End: end}}
	}
	for ; end < c.Len(); end++ {
		switch c.Char(end) {
		case '[', ']', '\\':
			return token{kind: tokenText, span: Span{Start: start, End: end}}
		case '!':
			if end+1 < c.Len() && c.Char(end+1) == '[' {
				return token{kind: tokenText, span: Span{Start: start, End: end}}
			}
		case '\n':
			return token{kind: tokenText, span: Span{Start: start, End: end + 1}}
		case '\r':
			if end+1 < c.Len() && c.Char(end+1) == '\n' {
				end++
			}
			return token{kind: tokenText, span: Span{Start: start, End: end + 1}}
		}
	}
	return token{kind: tokenText, span: Span{Start: start, End: end}}
}
