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

// Capture groups set by the link target grammars.
const (
	groupAngleURI = iota
	groupBareURI
	groupTitle
	groupLabel

	groupCount
)

// maxLabelLength is the maximum number of bytes
// between the brackets of an explicit reference label.
const maxLabelLength = 1000

// maxURIParenDepth bounds nesting of parentheses in a bare URI.
const maxURIParenDepth = 32

// inlineTargetGrammar matches the parenthesized target of an [inline link]:
//
//	( ws? URI? (ws Title)? ws? )
//
// [inline link]: https://spec.commonmark.org/0.30/#inline-link
func inlineTargetGrammar(source []byte, start int) (Match, bool) {
	if start >= len(source) || source[start] != '(' {
		return Match{}, false
	}
	m := newMatch(start, -1, groupCount)
	i := skipSpaceLine(source, start+1)
	wsStart := start + 1
	if i < len(source) && source[i] != ')' {
		if uri, end, ok := parseURI(source, i); ok {
			m.setGroup(uriGroup(source, i), uri)
			i = end
			wsStart = end
		}
	}
	if j := skipSpaceLine(source, i); j > wsStart && j < len(source) && isTitleStart(source[j]) {
		if title, end, ok := parseTitle(source, j); ok {
			m.setGroup(groupTitle, title)
			i = end
		}
	}
	i = skipSpaceLine(source, i)
	if i >= len(source) || source[i] != ')' {
		return Match{}, false
	}
	m.Span.End = i + 1
	return m, true
}

// definitionGrammar matches the part of a [link reference definition]
// that follows the label:
//
//	: ws? URI? (ws Title)? blank-rest-of-line
//
// The match includes the line ending that terminates the definition.
// A title followed by more text on its line is not part of the match;
// in that case the definition is matched without a title
// if the title started on a new line.
//
// [link reference definition]: https://spec.commonmark.org/0.30/#link-reference-definition
func definitionGrammar(source []byte, start int) (Match, bool) {
	if start >= len(source) || source[start] != ':' {
		return Match{}, false
	}
	m := newMatch(start, -1, groupCount)
	i := skipSpaceLine(source, start+1)
	wsStart := start + 1
	if i < len(source) {
		if uri, end, ok := parseURI(source, i); ok {
			m.setGroup(uriGroup(source, i), uri)
			i = end
			wsStart = end
		}
	}
	if j := skipSpaceLine(source, i); j > wsStart && j < len(source) && isTitleStart(source[j]) {
		if title, end, ok := parseTitle(source, j); ok {
			if lineEnd, ok := restOfLineBlank(source, end); ok {
				m.setGroup(groupTitle, title)
				m.Span.End = lineEnd
				return m, true
			}
		}
	}
	lineEnd, ok := restOfLineBlank(source, i)
	if !ok {
		return Match{}, false
	}
	m.Span.End = lineEnd
	return m, true
}

// referenceLabelGrammar matches an explicit [link label]
// following a closing bracket, optionally preceded by spaces or tabs.
// The label must start on the closer's line,
// since a bracket at the start of the next line may begin a definition.
// The label may be empty, as in a collapsed reference.
//
// [link label]: https://spec.commonmark.org/0.30/#link-label
func referenceLabelGrammar(source []byte, start int) (Match, bool) {
	i := skipBlanks(source, start)
	if i >= len(source) || source[i] != '[' {
		return Match{}, false
	}
	labelStart := i + 1
	for j := labelStart; j < len(source) && j-labelStart <= maxLabelLength; j++ {
		switch source[j] {
		case '\\':
			if j+1 < len(source) && isEscapable(source[j+1]) {
				j++
			}
		case '[':
			return Match{}, false
		case ']':
			m := newMatch(start, j+1, groupCount)
			m.setGroup(groupLabel, Span{Start: labelStart, End: j})
			return m, true
		}
	}
	return Match{}, false
}

func uriGroup(source []byte, start int) int {
	if source[start] == '<' {
		return groupAngleURI
	}
	return groupBareURI
}

// parseURI parses a [link destination] at source[start:],
// returning the span of the destination's raw text
// and the offset just past the destination.
//
// [link destination]: https://spec.commonmark.org/0.30/#link-destination
func parseURI(source []byte, start int) (uri Span, end int, ok bool) {
	if source[start] == '<' {
		for j := start + 1; j < len(source); j++ {
			switch source[j] {
			case '\\':
				if j+1 >= len(source) || !isEscapable(source[j+1]) {
					return NullSpan(), -1, false
				}
				j++
			case '<', '\n', '\r':
				return NullSpan(), -1, false
			case '>':
				return Span{Start: start + 1, End: j}, j + 1, true
			}
		}
		return NullSpan(), -1, false
	}

	depth := 0
	j := start
loop:
	for ; j < len(source); j++ {
		c := source[j]
		switch {
		case c == '\\':
			if j+1 < len(source) && isEscapable(source[j+1]) {
				j++
			}
		case c == '(':
			depth++
			if depth > maxURIParenDepth {
				return NullSpan(), -1, false
			}
		case c == ')':
			if depth == 0 {
				break loop
			}
			depth--
		case isSpace(c) || c == 0x7f || (c < 0x20 && c != 0):
			// NUL is output as U+FFFD.
			break loop
		}
	}
	if j == start || depth != 0 {
		return NullSpan(), -1, false
	}
	return Span{Start: start, End: j}, j, true
}

func isTitleStart(c byte) bool {
	return c == '"' || c == '\'' || c == '('
}

// parseTitle parses a [link title] at source[start:],
// returning the span between the delimiters
// and the offset just past the closing delimiter.
//
// [link title]: https://spec.commonmark.org/0.30/#link-title
func parseTitle(source []byte, start int) (title Span, end int, ok bool) {
	closer := source[start]
	if closer == '(' {
		closer = ')'
	}
	for j := start + 1; j < len(source); j++ {
		switch c := source[j]; {
		case c == '\\' && j+1 < len(source) && isEscapable(source[j+1]):
			j++
		case c == closer:
			return Span{Start: start + 1, End: j}, j + 1, true
		}
	}
	return NullSpan(), -1, false
}

// skipSpaceLine skips spaces and tabs, including up to one line ending.
func skipSpaceLine(source []byte, i int) int {
	sawNewline := false
	for i < len(source) {
		switch source[i] {
		case ' ', '\t', '\f', '\v':
			i++
		case '\r':
			if sawNewline {
				return i
			}
			sawNewline = true
			i++
			if i < len(source) && source[i] == '\n' {
				i++
			}
		case '\n':
			if sawNewline {
				return i
			}
			sawNewline = true
			i++
		default:
			return i
		}
	}
	return i
}

// skipBlanks returns the offset of the first byte at or after i
// that is not a space or tab.
func skipBlanks(source []byte, i int) int {
	for i < len(source) && (source[i] == ' ' || source[i] == '\t') {
		i++
	}
	return i
}

// restOfLineBlank reports whether source[i:] is blank up to the next line ending
// and returns the offset just past that line ending.
func restOfLineBlank(source []byte, i int) (end int, ok bool) {
	i = skipBlanks(source, i)
	switch {
	case i >= len(source):
		return i, true
	case source[i] == '\n':
		return i + 1, true
	case source[i] == '\r':
		if i+1 < len(source) && source[i+1] == '\n' {
			return i + 2, true
		}
		return i + 1, true
	default:
		return -1, false
	}
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f' || c == '\v'
}
