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

// DefaultMaxNesting is the number of pending bracket openers
// an [InlineParser] allows when MaxNesting is zero.
const DefaultMaxNesting = 32

// An InlineParser resolves the brackets in a block's source
// into links, images, and link reference definitions.
type InlineParser struct {
	// References is consulted for reference links like [foo][bar].
	// If References is nil, reference links are left as text.
	References ReferenceLookup
	// MaxNesting is the maximum number of bracket openers
	// that may be waiting for a closer at once.
	// Openers past the limit are treated as text.
	// Zero means DefaultMaxNesting.
	MaxNesting int
}

// Rewrite replaces the inline children of root
// with the result of resolving root's source.
func (p *InlineParser) Rewrite(root *RootBlock) {
	root.inlines = p.Resolve(root.Source, root.StartOffset)
	root.resolved = true
}

// Resolve converts source into a list of inline nodes.
// base is the offset of source in its document.
// Resolve never fails: any bracket that does not form a link, image,
// or reference definition is returned as text.
func (p *InlineParser) Resolve(source []byte, base int64) []*Inline {
	r := &resolver{
		parser: p,
		source: source,
		cursor: NewCursor(source, base),
	}
	r.maxNesting = p.MaxNesting
	if r.maxNesting <= 0 {
		r.maxNesting = DefaultMaxNesting
	}
	for !r.cursor.AtEnd() {
		tok := nextToken(r.cursor)
		end := tok.span.End
		switch tok.kind {
		case tokenText:
			r.add(r.newNode(TextKind, tok.span))
		case tokenEscape:
			r.add(r.newNode(TextKind, Span{Start: tok.span.Start + 1, End: tok.span.End}))
		case tokenLinkOpen, tokenImageOpen:
			if r.openers >= r.maxNesting {
				r.add(r.newNode(TextKind, tok.span))
				break
			}
			kind := linkOpenKind
			if tok.kind == tokenImageOpen {
				kind = imageOpenKind
			}
			r.add(r.newNode(kind, tok.span))
			r.openers++
		case tokenClose:
			end = r.closeBracket(tok)
		}
		r.cursor.Advance(end - r.cursor.Offset())
	}
	return secondPass(r.nodes)
}

type resolver struct {
	parser     *InlineParser
	source     []byte
	cursor     *Cursor
	nodes      []*Inline
	openers    int
	maxNesting int
}

func (r *resolver) newNode(kind InlineKind, span Span) *Inline {
	line := r.cursor.Line(span.Start)
	return &Inline{
		kind:   kind,
		span:   span,
		line:   line,
		column: span.Start - r.cursor.LineStart(line),
	}
}

func (r *resolver) add(node *Inline) {
	r.nodes = append(r.nodes, node)
}

// closeBracket processes a "]" at the cursor's position.
// It returns the offset just past the source the closer consumed.
func (r *resolver) closeBracket(closer token) (end int) {
	openerIndex := r.lastOpener()
	if openerIndex < 0 {
		r.add(r.newNode(TextKind, closer.span))
		return closer.span.End
	}
	opener := r.nodes[openerIndex]
	contents := secondPass(r.nodes[openerIndex+1:])

	if opener.kind == imageOpenKind || !containsLink(contents) {
		for _, match := range []func(*Inline, []*Inline, token) (*Inline, bool){
			r.matchInline,
			r.matchDefinition,
			r.matchReference,
		} {
			if node, ok := match(opener, contents, closer); ok {
				r.splice(openerIndex, node)
				return node.span.End
			}
		}
	}

	// Degrade the opener so that no later closer can use it.
	r.nodes[openerIndex] = r.newNode(TextKind, opener.span)
	r.openers--
	r.add(r.newNode(TextKind, closer.span))
	return closer.span.End
}

// matchInline attempts to parse an inline link or image target
// like "(/uri "title")" immediately after the closer.
func (r *resolver) matchInline(opener *Inline, contents []*Inline, closer token) (*Inline, bool) {
	m, ok := r.cursor.Match(1, inlineTargetGrammar)
	if !ok {
		return nil, false
	}
	node := r.newNode(LinkKind, Span{Start: opener.span.Start, End: m.Span.End})
	if opener.kind == imageOpenKind {
		node.kind = ImageKind
	}
	node.children = contents
	r.setTarget(node, m)
	return node, true
}

// matchDefinition attempts to parse a link reference definition
// like "[foo]: /uri "title"".
func (r *resolver) matchDefinition(opener *Inline, contents []*Inline, closer token) (*Inline, bool) {
	if next, ok := r.cursor.Peek(1); !ok || next != ':' || !r.eligibleForDefinition(opener, closer) {
		return nil, false
	}
	m, ok := r.cursor.Match(1, definitionGrammar)
	if !ok {
		return nil, false
	}
	if rawURI(r.source, m) == "" && !m.Has(groupTitle) {
		return nil, false
	}
	name := NormalizeReferenceName(r.cursor.Text(opener.span.End, closer.span.Start))
	if name == "" {
		return nil, false
	}
	node := r.newNode(ReferenceDefinitionKind, Span{Start: opener.span.Start, End: m.Span.End})
	node.ref = name
	r.setTarget(node, m)
	return node, true
}

// matchReference attempts to find a definition for
// a full, collapsed, or shortcut reference link.
func (r *resolver) matchReference(opener *Inline, contents []*Inline, closer token) (*Inline, bool) {
	if r.parser.References == nil {
		return nil, false
	}
	label := r.cursor.Text(opener.span.End, closer.span.Start)
	end := closer.span.End
	if m, ok := r.cursor.Match(1, referenceLabelGrammar); ok {
		if explicit := m.Group(groupLabel); explicit.Len() > 0 {
			label = r.cursor.Text(explicit.Start, explicit.End)
		}
		end = m.Span.End
	}
	name := NormalizeReferenceName(label)
	if name == "" {
		return nil, false
	}
	def, ok := r.parser.References.LookupReference(name)
	if !ok {
		return nil, false
	}
	node := r.newNode(LinkKind, Span{Start: opener.span.Start, End: end})
	if opener.kind == imageOpenKind {
		node.kind = ImageKind
	}
	node.children = contents
	node.destination = def.Destination
	node.title = def.Title
	node.titleSet = def.TitlePresent
	return node, true
}

func (r *resolver) setTarget(node *Inline, m Match) {
	node.destination = NormalizeURI(rawURI(r.source, m))
	if m.Has(groupTitle) {
		node.title = NormalizeTitle(replaceNUL(spanSlice(r.source, m.Group(groupTitle))))
		node.titleSet = true
	}
}

func rawURI(source []byte, m Match) string {
	switch {
	case m.Has(groupAngleURI):
		return replaceNUL(spanSlice(source, m.Group(groupAngleURI)))
	case m.Has(groupBareURI):
		return replaceNUL(spanSlice(source, m.Group(groupBareURI)))
	default:
		return ""
	}
}

// eligibleForDefinition reports whether the bracket pair
// can be the label of a link reference definition:
// the opener must be a link opener
// preceded by no more than three spaces on its line,
// and the label must not contain an unescaped "[".
func (r *resolver) eligibleForDefinition(opener *Inline, closer token) bool {
	if opener.kind != linkOpenKind {
		return false
	}
	for i := opener.span.Start - 1; ; i-- {
		if i < 0 {
			break
		}
		c := r.cursor.Char(i)
		if c == '\n' || c == '\r' {
			break
		}
		if c != ' ' || opener.span.Start-i > 3 {
			return false
		}
	}
	for i := opener.span.End; i < closer.span.Start; i++ {
		if r.cursor.Char(i) == '[' && !r.precededByBackslashEscape(i) {
			return false
		}
	}
	return true
}

// precededByBackslashEscape reports whether
// the byte at i is preceded by an odd number of backslashes.
func (r *resolver) precededByBackslashEscape(i int) bool {
	n := 0
	for j := i - 1; j >= 0 && r.cursor.Char(j) == '\\'; j-- {
		n++
	}
	return n%2 == 1
}

func (r *resolver) lastOpener() int {
	if r.openers == 0 {
		return -1
	}
	for i := len(r.nodes) - 1; i >= 0; i-- {
		if r.nodes[i].kind.isOpener() {
			return i
		}
	}
	return -1
}

// splice replaces the opener at openerIndex and everything after it
// with a single resolved node.
func (r *resolver) splice(openerIndex int, node *Inline) {
	if !r.nodes[openerIndex].kind.isOpener() {
		panic("splice: index does not reference a bracket opener")
	}
	r.nodes = deleteInlineNodes(r.nodes, openerIndex, len(r.nodes))
	r.openers--
	if node.kind == ReferenceDefinitionKind {
		r.dropIndentation()
	}
	r.add(node)
}

// dropIndentation removes up to three spaces of indentation
// pending before a reference definition.
func (r *resolver) dropIndentation() {
	const maxIndent = 3
	if len(r.nodes) == 0 {
		return
	}
	last := r.nodes[len(r.nodes)-1]
	if last.kind != TextKind || last.span.Len() > maxIndent {
		return
	}
	for _, c := range spanSlice(r.source, last.span) {
		if !isSpace(c) {
			return
		}
	}
	r.nodes = deleteInlineNodes(r.nodes, len(r.nodes)-1, len(r.nodes))
}

// secondPass returns a copy of a range of pending nodes
// with any bracket openers that never found a closer
// converted to literal text.
func secondPass(nodes []*Inline) []*Inline {
	if len(nodes) == 0 {
		return nil
	}
	result := make([]*Inline, len(nodes))
	for i, n := range nodes {
		if n.kind.isOpener() {
			degraded := *n
			degraded.kind = TextKind
			n = &degraded
		}
		result[i] = n
	}
	return result
}

func deleteInlineNodes(slice []*Inline, i, j int) []*Inline {
	copy(slice[i:], slice[j:])
	newEnd := len(slice) - (j - i)
	clear := slice[newEnd:]
	for ci := range clear {
		clear[ci] = nil
	}
	return slice[:newEnd]
}
