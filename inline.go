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
	"strings"
)

// Inline is a resolved inline element: literal text, a link, an image,
// or a link reference definition.
type Inline struct {
	kind     InlineKind
	span     Span
	line     int
	column   int
	children []*Inline

	destination string
	title       string
	titleSet    bool
	ref         string
}

// Kind returns the type of inline node
// or zero if the node is nil.
func (inline *Inline) Kind() InlineKind {
	if inline == nil {
		return 0
	}
	return inline.kind
}

// Span returns the position information relative to [RootBlock.Source].
// Calling Span on nil returns an invalid span.
func (inline *Inline) Span() Span {
	if inline == nil {
		return NullSpan()
	}
	return inline.span
}

// Line returns the 0-based line within [RootBlock.Source]
// on which the node starts,
// or -1 if the node is nil.
func (inline *Inline) Line() int {
	if inline == nil {
		return -1
	}
	return inline.line
}

// Column returns the byte offset of the node's start
// from the beginning of its line,
// or -1 if the node is nil.
func (inline *Inline) Column() int {
	if inline == nil {
		return -1
	}
	return inline.column
}

// ChildCount returns the number of children the node has.
// Calling ChildCount on nil returns 0.
func (inline *Inline) ChildCount() int {
	if inline == nil {
		return 0
	}
	return len(inline.children)
}

// Child returns the i'th child of the node.
func (inline *Inline) Child(i int) *Inline {
	return inline.children[i]
}

// Destination returns the normalized URI
// of a [LinkKind], [ImageKind], or [ReferenceDefinitionKind] node.
func (inline *Inline) Destination() string {
	if inline == nil {
		return ""
	}
	return inline.destination
}

// Title returns the normalized title
// of a [LinkKind], [ImageKind], or [ReferenceDefinitionKind] node.
func (inline *Inline) Title() (title string, present bool) {
	if inline == nil {
		return "", false
	}
	return inline.title, inline.titleSet
}

// ReferenceName returns the normalized name
// defined by a [ReferenceDefinitionKind] node.
func (inline *Inline) ReferenceName() string {
	if inline.Kind() != ReferenceDefinitionKind {
		return ""
	}
	return inline.ref
}

// Text returns the plain text of the node:
// the literal characters of a [TextKind] node
// or the concatenated text of a link's or image's descendants.
func (inline *Inline) Text(source []byte) string {
	switch inline.Kind() {
	case TextKind:
		return replaceNUL(spanSlice(source, inline.span))
	case LinkKind, ImageKind:
		sb := new(strings.Builder)
		sb.Grow(inline.span.Len())
		inline.appendText(sb, source)
		return sb.String()
	default:
		return ""
	}
}

func (inline *Inline) appendText(sb *strings.Builder, source []byte) {
	for _, c := range inline.children {
		switch c.Kind() {
		case TextKind:
			sb.WriteString(replaceNUL(spanSlice(source, c.span)))
		case LinkKind, ImageKind:
			c.appendText(sb, source)
		}
	}
}

// ContainsLink reports whether the node is a link
// or has a link anywhere among its descendants.
func (inline *Inline) ContainsLink() bool {
	if inline.Kind() == LinkKind {
		return true
	}
	return containsLink(inline.Children())
}

// Children returns the node's children.
func (inline *Inline) Children() []*Inline {
	if inline == nil {
		return nil
	}
	return inline.children
}

func containsLink(list []*Inline) bool {
	for _, c := range list {
		if c.ContainsLink() {
			return true
		}
	}
	return false
}

// Emit sends the node to a sink.
// Text nodes produce exactly one call to [Sink.Characters].
// Links bracket their children with [Sink.BeginLink] and [Sink.EndLink].
// Images produce one call to [Sink.Image] with their plain text as alt text.
// Reference definitions produce nothing.
func (inline *Inline) Emit(source []byte, sink Sink) {
	switch inline.Kind() {
	case TextKind:
		sink.Characters(replaceNUL(spanSlice(source, inline.span)))
	case LinkKind:
		sink.BeginLink(inline.destination, inline.title)
		for _, c := range inline.children {
			c.Emit(source, sink)
		}
		sink.EndLink()
	case ImageKind:
		sink.Image(inline.destination, inline.title, inline.Text(source))
	}
}

// InlineKind is an enumeration of values returned by [*Inline.Kind].
type InlineKind uint16

const (
	TextKind InlineKind = 1 + iota
	LinkKind
	ImageKind
	ReferenceDefinitionKind

	// Bracket openers only exist while a block is being resolved.
	linkOpenKind
	imageOpenKind
)

func (k InlineKind) String() string {
	switch k {
	case TextKind:
		return "TextKind"
	case LinkKind:
		return "LinkKind"
	case ImageKind:
		return "ImageKind"
	case ReferenceDefinitionKind:
		return "ReferenceDefinitionKind"
	case linkOpenKind:
		return "linkOpenKind"
	case imageOpenKind:
		return "imageOpenKind"
	default:
		return fmt.Sprintf("InlineKind(%d)", uint16(k))
	}
}

func (k InlineKind) isOpener() bool {
	return k == linkOpenKind || k == imageOpenKind
}
