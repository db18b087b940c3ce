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
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestResolve(t *testing.T) {
	chars := func(s string) Event { return Event{Kind: CharactersEvent, Text: s} }
	begin := func(dest, title string) Event { return Event{Kind: BeginLinkEvent, Destination: dest, Title: title} }
	end := Event{Kind: EndLinkEvent}
	image := func(src, title, alt string) Event {
		return Event{Kind: ImageEvent, Destination: src, Title: title, Text: alt}
	}

	tests := []struct {
		name   string
		source string
		want   []Event
	}{
		{
			name:   "PlainText",
			source: "Hello, World!",
			want:   []Event{chars("Hello, World!")},
		},
		{
			name:   "InlineLink",
			source: "[text](uri)",
			want:   []Event{begin("uri", ""), chars("text"), end},
		},
		{
			name:   "InlineLinkWithTitle",
			source: `[link](/uri "title")`,
			want:   []Event{begin("/uri", "title"), chars("link"), end},
		},
		{
			name:   "DoubleQuotedTitle",
			source: `[a](u "t")`,
			want:   []Event{begin("u", "t"), chars("a"), end},
		},
		{
			name:   "SingleQuotedTitle",
			source: `[a](u 't')`,
			want:   []Event{begin("u", "t"), chars("a"), end},
		},
		{
			name:   "ParenthesizedTitle",
			source: `[a](u (t))`,
			want:   []Event{begin("u", "t"), chars("a"), end},
		},
		{
			name:   "TitleWithEscapedDelimiter",
			source: `[a](u "x \"y\" &quot;")`,
			want:   []Event{begin("u", `x "y" "`), chars("a"), end},
		},
		{
			name:   "MalformedEntityInTitle",
			source: `[a](u "&#zz;")`,
			want:   []Event{begin("u", "&#zz;"), chars("a"), end},
		},
		{
			name:   "TitleOnNextLine",
			source: "[a](u\n\"t\")",
			want:   []Event{begin("u", "t"), chars("a"), end},
		},
		{
			name:   "EmptyDestination",
			source: "[link]()",
			want:   []Event{begin("", ""), chars("link"), end},
		},
		{
			name:   "EmptyAngleDestination",
			source: "[link](<>)",
			want:   []Event{begin("", ""), chars("link"), end},
		},
		{
			name:   "AngleDestinationWithSpace",
			source: "[link](</my uri>)",
			want:   []Event{begin("/my%20uri", ""), chars("link"), end},
		},
		{
			name:   "BareDestinationWithSpace",
			source: "[link](/my uri)",
			want:   []Event{chars("["), chars("link"), chars("]"), chars("(/my uri)")},
		},
		{
			name:   "BalancedParentheses",
			source: "[link](foo(and(bar)))",
			want:   []Event{begin("foo(and(bar))", ""), chars("link"), end},
		},
		{
			name:   "EscapedParentheses",
			source: `[link](\(foo\))`,
			want:   []Event{begin("(foo)", ""), chars("link"), end},
		},
		{
			name:   "PercentEncodedDestination",
			source: "[link](foo%20b&auml;)",
			want:   []Event{begin("foo%20b%C3%A4", ""), chars("link"), end},
		},
		{
			name:   "Fragment",
			source: "[link](http://example.com#fragment)",
			want:   []Event{begin("http://example.com#fragment", ""), chars("link"), end},
		},
		{
			name:   "SpaceBeforeTarget",
			source: "[link] (/uri)",
			want:   []Event{chars("["), chars("link"), chars("]"), chars(" (/uri)")},
		},
		{
			name:   "Image",
			source: "![alt](src.png)",
			want:   []Event{image("src.png", "", "alt")},
		},
		{
			name:   "ImageWithTitle",
			source: `![foo](/url "title")`,
			want:   []Event{image("/url", "title", "foo")},
		},
		{
			name:   "EmptyImage",
			source: "![](/url)",
			want:   []Event{image("/url", "", "")},
		},
		{
			name:   "ImageInsideLink",
			source: "[![moon](moon.jpg)](/uri)",
			want:   []Event{begin("/uri", ""), image("moon.jpg", "", "moon"), end},
		},
		{
			name:   "NoNestedLinks",
			source: "[a [b](u1) c](u2)",
			want: []Event{
				chars("["),
				chars("a "),
				begin("u1", ""),
				chars("b"),
				end,
				chars(" c"),
				chars("]"),
				chars("(u2)"),
			},
		},
		{
			name:   "LinkInsideImage",
			source: "![[[foo](uri1)](uri2)](uri3)",
			want:   []Event{image("uri3", "", "[foo](uri2)")},
		},
		{
			name:   "BalancedBracketsInText",
			source: "[link [foo [bar]]](/uri)",
			want: []Event{
				begin("/uri", ""),
				chars("link "),
				chars("["),
				chars("foo "),
				chars("["),
				chars("bar"),
				chars("]"),
				chars("]"),
				end,
			},
		},
		{
			name:   "UnbalancedBracketInText",
			source: "[link] bar](/uri)",
			want:   []Event{chars("["), chars("link"), chars("]"), chars(" bar"), chars("]"), chars("(/uri)")},
		},
		{
			name:   "UnmatchedOpener",
			source: "[foo",
			want:   []Event{chars("["), chars("foo")},
		},
		{
			name:   "UnmatchedOpenerBeforeLink",
			source: "[link [bar](/uri)",
			want:   []Event{chars("["), chars("link "), begin("/uri", ""), chars("bar"), end},
		},
		{
			name:   "EscapedOpener",
			source: `[link \[bar](/uri)`,
			want:   []Event{begin("/uri", ""), chars("link "), chars("["), chars("bar"), end},
		},
		{
			name:   "BackslashEscapes",
			source: `\*not emphasized* \[not a link](/foo)`,
			want: []Event{
				chars("*"),
				chars("not emphasized* "),
				chars("["),
				chars("not a link"),
				chars("]"),
				chars("(/foo)"),
			},
		},
		{
			name:   "TextRunsStopAtLineEndings",
			source: "a\nb\r\nc",
			want:   []Event{chars("a\n"), chars("b\r\n"), chars("c")},
		},
		{
			name:   "UndefinedReference",
			source: "[foo]",
			want:   []Event{chars("["), chars("foo"), chars("]")},
		},
		{
			name:   "ReferenceDefinitionAndUse",
			source: "[foo]: /bar \"Baz\"\n\n[foo]",
			want:   []Event{begin("/bar", "Baz"), chars("foo"), end},
		},
		{
			name:   "FullReference",
			source: "[foo][bar]\n\n[bar]: /url \"title\"",
			want:   []Event{begin("/url", "title"), chars("foo"), end, chars("\n")},
		},
		{
			name:   "FullReferenceCaseInsensitive",
			source: "[foo][BaR]\n\n[bar]: /url",
			want:   []Event{begin("/url", ""), chars("foo"), end, chars("\n")},
		},
		{
			name:   "FullReferenceWithEscapedBracket",
			source: "[link \\[bar][ref]\n\n[ref]: /uri",
			want:   []Event{begin("/uri", ""), chars("link "), chars("["), chars("bar"), end, chars("\n")},
		},
		{
			name:   "CollapsedReference",
			source: "[foo][]\n\n[foo]: /url \"title\"",
			want:   []Event{begin("/url", "title"), chars("foo"), end, chars("\n")},
		},
		{
			name:   "ShortcutImageReference",
			source: "![foo]\n\n[foo]: /url \"title\"",
			want:   []Event{image("/url", "title", "foo"), chars("\n")},
		},
		{
			name:   "UnicodeCaseFold",
			source: "[ẞ]\n\n[SS]: /url",
			want:   []Event{begin("/url", ""), chars("ẞ"), end, chars("\n")},
		},
		{
			name:   "MultilineLabel",
			source: "[Foo\n  bar]: /url\n\n[Baz][Foo bar]",
			want:   []Event{begin("/url", ""), chars("Baz"), end},
		},
		{
			name:   "UndefinedExplicitLabel",
			source: "[foo][nope]\n\n[foo]: /url",
			want:   []Event{chars("["), chars("foo"), chars("]"), chars("["), chars("nope"), chars("]"), chars("\n")},
		},
		{
			name:   "EscapedShortcut",
			source: "\\[foo]\n\n[foo]: /url",
			want:   []Event{chars("["), chars("foo"), chars("]"), chars("\n")},
		},
		{
			name:   "InlineFormBeatsReference",
			source: "[foo](/inline)\n\n[foo]: /ref",
			want:   []Event{begin("/inline", ""), chars("foo"), end, chars("\n")},
		},
		{
			name:   "DefinitionTitleOnLaterLines",
			source: "   [foo]: \n      /url  \n           'the title'  \n\n[foo]",
			want:   []Event{begin("/url", "the title"), chars("foo"), end},
		},
		{
			name:   "DefinitionWithoutDestination",
			source: "[foo]:\n\n[foo]",
			want:   []Event{chars("["), chars("foo"), chars("]"), chars(":\n"), chars("["), chars("foo"), chars("]")},
		},
		{
			name:   "DefinitionEscapes",
			source: "[foo]: /url\\bar\\*baz \"foo\\\"bar\\baz\"\n\n[foo]",
			want:   []Event{begin("/url%5Cbar*baz", "foo\"bar\\baz"), chars("foo"), end},
		},
		{
			name:   "DefinitionTrailingTextAfterTitle",
			source: "[foo]: /url \"title\" ok\n",
			want:   []Event{chars("["), chars("foo"), chars("]"), chars(": /url \"title\" ok\n")},
		},
		{
			name:   "DefinitionTrailingTextAfterTitleOnNextLine",
			source: "[foo]: /url\n\"title\" ok\n\n[foo]",
			want:   []Event{chars("\"title\" ok\n"), begin("/url", ""), chars("foo"), end},
		},
		{
			name:   "IndentedTooFarForDefinition",
			source: "    [foo]: /url\n\n[foo]",
			want: []Event{
				chars("    "),
				chars("["),
				chars("foo"),
				chars("]"),
				chars(": /url\n"),
				chars("["),
				chars("foo"),
				chars("]"),
			},
		},
		{
			name:   "DefinitionNotAtLineStart",
			source: "x [foo]: /url\n\n[foo]",
			want: []Event{
				chars("x "),
				chars("["),
				chars("foo"),
				chars("]"),
				chars(": /url\n"),
				chars("["),
				chars("foo"),
				chars("]"),
			},
		},
		{
			name:   "LabelOnNextLineIsDefinition",
			source: "[bar]\n[foo]: /u\n\n[bar]: /b",
			want:   []Event{begin("/b", ""), chars("bar"), end, chars("\n")},
		},
		{
			name:   "FullReferenceWithSpace",
			source: "[bar] [foo]\n\n[foo]: /u\n[bar]: /b",
			want:   []Event{begin("/u", ""), chars("bar"), end, chars("\n")},
		},
		{
			name:   "ConsecutiveDefinitions",
			source: "[foo]: /foo-url \"foo\"\n[bar]: /bar-url\n  \"bar\"\n[baz]: /baz-url\n\n[foo],\n[bar],\n[baz]",
			want: []Event{
				begin("/foo-url", "foo"), chars("foo"), end, chars(",\n"),
				begin("/bar-url", "bar"), chars("bar"), end, chars(",\n"),
				begin("/baz-url", ""), chars("baz"), end,
			},
		},
		{
			name:   "EntitiesInDestinationAndTitle",
			source: `[foo](/f&ouml;&ouml; "f&ouml;&ouml;")`,
			want:   []Event{begin("/f%C3%B6%C3%B6", "föö"), chars("foo"), end},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			blocks, _ := Parse([]byte(test.source))
			rec := new(EventRecorder)
			for _, b := range blocks {
				b.Emit(rec)
			}
			if diff := cmp.Diff(test.want, rec.Events); diff != "" {
				t.Errorf("Parse(%q) events (-want +got):\n%s", test.source, diff)
			}
			if rec.Depth() != 0 {
				t.Errorf("Parse(%q) left %d links open", test.source, rec.Depth())
			}
		})
	}
}

func TestResolvePositions(t *testing.T) {
	const source = "ab\n  [x](y) ![z](w)"
	const base = 10
	got := new(InlineParser).Resolve([]byte(source), base)

	type nodeInfo struct {
		Kind   InlineKind
		Span   Span
		Line   int
		Column int
	}
	var gotInfo []nodeInfo
	for _, inline := range got {
		gotInfo = append(gotInfo, nodeInfo{
			Kind:   inline.Kind(),
			Span:   inline.Span(),
			Line:   inline.Line(),
			Column: inline.Column(),
		})
	}
	want := []nodeInfo{
		{Kind: TextKind, Span: Span{Start: 0, End: 3}, Line: 0, Column: 0},
		{Kind: TextKind, Span: Span{Start: 3, End: 5}, Line: 1, Column: 0},
		{Kind: LinkKind, Span: Span{Start: 5, End: 11}, Line: 1, Column: 2},
		{Kind: TextKind, Span: Span{Start: 11, End: 12}, Line: 1, Column: 8},
		{Kind: ImageKind, Span: Span{Start: 12, End: 19}, Line: 1, Column: 9},
	}
	if diff := cmp.Diff(want, gotInfo); diff != "" {
		t.Fatalf("nodes (-want +got):\n%s", diff)
	}

	link := got[2]
	if link.ChildCount() != 1 {
		t.Fatalf("link.ChildCount() = %d; want 1", link.ChildCount())
	}
	if got, want := link.Child(0).Span(), (Span{Start: 6, End: 7}); got != want {
		t.Errorf("link.Child(0).Span() = %v; want %v", got, want)
	}
	if got, want := link.Text([]byte(source)), "x"; got != want {
		t.Errorf("link.Text(source) = %q; want %q", got, want)
	}
	if !link.ContainsLink() {
		t.Error("link.ContainsLink() = false; want true")
	}
	if got[4].ContainsLink() {
		t.Error("image.ContainsLink() = true; want false")
	}
	c := NewCursor([]byte(source), base)
	if got, want := c.AbsoluteOffset(link.Span().Start), int64(15); got != want {
		t.Errorf("AbsoluteOffset(link start) = %d; want %d", got, want)
	}
}

func TestResolvePositionsWithNUL(t *testing.T) {
	const source = "x\n\n\x00[a\x00](b\x00)"
	blocks, _ := Parse([]byte(source))
	if len(blocks) != 2 {
		t.Fatalf("len(blocks) = %d; want 2", len(blocks))
	}
	block := blocks[1]
	if got, want := int(block.EndOffset-block.StartOffset), len(block.Source); got != want {
		t.Errorf("EndOffset-StartOffset = %d; want len(Source) = %d", got, want)
	}
	c := NewCursor(block.Source, block.StartOffset)
	if got, want := c.ToCursorOffset(block.EndOffset), len(block.Source); got != want {
		t.Errorf("ToCursorOffset(EndOffset) = %d; want %d", got, want)
	}

	if block.ChildCount() != 2 {
		t.Fatalf("ChildCount() = %d; want 2", block.ChildCount())
	}
	link := block.Child(1)
	if got, want := link.Kind(), LinkKind; got != want {
		t.Fatalf("Child(1).Kind() = %v; want %v", got, want)
	}
	if got, want := c.AbsoluteOffset(link.Span().Start), int64(strings.Index(source, "[")); got != want {
		t.Errorf("AbsoluteOffset(link start) = %d; want %d", got, want)
	}
	if got, want := c.AbsoluteOffset(link.Span().End), int64(len(source)); got != want {
		t.Errorf("AbsoluteOffset(link end) = %d; want %d", got, want)
	}

	rec := new(EventRecorder)
	block.Emit(rec)
	want := []Event{
		{Kind: CharactersEvent, Text: "\ufffd"},
		{Kind: BeginLinkEvent, Destination: "b%EF%BF%BD"},
		{Kind: CharactersEvent, Text: "a\ufffd"},
		{Kind: EndLinkEvent},
	}
	if diff := cmp.Diff(want, rec.Events); diff != "" {
		t.Errorf("events (-want +got):\n%s", diff)
	}
}

func TestResolveEscapeSpan(t *testing.T) {
	got := new(InlineParser).Resolve([]byte(`a\*b`), 0)
	if len(got) != 3 {
		t.Fatalf("len(Resolve(...)) = %d; want 3", len(got))
	}
	if got, want := got[1].Span(), (Span{Start: 2, End: 3}); got != want {
		t.Errorf("escape node span = %v; want %v", got, want)
	}
}

func TestMaxNesting(t *testing.T) {
	tests := []struct {
		name       string
		maxNesting int
		source     string
		want       []Event
	}{
		{
			name:       "WithinLimit",
			maxNesting: 2,
			source:     "[[a](u)]",
			want: []Event{
				{Kind: CharactersEvent, Text: "["},
				{Kind: BeginLinkEvent, Destination: "u"},
				{Kind: CharactersEvent, Text: "a"},
				{Kind: EndLinkEvent},
				{Kind: CharactersEvent, Text: "]"},
			},
		},
		{
			name:       "PastLimit",
			maxNesting: 1,
			source:     "[[a](u)]",
			want: []Event{
				{Kind: BeginLinkEvent, Destination: "u"},
				{Kind: CharactersEvent, Text: "["},
				{Kind: CharactersEvent, Text: "a"},
				{Kind: EndLinkEvent},
				{Kind: CharactersEvent, Text: "]"},
			},
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			p := &InlineParser{MaxNesting: test.maxNesting}
			source := []byte(test.source)
			rec := new(EventRecorder)
			for _, inline := range p.Resolve(source, 0) {
				inline.Emit(source, rec)
			}
			if diff := cmp.Diff(test.want, rec.Events); diff != "" {
				t.Errorf("events (-want +got):\n%s", diff)
			}
		})
	}

	t.Run("Deep", func(t *testing.T) {
		const depth = 10000
		source := []byte(strings.Repeat("[", depth) + "a](u)" + strings.Repeat("]", depth))
		nodes := new(InlineParser).Resolve(source, 0)
		for i, n := range nodes {
			if d := treeDepth(n); d > 2 {
				t.Errorf("nodes[%d] depth = %d; want <= 2", i, d)
			}
		}
		rec := new(EventRecorder)
		for _, n := range nodes {
			n.Emit(source, rec)
		}
		var got strings.Builder
		for _, e := range rec.Events {
			got.WriteString(e.Text)
		}
		// The innermost pending opener starts the link.
		if want := strings.Repeat("[", depth-1) + "a" + strings.Repeat("]", depth); got.String() != want {
			t.Errorf("characters has length %d; want %d", got.Len(), len(want))
		}
	})
}

func treeDepth(inline *Inline) int {
	d := 0
	for _, c := range inline.Children() {
		d = max(d, treeDepth(c))
	}
	return d + 1
}
