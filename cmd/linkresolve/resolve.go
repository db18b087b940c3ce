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

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"zombiezen.com/go/linkresolve"
)

// ResolveCmd prints the resolved content of Markdown files.
type ResolveCmd struct {
	Format string   `name:"format" short:"f" enum:"events,json" default:"events" help:"Output format: events or json"`
	Files  []string `arg:"" optional:"" help:"Markdown files to resolve (default: standard input)"`
}

func (cmd *ResolveCmd) Run(e *env) error {
	docs, err := loadDocuments(e, cmd.Files)
	if err != nil {
		return err
	}
	return writeDocuments(e.stdout, cmd.Format, docs)
}

func writeDocuments(w io.Writer, format string, docs []*document) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		for _, doc := range docs {
			if err := enc.Encode(newJSONDocument(doc)); err != nil {
				return err
			}
		}
		return nil
	default:
		for _, doc := range docs {
			if len(docs) > 1 {
				if _, err := fmt.Fprintf(w, "==> %s <==\n", doc.name); err != nil {
					return err
				}
			}
			rec := new(linkresolve.EventRecorder)
			for _, block := range doc.blocks {
				block.Emit(rec)
			}
			if _, err := io.WriteString(w, rec.String()); err != nil {
				return err
			}
		}
		return nil
	}
}

type jsonDocument struct {
	File       string                   `json:"file"`
	Blocks     []*jsonBlock             `json:"blocks"`
	References map[string]jsonReference `json:"references,omitempty"`
}

type jsonBlock struct {
	StartLine   int         `json:"start_line"`
	StartOffset int64       `json:"start_offset"`
	EndOffset   int64       `json:"end_offset"`
	Nodes       []*jsonNode `json:"nodes"`
}

type jsonReference struct {
	Destination string  `json:"destination"`
	Title       *string `json:"title,omitempty"`
}

// jsonNode is an inline node with document positions.
// Start and End are byte offsets in the file,
// Line is 1-based, and Column is a 0-based byte offset.
type jsonNode struct {
	Kind        string      `json:"kind"`
	Start       int64       `json:"start"`
	End         int64       `json:"end"`
	Line        int         `json:"line"`
	Column      int         `json:"column"`
	Text        string      `json:"text,omitempty"`
	Destination *string     `json:"destination,omitempty"`
	Title       *string     `json:"title,omitempty"`
	Reference   string      `json:"reference,omitempty"`
	Children    []*jsonNode `json:"children,omitempty"`
}

func newJSONDocument(doc *document) *jsonDocument {
	jd := &jsonDocument{
		File:   doc.name,
		Blocks: make([]*jsonBlock, 0, len(doc.blocks)),
	}
	for _, block := range doc.blocks {
		jb := &jsonBlock{
			StartLine:   block.StartLine,
			StartOffset: block.StartOffset,
			EndOffset:   block.EndOffset,
			Nodes:       make([]*jsonNode, 0, block.ChildCount()),
		}
		for i := 0; i < block.ChildCount(); i++ {
			jb.Nodes = append(jb.Nodes, newJSONNode(block, block.Child(i)))
		}
		jd.Blocks = append(jd.Blocks, jb)
	}
	if len(doc.references) > 0 {
		jd.References = make(map[string]jsonReference, len(doc.references))
		for name, def := range doc.references {
			ref := jsonReference{Destination: def.Destination}
			if def.TitlePresent {
				ref.Title = &def.Title
			}
			jd.References[name] = ref
		}
	}
	return jd
}

// newJSONNode converts the inline tree rooted at root.
func newJSONNode(block *linkresolve.RootBlock, root *linkresolve.Inline) *jsonNode {
	converted := make(map[*linkresolve.Inline]*jsonNode)
	linkresolve.Walk(root, &linkresolve.WalkOptions{
		Pre: func(c *linkresolve.WalkCursor) bool {
			n := jsonNodeFor(block, c.Node())
			converted[c.Node()] = n
			if parent := converted[c.Parent()]; parent != nil {
				parent.Children = append(parent.Children, n)
			}
			return true
		},
	})
	return converted[root]
}

func jsonNodeFor(block *linkresolve.RootBlock, inline *linkresolve.Inline) *jsonNode {
	span := inline.Span()
	n := &jsonNode{
		Kind:   kindName(inline.Kind()),
		Start:  block.StartOffset + int64(span.Start),
		End:    block.StartOffset + int64(span.End),
		Line:   block.StartLine + inline.Line(),
		Column: inline.Column(),
	}
	switch inline.Kind() {
	case linkresolve.TextKind:
		n.Text = inline.Text(block.Source)
	case linkresolve.LinkKind, linkresolve.ImageKind, linkresolve.ReferenceDefinitionKind:
		dest := inline.Destination()
		n.Destination = &dest
		if title, ok := inline.Title(); ok {
			n.Title = &title
		}
		n.Reference = inline.ReferenceName()
	}
	return n
}

func kindName(k linkresolve.InlineKind) string {
	switch k {
	case linkresolve.ReferenceDefinitionKind:
		return "definition"
	default:
		return strings.ToLower(strings.TrimSuffix(k.String(), "Kind"))
	}
}

// sortedNames returns the names in a reference map in lexical order.
func sortedNames(m linkresolve.ReferenceMap) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
