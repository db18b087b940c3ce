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
	"fmt"
	"io"
	"log/slog"
	"os"

	"zombiezen.com/go/linkresolve"
)

// stdinName is the file argument that reads from standard input.
const stdinName = "-"

// A document is a resolved Markdown file.
type document struct {
	name       string
	blocks     []*linkresolve.RootBlock
	references linkresolve.ReferenceMap
}

// loadDocuments reads and resolves each named file.
// No names means standard input.
func loadDocuments(e *env, names []string) ([]*document, error) {
	if len(names) == 0 {
		names = []string{stdinName}
	}
	docs := make([]*document, 0, len(names))
	for _, name := range names {
		doc, err := loadDocument(e, name)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func loadDocument(e *env, name string) (*document, error) {
	if name == stdinName {
		return readDocument(e, "<stdin>", e.stdin)
	}
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return readDocument(e, name, f)
}

func readDocument(e *env, name string, r io.Reader) (*document, error) {
	doc := &document{name: name}
	logger := e.logger.With("file", name)
	p := linkresolve.NewBlockParser(r)
	for {
		block, err := p.NextBlock()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		logger.Debug("Read block", "block", len(doc.blocks), "line", block.StartLine, "bytes", len(block.Source))
		doc.blocks = append(doc.blocks, block)
	}
	doc.references = resolveBlocks(doc.blocks, e.opts, logger)
	logger.Debug("Resolved document", "blocks", len(doc.blocks), "references", len(doc.references))
	return doc, nil
}

// resolveBlocks resolves a document's blocks,
// logging any reference names that are not defined.
func resolveBlocks(blocks []*linkresolve.RootBlock, opts *linkresolve.Options, logger *slog.Logger) linkresolve.ReferenceMap {
	docOpts := *opts
	docOpts.WrapLookup = func(refMap linkresolve.ReferenceMap) linkresolve.ReferenceLookup {
		return missLogger{refMap, logger}
	}
	return linkresolve.ResolveDocument(blocks, &docOpts)
}

// missLogger is a [linkresolve.ReferenceLookup]
// that logs lookups for undefined names.
type missLogger struct {
	refMap linkresolve.ReferenceMap
	logger *slog.Logger
}

func (ml missLogger) LookupReference(normalizedName string) (linkresolve.LinkDefinition, bool) {
	def, ok := ml.refMap.LookupReference(normalizedName)
	if !ok {
		ml.logger.Debug("Undefined reference", "reference", normalizedName)
	}
	return def, ok
}
