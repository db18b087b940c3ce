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
	"strconv"

	"zombiezen.com/go/linkresolve"
)

// DefsCmd lists link reference definitions.
type DefsCmd struct {
	All   bool     `name:"all" short:"a" help:"Also list duplicate definitions that are shadowed by an earlier one"`
	Table bool     `name:"table" help:"Print the final reference table, including configured references, instead of source locations"`
	Files []string `arg:"" optional:"" help:"Markdown files to scan (default: standard input)"`
}

func (cmd *DefsCmd) Run(e *env) error {
	docs, err := loadDocuments(e, cmd.Files)
	if err != nil {
		return err
	}
	for _, doc := range docs {
		if cmd.Table {
			for _, name := range sortedNames(doc.references) {
				if _, err := fmt.Fprintf(e.stdout, "%s\t%s\n", doc.name, formatDefinition(name, doc.references[name])); err != nil {
					return err
				}
			}
			continue
		}

		seen := make(map[string]struct{})
		for _, block := range doc.blocks {
			for _, def := range block.Definitions() {
				name := def.ReferenceName()
				_, dup := seen[name]
				seen[name] = struct{}{}
				if dup {
					e.logger.Debug("Duplicate definition", "file", doc.name, "line", block.StartLine+def.Line(), "reference", name)
					if !cmd.All {
						continue
					}
				}
				title, titlePresent := def.Title()
				ld := linkresolve.LinkDefinition{
					Destination:  def.Destination(),
					Title:        title,
					TitlePresent: titlePresent,
				}
				if _, err := fmt.Fprintf(e.stdout, "%s:%d\t%s\n", doc.name, block.StartLine+def.Line(), formatDefinition(name, ld)); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func formatDefinition(name string, def linkresolve.LinkDefinition) string {
	s := name + "\t" + def.Destination
	if def.TitlePresent {
		s += "\t" + strconv.Quote(def.Title)
	}
	return s
}
