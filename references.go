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

package linkresolve

// A type that implements ReferenceLookup
// can be queried for link reference definitions.
// Names passed to LookupReference have been normalized
// with [NormalizeReferenceName].
type ReferenceLookup interface {
	LookupReference(normalizedName string) (LinkDefinition, bool)
}

// LinkDefinition is the data of a [link reference definition].
// Destination and Title have already been normalized
// with [NormalizeURI] and [NormalizeTitle].
//
// [link reference definition]: https://spec.commonmark.org/0.30/#link-reference-definition
type LinkDefinition struct {
	Destination  string
	Title        string
	TitlePresent bool
}

// ReferenceMap is a mapping of normalized reference names to link definitions.
type ReferenceMap map[string]LinkDefinition

// LookupReference returns the definition for the normalized name, if any.
func (m ReferenceMap) LookupReference(normalizedName string) (LinkDefinition, bool) {
	def, ok := m[normalizedName]
	return def, ok
}

// Define adds a definition to the map
// unless the name is empty or already defined.
// It reports whether the definition was added.
func (m ReferenceMap) Define(normalizedName string, def LinkDefinition) bool {
	if _, exists := m[normalizedName]; normalizedName == "" || exists {
		return false
	}
	m[normalizedName] = def
	return true
}

// Extract adds any link reference definitions contained in the resolved block to the map.
// In case of conflicts,
// Extract will not replace any existing definitions in the map
// and will use the first definition in source order.
func (m ReferenceMap) Extract(root *RootBlock) {
	for _, inline := range root.inlines {
		Walk(inline, &WalkOptions{
			Pre: func(c *WalkCursor) bool {
				node := c.Node()
				if node.Kind() != ReferenceDefinitionKind {
					return true
				}
				title, titlePresent := node.Title()
				m.Define(node.ReferenceName(), LinkDefinition{
					Destination:  node.Destination(),
					Title:        title,
					TitlePresent: titlePresent,
				})
				return false
			},
		})
	}
}

// Merge adds the definitions from other
// that are not already present in m.
func (m ReferenceMap) Merge(other ReferenceMap) {
	for name, def := range other {
		m.Define(name, def)
	}
}
