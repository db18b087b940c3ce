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

// A WalkCursor describes an [*Inline] encountered during [Walk].
type WalkCursor struct {
	node   *Inline
	parent *Inline
}

// Node returns the current node.
func (c *WalkCursor) Node() *Inline {
	return c.node
}

// Parent returns the parent of the current node
// (as returned by [*WalkCursor.Node])
// or nil if the current node is the root of the walk.
func (c *WalkCursor) Parent() *Inline {
	return c.parent
}

// WalkOptions is the set of parameters to [Walk].
type WalkOptions struct {
	// Pre is called for each node before the node's children are visited.
	// If Pre returns false, the node's children are skipped.
	Pre func(c *WalkCursor) bool
}

// Walk visits root and its descendants in source order,
// calling [WalkOptions.Pre] for each.
func Walk(root *Inline, opts *WalkOptions) {
	type walkFrame struct {
		node   *Inline
		parent *Inline
	}

	stack := []walkFrame{{node: root}}
	cursor := new(WalkCursor)
	for len(stack) > 0 {
		curr := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		cursor.node = curr.node
		cursor.parent = curr.parent
		if opts.Pre != nil && !opts.Pre(cursor) {
			continue
		}
		for i := curr.node.ChildCount() - 1; i >= 0; i-- {
			stack = append(stack, walkFrame{
				parent: curr.node,
				node:   curr.node.Child(i),
			})
		}
	}
}
