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

// Package corpus provides sample documents that exercise bracket resolution,
// drawn from the links, images, and link reference definitions
// sections of CommonMark.
package corpus

import (
	_ "embed"
	"encoding/json"
)

// Example is a single sample document.
type Example struct {
	Markdown string
	Example  int
	Section  string
}

//go:embed links.json
var linksData []byte

// Load returns the sample documents.
func Load() ([]Example, error) {
	var examples []Example
	if err := json.Unmarshal(linksData, &examples); err != nil {
		return nil, err
	}
	return examples, nil
}
