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
	"strconv"
	"strings"
)

// A Sink receives resolved inline content from [*Inline.Emit].
// Calls to BeginLink and EndLink are always balanced.
type Sink interface {
	BeginLink(destination, title string)
	EndLink()
	Image(source, title, alt string)
	Characters(text string)
}

// EventKind is the type of an [Event].
type EventKind uint8

const (
	CharactersEvent EventKind = 1 + iota
	BeginLinkEvent
	EndLinkEvent
	ImageEvent
)

func (k EventKind) String() string {
	switch k {
	case CharactersEvent:
		return "characters"
	case BeginLinkEvent:
		return "begin-link"
	case EndLinkEvent:
		return "end-link"
	case ImageEvent:
		return "image"
	default:
		return fmt.Sprintf("EventKind(%d)", uint8(k))
	}
}

// Event is a single call made to a [Sink].
// Text holds the characters of a [CharactersEvent]
// or the alt text of an [ImageEvent].
type Event struct {
	Kind        EventKind
	Destination string `json:",omitempty"`
	Title       string `json:",omitempty"`
	Text        string `json:",omitempty"`
}

// String formats the event on a single line.
func (e Event) String() string {
	switch e.Kind {
	case CharactersEvent:
		return "characters " + strconv.Quote(e.Text)
	case BeginLinkEvent:
		return fmt.Sprintf("begin-link %q %q", e.Destination, e.Title)
	case ImageEvent:
		return fmt.Sprintf("image %q %q %q", e.Destination, e.Title, e.Text)
	default:
		return e.Kind.String()
	}
}

// EventRecorder is a [Sink] that records the calls made to it.
// Consecutive characters are recorded as separate events.
type EventRecorder struct {
	Events []Event
	depth  int
}

// BeginLink records a [BeginLinkEvent].
func (rec *EventRecorder) BeginLink(destination, title string) {
	rec.depth++
	rec.Events = append(rec.Events, Event{Kind: BeginLinkEvent, Destination: destination, Title: title})
}

// EndLink records an [EndLinkEvent].
// It panics if there is no matching BeginLink.
func (rec *EventRecorder) EndLink() {
	if rec.depth == 0 {
		panic("EndLink without BeginLink")
	}
	rec.depth--
	rec.Events = append(rec.Events, Event{Kind: EndLinkEvent})
}

// Image records an [ImageEvent].
func (rec *EventRecorder) Image(source, title, alt string) {
	rec.Events = append(rec.Events, Event{Kind: ImageEvent, Destination: source, Title: title, Text: alt})
}

// Characters records a [CharactersEvent].
func (rec *EventRecorder) Characters(text string) {
	rec.Events = append(rec.Events, Event{Kind: CharactersEvent, Text: text})
}

// Depth returns the number of links that have begun but not ended.
func (rec *EventRecorder) Depth() int {
	return rec.depth
}

// String formats the recorded events one per line,
// indenting the contents of links.
func (rec *EventRecorder) String() string {
	sb := new(strings.Builder)
	depth := 0
	for _, e := range rec.Events {
		if e.Kind == EndLinkEvent {
			depth--
		}
		for i := 0; i < depth; i++ {
			sb.WriteString("  ")
		}
		sb.WriteString(e.String())
		sb.WriteByte('\n')
		if e.Kind == BeginLinkEvent {
			depth++
		}
	}
	return sb.String()
}
