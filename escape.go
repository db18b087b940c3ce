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
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"go4.org/bytereplacer"
	"golang.org/x/net/html"
	"golang.org/x/text/cases"
)

// escapablePunctuation is the set of characters
// that a [backslash escape] turns into literal text.
//
// [backslash escape]: https://spec.commonmark.org/0.30/#backslash-escapes
const escapablePunctuation = "!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~"

var backslashUnescaper = newBackslashUnescaper(escapablePunctuation)

// labelUnescaper only undoes escaped brackets,
// since reference names are compared on their raw text otherwise.
var labelUnescaper = newBackslashUnescaper("[]")

func newBackslashUnescaper(set string) *bytereplacer.Replacer {
	oldnew := make([]string, 0, 2*len(set))
	for i := 0; i < len(set); i++ {
		oldnew = append(oldnew, `\`+set[i:i+1], set[i:i+1])
	}
	return bytereplacer.New(oldnew...)
}

// isEscapable reports whether c may follow a backslash
// to form a backslash escape.
func isEscapable(c byte) bool {
	return strings.IndexByte(escapablePunctuation, c) >= 0
}

// UnescapeBackslashes replaces every backslash escape in s
// with the escaped character.
// Backslashes before any other character are left as-is.
func UnescapeBackslashes(s string) string {
	if strings.IndexByte(s, '\\') < 0 {
		return s
	}
	return string(backslashUnescaper.Replace([]byte(s)))
}

var entityPattern = regexp.MustCompile(`&(?:[a-zA-Z][a-zA-Z0-9]{1,32}|#[xX][0-9a-fA-F]{1,8}|#[0-9]{1,8});`)

// DecodeEntities replaces HTML entity and numeric character references in s
// with the characters they represent.
// References that do not name a character are left unchanged.
// If escape is not nil, it is applied to each decoded replacement.
func DecodeEntities(s string, escape func(string) string) string {
	if strings.IndexByte(s, '&') < 0 {
		return s
	}
	return entityPattern.ReplaceAllStringFunc(s, func(ref string) string {
		decoded, ok := decodeEntity(ref)
		if !ok {
			return ref
		}
		if escape != nil {
			decoded = escape(decoded)
		}
		return decoded
	})
}

// decodeEntity decodes a single reference of the form "&...;".
func decodeEntity(ref string) (string, bool) {
	if ref[1] != '#' {
		decoded := html.UnescapeString(ref)
		// UnescapeString also accepts prefixes of the name (like "&not" in "&notin;"),
		// so anything longer than the longest entity expansion is a partial match.
		if decoded == ref || utf8.RuneCountInString(decoded) > 2 {
			return "", false
		}
		return decoded, true
	}
	digits, base := ref[2:len(ref)-1], 10
	if digits[0] == 'x' || digits[0] == 'X' {
		digits, base = digits[1:], 16
	}
	n, err := strconv.ParseUint(digits, base, 32)
	if err != nil {
		return "", false
	}
	r := rune(n)
	if n == 0 || n > utf8.MaxRune || !utf8.ValidRune(r) {
		r = utf8.RuneError
	}
	return string(r), true
}

// NormalizeURI converts a raw link destination into a URI.
// It unescapes backslash escapes, decodes entity references,
// decodes percent escapes,
// and then percent-encodes any characters that are not safe in a URI.
// If the destination contains malformed percent escapes
// or does not decode to UTF-8,
// NormalizeURI returns the destination with only backslash escapes removed.
func NormalizeURI(raw string) string {
	unescaped := UnescapeBackslashes(raw)
	withoutEntities := DecodeEntities(unescaped, escapeComponent)
	decoded, err := url.PathUnescape(withoutEntities)
	if err != nil || !utf8.ValidString(decoded) {
		return unescaped
	}
	return escapeFragment(decoded)
}

// NormalizeTitle converts a raw link title into its text.
func NormalizeTitle(raw string) string {
	return DecodeEntities(UnescapeBackslashes(raw), nil)
}

// NormalizeReferenceName converts the raw source text of a link label
// into the key used in a [ReferenceMap].
// Escaped brackets are unescaped,
// runs of whitespace become a single space,
// and the result is case folded.
func NormalizeReferenceName(raw string) string {
	s := raw
	if strings.IndexByte(s, '\\') >= 0 {
		s = string(labelUnescaper.Replace([]byte(s)))
	}
	s = strings.Join(strings.Fields(s), " ")
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return cases.Fold().String(s)
		}
	}
	return strings.ToLower(s)
}

// escapeComponent percent-encodes everything but unreserved characters
// so that a decoded entity survives the percent decoding that follows it.
func escapeComponent(s string) string {
	return percentEncode(s, "-_.~")
}

// escapeFragment percent-encodes characters not permitted in a URI fragment.
// '#' is kept so that destinations retain their fragment.
func escapeFragment(s string) string {
	return percentEncode(s, "-_.~!$&'()*+,;=:@/?#")
}

func percentEncode(s string, safeSet string) string {
	sb := new(strings.Builder)
	sb.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if 'a' <= c && c <= 'z' || 'A' <= c && c <= 'Z' || '0' <= c && c <= '9' || strings.IndexByte(safeSet, c) >= 0 {
			sb.WriteByte(c)
			continue
		}
		sb.WriteByte('%')
		sb.WriteByte(urlHexDigit(c >> 4))
		sb.WriteByte(urlHexDigit(c & 0x0f))
	}
	return sb.String()
}

func urlHexDigit(x byte) byte {
	switch {
	case x < 0xa:
		return '0' + x
	case x < 0x10:
		return 'A' + x - 0xa
	default:
		panic("out of bounds")
	}
}
