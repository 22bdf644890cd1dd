// Copyright 2020 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// 	https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package sanitize

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf16"

	"github.com/google/safehtml"
)

var jsEscapes = map[rune]string{
	'\t': `\t`,
	'\n': `\n`,
	'\r': `\r`,
}

func isAlnum(r rune) bool {
	return r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9'
}

// SJS escapes s for use inside a JavaScript string literal. ASCII letters
// and digits are kept, tab, newline and carriage return become their escape
// sequences, other code points below 256 become \xHH and the rest \uHHHH
// (surrogate pairs above the BMP).
func SJS(s string) string {
	if strings.IndexFunc(s, func(r rune) bool { return !isAlnum(r) }) < 0 {
		return s
	}
	var b strings.Builder
	for _, r := range s {
		switch {
		case isAlnum(r):
			b.WriteRune(r)
		case jsEscapes[r] != "":
			b.WriteString(jsEscapes[r])
		case r < 256:
			fmt.Fprintf(&b, `\x%02x`, r)
		case r > 0xFFFF:
			r1, r2 := utf16.EncodeRune(r)
			fmt.Fprintf(&b, `\u%04x\u%04x`, r1, r2)
		default:
			fmt.Fprintf(&b, `\u%04x`, r)
		}
	}
	return b.String()
}

// SJSON encodes v as JSON for embedding in a script, escaping every object
// key and string value with SJS.
func SJSON(v interface{}) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var generic interface{}
	if err := dec.Decode(&generic); err != nil {
		return "", err
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(escapeJSON(generic)); err != nil {
		return "", err
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

func escapeJSON(v interface{}) interface{} {
	switch v := v.(type) {
	case string:
		return SJS(v)
	case []interface{}:
		for i := range v {
			v[i] = escapeJSON(v[i])
		}
		return v
	case map[string]interface{}:
		out := make(map[string]interface{}, len(v))
		for k, val := range v {
			out[SJS(k)] = escapeJSON(val)
		}
		return out
	default:
		return v
	}
}

// Escape HTML-escapes s.
func Escape(s string) safehtml.HTML {
	return safehtml.HTMLEscaped(s)
}

// EscapeShellArg quotes s as a single shell argument.
func EscapeShellArg(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `'`, `\'`)
	return "'" + s + "'"
}

const shellMeta = "#&;`|*?~<>^()[]{}$'\",\n\u00ff"

// EscapeShellCmd removes shell metacharacters from s.
func EscapeShellCmd(s string) string {
	return strings.Map(func(r rune) rune {
		if strings.ContainsRune(shellMeta, r) {
			return -1
		}
		return r
	}, s)
}

// CLIFilter keeps only ASCII letters, digits, dots, dashes and underscores.
func CLIFilter(s string) string {
	return strings.Map(func(r rune) rune {
		if isAlnum(r) || r == '.' || r == '-' || r == '_' {
			return r
		}
		return -1
	}, s)
}
