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
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestSJS(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{in: "foo", want: "foo"},
		{in: "Abc123", want: "Abc123"},
		{in: "", want: ""},
		{in: `"hello"`, want: `\x22hello\x22`},
		{in: "<script>alert(1)</script>", want: `\x3cscript\x3ealert\x281\x29\x3c\x2fscript\x3e`},
		{in: "a b\tc\nd\re", want: `a\x20b\tc\nd\re`},
		{in: "/", want: `\x2f`},
		{in: "é", want: `\xe9`},
		{in: "中", want: `\u4e2d`},
		{in: "😀", want: `\ud83d\ude00`},
	}
	for _, tt := range tests {
		if got := SJS(tt.in); got != tt.want {
			t.Errorf("SJS(%q) got: %q want: %q", tt.in, got, tt.want)
		}
	}
}

func TestSJSON(t *testing.T) {
	tests := []struct {
		name string
		in   interface{}
		want string
	}{
		{
			name: "map",
			in:   map[string]interface{}{"a": "<b>", "n": 1.5, "ok": true, "nil": nil},
			want: `{"a":"\\x3cb\\x3e","n":1.5,"nil":null,"ok":true}`,
		},
		{
			name: "escaped key",
			in:   map[string]string{"</script>": "x"},
			want: `{"\\x3c\\x2fscript\\x3e":"x"}`,
		},
		{
			name: "nested",
			in:   map[string]interface{}{"list": []interface{}{"a'", 2, map[string]string{"k": "v v"}}},
			want: `{"list":["a\\x27",2,{"k":"v\\x20v"}]}`,
		},
		{
			name: "struct",
			in: struct {
				Name string `json:"name"`
				ID   int64  `json:"id"`
			}{Name: "x&y", ID: 9007199254740993},
			want: `{"id":9007199254740993,"name":"x\\x26y"}`,
		},
		{
			name: "scalar",
			in:   "a-b",
			want: `"a\\x2db"`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SJSON(tt.in)
			if err != nil {
				t.Fatalf("SJSON() got err: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("SJSON() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSJSONError(t *testing.T) {
	if _, err := SJSON(make(chan int)); err == nil {
		t.Error("SJSON(chan) got nil err")
	}
}

func TestEscape(t *testing.T) {
	got := Escape(`<a href="x">'&'</a>`).String()
	want := "&lt;a href=&#34;x&#34;&gt;&#39;&amp;&#39;&lt;/a&gt;"
	if got != want {
		t.Errorf("Escape() got: %q want: %q", got, want)
	}
}

func TestEscapeShellArg(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{in: "foo", want: "'foo'"},
		{in: "ls -l", want: "'ls -l'"},
		{in: "it's", want: `'it\'s'`},
		{in: `a\b`, want: `'a\\b'`},
	}
	for _, tt := range tests {
		if got := EscapeShellArg(tt.in); got != tt.want {
			t.Errorf("EscapeShellArg(%q) got: %q want: %q", tt.in, got, tt.want)
		}
	}
}

func TestEscapeShellCmd(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{in: "ls -l", want: "ls -l"},
		{in: "ls; rm -rf /", want: "ls rm -rf /"},
		{in: "cat `id` $(whoami) | nc x 1 > y", want: "cat id whoami  nc x 1  y"},
		{in: "echo 'a' \"b\"\n", want: "echo a b"},
		{in: "aÿb", want: "ab"},
	}
	for _, tt := range tests {
		if got := EscapeShellCmd(tt.in); got != tt.want {
			t.Errorf("EscapeShellCmd(%q) got: %q want: %q", tt.in, got, tt.want)
		}
	}
}

func TestCLIFilter(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{in: "file-name_1.txt", want: "file-name_1.txt"},
		{in: "a;b|c&&d", want: "abcd"},
		{in: "../../etc/passwd", want: "....etcpasswd"},
		{in: "中文 x", want: "x"},
	}
	for _, tt := range tests {
		if got := CLIFilter(tt.in); got != tt.want {
			t.Errorf("CLIFilter(%q) got: %q want: %q", tt.in, got, tt.want)
		}
	}
}
