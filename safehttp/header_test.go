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

package safehttp

import (
	"net/http"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestHeaderSetCookieDisallowed(t *testing.T) {
	h := newHeader(http.Header{})
	for name, fn := range map[string]func() error{
		"Set": func() error { return h.Set("set-cookie", "a=b") },
		"Add": func() error { return h.Add("Set-Cookie", "a=b") },
		"Del": func() error { return h.Del("SET-COOKIE") },
	} {
		if err := fn(); err == nil {
			t.Errorf("h.%s(Set-Cookie) got: nil err, want error", name)
		}
	}
}

func TestHeaderCanonical(t *testing.T) {
	h := newHeader(http.Header{})
	if err := h.Set("x-frame-options", "DENY"); err != nil {
		t.Fatalf("h.Set() got err: %v", err)
	}
	if err := h.Add("X-Frame-Options", "SAMEORIGIN"); err != nil {
		t.Fatalf("h.Add() got err: %v", err)
	}
	if diff := cmp.Diff([]string{"DENY", "SAMEORIGIN"}, h.Values("X-FRAME-OPTIONS")); diff != "" {
		t.Errorf("h.Values() mismatch (-want +got):\n%s", diff)
	}
	if err := h.Del("x-frame-options"); err != nil {
		t.Fatalf("h.Del() got err: %v", err)
	}
	if got := h.Get("X-Frame-Options"); got != "" {
		t.Errorf("h.Get() after Del got: %q want: empty", got)
	}
}

func TestHeaderClear(t *testing.T) {
	w := http.Header{}
	h := newHeader(w)
	h.Set("Foo", "bar")
	h.addCookie(&http.Cookie{Name: "a", Value: "b"}, false)
	h.clear()
	if len(w) != 0 {
		t.Errorf("header after clear got: %v want: empty", w)
	}
}

func TestHeaderInvalidCookie(t *testing.T) {
	h := newHeader(http.Header{})
	if err := h.addCookie(&http.Cookie{Name: "bad name", Value: "x"}, false); err == nil {
		t.Error("addCookie(invalid name) got: nil err, want error")
	}
}
