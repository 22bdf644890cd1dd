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

package safehttp_test

import (
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/google/go-websecurity/safehttp"
	"github.com/google/go-websecurity/safehttp/safehttptest"
)

func formOf(t *testing.T, req *http.Request) *safehttp.Form {
	t.Helper()
	var form *safehttp.Form
	safehttptest.Serve(nil, safehttptest.Capture(func(r *safehttp.IncomingRequest) {
		form = r.Form()
	}), req)
	if form == nil {
		t.Fatal("handler was not called")
	}
	return form
}

func TestFormValues(t *testing.T) {
	maxInt := strconv.FormatInt(math.MaxInt64, 10)
	multipart := "--123\r\n" +
		"Content-Disposition: form-data; name=\"pizza\"\r\n" +
		"\r\n" +
		maxInt + "\r\n" +
		"--123--\r\n"
	tests := []struct {
		name string
		req  *http.Request
	}{
		{
			name: "urlencoded",
			req:  safehttptest.NewFormRequest("/", url.Values{"pizza": {maxInt}}),
		},
		{
			name: "multipart",
			req: func() *http.Request {
				req := safehttptest.NewRequest(http.MethodPost, "/", strings.NewReader(multipart))
				req.Header.Set("Content-Type", `multipart/form-data; boundary="123"`)
				return req
			}(),
		},
		{
			name: "json",
			req:  safehttptest.NewJSONRequest("/", `{"pizza": "`+maxInt+`"}`),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			form := formOf(t, tt.req)
			if got := form.Int64("pizza", 0); got != math.MaxInt64 {
				t.Errorf("form.Int64: got %d, want %d", got, int64(math.MaxInt64))
			}
			if err := form.Err(); err != nil {
				t.Errorf("form.Err: got %v, want nil", err)
			}
		})
	}
}

func TestFormGetters(t *testing.T) {
	form := formOf(t, safehttptest.NewFormRequest("/", url.Values{
		"name":  {"margherita", "marinara"},
		"size":  {"32"},
		"price": {"9.5"},
		"spicy": {"true"},
	}))

	if got, want := form.String("name", ""), "margherita"; got != want {
		t.Errorf("form.String: got %q, want %q", got, want)
	}
	if diff := cmp.Diff([]string{"margherita", "marinara"}, form.Strings("name")); diff != "" {
		t.Errorf("form.Strings mismatch (-want +got):\n%s", diff)
	}
	if got := form.Uint64("size", 0); got != 32 {
		t.Errorf("form.Uint64: got %d, want 32", got)
	}
	if got := form.Float64("price", 0); got != 9.5 {
		t.Errorf("form.Float64: got %v, want 9.5", got)
	}
	if got := form.Bool("spicy", false); !got {
		t.Errorf("form.Bool: got false, want true")
	}
	if got := form.String("missing", "default"); got != "default" {
		t.Errorf("form.String: got %q, want default", got)
	}
	if err := form.Err(); err != nil {
		t.Errorf("form.Err: got %v, want nil", err)
	}
}

func TestFormConversionErrors(t *testing.T) {
	tests := []struct {
		name string
		get  func(f *safehttp.Form) interface{}
		want interface{}
	}{
		{name: "int", get: func(f *safehttp.Form) interface{} { return f.Int64("v", 7) }, want: int64(7)},
		{name: "uint", get: func(f *safehttp.Form) interface{} { return f.Uint64("v", 7) }, want: uint64(7)},
		{name: "float", get: func(f *safehttp.Form) interface{} { return f.Float64("v", 7) }, want: float64(7)},
		{name: "bool", get: func(f *safehttp.Form) interface{} { return f.Bool("v", true) }, want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			form := formOf(t, safehttptest.NewFormRequest("/", url.Values{"v": {"pizza"}}))
			if got := tt.get(form); got != tt.want {
				t.Errorf("got %v, want default %v", got, tt.want)
			}
			if form.Err() == nil {
				t.Error("form.Err: got nil, want error")
			}
		})
	}
}

func TestFormInvalidBody(t *testing.T) {
	form := formOf(t, safehttptest.NewJSONRequest("/", `{"pizza":`))
	if form.Err() == nil {
		t.Error("form.Err: got nil, want error")
	}
	if got := form.String("pizza", "none"); got != "none" {
		t.Errorf("form.String: got %q, want none", got)
	}
}
