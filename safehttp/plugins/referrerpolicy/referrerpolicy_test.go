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

package referrerpolicy_test

import (
	"net/http"
	"testing"

	"github.com/google/go-websecurity/safehttp"
	"github.com/google/go-websecurity/safehttp/plugins/referrerpolicy"
	"github.com/google/go-websecurity/safehttp/safehttptest"
)

func enabled() referrerpolicy.Config {
	cfg := referrerpolicy.DefaultConfig()
	cfg.Enable = true
	return cfg
}

func TestReferrerPolicy(t *testing.T) {
	for _, v := range []string{"no-referrer", "same-origin", "strict-origin-when-cross-origin", "unsafe-url", ""} {
		cfg := enabled()
		cfg.Value = v
		it, err := referrerpolicy.New(cfg)
		if err != nil {
			t.Fatalf("referrerpolicy.New(%q) got err: %v", v, err)
		}
		rec := safehttptest.Serve([]safehttp.Interceptor{it}, safehttptest.OKHandler, safehttptest.NewRequest(http.MethodGet, "/", nil))
		if got := rec.Header().Values("Referrer-Policy"); len(got) != 1 || got[0] != v {
			t.Errorf("Referrer-Policy got: %q want: [%q]", got, v)
		}
	}
}

func TestDisabledByDefault(t *testing.T) {
	it, _ := referrerpolicy.New(referrerpolicy.DefaultConfig())
	rec := safehttptest.Serve([]safehttp.Interceptor{it}, safehttptest.OKHandler, safehttptest.NewRequest(http.MethodGet, "/", nil))
	if got := rec.Header().Values("Referrer-Policy"); len(got) != 0 {
		t.Errorf("Referrer-Policy got: %q want: none", got)
	}
}

func TestInvalidValue(t *testing.T) {
	cfg := enabled()
	cfg.Value = "oops"
	_, err := referrerpolicy.New(cfg)
	if err == nil {
		t.Fatal("referrerpolicy.New() got: nil err, want error")
	}
	if got, want := err.Error(), `"oops" is not available.`; got != want {
		t.Errorf("err.Error() got: %q want: %q", got, want)
	}
}

func TestInvalidOverride(t *testing.T) {
	it, _ := referrerpolicy.New(enabled())
	h := safehttptest.Capture(func(r *safehttp.IncomingRequest) {
		referrerpolicy.Override(r, func(c *referrerpolicy.Config) { c.Value = "oops" })
	})
	rec := safehttptest.Serve([]safehttp.Interceptor{it}, h, safehttptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("rec.Code got: %d want: %d", rec.Code, http.StatusInternalServerError)
	}
	if got := rec.Body.String(); got != "Internal Server Error\n" {
		t.Errorf("rec.Body got: %q", got)
	}
}

func TestValidOverride(t *testing.T) {
	it, _ := referrerpolicy.New(enabled())
	h := safehttptest.Capture(func(r *safehttp.IncomingRequest) {
		referrerpolicy.Override(r, func(c *referrerpolicy.Config) { c.Value = "origin" })
	})
	rec := safehttptest.Serve([]safehttp.Interceptor{it}, h, safehttptest.NewRequest(http.MethodGet, "/", nil))
	if got := rec.Header().Get("Referrer-Policy"); got != "origin" {
		t.Errorf("Referrer-Policy got: %q want: origin", got)
	}
}
