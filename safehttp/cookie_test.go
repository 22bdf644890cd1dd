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
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/google/go-websecurity/safehttp"
	"github.com/google/go-websecurity/safehttp/safehttptest"
)

func setCookie(name, value string, opts safehttp.CookieOptions, errp *error) http.Handler {
	return safehttptest.Capture(func(r *safehttp.IncomingRequest) {
		*errp = r.Cookies().Set(name, value, opts)
	})
}

func TestCookieSetDefaults(t *testing.T) {
	var err error
	rec := safehttptest.Serve(nil, setCookie("sid", "abc", safehttp.CookieOptions{HTTPOnly: true, SameSite: "lax"}, &err),
		safehttptest.NewRequest(http.MethodGet, "/", nil))
	if err != nil {
		t.Fatalf("Set() got err: %v", err)
	}
	got := rec.Header().Values("Set-Cookie")
	if len(got) != 1 {
		t.Fatalf("Set-Cookie got: %q, want one value", got)
	}
	if want := "sid=abc; Path=/; HttpOnly; SameSite=Lax"; got[0] != want {
		t.Errorf("Set-Cookie got: %q want: %q", got[0], want)
	}
}

func TestCookieSecureFollowsTLS(t *testing.T) {
	var err error
	rec := safehttptest.Serve(nil, setCookie("sid", "abc", safehttp.CookieOptions{}, &err),
		safehttptest.NewRequest(http.MethodGet, "https://example.com/", nil))
	if err != nil {
		t.Fatalf("Set() got err: %v", err)
	}
	c := safehttptest.Cookies(rec)["sid"]
	if c == nil || !c.Secure {
		t.Errorf("cookie over TLS got: %v, want Secure", c)
	}

	no := false
	rec = safehttptest.Serve(nil, setCookie("sid", "abc", safehttp.CookieOptions{Secure: &no}, &err),
		safehttptest.NewRequest(http.MethodGet, "https://example.com/", nil))
	if c := safehttptest.Cookies(rec)["sid"]; c == nil || c.Secure {
		t.Errorf("cookie with Secure=false got: %v, want not Secure", c)
	}
}

func TestCookieOverwrite(t *testing.T) {
	h := safehttptest.Capture(func(r *safehttp.IncomingRequest) {
		r.Cookies().Set("a", "1", safehttp.CookieOptions{})
		r.Cookies().Set("ab", "2", safehttp.CookieOptions{})
		r.Cookies().Set("a", "3", safehttp.CookieOptions{Overwrite: true})
	})
	rec := safehttptest.Serve(nil, h, safehttptest.NewRequest(http.MethodGet, "/", nil))

	got := rec.Header().Values("Set-Cookie")
	if len(got) != 2 {
		t.Fatalf("Set-Cookie got: %q, want two values", got)
	}
	if !strings.HasPrefix(got[0], "ab=2") || !strings.HasPrefix(got[1], "a=3") {
		t.Errorf("Set-Cookie got: %q, want ab=2 then a=3", got)
	}
}

func TestSignedCookieRoundTrip(t *testing.T) {
	var err error
	rec := safehttptest.Serve(nil, setCookie("csrfToken", "s3cret", safehttp.CookieOptions{Signed: true}, &err),
		safehttptest.NewRequest(http.MethodGet, "/", nil), safehttp.WithCookieKeys("k1"))
	if err != nil {
		t.Fatalf("Set() got err: %v", err)
	}
	cookies := safehttptest.Cookies(rec)
	if cookies["csrfToken"] == nil || cookies["csrfToken.sig"] == nil {
		t.Fatalf("cookies got: %v, want value and signature", cookies)
	}

	read := func(keys []string, tamper bool) string {
		req := safehttptest.NewRequest(http.MethodGet, "/", nil)
		v := cookies["csrfToken"].Value
		if tamper {
			v = "other"
		}
		req.AddCookie(&http.Cookie{Name: "csrfToken", Value: v})
		req.AddCookie(&http.Cookie{Name: "csrfToken.sig", Value: cookies["csrfToken.sig"].Value})
		var got string
		safehttptest.Serve(nil, safehttptest.Capture(func(r *safehttp.IncomingRequest) {
			got = r.Cookies().Get("csrfToken", true)
		}), req, safehttp.WithCookieKeys(keys...))
		return got
	}

	if got := read([]string{"k1"}, false); got != "s3cret" {
		t.Errorf("Get(signed) got: %q want: %q", got, "s3cret")
	}
	if got := read([]string{"k2", "k1"}, false); got != "s3cret" {
		t.Errorf("Get(signed) after key rotation got: %q want: %q", got, "s3cret")
	}
	if got := read([]string{"k1"}, true); got != "" {
		t.Errorf("Get(signed) of tampered value got: %q want: empty", got)
	}
	if got := read([]string{"k2"}, false); got != "" {
		t.Errorf("Get(signed) with unknown key got: %q want: empty", got)
	}
}

func TestSignedCookieWithoutKeys(t *testing.T) {
	var err error
	safehttptest.Serve(nil, setCookie("a", "b", safehttp.CookieOptions{Signed: true}, &err),
		safehttptest.NewRequest(http.MethodGet, "/", nil))
	if !errors.Is(err, safehttp.ErrNoSigningKeys) {
		t.Errorf("Set(signed) without keys got err: %v want: %v", err, safehttp.ErrNoSigningKeys)
	}
}

func TestCookieGetUnsigned(t *testing.T) {
	req := safehttptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "csrfToken", Value: "plain"})
	var got, missing string
	safehttptest.Serve(nil, safehttptest.Capture(func(r *safehttp.IncomingRequest) {
		got = r.Cookies().Get("csrfToken", false)
		missing = r.Cookies().Get("nope", false)
	}), req)
	if got != "plain" {
		t.Errorf("Get() got: %q want: %q", got, "plain")
	}
	if missing != "" {
		t.Errorf("Get() of absent cookie got: %q want: empty", missing)
	}
}
