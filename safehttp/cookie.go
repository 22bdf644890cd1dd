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
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"golang.org/x/crypto/hkdf"
)

// ErrNoSigningKeys is returned when a signed cookie is requested but the
// pipeline has no signing keys.
var ErrNoSigningKeys = errors.New("keys required for signed cookies")

// sigSuffix is appended to a cookie name to form the name of its signature
// cookie.
const sigSuffix = ".sig"

// CookieOptions controls how a cookie is issued and read.
//
// For more info about the attributes, see:
// https://developer.mozilla.org/en-US/docs/Web/HTTP/Headers/Set-Cookie
type CookieOptions struct {
	// Signed issues a companion "<name>.sig" cookie holding an HMAC of the
	// value. Reading a signed cookie whose signature does not verify yields
	// an empty value.
	Signed bool `yaml:"signed"`
	// HTTPOnly hides the cookie from scripts.
	HTTPOnly bool `yaml:"httpOnly"`
	// Overwrite drops cookies with the same name queued earlier in the same
	// response.
	Overwrite bool `yaml:"overwrite"`
	// Domain sets the Domain attribute. Empty means host-only.
	Domain string `yaml:"domain"`
	// Path defaults to "/".
	Path string `yaml:"path"`
	// SameSite is one of "lax", "strict", "none" or empty.
	SameSite string `yaml:"sameSite"`
	// Secure defaults to whether the request arrived over TLS.
	Secure *bool `yaml:"secure"`
	// MaxAge in seconds. Zero means a session cookie.
	MaxAge int `yaml:"maxAge"`
}

func (o CookieOptions) sameSite() http.SameSite {
	switch strings.ToLower(o.SameSite) {
	case "lax":
		return http.SameSiteLaxMode
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	}
	return http.SameSiteDefaultMode
}

// keyring signs and verifies cookie values. The first key signs, every key
// verifies so that keys can be rotated.
type keyring struct {
	keys [][]byte
}

// newKeyring derives one HMAC key per secret with HKDF-SHA256.
func newKeyring(secrets []string) (*keyring, error) {
	kr := &keyring{}
	for _, s := range secrets {
		if s == "" {
			continue
		}
		k := make([]byte, 32)
		r := hkdf.New(sha256.New, []byte(s), nil, []byte("go-websecurity cookie signing"))
		if _, err := io.ReadFull(r, k); err != nil {
			return nil, fmt.Errorf("deriving cookie key: %w", err)
		}
		kr.keys = append(kr.keys, k)
	}
	return kr, nil
}

func (kr *keyring) empty() bool {
	return kr == nil || len(kr.keys) == 0
}

func (kr *keyring) sign(data string) string {
	return mac(kr.keys[0], data)
}

func (kr *keyring) verify(data, sig string) bool {
	if kr.empty() || sig == "" {
		return false
	}
	for _, k := range kr.keys {
		if hmac.Equal([]byte(mac(k, data)), []byte(sig)) {
			return true
		}
	}
	return false
}

func mac(key []byte, data string) string {
	h := hmac.New(sha256.New, key)
	h.Write([]byte(data))
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil))
}

// CookieJar reads cookies from the request and queues Set-Cookie headers on
// the response of the same flight.
type CookieJar struct {
	req    *http.Request
	header Header
	keys   *keyring
}

// Get returns the value of the named request cookie, or "" if it is absent.
// When signed is true the value is only returned if its signature cookie
// verifies.
func (j *CookieJar) Get(name string, signed bool) string {
	c, err := j.req.Cookie(name)
	if err != nil {
		return ""
	}
	if !signed {
		return c.Value
	}
	sig, err := j.req.Cookie(name + sigSuffix)
	if err != nil {
		return ""
	}
	if !j.keys.verify(name+"="+c.Value, sig.Value) {
		return ""
	}
	return c.Value
}

// Set queues a Set-Cookie header for name=value with the given options.
func (j *CookieJar) Set(name, value string, opts CookieOptions) error {
	if opts.Signed && j.keys.empty() {
		return ErrNoSigningKeys
	}
	secure := j.req.TLS != nil
	if opts.Secure != nil {
		secure = *opts.Secure
	}
	path := opts.Path
	if path == "" {
		path = "/"
	}
	c := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     path,
		Domain:   opts.Domain,
		MaxAge:   opts.MaxAge,
		Secure:   secure,
		HttpOnly: opts.HTTPOnly,
		SameSite: opts.sameSite(),
	}
	if err := j.header.addCookie(c, opts.Overwrite); err != nil {
		return err
	}
	if !opts.Signed {
		return nil
	}
	sc := *c
	sc.Name = name + sigSuffix
	sc.Value = j.keys.sign(name + "=" + value)
	return j.header.addCookie(&sc, opts.Overwrite)
}
