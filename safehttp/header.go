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
	"errors"
	"net/http"
	"net/textproto"
	"strings"
)

var disallowedHeaders = map[string]bool{"Set-Cookie": true}

const disallowedErrorMessage = "disallowed header"

// Header represents the key-value pairs in an HTTP response header.
// The keys will be in canonical form, as returned by
// textproto.CanonicalMIMEHeaderKey.
//
// Set-Cookie cannot be manipulated through Header, cookies are issued
// through the request's CookieJar instead.
type Header struct {
	wrapped http.Header
}

func newHeader(h http.Header) Header {
	return Header{wrapped: h}
}

// Set sets the header with the given name to the given value, removing all
// other values currently associated with it.
func (h Header) Set(name, value string) error {
	name = textproto.CanonicalMIMEHeaderKey(name)
	if disallowedHeaders[name] {
		return errors.New(disallowedErrorMessage)
	}
	h.wrapped.Set(name, value)
	return nil
}

// Add adds a new header with the given name and the given value to the
// collection of headers.
func (h Header) Add(name, value string) error {
	name = textproto.CanonicalMIMEHeaderKey(name)
	if disallowedHeaders[name] {
		return errors.New(disallowedErrorMessage)
	}
	h.wrapped.Add(name, value)
	return nil
}

// Del deletes all headers with the given name.
func (h Header) Del(name string) error {
	name = textproto.CanonicalMIMEHeaderKey(name)
	if disallowedHeaders[name] {
		return errors.New(disallowedErrorMessage)
	}
	h.wrapped.Del(name)
	return nil
}

// Get returns the value of the first header with the given name.
// If no header exists with the given name then "" is returned.
func (h Header) Get(name string) string {
	return h.wrapped.Get(name)
}

// Values returns all the values of all the headers with the given name.
// If no header exists with the name `name` then nil is returned.
func (h Header) Values(name string) []string {
	return h.wrapped.Values(name)
}

// addCookie queues c as a Set-Cookie header. With overwrite, previously
// queued cookies with the same name are dropped first.
func (h Header) addCookie(c *http.Cookie, overwrite bool) error {
	v := c.String()
	if v == "" {
		return errors.New("invalid cookie name")
	}
	if overwrite {
		prefix := c.Name + "="
		var kept []string
		for _, sc := range h.wrapped.Values("Set-Cookie") {
			if !strings.HasPrefix(sc, prefix) {
				kept = append(kept, sc)
			}
		}
		h.wrapped.Del("Set-Cookie")
		for _, sc := range kept {
			h.wrapped.Add("Set-Cookie", sc)
		}
	}
	h.wrapped.Add("Set-Cookie", v)
	return nil
}

// clear removes every header, cookies included.
func (h Header) clear() {
	for k := range h.wrapped {
		delete(h.wrapped, k)
	}
}
