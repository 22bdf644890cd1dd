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

// Package hostmatch decides whether hosts and URLs belong to configured
// whitelists.
package hostmatch

import (
	"net/url"
	"strings"

	"golang.org/x/net/idna"
)

// IsSafeDomain reports whether host matches one of the whitelist entries.
//
// Entries are compared case-insensitively and may be:
//   - a literal host, matched exactly
//   - a leading-dot suffix such as ".example.com", which matches example.com
//     and all of its subdomains
//   - a glob such as "*.example.com", where every "*" stands for exactly one
//     label
//   - an absolute URL, of which only the host is compared
//
// An empty whitelist never matches.
func IsSafeDomain(host string, whitelist []string) bool {
	host = normalize(host)
	if host == "" {
		return false
	}
	for _, entry := range whitelist {
		if matchEntry(host, entry) {
			return true
		}
	}
	return false
}

func matchEntry(host, entry string) bool {
	if strings.Contains(entry, "://") {
		u, err := url.Parse(strings.TrimSpace(entry))
		if err != nil {
			return false
		}
		entry = u.Host
	}
	entry = normalize(entry)
	switch {
	case entry == "":
		return false
	case strings.HasPrefix(entry, "."):
		return host == entry[1:] || strings.HasSuffix(host, entry)
	case strings.Contains(entry, "*"):
		return matchGlob(host, entry)
	default:
		return host == entry
	}
}

// matchGlob compares host and pattern label by label. A "*" label matches
// any single non-empty label, any other label must be equal.
func matchGlob(host, pattern string) bool {
	hl := strings.Split(host, ".")
	pl := strings.Split(pattern, ".")
	if len(hl) != len(pl) {
		return false
	}
	for i, p := range pl {
		if p == "*" {
			if hl[i] == "" {
				return false
			}
			continue
		}
		if p != hl[i] {
			return false
		}
	}
	return true
}

func normalize(host string) string {
	host = strings.ToLower(strings.TrimSpace(host))
	for i := 0; i < len(host); i++ {
		if host[i] >= 0x80 {
			if a, err := idna.ToASCII(host); err == nil {
				return a
			}
			return host
		}
	}
	return host
}

// Protocol returns the lowercased protocol of rawURL, taken as everything
// before the first "://". URLs without "://" have no protocol.
func Protocol(rawURL string) string {
	scheme, _, ok := strings.Cut(rawURL, "://")
	if !ok {
		return ""
	}
	return strings.ToLower(scheme)
}

// IsSafeProtocol reports whether the protocol of rawURL is one of protocols.
func IsSafeProtocol(rawURL string, protocols []string) bool {
	p := Protocol(rawURL)
	if p == "" {
		return false
	}
	for _, allowed := range protocols {
		if strings.EqualFold(p, allowed) {
			return true
		}
	}
	return false
}

// Host returns the host (including the port, if any) of rawURL, or an empty
// string if rawURL cannot be parsed.
func Host(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Host
}

// Hostname returns the host of rawURL without the port, or an empty string
// if rawURL cannot be parsed.
func Hostname(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}
