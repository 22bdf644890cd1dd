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

package csp

// StrictPolicy can be used to build a strict, nonce-based CSP.
//
// See https://csp.withgoogle.com/docs/strict-csp.html for more info.
type StrictPolicy struct {
	// NoStrictDynamic controls whether script-src should contain the 'strict-dynamic'
	// value.
	//
	// See https://developer.mozilla.org/en-US/docs/Web/HTTP/Headers/Content-Security-Policy/script-src#strict-dynamic
	// for more info.
	NoStrictDynamic bool
	// UnsafeEval controls whether script-src should contain the 'unsafe-eval' value.
	// If enabled, the eval() JavaScript function is allowed.
	UnsafeEval bool
	// BaseURI controls the base-uri directive. If BaseURI is an empty string the
	// directive will be set to 'none'.
	BaseURI string
	// ReportURI controls the report-uri directive. If ReportURI is empty, no report-uri
	// directive will be set.
	ReportURI string
	// Hashes adds a set of hashes to script-src, such as
	//  sha256-CihokcEcBW4atb/CW/XWsvWwbTjqwQlE9nj9ii5ww5M=
	Hashes []string
}

// Policy returns the directives of s. The nonce is added to script-src when
// the policy is serialized.
func (s StrictPolicy) Policy() Policy {
	script := []string{"'unsafe-inline'"}
	if !s.NoStrictDynamic {
		script = append(script, "'strict-dynamic'", "https:", "http:")
	}
	if s.UnsafeEval {
		script = append(script, "'unsafe-eval'")
	}
	for _, h := range s.Hashes {
		script = append(script, "'"+h+"'")
	}
	base := s.BaseURI
	if base == "" {
		base = "'none'"
	}
	p := Policy{
		{Name: "object-src", Values: []string{"'none'"}},
		{Name: "script-src", Values: script},
		{Name: "base-uri", Values: []string{base}},
	}
	return withReport(p, s.ReportURI)
}

// FramingPolicy restricts which pages may frame the site, with
// frame-ancestors 'self' followed by AllowList.
type FramingPolicy struct {
	AllowList []string
	// ReportURI controls the report-uri directive. If ReportURI is empty, no report-uri
	// directive will be set.
	ReportURI string
}

// Policy returns the directives of f.
func (f FramingPolicy) Policy() Policy {
	p := Policy{{Name: "frame-ancestors", Values: append([]string{"'self'"}, f.AllowList...)}}
	return withReport(p, f.ReportURI)
}

// TrustedTypesPolicy makes dangerous web API functions secure by default.
//
// See https://web.dev/trusted-types for more info.
type TrustedTypesPolicy struct {
	// ReportURI controls the report-uri directive. If ReportURI is empty, no report-uri
	// directive will be set.
	ReportURI string
}

// Policy returns the directives of t.
func (t TrustedTypesPolicy) Policy() Policy {
	p := Policy{{Name: "require-trusted-types-for", Values: []string{"'script'"}}}
	return withReport(p, t.ReportURI)
}

func withReport(p Policy, uri string) Policy {
	if uri == "" {
		return p
	}
	return append(p, Directive{Name: "report-uri", Values: []string{uri}})
}

// Merge concatenates policies. Later directives with a name already present
// are dropped.
func Merge(policies ...Policy) Policy {
	seen := map[string]bool{}
	var out Policy
	for _, p := range policies {
		for _, d := range p {
			if seen[d.Name] {
				continue
			}
			seen[d.Name] = true
			out = append(out, d)
		}
	}
	return out
}
