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
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/go-chi/chi/v5"
	"gopkg.in/yaml.v3"
)

// Matcher selects requests. The set of implementations is closed: use Path,
// Pattern, Func or Rules to build one.
type Matcher interface {
	Match(r *IncomingRequest) bool
	matcher()
}

var noopHandler = http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})

type pathMatcher struct {
	pattern string
	mux     *chi.Mux
}

// Path returns a Matcher selecting requests whose path starts with the chi
// route pattern at a segment boundary: "/api" selects "/api" and "/api/v1",
// but not "/apiv1". Patterns may use chi placeholders such as "/user/{id}"
// and a trailing "/*".
func Path(pattern string) (Matcher, error) {
	if !strings.HasPrefix(pattern, "/") {
		return nil, fmt.Errorf("path pattern %q must begin with '/'", pattern)
	}
	mux := chi.NewMux()
	if err := register(mux, pattern); err != nil {
		return nil, err
	}
	if !strings.HasSuffix(pattern, "*") {
		if err := register(mux, strings.TrimSuffix(pattern, "/")+"/*"); err != nil {
			return nil, err
		}
	}
	return pathMatcher{pattern: pattern, mux: mux}, nil
}

// MustPath is like Path but panics on an invalid pattern.
func MustPath(pattern string) Matcher {
	m, err := Path(pattern)
	if err != nil {
		panic(err)
	}
	return m
}

// register adds pattern to mux, turning chi's panics on malformed patterns
// into errors.
func register(mux *chi.Mux, pattern string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("invalid path pattern %q: %v", pattern, r)
		}
	}()
	mux.Handle(pattern, noopHandler)
	return nil
}

func (m pathMatcher) Match(r *IncomingRequest) bool {
	return m.mux.Match(chi.NewRouteContext(), http.MethodGet, r.Path())
}

func (pathMatcher) matcher() {}

func (m pathMatcher) String() string { return m.pattern }

type patternMatcher struct {
	re *regexp.Regexp
}

// Pattern returns a Matcher selecting requests whose path matches re.
func Pattern(re *regexp.Regexp) Matcher {
	return patternMatcher{re: re}
}

func (m patternMatcher) Match(r *IncomingRequest) bool {
	return m.re.MatchString(r.Path())
}

func (patternMatcher) matcher() {}

func (m patternMatcher) String() string { return m.re.String() }

type funcMatcher func(*IncomingRequest) bool

// Func returns a Matcher delegating to fn. Panics raised by fn are not
// recovered.
func Func(fn func(r *IncomingRequest) bool) Matcher {
	return funcMatcher(fn)
}

func (f funcMatcher) Match(r *IncomingRequest) bool { return f(r) }

func (funcMatcher) matcher() {}

// Rules is an ordered list of matchers with OR semantics: it selects a
// request if any of its entries does.
//
// In YAML a rule is either a string (a Path pattern), a mapping with a
// "path" or "pattern" (regular expression) key, or a sequence of those.
type Rules []Matcher

// Match reports whether any rule selects r.
func (rs Rules) Match(r *IncomingRequest) bool {
	for _, m := range rs {
		if m.Match(r) {
			return true
		}
	}
	return false
}

func (Rules) matcher() {}

// UnmarshalYAML implements yaml.Unmarshaler.
func (rs *Rules) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode && node.Tag == "!!null" {
		*rs = nil
		return nil
	}
	nodes := []*yaml.Node{node}
	if node.Kind == yaml.SequenceNode {
		nodes = node.Content
	}
	var out Rules
	for _, n := range nodes {
		m, err := decodeMatcher(n)
		if err != nil {
			return err
		}
		out = append(out, m)
	}
	*rs = out
	return nil
}

func decodeMatcher(n *yaml.Node) (Matcher, error) {
	switch n.Kind {
	case yaml.ScalarNode:
		return Path(n.Value)
	case yaml.MappingNode:
		var spec struct {
			Path    string `yaml:"path"`
			Pattern string `yaml:"pattern"`
		}
		if err := n.Decode(&spec); err != nil {
			return nil, err
		}
		switch {
		case spec.Pattern != "":
			re, err := regexp.Compile(spec.Pattern)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", n.Line, err)
			}
			return Pattern(re), nil
		case spec.Path != "":
			return Path(spec.Path)
		}
		return nil, fmt.Errorf("line %d: matcher needs a path or a pattern", n.Line)
	}
	return nil, fmt.Errorf("line %d: unsupported matcher", n.Line)
}

// Gate holds the match/ignore rules of a feature. Match wins over Ignore
// when both are set.
type Gate struct {
	Match  Rules `yaml:"match"`
	Ignore Rules `yaml:"ignore"`
}

// Ignores reports whether the feature is skipped for r: r is not selected
// by Match, or, when Match is unset, r is selected by Ignore.
func (g Gate) Ignores(r *IncomingRequest) bool {
	if len(g.Match) > 0 {
		return !g.Match.Match(r)
	}
	if len(g.Ignore) > 0 {
		return g.Ignore.Match(r)
	}
	return false
}

// CheckIgnore reports whether a feature should be skipped for r because it
// is disabled or because its gate ignores r.
func CheckIgnore(enable bool, g Gate, r *IncomingRequest) bool {
	return !enable || g.Ignores(r)
}
