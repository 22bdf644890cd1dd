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

// Package htmlinject rewrites HTML templates so that rendered pages carry the
// values the security middlewares expect: hidden CSRF inputs in forms and
// nonces on scripts.
//
// The rewrite happens once, on the template source. The injected snippets call
// template functions (CSRFToken and CSPNonce by default) that FuncMap binds to
// the current request.
package htmlinject

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
)

// Default names of the template functions called by the injected snippets.
const (
	CSRFTokenFuncName = "CSRFToken"
	CSPNonceFuncName  = "CSPNonce"
)

// Rule is a directive to instruct Transform on how to rewrite the given template.
type Rule struct {
	// Name is used for debug purposes in case rewriting fails.
	Name string
	// OnTag is the tag to be used to trigger the rule.
	OnTag string
	// WithAttributes is a filter applied on tags to decide whether to run the Rule:
	// only tags with the given attributes key:value will be matched.
	WithAttributes map[string]string
	// UnlessAttribute skips tags that already carry the named attribute.
	UnlessAttribute string
	// UnlessChild skips elements that already contain a descendant matching it.
	UnlessChild *Child
	// AddAttributes is a list of strings inserted verbatim right after the tag
	// name, so they should be prefixed with a space.
	AddAttributes []string
	// AddNodes is a list of nodes to append immediately after the opening tag that matched.
	// For elements that have a matching closing tag the added node will be
	// a child node, for void elements it will be a sibling.
	AddNodes []string
}

func (r Rule) String() string { return r.Name }

// Child selects a descendant element by tag and attribute values.
type Child struct {
	Tag        string
	Attributes map[string]string
}

// Config is a slice of Rules that are somehow related to each other.
type Config []Rule

// CSPNoncesDefault adds nonce="{{CSPNonce}}" to scripts, styles and script
// preloads that have no nonce yet.
var CSPNoncesDefault = CSPNonces(`nonce="{{` + CSPNonceFuncName + `}}"`)

// CSPNonces constructs a Config to add CSP nonces to a template. The given nonce
// attribute will be automatically prefixed with the required empty space.
func CSPNonces(nonceAttr string) Config {
	nonceAttr = " " + nonceAttr
	return Config{
		Rule{
			Name:            "Nonces for scripts",
			OnTag:           "script",
			UnlessAttribute: "nonce",
			AddAttributes:   []string{nonceAttr},
		},
		Rule{
			Name:            "Nonces for styles",
			OnTag:           "style",
			UnlessAttribute: "nonce",
			AddAttributes:   []string{nonceAttr},
		},
		Rule{
			Name:            "Nonces for link as=script rel=preload",
			OnTag:           "link",
			WithAttributes:  map[string]string{"rel": "preload", "as": "script"},
			UnlessAttribute: "nonce",
			AddAttributes:   []string{nonceAttr},
		},
	}
}

// CSRFTokensDefault adds a hidden _csrf input, valued with {{CSRFToken}}, to
// every form that does not already submit a _csrf field.
var CSRFTokensDefault = CSRFTokens("_csrf", `<input type="hidden" name="_csrf" value="{{`+CSRFTokenFuncName+`}}">`)

// CSRFTokens constructs a Config to add inputTag as the first child of forms
// that have no input named field.
func CSRFTokens(field, inputTag string) Config {
	return Config{Rule{
		Name:        "Hidden CSRF input for forms",
		OnTag:       "form",
		UnlessChild: &Child{Tag: "input", Attributes: map[string]string{"name": field}},
		AddNodes:    []string{inputTag},
	}}
}

// Transform rewrites the given template according to the given configs.
func Transform(src io.Reader, cfg ...Config) (tpl string, _ error) {
	rw := rewriter{
		rules: map[string][]Rule{},
		out:   &strings.Builder{},
	}
	for _, c := range cfg {
		for _, r := range c {
			rw.rules[r.OnTag] = append(rw.rules[r.OnTag], r)
		}
	}
	if err := rw.tokenize(html.NewTokenizer(src)); err != nil {
		return "", fmt.Errorf("transforming template: %v", err)
	}
	if err := rw.rewrite(); err != nil {
		return "", fmt.Errorf("transforming template: %v", err)
	}
	return rw.out.String(), nil
}

// InjectCSRF adds the default hidden CSRF input to the forms in src.
func InjectCSRF(src string) (string, error) {
	return Transform(strings.NewReader(src), CSRFTokensDefault)
}

// InjectNonce adds the default nonce attribute to the scripts in src.
func InjectNonce(src string) (string, error) {
	return Transform(strings.NewReader(src), CSPNoncesDefault)
}

const hijackingMarker = "<!--for injection--><!--</html>--><!--for injection-->"

// HijackingDefense wraps src in comment markers that stop injected markup
// from swallowing the rest of the page.
func HijackingDefense(src string) string {
	return hijackingMarker + src + hijackingMarker
}

type token struct {
	typ  html.TokenType
	raw  []byte
	name string
	attr []html.Attribute
}

type rewriter struct {
	// tag -> rules for that tag
	rules  map[string][]Rule
	tokens []token
	out    *strings.Builder
}

// tokenize buffers the whole template so that rules can look ahead.
func (r *rewriter) tokenize(z *html.Tokenizer) error {
	for {
		typ := z.Next()
		raw := append([]byte(nil), z.Raw()...)
		if typ == html.ErrorToken {
			if err := z.Err(); !errors.Is(err, io.EOF) {
				return err
			}
			// EOF, keep whatever is left.
			r.tokens = append(r.tokens, token{typ: typ, raw: raw})
			return nil
		}
		t := token{typ: typ, raw: raw}
		if typ == html.StartTagToken || typ == html.SelfClosingTagToken || typ == html.EndTagToken {
			tok := z.Token()
			t.name, t.attr = tok.Data, tok.Attr
		}
		r.tokens = append(r.tokens, t)
	}
}

func (r *rewriter) rewrite() error {
	for i, t := range r.tokens {
		switch t.typ {
		case html.StartTagToken, html.SelfClosingTagToken:
			if err := r.processTag(i); err != nil {
				return err
			}
		default:
			r.out.Write(t.raw)
		}
	}
	return nil
}

func (r *rewriter) processTag(i int) error {
	t := r.tokens[i]
	var attrs, nodes []string
	for _, rule := range r.rules[t.name] {
		if !r.matches(i, rule) {
			continue
		}
		attrs = append(attrs, rule.AddAttributes...)
		nodes = append(nodes, rule.AddNodes...)
	}
	if len(attrs) == 0 && len(nodes) == 0 {
		r.out.Write(t.raw)
		return nil
	}
	end := nameEnd(t.raw)
	if end < 0 {
		return fmt.Errorf("malformed tag %q", t.raw)
	}
	r.out.Write(t.raw[:end])
	for _, a := range attrs {
		r.out.WriteString(a)
	}
	r.out.Write(t.raw[end:])
	for _, n := range nodes {
		r.out.WriteString(n)
	}
	return nil
}

func (r *rewriter) matches(i int, rule Rule) bool {
	t := r.tokens[i]
	for k, v := range rule.WithAttributes {
		got, ok := attr(t.attr, k)
		if !ok || got != v {
			return false
		}
	}
	if rule.UnlessAttribute != "" {
		if _, ok := attr(t.attr, rule.UnlessAttribute); ok {
			return false
		}
	}
	if rule.UnlessChild != nil && t.typ == html.StartTagToken && r.hasChild(i, rule.UnlessChild) {
		return false
	}
	return true
}

// hasChild reports whether an element between tokens[i] and its closing tag
// matches c.
func (r *rewriter) hasChild(i int, c *Child) bool {
	name := r.tokens[i].name
	depth := 0
	for _, t := range r.tokens[i+1:] {
		switch {
		case t.typ == html.StartTagToken && t.name == name:
			depth++
		case t.typ == html.EndTagToken && t.name == name:
			if depth == 0 {
				return false
			}
			depth--
		}
		if (t.typ == html.StartTagToken || t.typ == html.SelfClosingTagToken) && t.name == c.Tag && hasAttributes(t.attr, c.Attributes) {
			return true
		}
	}
	return false
}

func hasAttributes(attrs []html.Attribute, want map[string]string) bool {
	for k, v := range want {
		got, ok := attr(attrs, k)
		if !ok || got != v {
			return false
		}
	}
	return true
}

func attr(attrs []html.Attribute, key string) (string, bool) {
	for _, a := range attrs {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// nameEnd returns the offset right after the tag name in raw.
func nameEnd(raw []byte) int {
	if len(raw) < 2 || raw[0] != '<' {
		return -1
	}
	if i := bytes.IndexAny(raw[1:], " \t\n\f\r/>"); i >= 0 {
		return i + 1
	}
	return -1
}
