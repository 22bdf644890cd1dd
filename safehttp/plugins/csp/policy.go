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

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Directive is a single CSP directive, such as script-src 'self'.
type Directive struct {
	Name   string
	Values []string
	// Bare renders the directive without values, as in "sandbox".
	Bare bool
}

// Policy is an ordered list of directives. In YAML it is written as a
// mapping from directive name to a value or a list of values, kept in
// document order. A directive set to true is rendered bare.
type Policy []Directive

// With returns a copy of p where the named directive has the given values,
// appended at the end if p does not have it.
func (p Policy) With(name string, values ...string) Policy {
	out := make(Policy, 0, len(p)+1)
	found := false
	for _, d := range p {
		if d.Name == name {
			d = Directive{Name: name, Values: append([]string(nil), values...)}
			found = true
		}
		out = append(out, d)
	}
	if !found {
		out = append(out, Directive{Name: name, Values: append([]string(nil), values...)})
	}
	return out
}

// Without returns a copy of p without the named directive.
func (p Policy) Without(name string) Policy {
	var out Policy
	for _, d := range p {
		if d.Name != name {
			out = append(out, d)
		}
	}
	return out
}

// Serialize renders p for a Content-Security-Policy header. script-src gets
// the nonce appended unless it already lists a nonce, and sources starting
// with "." are expanded to match any subdomain.
func (p Policy) Serialize(nonce string) string {
	parts := make([]string, 0, len(p))
	for _, d := range p {
		if d.Bare {
			parts = append(parts, d.Name)
			continue
		}
		values := append([]string(nil), d.Values...)
		if d.Name == "script-src" && nonce != "" && !hasNonce(values) {
			values = append(values, "'nonce-"+nonce+"'")
		}
		for i, v := range values {
			if strings.HasPrefix(v, ".") {
				values[i] = "*" + v
			}
		}
		parts = append(parts, strings.TrimSpace(d.Name+" "+strings.Join(values, " ")))
	}
	return strings.Join(parts, ";")
}

func hasNonce(values []string) bool {
	for _, v := range values {
		if strings.Contains(v, "nonce-") {
			return true
		}
	}
	return false
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (p *Policy) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode && node.Tag == "!!null" {
		*p = nil
		return nil
	}
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: csp policy must be a mapping", node.Line)
	}
	var out Policy
	for i := 0; i+1 < len(node.Content); i += 2 {
		name, value := node.Content[i].Value, node.Content[i+1]
		d := Directive{Name: name}
		switch value.Kind {
		case yaml.ScalarNode:
			switch {
			case value.Tag == "!!bool":
				var b bool
				if err := value.Decode(&b); err != nil {
					return err
				}
				if !b {
					continue
				}
				d.Bare = true
			case value.Tag == "!!null":
				d.Bare = true
			default:
				d.Values = strings.Fields(value.Value)
			}
		case yaml.SequenceNode:
			if err := value.Decode(&d.Values); err != nil {
				return fmt.Errorf("line %d: directive %q: %w", value.Line, name, err)
			}
		default:
			return fmt.Errorf("line %d: directive %q must be a string, a list or a boolean", value.Line, name)
		}
		out = append(out, d)
	}
	*p = out
	return nil
}
