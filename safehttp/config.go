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
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Names is an ordered list of names. In YAML it can be written as a single
// string, a comma separated string, or a sequence.
type Names []string

// SplitNames splits a comma separated list, dropping empty entries.
func SplitNames(s string) Names {
	var out Names
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (n *Names) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		if node.Tag == "!!null" {
			*n = nil
			return nil
		}
		*n = SplitNames(node.Value)
		return nil
	case yaml.SequenceNode:
		var list []string
		if err := node.Decode(&list); err != nil {
			return err
		}
		var out Names
		for _, s := range list {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
		*n = out
		return nil
	}
	return fmt.Errorf("line %d: expected a string or a list of strings", node.Line)
}

// First returns the first name, or "".
func (n Names) First() string {
	if len(n) == 0 {
		return ""
	}
	return n[0]
}

// Regexp is a regular expression that can be decoded from a YAML string.
type Regexp struct {
	*regexp.Regexp
}

// MustCompile compiles expr, panicking on failure.
func MustCompile(expr string) Regexp {
	return Regexp{regexp.MustCompile(expr)}
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (re *Regexp) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	c, err := regexp.Compile(s)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	re.Regexp = c
	return nil
}

// MatchString reports whether s matches. A zero Regexp matches nothing.
func (re Regexp) MatchString(s string) bool {
	return re.Regexp != nil && re.Regexp.MatchString(s)
}
