// Copyright 2020 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//   https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package bannedapi

import (
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/tools/go/analysis/analysistest"
)

func TestBannedAPIAnalyzer(t *testing.T) {
	t.Parallel()
	tests := []struct {
		desc  string
		files map[string]string
		pkgs  []string
	}{
		{
			desc: "No banned APIs",
			files: map[string]string{
				"config.json": `
				{}
				`,
				"main/test.go": `
				package main;
				func main() {}
				`,
			},
		},
		{
			desc: "Banned APIs exist",
			files: map[string]string{
				"config.json": `
				{
					"functions": [
						{
							"name": "fmt.Printf",
							"msg": "Banned by team A"
						}
					],
					"imports": [
						{
							"name": "fmt",
							"msg": "Banned by team A"
						}
					]
				}
				`,
				"main/test.go": `
				package main

				import "fmt" // want "Banned API found \"fmt\". Additional info: Banned by team A"

				func main() {
					fmt.Printf("Hello") // want "Banned API found \"fmt.Printf\". Additional info: Banned by team A"
				}
				`,
			},
		},
		{
			desc: "Banned APIs in exempted package",
			files: map[string]string{
				"config.json": `
				{
					"functions": [
						{
							"name": "fmt.Printf",
							"msg": "Banned by team A",
							"exemptions": [
								{
									"justification": "#yolo",
									"allowedPkg": "main"
								}
							]
						}
					],
					"imports": [
						{
							"name": "fmt",
							"msg": "Banned by team A",
							"exemptions": [
								{
									"justification": "#yolo",
									"allowedPkg": "main"
								}
							]
						}
					]
				}
				`,
				"main/test.go": `
				package main

				import "fmt"

				func main() {
					fmt.Printf("Hello")
				}
				`,
			},
		},
		{
			desc: "Banned renamed import",
			files: map[string]string{
				"config.json": `
				{
					"imports": [
						{
							"name": "fmt",
							"msg": "Banned by team A"
						}
					]
				}
				`,
				"main/test.go": `
				package main

				import renamed "fmt" // want "Banned API found \"fmt\". Additional info: Banned by team A"

				func main() {
					renamed.Printf("Hello")
				}
				`,
			},
		},
		{
			desc: "Banned function from renamed import",
			files: map[string]string{
				"config.json": `
				{
					"functions": [
						{
							"name": "fmt.Printf",
							"msg": "Banned by team A"
						}
					]
				}
				`,
				"main/test.go": `
				package main

				import renamed "fmt"

				func main() {
					renamed.Printf("Hello") // want "Banned API found \"fmt.Printf\". Additional info: Banned by team A"
				}
				`,
			},
		},
		{
			desc: "Package and function name collission",
			files: map[string]string{
				"config.json": `
				{
					"functions": [
						{
							"name": "fmt.Printf",
							"msg": "Banned by team A"
						}
					]
				}
				`,
				"main/test.go": `
				package main

				type Foo struct{}

				func (f *Foo) Printf(txt string) {}

				func main() {
					var fmt = &Foo{}
					fmt.Printf("Hello")
				}
				`,
			},
		},
		{
			desc: "Banned API from multiple config files",
			files: map[string]string{
				"team_a_config.json": `
				{
					"functions": [
						{
							"name": "fmt.Printf",
							"msg": "Banned by team A"
						}
					]
				}
				`,
				"team_b_config.json": `
				{
					"functions": [
						{
							"name": "fmt.Printf",
							"msg": "Banned by team B"
						}
					]
				}
				`,
				"main/test.go": `
				package main

				import "fmt"

				func main() {
					fmt.Printf("Hello") // want "Banned API found \"fmt.Printf\". Additional info: Banned by team A" "Banned API found \"fmt.Printf\". Additional info: Banned by team B"
				}
				`,
			},
		},
		{
			desc: "Banned API in one of many config files",
			files: map[string]string{
				"team_a_config.json": `
				{
					"functions": [
						{
							"name": "fmt.Printf",
							"msg": "Banned by team A",
							"exemptions": [
								{
									"justification": "#yolo",
									"allowedPkg": "main"
								}
							]
						}
					]
				}
				`,
				"team_b_config.json": `
				{
					"functions": [
						{
							"name": "fmt.Printf",
							"msg": "Banned by team B for realz"
						}
					]
				}
				`,
				"main/test.go": `
				package main

				import "fmt"

				func main() {
					fmt.Printf("Hello") // want "Banned API found \"fmt.Printf\". Additional info: Banned by team B for realz"
				}
				`,
			},
		},
		{
			desc: "Banned package variable",
			files: map[string]string{
				"config.json": `
				{
					"functions": [
						{
							"name": "os.Args",
							"msg": "Use flags"
						}
					]
				}
				`,
				"main/test.go": `
				package main

				import "os"

				type T struct{ Args []string }

				func main() {
					_ = os.Args // want "Banned API found \"os.Args\". Additional info: Use flags"
					var t T
					_ = t.Args
				}
				`,
			},
		},
		{
			desc: "Methods are not package functions",
			files: map[string]string{
				"config.json": `
				{
					"functions": [
						{
							"name": "strings.Replace",
							"msg": "Banned by team A"
						}
					]
				}
				`,
				"main/test.go": `
				package main

				import "strings"

				func main() {
					r := strings.NewReplacer("a", "b")
					_ = r.Replace("abc")
				}
				`,
			},
		},
		{
			desc: "YAML config",
			files: map[string]string{
				"config.yaml": "functions:\n  - name: fmt.Println\n    msg: Banned in YAML\n",
				"main/test.go": `
				package main

				import "fmt"

				func main() {
					fmt.Println("Hello") // want "Banned API found \"fmt.Println\". Additional info: Banned in YAML"
				}
				`,
			},
		},
		{
			desc: "Exempted package tree",
			files: map[string]string{
				"config.json": `
				{
					"functions": [
						{
							"name": "fmt.Println",
							"msg": "Banned by team A",
							"exemptions": [
								{
									"justification": "Vetted",
									"allowedPkg": "app/client/..."
								}
							]
						}
					]
				}
				`,
				"app/client/client.go": `
				package client

				import "fmt"

				func Print() { fmt.Println("Hello") }
				`,
				"app/client/inner/inner.go": `
				package inner

				import "fmt"

				func Print() { fmt.Println("Hello") }
				`,
				"app/server/server.go": `
				package server

				import "fmt"

				func Print() {
					fmt.Println("Hello") // want "Banned API found \"fmt.Println\". Additional info: Banned by team A"
				}
				`,
			},
			pkgs: []string{"app/..."},
		},
	}

	for _, test := range tests {
		test := test
		t.Run(test.desc, func(t *testing.T) {
			t.Parallel()
			dir, cleanup, err := analysistest.WriteFiles(test.files)
			if err != nil {
				t.Fatalf("WriteFiles() returned err: %v", err)
			}
			defer cleanup()

			var configFiles []string
			for name := range test.files {
				if strings.HasSuffix(name, "config.json") || strings.HasSuffix(name, "config.yaml") {
					configFiles = append(configFiles, filepath.Join(dir, "src", name))
				}
			}
			pkgs := test.pkgs
			if pkgs == nil {
				pkgs = []string{"main"}
			}

			a := NewAnalyzer()
			a.Flags.Set("configs", strings.Join(configFiles, ","))
			analysistest.Run(t, dir, a, pkgs...)
		})
	}
}

func TestWebSecurityRules(t *testing.T) {
	dir, cleanup, err := analysistest.WriteFiles(map[string]string{
		"main/test.go": `
		package main

		import (
			"net/http"

			"github.com/google/go-websecurity/safehttp"
		)

		func handler(w http.ResponseWriter, r *http.Request) {
			http.SetCookie(w, &http.Cookie{Name: "a"}) // want "Banned API found \"net/http.SetCookie\""
			safehttp.UnsafeRedirect(w, r, "/", 302) // want "Banned API found \"github.com/google/go-websecurity/safehttp.UnsafeRedirect\""
		}

		func main() {
			http.Get("http://example.com/") // want "Banned API found \"net/http.Get\""
			http.PostForm("http://example.com/", nil) // want "Banned API found \"net/http.PostForm\""
			req, _ := http.NewRequest("GET", "http://example.com/", nil)
			http.DefaultClient.Do(req) // want "Banned API found \"net/http.DefaultClient\""
			http.HandleFunc("/", handler)
		}
		`,
		"github.com/google/go-websecurity/safehttp/safehttp.go": `
		package safehttp

		import "net/http"

		func UnsafeRedirect(w http.ResponseWriter, r *http.Request, target string, code int) {
			http.SetCookie(w, &http.Cookie{Name: "a"})
			http.Redirect(w, r, target, code)
		}
		`,
		"github.com/google/go-websecurity/ssrf/ssrf.go": `
		package ssrf

		import "net/http"

		func Get(url string) (*http.Response, error) {
			return http.Get(url)
		}
		`,
	})
	if err != nil {
		t.Fatalf("WriteFiles() returned err: %v", err)
	}
	defer cleanup()

	a := NewAnalyzer()
	a.Flags.Set("websecurity", "true")
	analysistest.Run(t, dir, a, "main", "github.com/google/go-websecurity/...")
}

func TestMissingConfig(t *testing.T) {
	a := NewAnalyzer()
	if _, err := loadConfig(&a.Flags); err == nil {
		t.Error("loadConfig() got nil err, want missing config files")
	}

	a.Flags.Set("websecurity", "true")
	cfg, err := loadConfig(&a.Flags)
	if err != nil {
		t.Fatalf("loadConfig() got err: %v", err)
	}
	if len(cfg.Functions) == 0 || len(cfg.Imports) == 0 {
		t.Errorf("loadConfig() got %d functions and %d imports, want built-in rules", len(cfg.Functions), len(cfg.Imports))
	}
}
