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

// Package bannedapi provides an analyzer reporting the use of banned
// imports, functions and package variables.
package bannedapi

import (
	"errors"
	"flag"
	"fmt"
	"go/token"
	"go/types"
	"path"
	"strings"

	"golang.org/x/tools/go/analysis"

	"github.com/google/go-websecurity/cmd/bancheck/config"
)

// NewAnalyzer returns an analyzer that checks for usage of banned APIs.
func NewAnalyzer() *analysis.Analyzer {
	fs := flag.NewFlagSet("", flag.ExitOnError)
	fs.String("configs", "", "Config files with banned APIs separated by a comma")
	fs.Bool("websecurity", false, "Also apply the built-in rules guarding the go-websecurity APIs")

	return &analysis.Analyzer{
		Name:  "bannedAPI",
		Doc:   "Checks for usage of banned APIs",
		Run:   checkBannedAPIs,
		Flags: *fs,
	}
}

func checkBannedAPIs(pass *analysis.Pass) (interface{}, error) {
	cfg, err := loadConfig(&pass.Analyzer.Flags)
	if err != nil {
		return nil, err
	}

	if err := checkBannedImports(pass, bannedAPIMap(cfg.Imports)); err != nil {
		return nil, err
	}
	if err := checkBannedFunctions(pass, bannedAPIMap(cfg.Functions)); err != nil {
		return nil, err
	}
	return nil, nil
}

func loadConfig(fs *flag.FlagSet) (*config.Config, error) {
	cfgFiles := fs.Lookup("configs").Value.String()
	builtin := fs.Lookup("websecurity").Value.String() == "true"
	if cfgFiles == "" && !builtin {
		return nil, errors.New("missing config files")
	}

	cfg := &config.Config{}
	if cfgFiles != "" {
		c, err := config.ReadConfigs(strings.Split(cfgFiles, ","))
		if err != nil {
			return nil, err
		}
		cfg.Merge(c)
	}
	if builtin {
		c, err := config.WebSecurity()
		if err != nil {
			return nil, err
		}
		cfg.Merge(c)
	}
	return cfg, nil
}

func checkBannedImports(pass *analysis.Pass, bannedImports map[string][]config.BannedAPI) error {
	for _, f := range pass.Files {
		for _, i := range f.Imports {
			importName := strings.Trim(i.Path.Value, "\"")
			if err := reportIfBanned(importName, bannedImports, i.Pos(), pass); err != nil {
				return err
			}
		}
	}
	return nil
}

func checkBannedFunctions(pass *analysis.Pass, bannedFns map[string][]config.BannedAPI) error {
	for id, obj := range pass.TypesInfo.Uses {
		name, ok := qualifiedName(obj)
		if !ok {
			continue
		}
		if err := reportIfBanned(name, bannedFns, id.Pos(), pass); err != nil {
			return err
		}
	}
	return nil
}

// qualifiedName returns the "<import path>.<name>" of package level
// functions and variables. Methods, fields and locals are skipped.
func qualifiedName(obj types.Object) (string, bool) {
	if obj.Pkg() == nil {
		return "", false
	}
	switch o := obj.(type) {
	case *types.Func:
		if sig, ok := o.Type().(*types.Signature); ok && sig.Recv() != nil {
			return "", false
		}
	case *types.Var:
		if o.IsField() || o.Parent() != o.Pkg().Scope() {
			return "", false
		}
	default:
		return "", false
	}
	return fmt.Sprintf("%s.%s", obj.Pkg().Path(), obj.Name()), true
}

func reportIfBanned(apiName string, bannedAPIs map[string][]config.BannedAPI, position token.Pos, pass *analysis.Pass) error {
	bannedAPICfgs, isBanned := bannedAPIs[apiName]
	if !isBanned {
		return nil
	}
	for _, bannedAPICfg := range bannedAPICfgs {
		allowed, err := isPkgAllowed(pass.Pkg, bannedAPICfg)
		if err != nil {
			return err
		}
		if allowed {
			continue
		}
		pass.Report(analysis.Diagnostic{
			Pos:     position,
			Message: fmt.Sprintf("Banned API found %q. Additional info: %s", apiName, bannedAPICfg.Msg),
		})
	}
	return nil
}

// isPkgAllowed checks if the Go package is exempted from one banned API
// entry.
func isPkgAllowed(pkg *types.Package, bannedAPI config.BannedAPI) (bool, error) {
	for _, e := range bannedAPI.Exemptions {
		if prefix, ok := strings.CutSuffix(e.AllowedPkg, "/..."); ok {
			if pkg.Path() == prefix || strings.HasPrefix(pkg.Path(), prefix+"/") {
				return true, nil
			}
			continue
		}
		match, err := path.Match(e.AllowedPkg, pkg.Path())
		if err != nil {
			return false, err
		}
		if match {
			return true, nil
		}
	}
	return false, nil
}

// bannedAPIMap builds a mapping of fully qualified API name to a list of
// all its config.BannedAPI entries.
func bannedAPIMap(bannedAPIs []config.BannedAPI) map[string][]config.BannedAPI {
	m := make(map[string][]config.BannedAPI)
	for _, api := range bannedAPIs {
		m[api.Name] = append(m[api.Name], api)
	}
	return m
}
