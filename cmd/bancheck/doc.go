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

// Package main contains the CLI used for detecting risky APIs.
//
// # Overview
//
// Bancheck reports the use of APIs a project has decided to ban. It can run
// as part of CI to keep code from bypassing the security layer, for example
// by calling http.Get instead of the SSRF guarded client. The tool resolves
// fully qualified function, variable and import names and checks them
// against config files that define risky APIs.
//
// # Usage
//
// Apart from the standard analysis flags the command takes:
//
//	-configs       comma separated list of config files (JSON or YAML)
//	-websecurity   also apply the built-in go-websecurity rules
//
// At least one of them is required.
//
// # Config
//
// A config lists banned imports and functions, explains why they are risky
// and exempts packages for which the check is skipped. AllowedPkg is a
// path.Match pattern over the import path; "example.com/pkg/..." exempts a
// package and everything below it. Every config file is applied separately:
// when one file bans an API and another exempts a package from it, the ban
// of the first file is still reported.
//
// Example config:
//
//	functions:
//	  - name: net/http.Get
//	    msg: Use the SSRF guarded client
//	    exemptions:
//	      - justification: The guard itself
//	        allowedPkg: github.com/google/go-websecurity/ssrf
//	imports:
//	  - name: github.com/google/safehtml/uncheckedconversions
//	    msg: Banned by the security team
//
// # Built-in rules
//
// With -websecurity the following are reported:
//
//   - net/http.Get, Head, Post, PostForm and DefaultClient outside the ssrf
//     package;
//   - net/http.SetCookie outside safehttp;
//   - safehttp.UnsafeRedirect anywhere;
//   - the safehtml unchecked conversions outside sanitize and htmlinject.
//
// # CLI usage
//
//	$ bancheck -websecurity ./...
//	/app/client.go:12:9: Banned API found "net/http.Get". Additional info: Outbound requests must go through the SSRF guard, see github.com/google/go-websecurity/ssrf
package main
