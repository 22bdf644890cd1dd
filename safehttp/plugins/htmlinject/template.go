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

package htmlinject

import (
	"strings"

	"github.com/google/go-websecurity/safehttp"
	"github.com/google/go-websecurity/safehttp/plugins/csrf"
	"github.com/google/safehtml/template"
	"github.com/google/safehtml/template/uncheckedconversions"
)

// LoadTrustedTemplate transforms src with cfg and parses the result into tpl.
// If tpl is nil a new template named "htmlinject" is created. Placeholder
// CSRFToken and CSPNonce functions are registered so that parsing succeeds;
// bind the real ones with FuncMap before executing.
func LoadTrustedTemplate(tpl *template.Template, src template.TrustedTemplate, cfg ...Config) (*template.Template, error) {
	if tpl == nil {
		tpl = template.New("htmlinject")
	}
	got, err := Transform(strings.NewReader(src.String()), cfg...)
	if err != nil {
		return nil, err
	}
	tpl = tpl.Funcs(template.FuncMap{
		CSRFTokenFuncName: func() string { return "" },
		CSPNonceFuncName:  func() string { return "" },
	})
	// The source was trusted and the rewrite only adds constant snippets.
	return tpl.ParseFromTrustedTemplate(uncheckedconversions.TrustedTemplateFromStringKnownToSatisfyTypeContract(got))
}

// FuncMap binds the injected template functions to r.
func FuncMap(r *safehttp.IncomingRequest) template.FuncMap {
	return template.FuncMap{
		CSRFTokenFuncName: func() string { return csrf.Token(r) },
		CSPNonceFuncName:  r.Nonce,
	}
}
