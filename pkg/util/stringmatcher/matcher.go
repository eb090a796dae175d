// Copyright 2022 The tribot Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package stringmatcher

import (
	"regexp"
	"strings"
)

// Matcher represents a generic string matcher.
type Matcher interface {
	// Match reports whether str matches along with the matched groups.
	Match(str string) (groups []string, ok bool)
}

// StringMatcher matches strings equal to any of its values ignoring case.
type StringMatcher struct {
	values []string
}

// NewStringMatcher returns a new initialized StringMatcher.
func NewStringMatcher(values []string) *StringMatcher {
	return &StringMatcher{values: values}
}

// Matches returns true if str equals any of the matcher values ignoring case.
func (m *StringMatcher) Matches(str string) bool {
	for _, v := range m.values {
		if strings.EqualFold(v, str) {
			return true
		}
	}
	return false
}

// Match satisfies Matcher interface. The only group is str itself.
func (m *StringMatcher) Match(str string) ([]string, bool) {
	if !m.Matches(str) {
		return nil, false
	}
	return []string{str}, true
}

// RegexMatcher implements case-insensitive regular expression string matcher.
type RegexMatcher struct {
	regex *regexp.Regexp
}

// NewRegExMatcher returns a new initialized RegexMatcher.
func NewRegExMatcher(expr string) (*RegexMatcher, error) {
	regex, err := regexp.Compile("(?i)" + expr)
	if err != nil {
		return nil, err
	}
	return &RegexMatcher{regex: regex}, nil
}

// Matches returns true if str matches em regular expression.
func (em *RegexMatcher) Matches(str string) bool {
	return em.regex.MatchString(str)
}

// Match satisfies Matcher interface. Groups are the full match followed by every capture group.
func (em *RegexMatcher) Match(str string) ([]string, bool) {
	groups := em.regex.FindStringSubmatch(str)
	if groups == nil {
		return nil, false
	}
	return groups, true
}

// String returns the matcher expression.
func (em *RegexMatcher) String() string {
	return em.regex.String()
}
