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

package plugin

import (
	"fmt"

	"gopkg.in/yaml.v2"
)

// Options holds free-form plugin configuration.
type Options map[string]interface{}

// Decode decodes plugin options into v, which must be a pointer to a struct carrying yaml tags.
// Unknown option keys are reported as errors.
func (o Options) Decode(v interface{}) error {
	b, err := yaml.Marshal(map[string]interface{}(o))
	if err != nil {
		return fmt.Errorf("plugin: failed to encode options: %w", err)
	}
	if err := yaml.UnmarshalStrict(b, v); err != nil {
		return fmt.Errorf("plugin: invalid options: %w", err)
	}
	return nil
}
