// Copyright 2025 Mekan Labs
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

package tool

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

// GenerateSchema creates a JSON schema from a Go type using struct tags.
//
// Example:
//
//	type Args struct {
//	    Title string `json:"title" jsonschema:"required,description=Todo title"`
//	}
func GenerateSchema[T any]() (map[string]any, error) {
	reflector := &jsonschema.Reflector{
		RequiredFromJSONSchemaTags: true,
		ExpandedStruct:             true,
		DoNotReference:             true,
	}

	schema := reflector.Reflect(new(T))

	data, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}

	var result map[string]any
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to decode schema: %w", err)
	}

	delete(result, "$schema")
	delete(result, "$id")
	return result, nil
}

// MustSchema is GenerateSchema for package-level tool construction,
// where a schema failure is a programming error.
func MustSchema[T any]() map[string]any {
	schema, err := GenerateSchema[T]()
	if err != nil {
		panic(err)
	}
	return schema
}
