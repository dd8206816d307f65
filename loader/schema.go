/*
Copyright © 2025 Benny Powers

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program. If not, see <http://www.gnu.org/licenses/>.
*/
package loader

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// descriptorSchemaJSON is the embedded JSON Schema a parsed generator
// descriptor must satisfy. It is the static-shape replacement for the
// runtime "exported default must have a callable stringify" check the
// dynamic-import original performs, adapted from the teacher's
// validate/validate.go embedded-schema idiom.
const descriptorSchemaJSON = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["stringify"],
  "properties": {
    "imports": {
      "type": "array",
      "items": { "type": "string" }
    },
    "stringify": {
      "type": "object",
      "required": ["template"],
      "properties": {
        "template": { "type": "string", "minLength": 1 }
      }
    },
    "validate": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["rule"],
        "properties": {
          "rule": { "type": "string", "minLength": 1 }
        }
      }
    },
    "data": {}
  }
}`

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func descriptorSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(
			"genie-descriptor.json",
			bytes.NewReader([]byte(descriptorSchemaJSON)),
		); err != nil {
			schemaErr = err
			return
		}
		schema, schemaErr = compiler.Compile("genie-descriptor.json")
	})
	return schema, schemaErr
}

// validateShape validates a raw, JSON-compatible decode of a generator
// descriptor against descriptorSchema, producing the "validate the
// exported shape" step of C4.
func validateShape(raw any) error {
	sch, err := descriptorSchema()
	if err != nil {
		return fmt.Errorf("compile descriptor schema: %w", err)
	}
	if err := sch.Validate(raw); err != nil {
		return fmt.Errorf("generator shape invalid: %w", err)
	}
	return nil
}
