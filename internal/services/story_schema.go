package services

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/kaptinlin/jsonschema"
)

// Shapes only. Numbering and duration bounds are fixed up by normalizeDraft.
const storyOptionsSchema = `{
  "type": "object",
  "required": ["options"],
  "properties": {
    "options": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["content"],
        "properties": {
          "title": {"type": "string"},
          "content": {"type": "string"}
        }
      }
    }
  }
}`

const storyDraftSchema = `{
  "type": "object",
  "required": ["scenes"],
  "properties": {
    "title": {"type": "string"},
    "description": {"type": "string"},
    "scenes": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "scene_number": {"type": "integer"},
          "description": {"type": "string"},
          "duration": {"type": "number"},
          "shots": {
            "type": "array",
            "items": {
              "type": "object",
              "properties": {
                "shot_number": {"type": "integer"},
                "user_prompt": {"type": "string"}
              }
            }
          }
        }
      }
    }
  }
}`

var (
	optionsSchema = mustCompileSchema(storyOptionsSchema)
	draftSchema   = mustCompileSchema(storyDraftSchema)
)

func mustCompileSchema(src string) *jsonschema.Schema {
	schema, err := jsonschema.NewCompiler().Compile([]byte(src))
	if err != nil {
		panic(fmt.Sprintf("invalid story schema: %v", err))
	}
	return schema
}

// decodeChecked validates raw model output against schema before decoding it into dst.
func decodeChecked(schema *jsonschema.Schema, raw string, dst interface{}) error {
	var doc interface{}
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return fmt.Errorf("response is not JSON: %w", err)
	}

	result := schema.Validate(doc)
	if !result.IsValid() {
		var msgs []string
		for field, evalErr := range result.Errors {
			msgs = append(msgs, fmt.Sprintf("%s: %s", field, evalErr.Error()))
		}
		sort.Strings(msgs)
		return fmt.Errorf("response does not match schema: %s", strings.Join(msgs, "; "))
	}

	return json.Unmarshal([]byte(raw), dst)
}
