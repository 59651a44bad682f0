package api

import (
	"bytes"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

const courseSchemaURL = "schema://course-tracking.json"

// courseTrackingSchema describes the parts of the tracking payload the
// tracker relies on. Unknown properties are allowed.
const courseTrackingSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["course"],
  "properties": {
    "course": {
      "type": "object",
      "required": ["id"],
      "properties": {
        "id": {"$ref": "#/$defs/id"},
        "title": {"type": ["string", "null"]},
        "has_final_exam": {"type": ["boolean", "null"]},
        "modules": {
          "type": ["array", "null"],
          "items": {"$ref": "#/$defs/module"}
        }
      }
    },
    "assignments": {"type": ["array", "null"]},
    "exams": {"type": ["array", "null"]},
    "quizzes": {"type": ["array", "null"]}
  },
  "$defs": {
    "id": {"type": ["string", "integer"]},
    "module": {
      "type": "object",
      "required": ["id"],
      "properties": {
        "id": {"$ref": "#/$defs/id"},
        "name": {"type": ["string", "null"]},
        "lessons": {
          "type": ["array", "null"],
          "items": {"$ref": "#/$defs/lesson"}
        }
      }
    },
    "lesson": {
      "type": "object",
      "required": ["id"],
      "properties": {
        "id": {"$ref": "#/$defs/id"},
        "title": {"type": ["string", "null"]},
        "duration_minutes": {"type": ["integer", "null"], "minimum": 0},
        "lesson_type": {"type": ["string", "null"]},
        "completed": {"type": ["boolean", "null"]},
        "video_url": {"type": ["string", "null"]},
        "resources": {
          "type": ["array", "null"],
          "items": {"$ref": "#/$defs/resource"}
        }
      }
    },
    "resource": {
      "type": "object",
      "required": ["id"],
      "properties": {
        "id": {"$ref": "#/$defs/id"},
        "title": {"type": ["string", "null"]},
        "resource_type": {"type": ["string", "null"]},
        "file_url": {"type": ["string", "null"]},
        "external_url": {"type": ["string", "null"]}
      }
    }
  }
}`

var (
	courseSchemaOnce sync.Once
	courseSchema     *jsonschema.Schema
	courseSchemaErr  error
)

// compiledCourseSchema compiles the tracking schema once.
func compiledCourseSchema() (*jsonschema.Schema, error) {
	courseSchemaOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(strings.NewReader(courseTrackingSchema))
		if err != nil {
			courseSchemaErr = fmt.Errorf("parse schema definition: %w", err)
			return
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource(courseSchemaURL, doc); err != nil {
			courseSchemaErr = fmt.Errorf("add resource: %w", err)
			return
		}
		courseSchema, courseSchemaErr = c.Compile(courseSchemaURL)
	})
	return courseSchema, courseSchemaErr
}

// validateCourseTracking checks raw against the tracking schema.
// Returns *PayloadError on failure.
func validateCourseTracking(raw []byte) error {
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return &PayloadError{What: "course payload", Err: fmt.Errorf("invalid JSON: %w", err)}
	}

	compiled, err := compiledCourseSchema()
	if err != nil {
		return &PayloadError{What: "course payload", Err: fmt.Errorf("compile schema: %w", err)}
	}

	if err := compiled.Validate(inst); err != nil {
		return &PayloadError{What: "course payload", Err: fmt.Errorf("schema validation failed: %w", err)}
	}
	return nil
}
