package chi

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

const pointSchema = `{
	"type": "object",
	"required": ["lat", "lng"],
	"properties": {
		"lat": {"type": "number", "minimum": -90, "maximum": 90},
		"lng": {"type": "number", "minimum": -180, "maximum": 180}
	}
}`

var hybridSearchSchema = mustSchema(`{
	"type": "object",
	"properties": {
		"query":          {"type": "string", "maxLength": 512},
		"location":       ` + pointSchema + `,
		"radius":         {"type": "number", "minimum": 0},
		"category":       {"type": "string"},
		"includeGoogle":  {"type": "boolean"},
		"includeOSM":     {"type": "boolean"},
		"includeLocal":   {"type": "boolean"},
		"maxResults":     {"type": "integer", "minimum": 0},
		"sessionId":      {"type": "string", "maxLength": 128},
		"locationQuery":  {"type": "string", "maxLength": 256},
		"locationStatus": {"enum": ["granted", "denied", "unavailable"]}
	}
}`)

var placesSearchSchema = mustSchema(`{
	"type": "object",
	"properties": {
		"type":     {"enum": ["text_search", "nearby_search", "place_details", "autocomplete"]},
		"query":    {"type": "string", "maxLength": 512},
		"location": ` + pointSchema + `,
		"radius":   {"type": "number", "minimum": 0},
		"category": {"type": "string"}
	}
}`)

var nearbySchema = mustSchema(`{
	"type": "object",
	"properties": {
		"location":       ` + pointSchema + `,
		"locationQuery":  {"type": "string", "maxLength": 256},
		"locationStatus": {"enum": ["granted", "denied", "unavailable"]},
		"radius":         {"type": "number", "minimum": 0},
		"category":       {"type": "string"},
		"sessionId":      {"type": "string", "maxLength": 128}
	}
}`)

func mustSchema(src string) *gojsonschema.Schema {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(src))
	if err != nil {
		panic(fmt.Sprintf("compile request schema: %v", err))
	}
	return s
}

// validateBody checks a raw JSON body against schema. The returned error
// lists every violation and is safe to show to clients.
func validateBody(schema *gojsonschema.Schema, body []byte) error {
	result, err := schema.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	if result.Valid() {
		return nil
	}
	errs := make([]string, len(result.Errors()))
	for i, desc := range result.Errors() {
		errs[i] = desc.String()
	}
	return fmt.Errorf("request validation failed: %s", strings.Join(errs, "; "))
}
