// Package contract pins the response contract: the one JSON shape the chat
// surface renders. The schema is used twice — as the model call's response
// schema and to validate the model's final text before it reaches the surface.
package contract

import (
	"fmt"

	"github.com/xeipuuv/gojsonschema"

	"github.com/serviteq/fieldops-backend/internal/dto"
	"github.com/serviteq/fieldops-backend/internal/errs"
)

// ResponseSchema is the contract in the backend-agnostic schema form handed to
// the model call. Only displayText is mandatory.
func ResponseSchema() *dto.Schema {
	return &dto.Schema{
		Type: "object",
		Properties: map[string]*dto.Schema{
			"displayText": {Type: "string", Description: "Texto a mostrar al usuario. Obligatorio."},
			"table": {
				Type: "object",
				Properties: map[string]*dto.Schema{
					"headers": {Type: "array", Items: &dto.Schema{Type: "string"}},
					"rows":    {Type: "array", Items: &dto.Schema{Type: "array", Items: &dto.Schema{Type: "string"}}},
				},
				Required: []string{"headers", "rows"},
			},
			"chart": {
				Type: "object",
				Properties: map[string]*dto.Schema{
					"type":   {Type: "string", Enum: []string{"bar", "line", "pie"}},
					"labels": {Type: "array", Items: &dto.Schema{Type: "string"}},
					"values": {Type: "array", Items: &dto.Schema{Type: "number"}},
				},
				Required: []string{"type", "labels", "values"},
			},
			"actions": {
				Type: "array",
				Items: &dto.Schema{
					Type: "object",
					Properties: map[string]*dto.Schema{
						"label":  {Type: "string"},
						"prompt": {Type: "string"},
					},
					Required: []string{"label", "prompt"},
				},
			},
			"form": {
				Type: "array",
				Items: &dto.Schema{
					Type: "object",
					Properties: map[string]*dto.Schema{
						"name":      {Type: "string"},
						"label":     {Type: "string"},
						"fieldType": {Type: "string"},
						"options":   {Type: "array", Items: &dto.Schema{Type: "string"}},
						"required":  {Type: "boolean"},
					},
					Required: []string{"name", "fieldType"},
				},
			},
			"suggestions": {Type: "array", Items: &dto.Schema{Type: "string"}},
		},
		Required: []string{"displayText"},
	}
}

// validationSchema is what gojsonschema checks the final text against. Kept as
// a plain document so validation and the model-side schema cannot drift apart.
var validationSchema = toSchemaDoc(ResponseSchema())

func toSchemaDoc(s *dto.Schema) map[string]any {
	doc := map[string]any{"type": s.Type}
	if len(s.Enum) > 0 {
		doc["enum"] = s.Enum
	}
	if len(s.Required) > 0 {
		doc["required"] = s.Required
	}
	if s.Items != nil {
		doc["items"] = toSchemaDoc(s.Items)
	}
	if len(s.Properties) > 0 {
		props := make(map[string]any, len(s.Properties))
		for name, prop := range s.Properties {
			props[name] = toSchemaDoc(prop)
		}
		doc["properties"] = props
	}
	return doc
}

// Validate checks a decoded final answer against the contract.
func Validate(doc map[string]any) error {
	result, err := gojsonschema.Validate(
		gojsonschema.NewGoLoader(validationSchema),
		gojsonschema.NewGoLoader(doc),
	)
	if err != nil {
		return errs.NewValidationError(fmt.Sprintf("respuesta no validable: %v", err))
	}
	if !result.Valid() {
		first := ""
		if len(result.Errors()) > 0 {
			first = result.Errors()[0].String()
		}
		return errs.NewValidationError(fmt.Sprintf("respuesta fuera de contrato: %s", first))
	}
	return nil
}
