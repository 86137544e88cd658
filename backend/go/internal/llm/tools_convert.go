package llm

import (
	"OpenClaw/backend/go/internal/models"

	openai "github.com/meguminnnnnnnnn/go-openai"
)

// reasonParam is attached to every tool so the model can describe each step
// in plain English; the label is shown to the operator as progress.
var reasonParam = map[string]interface{}{
	"type":        "string",
	"description": "One short sentence describing what this step does in plain English, shown to the user.",
}

// ConvertDescriptors converts a registry snapshot to the FunctionDefinition
// list required by the OpenAI-compatible SDK.
func ConvertDescriptors(descriptors []models.ToolDescriptor) []openai.Tool {
	var openAITools []openai.Tool

	for _, d := range descriptors {
		var params map[string]interface{}
		if d.Kind == models.ToolKindRemote && d.RawSchema != nil {
			// Remote tools ship their own schema; pass it through untouched.
			params = d.RawSchema
		} else {
			params = paramSpecsToSchema(d.Params)
		}

		openAITools = append(openAITools, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        d.Name,
				Description: d.Description,
				Parameters:  params,
			},
		})
	}

	return openAITools
}

// paramSpecsToSchema is a helper that converts a parameter list to the
// JSON-schema object format required by OpenAI-style tool definitions.
func paramSpecsToSchema(params []models.ParamSpec) map[string]interface{} {
	properties := map[string]interface{}{}
	required := []string{}

	for _, p := range params {
		pType := p.Type
		if pType == "" {
			pType = "string"
		}
		properties[p.Name] = map[string]interface{}{
			"type":        pType,
			"description": p.Description,
		}
		if p.Required {
			required = append(required, p.Name)
		}
	}

	properties["reason"] = reasonParam

	return map[string]interface{}{
		"type":       "object",
		"properties": properties,
		"required":   required,
	}
}
