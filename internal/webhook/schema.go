package webhook

import (
	"encoding/json"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// envelope is checked for every notification type.
var envelope = MustCompileSchema("https://sari.local/schemas/greenapi_envelope.json", map[string]any{
	"type":     "object",
	"required": []string{"typeWebhook", "instanceData"},
	"properties": map[string]any{
		"typeWebhook": map[string]any{"type": "string", "minLength": 1},
		"instanceData": map[string]any{
			"type":     "object",
			"required": []string{"idInstance"},
			"properties": map[string]any{
				"idInstance": map[string]any{
					"oneOf": []any{
						map[string]any{"type": "integer"},
						map[string]any{"type": "string", "pattern": `^[0-9]+$`},
					},
				},
				"wid": map[string]any{"type": "string"},
			},
		},
		"timestamp": map[string]any{"type": "integer"},
	},
})

// incoming is checked only for incomingMessageReceived.
var incoming = MustCompileSchema("https://sari.local/schemas/greenapi_incoming.json", map[string]any{
	"type":     "object",
	"required": []string{"idMessage", "senderData", "messageData"},
	"properties": map[string]any{
		"idMessage": map[string]any{"type": "string", "minLength": 1},
		"senderData": map[string]any{
			"type":     "object",
			"required": []string{"chatId"},
			"properties": map[string]any{
				"chatId":     map[string]any{"type": "string", "pattern": `@(c|g)\.us$`},
				"sender":     map[string]any{"type": "string"},
				"senderName": map[string]any{"type": "string"},
			},
		},
		"messageData": map[string]any{
			"type":     "object",
			"required": []string{"typeMessage"},
			"properties": map[string]any{
				"typeMessage": map[string]any{"type": "string", "minLength": 1},
			},
		},
	},
})

// MustCompileSchema compiles a Draft 2020-12 schema given as a Go value and
// registered under url. It panics on an invalid schema.
func MustCompileSchema(url string, doc map[string]any) *jsonschema.Schema {
	raw, err := json.Marshal(doc)
	if err != nil {
		panic(err)
	}
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	if err := c.AddResource(url, strings.NewReader(string(raw))); err != nil {
		panic(err)
	}
	return c.MustCompile(url)
}
