package ai

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

type endpoint struct {
	Path   string   `json:"path"`
	Method string   `json:"method"`
	Params []string `json:"parameters"`
}

type extraction struct {
	Endpoints []endpoint `json:"endpoints"`
}

func TestUnmarshalFlexible_ObjectVariants(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{
			name:  "valid json object",
			input: `{"endpoints":[{"path":"/orders","method":"GET","parameters":["id"]}]}`,
		},
		{
			name:  "unquoted keys and single quotes",
			input: `{endpoints: [{path: '/orders', method: 'GET', parameters: ['id']}]}`,
		},
		{
			name:  "trailing commas",
			input: `{"endpoints":[{"path":"/orders","method":"GET","parameters":["id",],},]}`,
		},
		{
			name:  "missing closing brackets",
			input: `{"endpoints":[{"path":"/orders","method":"GET","parameters":["id"]`,
		},
		{
			name:  "markdown fence",
			input: "```json\n{\"endpoints\":[{\"path\":\"/orders\",\"method\":\"GET\",\"parameters\":[\"id\"]}]}\n```",
		},
		{
			name:  "double encoded",
			input: `"{\"endpoints\":[{\"path\":\"/orders\",\"method\":\"GET\",\"parameters\":[\"id\"]}]}"`,
		},
		{
			name:  "duplicate leading brace",
			input: "{\n{\"endpoints\":[{\"path\":\"/orders\",\"method\":\"GET\",\"parameters\":[\"id\"]}]}\n",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var got extraction
			if err := UnmarshalFlexible(tc.input, &got); err != nil {
				t.Fatalf("UnmarshalFlexible() error = %v", err)
			}
			if len(got.Endpoints) != 1 {
				t.Fatalf("expected one endpoint, got %+v", got)
			}
			ep := got.Endpoints[0]
			if ep.Path != "/orders" || ep.Method != "GET" || len(ep.Params) != 1 || ep.Params[0] != "id" {
				t.Fatalf("unexpected endpoint %+v", ep)
			}
		})
	}
}

func TestUnmarshalFlexible_Array(t *testing.T) {
	var got []endpoint
	if err := UnmarshalFlexible(`[{path:'/a'},{path:'/b',}]`, &got); err != nil {
		t.Fatalf("UnmarshalFlexible() error = %v", err)
	}
	if len(got) != 2 || got[0].Path != "/a" || got[1].Path != "/b" {
		t.Fatalf("unexpected result %+v", got)
	}
}

func TestUnmarshalFlexible_Malformed(t *testing.T) {
	var got extraction
	err := UnmarshalFlexible(`{"endpoints": "not a list"}`, &got)
	if !errors.Is(err, ErrMalformedOutput) {
		t.Fatalf("expected ErrMalformedOutput, got %v", err)
	}
}

func TestGenerateSchema(t *testing.T) {
	raw, err := json.Marshal(GenerateSchema(&extraction{}))
	if err != nil {
		t.Fatalf("marshal schema: %v", err)
	}
	schema := string(raw)

	if strings.Contains(schema, "$ref") || strings.Contains(schema, "$defs") {
		t.Fatalf("schema should be inlined, got %s", schema)
	}
	if !strings.Contains(schema, `"additionalProperties":false`) {
		t.Fatalf("schema should forbid additional properties, got %s", schema)
	}
	for _, field := range []string{"endpoints", "path", "method", "parameters"} {
		if !strings.Contains(schema, `"`+field+`"`) {
			t.Fatalf("schema misses field %q: %s", field, schema)
		}
	}
}

func TestPromptsTakeExpectedArguments(t *testing.T) {
	tests := []struct {
		name   string
		prompt string
		want   int
	}{
		{name: "extract", prompt: ExtractPrompt, want: 1},
		{name: "business", prompt: BusinessAnalystPrompt, want: 1},
		{name: "relationships", prompt: RelationshipPrompt, want: 3},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := strings.Count(tc.prompt, "%s"); got != tc.want {
				t.Fatalf("prompt has %d placeholders, want %d", got, tc.want)
			}
			if strings.Count(tc.prompt, "%") != tc.want {
				t.Fatal("prompt contains a stray format verb")
			}
		})
	}
}
