package gradio

import "testing"

// TestParseSchemaTools_ArrayForm covers the array shape:
// [{name, description?, inputSchema}, ...].
func TestParseSchemaTools_ArrayForm(t *testing.T) {
	body := []byte(`[
		{"name": "predict", "description": "run inference", "inputSchema": {"type": "object"}},
		{"name": "<lambda-1>", "description": "internal", "inputSchema": {"type": "object"}}
	]`)

	tools, err := parseSchemaTools(body)
	if err != nil {
		t.Fatalf("parseSchemaTools: %v", err)
	}
	if len(tools) != 2 {
		t.Fatalf("len(tools) = %d, want 2", len(tools))
	}
	if tools[0].Name != "predict" || tools[0].Description != "run inference" {
		t.Errorf("tools[0] = %+v", tools[0])
	}
}

// TestParseSchemaTools_ObjectForm covers the object shape documented in
// §4.4.3: {name: inputSchema, ...}, description embedded on the schema
// value itself rather than in a wrapper "tools" key.
func TestParseSchemaTools_ObjectForm(t *testing.T) {
	body := []byte(`{
		"predict": {"type": "object", "description": "run inference"},
		"<lambda-2>": {"type": "object", "description": "internal"}
	}`)

	tools, err := parseSchemaTools(body)
	if err != nil {
		t.Fatalf("parseSchemaTools: %v", err)
	}
	if len(tools) != 2 {
		t.Fatalf("len(tools) = %d, want 2, got %+v", len(tools), tools)
	}

	byName := make(map[string]schemaToolRaw, len(tools))
	for _, tl := range tools {
		byName[tl.Name] = tl
	}

	predict, ok := byName["predict"]
	if !ok {
		t.Fatalf("missing %q tool in %+v", "predict", tools)
	}
	if predict.Description != "run inference" {
		t.Errorf("predict.Description = %q, want %q", predict.Description, "run inference")
	}
	if predict.InputSchema["type"] != "object" {
		t.Errorf("predict.InputSchema = %+v, want type=object", predict.InputSchema)
	}
}

// TestParseSchemaTools_NeitherFormMatches verifies a malformed body surfaces
// an error instead of silently returning zero tools.
func TestParseSchemaTools_NeitherFormMatches(t *testing.T) {
	if _, err := parseSchemaTools([]byte(`"just a string"`)); err == nil {
		t.Fatal("expected an error for a body matching neither schema form")
	}
}
