package generate

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/TheCaptainCodes/amar-ai/internal/dataset"
)

// ErrMalformedResponse is returned when a response holds no usable JSON array.
var ErrMalformedResponse = errors.New("malformed response")

// ResponseSchema describes what a chunk response must decode to. Extra fields
// such as the echoed metadata are allowed and discarded.
var ResponseSchema = map[string]any{
	"type": "array",
	"items": map[string]any{
		"type":     "object",
		"required": []string{"instruction", "output"},
		"properties": map[string]any{
			"instruction": map[string]any{"type": "string"},
			"output":      map[string]any{"type": "string"},
		},
	},
}

var responseSchema = mustCompileSchema(ResponseSchema)

func mustCompileSchema(schema map[string]any) *jsonschema.Schema {
	raw, err := json.Marshal(schema)
	if err != nil {
		panic(fmt.Sprintf("failed to marshal response schema: %v", err))
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("response.json", bytes.NewReader(raw)); err != nil {
		panic(fmt.Sprintf("failed to load response schema: %v", err))
	}
	return compiler.MustCompile("response.json")
}

type pair struct {
	Instruction string `json:"instruction"`
	Output      string `json:"output"`
}

// ExtractJSONArray flattens line breaks and returns the text between the
// first '[' and the last ']'.
func ExtractJSONArray(content string) (string, error) {
	content = strings.TrimSpace(content)
	content = strings.ReplaceAll(content, "\n", " ")
	content = strings.ReplaceAll(content, "\r", "")

	start := strings.Index(content, "[")
	end := strings.LastIndex(content, "]")
	if start == -1 || end == -1 || end < start {
		return "", fmt.Errorf("%w: no JSON array found", ErrMalformedResponse)
	}
	return content[start : end+1], nil
}

// ParseResponse turns a raw response into records stamped with md.
// Input is always empty and any metadata in the response is replaced.
func ParseResponse(content string, md dataset.Metadata) ([]dataset.Record, error) {
	raw, err := ExtractJSONArray(content)
	if err != nil {
		return nil, err
	}

	var doc any
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if err := responseSchema.Validate(doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	var pairs []pair
	if err := json.Unmarshal([]byte(raw), &pairs); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	records := make([]dataset.Record, 0, len(pairs))
	for _, p := range pairs {
		records = append(records, dataset.Record{
			Instruction: p.Instruction,
			Input:       "",
			Output:      p.Output,
			Metadata:    md,
		})
	}
	return records, nil
}
