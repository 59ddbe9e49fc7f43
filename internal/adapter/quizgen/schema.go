package quizgen

import (
	"encoding/json"
	"fmt"

	"quizly/internal/domain"

	"github.com/invopop/jsonschema"
)

// quizResponseSchema reflects the JSON schema of domain.CandidateQuiz for
// backends that support constrained output.
func quizResponseSchema() (map[string]any, error) {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	schema := reflector.Reflect(&domain.CandidateQuiz{})

	schemaJSON, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("marshal quiz schema: %w", err)
	}
	var schemaMap map[string]any
	if err := json.Unmarshal(schemaJSON, &schemaMap); err != nil {
		return nil, fmt.Errorf("unmarshal quiz schema: %w", err)
	}
	// Only the shape is sent to the model.
	delete(schemaMap, "$schema")
	delete(schemaMap, "$id")
	return schemaMap, nil
}
