// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/adiadia/app-builder/internal/domain"
	"github.com/xeipuuv/gojsonschema"
)

//go:embed workflow.schema.json
var workflowSchemaJSON string

var workflowSchema = gojsonschema.NewStringLoader(workflowSchemaJSON)

// DecodeWorkflow checks that raw is a JSON array of component objects and
// decodes it. Any failure wraps domain.ErrInvalidWorkflow.
func DecodeWorkflow(raw json.RawMessage) ([]domain.Component, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, fmt.Errorf("%w: workflow is required", domain.ErrInvalidWorkflow)
	}
	if trimmed[0] != '[' {
		return nil, fmt.Errorf("%w: workflow must be an array", domain.ErrInvalidWorkflow)
	}

	if err := ValidateWorkflowDocument(trimmed); err != nil {
		return nil, err
	}

	var rawComponents []json.RawMessage
	if err := json.Unmarshal(trimmed, &rawComponents); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidWorkflow, err)
	}

	out := make([]domain.Component, 0, len(rawComponents))
	for i, item := range rawComponents {
		c, err := decodeComponent(item)
		if err != nil {
			return nil, fmt.Errorf("%w: component %d: %v", domain.ErrInvalidWorkflow, i, err)
		}
		out = append(out, c)
	}

	return out, nil
}

// ValidateWorkflowDocument checks raw against the embedded workflow schema.
func ValidateWorkflowDocument(raw json.RawMessage) error {
	result, err := gojsonschema.Validate(workflowSchema, gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidWorkflow, err)
	}
	if result.Valid() {
		return nil
	}

	errs := make([]string, 0, len(result.Errors()))
	for _, schemaErr := range result.Errors() {
		errs = append(errs, schemaErr.String())
	}
	sort.Strings(errs)

	return fmt.Errorf("%w: %s", domain.ErrInvalidWorkflow, strings.Join(errs, "; "))
}

// decodeComponent tolerates numeric ids, which the builder UI emits for
// freshly dropped components.
func decodeComponent(raw json.RawMessage) (domain.Component, error) {
	var wire struct {
		ID       any                  `json:"id"`
		Type     domain.ComponentType `json:"type"`
		Name     string               `json:"name"`
		Config   map[string]any       `json:"config"`
		Position any                  `json:"position"`
	}
	if err := json.Unmarshal(raw, &wire); err != nil {
		return domain.Component{}, err
	}

	c := domain.Component{
		Type:     wire.Type,
		Name:     wire.Name,
		Config:   wire.Config,
		Position: wire.Position,
	}
	switch id := wire.ID.(type) {
	case nil:
	case string:
		c.ID = id
	default:
		c.ID = fmt.Sprint(id)
	}
	return c, nil
}
