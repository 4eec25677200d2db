// SPDX-License-Identifier: Apache-2.0

package domain

import (
	"encoding/json"
	"time"
)

type ComponentType string

const (
	ComponentChatbot          ComponentType = "chatbot"
	ComponentTextAnalysis     ComponentType = "text-analysis"
	ComponentImageGeneration  ComponentType = "image-generation"
	ComponentDataProcessor    ComponentType = "data-processor"
	ComponentAPICall          ComponentType = "api-call"
	ComponentSpeechToText     ComponentType = "speech-to-text"
	ComponentDocumentAnalysis ComponentType = "document-analysis"
	ComponentCodeGenerator    ComponentType = "code-generator"
	ComponentVisualSearch     ComponentType = "visual-search"
)

// Component is one configured step of a workflow. Config is opaque to the
// engine; only the capability registered for Type interprets it.
type Component struct {
	ID       string         `json:"id"`
	Type     ComponentType  `json:"type"`
	Name     string         `json:"name,omitempty"`
	Config   map[string]any `json:"config,omitempty"`
	Position any            `json:"position,omitempty"`
}

// Payload is the successful output of a capability.
type Payload map[string]any

// TimestampFormat is the ISO-8601 layout used on every result timestamp.
const TimestampFormat = "2006-01-02T15:04:05.000Z07:00"

func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampFormat)
}

// StepResult records the outcome of one component. Exactly one of Payload or
// Error is meaningful; Failed reports which.
type StepResult struct {
	Type      ComponentType
	Payload   Payload
	Error     string
	Timestamp time.Time
}

func (s StepResult) Failed() bool {
	return s.Error != ""
}

// Value is what a successful step hands to the next one.
func (s StepResult) Value() any {
	return map[string]any(s.Payload)
}

func (s StepResult) MarshalJSON() ([]byte, error) {
	if s.Failed() {
		return json.Marshal(struct {
			Type      ComponentType `json:"type"`
			Error     string        `json:"error"`
			Timestamp string        `json:"timestamp"`
		}{
			Type:      s.Type,
			Error:     s.Error,
			Timestamp: FormatTimestamp(s.Timestamp),
		})
	}

	out := make(map[string]any, len(s.Payload)+2)
	for k, v := range s.Payload {
		out[k] = v
	}
	out["type"] = s.Type
	if _, ok := out["timestamp"]; !ok {
		out["timestamp"] = FormatTimestamp(s.Timestamp)
	}
	return json.Marshal(out)
}

func (s *StepResult) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*s = StepResult{}
	if t, ok := raw["type"].(string); ok {
		s.Type = ComponentType(t)
	}
	if ts, ok := raw["timestamp"].(string); ok {
		if parsed, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			s.Timestamp = parsed
		}
	}

	if msg, ok := raw["error"].(string); ok && len(raw) <= 3 {
		s.Error = msg
		return nil
	}

	s.Payload = Payload(raw)
	return nil
}

// WorkflowResult is the response of one workflow execution. ComponentResults
// and Result are only set when Success is true.
type WorkflowResult struct {
	Success          bool
	Result           any
	ComponentResults []StepResult
	Error            string
	Timestamp        time.Time
}

func (r WorkflowResult) MarshalJSON() ([]byte, error) {
	if !r.Success {
		return json.Marshal(struct {
			Success   bool   `json:"success"`
			Error     string `json:"error"`
			Timestamp string `json:"timestamp"`
		}{
			Success:   false,
			Error:     r.Error,
			Timestamp: FormatTimestamp(r.Timestamp),
		})
	}

	results := r.ComponentResults
	if results == nil {
		results = []StepResult{}
	}

	return json.Marshal(struct {
		Success          bool         `json:"success"`
		Result           any          `json:"result"`
		ComponentResults []StepResult `json:"componentResults"`
		Timestamp        string       `json:"timestamp"`
	}{
		Success:          true,
		Result:           r.Result,
		ComponentResults: results,
		Timestamp:        FormatTimestamp(r.Timestamp),
	})
}

// ExecutionRequest is the inbound shape of an execute call. Workflow stays raw
// until the engine has checked that it is an array.
type ExecutionRequest struct {
	Workflow  json.RawMessage `json:"workflow"`
	Input     any             `json:"input"`
	SessionID string          `json:"sessionId,omitempty"`
}
