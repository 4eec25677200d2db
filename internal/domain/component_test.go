// SPDX-License-Identifier: Apache-2.0

package domain

import (
	"encoding/json"
	"testing"
	"time"
)

var fixedTime = time.Date(2025, 3, 1, 12, 30, 0, 0, time.UTC)

func TestStepResultMarshalSuccessMergesType(t *testing.T) {
	step := StepResult{
		Type:      ComponentChatbot,
		Payload:   Payload{"response": "hi"},
		Timestamp: fixedTime,
	}

	body, err := json.Marshal(step)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var got map[string]any
	if err := json.Unmarshal(body, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got["type"] != "chatbot" {
		t.Fatalf("expected type=chatbot got %v", got["type"])
	}
	if got["response"] != "hi" {
		t.Fatalf("expected response=hi got %v", got["response"])
	}
	if got["timestamp"] != "2025-03-01T12:30:00.000Z" {
		t.Fatalf("unexpected timestamp %v", got["timestamp"])
	}
	if _, ok := got["error"]; ok {
		t.Fatal("expected no error key on successful step")
	}
}

func TestStepResultMarshalFailure(t *testing.T) {
	step := StepResult{
		Type:      "unknown-x",
		Error:     "unknown component type: unknown-x",
		Timestamp: fixedTime,
	}

	body, err := json.Marshal(step)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	want := `{"type":"unknown-x","error":"unknown component type: unknown-x","timestamp":"2025-03-01T12:30:00.000Z"}`
	if string(body) != want {
		t.Fatalf("expected %s got %s", want, body)
	}
}

func TestStepResultUnmarshalDistinguishesFailure(t *testing.T) {
	var failed StepResult
	if err := json.Unmarshal([]byte(`{"type":"chatbot","error":"boom","timestamp":"2025-03-01T12:30:00.000Z"}`), &failed); err != nil {
		t.Fatalf("unmarshal failure: %v", err)
	}
	if !failed.Failed() || failed.Error != "boom" {
		t.Fatalf("expected failure record, got %+v", failed)
	}
	if !failed.Timestamp.Equal(fixedTime) {
		t.Fatalf("expected timestamp %s got %s", fixedTime, failed.Timestamp)
	}

	var ok StepResult
	if err := json.Unmarshal([]byte(`{"type":"chatbot","response":"hi","model":"m","timestamp":"2025-03-01T12:30:00.000Z"}`), &ok); err != nil {
		t.Fatalf("unmarshal success: %v", err)
	}
	if ok.Failed() {
		t.Fatal("expected success record")
	}
	if ok.Payload["response"] != "hi" {
		t.Fatalf("expected payload response=hi got %v", ok.Payload["response"])
	}
}

func TestWorkflowResultMarshalTopLevelFailureOmitsResults(t *testing.T) {
	body, err := json.Marshal(WorkflowResult{
		Success:   false,
		Error:     "invalid workflow provided",
		Timestamp: fixedTime,
	})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var got map[string]any
	if err := json.Unmarshal(body, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got["success"] != false {
		t.Fatalf("expected success=false got %v", got["success"])
	}
	if _, ok := got["componentResults"]; ok {
		t.Fatal("expected componentResults to be absent on top-level failure")
	}
	if got["error"] != "invalid workflow provided" {
		t.Fatalf("unexpected error %v", got["error"])
	}
}

func TestWorkflowResultMarshalEmptyResultsAsArray(t *testing.T) {
	body, err := json.Marshal(WorkflowResult{
		Success:   true,
		Result:    "Hello",
		Timestamp: fixedTime,
	})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	want := `{"success":true,"result":"Hello","componentResults":[],"timestamp":"2025-03-01T12:30:00.000Z"}`
	if string(body) != want {
		t.Fatalf("expected %s got %s", want, body)
	}
}

func TestStatusOf(t *testing.T) {
	if got := StatusOf(WorkflowResult{Success: false}); got != ExecutionFailed {
		t.Fatalf("expected FAILED got %s", got)
	}
	if got := StatusOf(WorkflowResult{Success: true}); got != ExecutionSucceeded {
		t.Fatalf("expected SUCCEEDED got %s", got)
	}

	partial := WorkflowResult{
		Success: true,
		ComponentResults: []StepResult{
			{Type: ComponentChatbot, Payload: Payload{}},
			{Type: "nope", Error: "unknown component type: nope"},
		},
	}
	if got := StatusOf(partial); got != ExecutionPartial {
		t.Fatalf("expected PARTIAL got %s", got)
	}
}
