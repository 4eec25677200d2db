// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/adiadia/app-builder/internal/domain"
	"github.com/adiadia/app-builder/internal/engine"
)

// runExecute runs a workflow file locally and prints the result as JSON. The
// file holds either a bare component array or a full execution request
// ({"workflow", "input", "sessionId"}). It reports whether the run succeeded.
func runExecute(ctx context.Context, logger *slog.Logger, args []string, out io.Writer) (bool, error) {
	fs := flag.NewFlagSet("execute", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	inputFlag := fs.String("input", "", "workflow input as JSON; plain text is passed as a string")
	sessionFlag := fs.String("session", "", "session id forwarded to capabilities")
	stepTimeout := fs.Duration("step-timeout", 0, "timeout per component, 0 disables")
	if err := fs.Parse(args); err != nil {
		return false, err
	}
	if fs.NArg() != 1 {
		return false, errors.New("execute needs exactly one workflow file")
	}

	raw, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		return false, fmt.Errorf("read workflow file: %w", err)
	}

	req, err := parseExecutionFile(raw)
	if err != nil {
		return false, err
	}
	if *inputFlag != "" {
		req.Input = parseInput(*inputFlag)
	}
	if *sessionFlag != "" {
		req.SessionID = *sessionFlag
	}

	eng := engine.New(engine.Deps{
		Logger:         logger,
		DefaultTimeout: *stepTimeout,
	})
	result := eng.Execute(ctx, req)

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		return false, fmt.Errorf("write result: %w", err)
	}
	return result.Success, nil
}

func parseExecutionFile(raw []byte) (domain.ExecutionRequest, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		return domain.ExecutionRequest{Workflow: json.RawMessage(trimmed)}, nil
	}

	var req domain.ExecutionRequest
	if err := json.Unmarshal(trimmed, &req); err != nil {
		return domain.ExecutionRequest{}, fmt.Errorf("parse workflow file: %w", err)
	}
	return req, nil
}

func parseInput(raw string) any {
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return raw
	}
	return v
}
