// SPDX-License-Identifier: Apache-2.0

package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/adiadia/app-builder/internal/domain"
	"github.com/adiadia/app-builder/internal/engine"
)

// runValidate checks workflow files without executing them: the document must
// decode into a component array, and every component type should be one the
// built-in registry knows. Unknown types are warnings unless -strict is set,
// because the engine reports them as step failures rather than rejecting the run.
func runValidate(logger *slog.Logger, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("validate", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	strict := fs.Bool("strict", false, "treat unknown component types as errors")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return errors.New("validate needs at least one workflow file")
	}

	registry := engine.DefaultRegistry(engine.RegistryOptions{})

	failed := 0
	for _, path := range fs.Args() {
		problems, err := validateFile(registry, path, *strict)
		if err != nil {
			failed++
			_, _ = fmt.Fprintf(out, "FAIL %s: %v\n", path, err)
			continue
		}
		for _, p := range problems {
			logger.Warn("workflow check", "file", path, "problem", p)
		}
		_, _ = fmt.Fprintf(out, "ok   %s\n", path)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d workflow files invalid", failed, fs.NArg())
	}
	return nil
}

func validateFile(registry *engine.Registry, path string, strict bool) ([]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}

	req, err := parseExecutionFile(raw)
	if err != nil {
		return nil, err
	}

	components, err := engine.DecodeWorkflow(req.Workflow)
	if err != nil {
		return nil, err
	}

	unknown := unknownComponents(registry, components)
	if strict && len(unknown) > 0 {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownComponentType, unknown[0])
	}
	return unknown, nil
}

func unknownComponents(registry *engine.Registry, components []domain.Component) []string {
	var out []string
	for i, c := range components {
		if _, ok := registry.Lookup(c.Type); !ok {
			out = append(out, fmt.Sprintf("component %d (%q) has unknown type %q", i, c.ID, c.Type))
		}
	}
	return out
}
