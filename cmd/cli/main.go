// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/adiadia/app-builder/internal/logging"
)

func main() {
	logger := logging.New(os.Stderr, "prod", os.Getenv("LOG_LEVEL"))

	if len(os.Args) < 2 {
		printUsage(os.Stderr)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch os.Args[1] {
	case "validate":
		if err := runValidate(logger, os.Args[2:], os.Stdout); err != nil {
			logger.Error("validation failed", "error", err)
			os.Exit(1)
		}
	case "execute":
		ok, err := runExecute(ctx, logger, os.Args[2:], os.Stdout)
		if err != nil {
			logger.Error("execute failed", "error", err)
			os.Exit(2)
		}
		if !ok {
			os.Exit(1)
		}
	default:
		printUsage(os.Stderr)
		os.Exit(2)
	}
}

func printUsage(w io.Writer) {
	_, _ = fmt.Fprintln(w, "usage:")
	_, _ = fmt.Fprintln(w, "  cli validate [-strict] <workflow.json>...")
	_, _ = fmt.Fprintln(w, "  cli execute [-input JSON] [-session ID] [-step-timeout DURATION] <workflow.json>")
}
