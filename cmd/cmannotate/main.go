// Package main provides the cmannotate command-line tool.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/cmannotate/cmannotate/internal/config"
)

func main() {
	os.Exit(run())
}

func run() int {
	cmd := newRootCmd()
	cmd.SetContext(context.Background())
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "cmannotate:", err)
		var cfgErr *config.ConfigError
		if errors.As(err, &cfgErr) {
			return 2
		}
		return 1
	}
	return 0
}
