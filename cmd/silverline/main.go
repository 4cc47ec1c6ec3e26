// Package main provides the silverline command.
package main

import (
	"os"

	"github.com/leapstack-labs/silverline/internal/cli"

	// Warehouse adapters register themselves via init()
	_ "github.com/leapstack-labs/silverline/pkg/adapters/duckdb"
	_ "github.com/leapstack-labs/silverline/pkg/adapters/postgres"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
