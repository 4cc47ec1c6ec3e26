package adapter_test

import (
	"testing"

	"github.com/leapstack-labs/silverline/pkg/adapter"
	"github.com/stretchr/testify/assert"

	// Import adapter packages to ensure adapters are registered via init()
	_ "github.com/leapstack-labs/silverline/pkg/adapters/duckdb"
	_ "github.com/leapstack-labs/silverline/pkg/adapters/postgres"
)

func TestSelfRegistration(t *testing.T) {
	tests := []struct {
		name        string
		adapterName string
		expected    bool
	}{
		{"duckdb registered", "duckdb", true},
		{"postgres registered", "postgres", true},
		{"unknown not registered", "unknown_db", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, adapter.IsRegistered(tt.adapterName))
		})
	}
}
