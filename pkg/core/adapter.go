package core

import "database/sql"

// AdapterConfig holds configuration for connecting to a warehouse that
// receives Silver tables.
type AdapterConfig struct {
	Type     string
	Path     string
	Host     string
	Port     int
	Database string
	Username string
	Password string
	Schema   string
	Options  map[string]string
	Params   map[string]any
}

// Column describes one column of a Silver table.
type Column struct {
	Name     string
	Type     FieldType
	Nullable bool
}

// TableSpec describes a Silver table to be written to a warehouse.
type TableSpec struct {
	Name       string
	Columns    []Column
	PrimaryKey string
}

// Rows wraps sql.Rows to provide a consistent interface.
type Rows struct {
	*sql.Rows
}
