package postgres

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/leapstack-labs/silverline/pkg/adapter"
	"github.com/leapstack-labs/silverline/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildPostgresDSN(t *testing.T) {
	tests := []struct {
		name     string
		config   adapter.Config
		expected string
	}{
		{
			name: "basic connection",
			config: adapter.Config{
				Host:     "localhost",
				Port:     5432,
				Database: "silver",
				Username: "user",
				Password: "pass",
			},
			expected: "host=localhost port=5432 dbname=silver sslmode=disable user=user password=pass",
		},
		{
			name: "with custom sslmode and extra options",
			config: adapter.Config{
				Host:     "prod.example.com",
				Database: "proddb",
				Username: "admin",
				Options:  map[string]string{"sslmode": "require", "connect_timeout": "5"},
			},
			expected: "host=prod.example.com port=5432 dbname=proddb sslmode=require user=admin connect_timeout=5",
		},
		{
			name:     "defaults",
			config:   adapter.Config{Database: "mydb"},
			expected: "host=localhost port=5432 dbname=mydb sslmode=disable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, buildPostgresDSN(tt.config))
		})
	}
}

func TestNew(t *testing.T) {
	adp := New(nil)

	assert.NotNil(t, adp)
	assert.Nil(t, adp.DB, "DB should be nil before Connect")
	assert.False(t, adp.IsConnected())
	assert.Equal(t, "postgres", adp.DialectName())
	assert.True(t, adp.Dialect().NumberedPlaceholders)
}

func TestAdapter_NotConnected(t *testing.T) {
	ctx := context.Background()
	adp := New(nil)

	err := adp.Exec(ctx, "SELECT 1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not established")

	_, err = adp.LoadRecords(ctx, core.TableSpec{Name: "t", Columns: []core.Column{{Name: "id"}}}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not established")
}

func TestAdapter_LoadRecords(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	adp := New(nil)
	adp.DB = db
	adp.Cfg = adapter.Config{Schema: "silver"}

	spec := core.TableSpec{
		Name: "customers",
		Columns: []core.Column{
			{Name: "customer_id", Type: core.FieldString},
			{Name: "total_orders", Type: core.FieldInteger, Nullable: true},
		},
	}
	records := []*core.Record{
		core.NewRecordFrom(0, []string{"customer_id", "total_orders"}, []any{"CUS-1", int64(3)}),
	}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`CREATE SCHEMA IF NOT EXISTS "silver"`)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(`DROP TABLE IF EXISTS "silver"."customers"`)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(`CREATE TABLE "silver"."customers" ("customer_id" TEXT NOT NULL, "total_orders" BIGINT)`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "silver"."customers" ("customer_id", "total_orders") VALUES ($1, $2)`)).
		WithArgs("CUS-1", int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	n, err := adp.LoadRecords(context.Background(), spec, records)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdapter_Registry(t *testing.T) {
	factory, ok := adapter.Get("postgres")
	require.True(t, ok, "should be able to get postgres factory")

	pg, ok := factory(nil).(*Adapter)
	require.True(t, ok, "factory should return *Adapter")
	assert.Equal(t, "postgres", pg.DialectName())
}
