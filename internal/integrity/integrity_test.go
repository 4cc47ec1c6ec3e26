package integrity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/silverline/internal/keys"
	"github.com/leapstack-labs/silverline/pkg/core"
)

func transactionsDef() *core.SourceDefinition {
	return &core.SourceDefinition{
		Name:       "transactions",
		PrimaryKey: "transaction_id",
		ForeignKeys: []core.ForeignKey{
			{Field: "customer_id", References: "customers"},
			{Field: "product_id", References: "products"},
		},
		Rules: core.NoopRuleSet(),
	}
}

func txn(row int, customer, product any) *core.Record {
	return core.NewRecordFrom(row,
		[]string{"transaction_id", "customer_id", "product_id"},
		[]any{"TXN-A", customer, product})
}

func publishedView(t *testing.T) keys.View {
	t.Helper()
	r := keys.NewRegistry()
	require.NoError(t, r.Publish("customers", []string{"CUS-1", "CUS-2"}))
	require.NoError(t, r.Publish("products", []string{"PRD-1", "7"}))
	return r.View()
}

func TestCheck(t *testing.T) {
	view := publishedView(t)
	records := []*core.Record{
		txn(0, "CUS-1", "PRD-1"),
		txn(1, "CUS-999999", "PRD-1"),
		txn(2, "CUS-404", "PRD-404"),
		txn(3, nil, "PRD-1"),
		txn(4, "", "  "),
		txn(5, "CUS-2", int64(7)),
	}

	failures := Check(transactionsDef(), records, view)

	require.Len(t, failures, 2)

	row1 := failures[1]
	require.Len(t, row1, 1)
	assert.Equal(t, "customer_id", row1[0].Field)
	assert.Equal(t, core.ErrReferentialIntegrity, row1[0].Kind)
	assert.Equal(t, "CUS-999999", row1[0].Value)
	assert.Equal(t, `customer_id "CUS-999999" not found in customers`, row1[0].Message)

	row2 := failures[2]
	require.Len(t, row2, 2)
	assert.Equal(t, "customer_id", row2[0].Field)
	assert.Equal(t, "product_id", row2[1].Field)

	for _, row := range []int{0, 3, 4, 5} {
		assert.NotContains(t, failures, row)
	}
}

func TestCheck_UnpublishedTarget(t *testing.T) {
	r := keys.NewRegistry()
	require.NoError(t, r.Publish("customers", []string{"CUS-1"}))

	failures := Check(transactionsDef(), []*core.Record{txn(0, "CUS-1", "PRD-1")}, r.View())
	require.Len(t, failures[0], 1)
	assert.Equal(t, "product_id", failures[0][0].Field)
	assert.Contains(t, failures[0][0].Message, "products has no published keys")
}

func TestCheck_TypedKeys(t *testing.T) {
	def := &core.SourceDefinition{
		Name:        "products",
		PrimaryKey:  "product_id",
		ForeignKeys: []core.ForeignKey{{Field: "vendor_id", References: "vendors"}},
		Rules: core.NewRuleSet([]*core.FieldRule{
			{Name: "product_id", Type: core.FieldString},
			{Name: "vendor_id", Type: core.FieldInteger, References: "vendors"},
		}),
	}
	r := keys.NewRegistry()
	require.NoError(t, r.Publish("vendors", []string{"7", "8"}))

	tests := []struct {
		name    string
		value   any
		orphans bool
	}{
		{"leading zero", "07", false},
		{"integral float text", "8.0", false},
		{"typed integer", int64(7), false},
		{"typed float", 8.0, false},
		{"unknown key", "9", true},
		{"not a number", "seven", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := core.NewRecordFrom(0, []string{"product_id", "vendor_id"}, []any{"PRD-1", tt.value})
			errs := CheckRecord(def, rec, r.View())
			if tt.orphans {
				require.Len(t, errs, 1)
				assert.Equal(t, tt.value, errs[0].Value)
				return
			}
			assert.Empty(t, errs)
		})
	}
}

func TestCheck_NoForeignKeys(t *testing.T) {
	def := &core.SourceDefinition{Name: "vendors", PrimaryKey: "vendor_id"}
	failures := Check(def, []*core.Record{core.NewRecord(0)}, keys.NewRegistry().View())
	assert.Empty(t, failures)
}
