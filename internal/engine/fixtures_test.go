package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/leapstack-labs/silverline/internal/artifact"
	"github.com/leapstack-labs/silverline/internal/cleaner"
	"github.com/leapstack-labs/silverline/pkg/core"
)

// memLoader serves fixed records per source and remembers what was loaded.
type memLoader struct {
	mu     sync.Mutex
	data   map[string][]*core.Record
	errs   map[string]error
	loaded []string
}

func (l *memLoader) Load(_ context.Context, source string) ([]*core.Record, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.loaded = append(l.loaded, source)

	if err, ok := l.errs[source]; ok {
		return nil, err
	}
	rows, ok := l.data[source]
	if !ok {
		return nil, fmt.Errorf("no data for %s", source)
	}
	// hand out copies so that runs never share records
	out := make([]*core.Record, len(rows))
	for i, r := range rows {
		out[i] = r.Clone()
	}
	return out, nil
}

// failingStore rejects writes of artifacts whose name starts with prefix.
type failingStore struct {
	artifact.Store
	prefix string
}

func (s failingStore) Put(ctx context.Context, name string, data []byte) error {
	if strings.HasPrefix(name, s.prefix) {
		return errors.New("disk full")
	}
	return s.Store.Put(ctx, name, data)
}

func ptr(f float64) *float64 { return &f }

func row(i int, kv ...any) *core.Record {
	rec := core.NewRecord(i)
	for j := 0; j+1 < len(kv); j += 2 {
		rec.Set(kv[j].(string), kv[j+1])
	}
	return rec
}

func customersDef() *core.SourceDefinition {
	return &core.SourceDefinition{
		Name:       "customers",
		PrimaryKey: "customer_id",
		Rules: core.NewRuleSet([]*core.FieldRule{
			{Name: "customer_id", Type: core.FieldString, Required: true, Identifier: true},
			{Name: "email", Type: core.FieldString, Custom: []string{"email"}},
			{Name: "phone", Type: core.FieldString, Clean: "phone"},
		}),
		Extra: core.ExtraKeep,
	}
}

func productsDef() *core.SourceDefinition {
	return &core.SourceDefinition{
		Name:       "products",
		PrimaryKey: "product_id",
		Rules: core.NewRuleSet([]*core.FieldRule{
			{Name: "product_id", Type: core.FieldString, Required: true},
			{Name: "price", Type: core.FieldFloat, Min: ptr(0)},
		}),
	}
}

func transactionsDef() *core.SourceDefinition {
	return &core.SourceDefinition{
		Name:       "transactions",
		PrimaryKey: "transaction_id",
		ForeignKeys: []core.ForeignKey{
			{Field: "customer_id", References: "customers"},
			{Field: "product_id", References: "products"},
		},
		Rules: core.NewRuleSet([]*core.FieldRule{
			{Name: "transaction_id", Type: core.FieldString, Required: true},
			{Name: "customer_id", Type: core.FieldString, Required: true, References: "customers"},
			{Name: "product_id", Type: core.FieldString, References: "products"},
			{Name: "amount", Type: core.FieldFloat, Min: ptr(0)},
		}),
	}
}

func invoicesDef() *core.SourceDefinition {
	return &core.SourceDefinition{
		Name:        "invoices",
		PrimaryKey:  "invoice_id",
		ForeignKeys: []core.ForeignKey{{Field: "customer_id", References: "customers"}},
		Rules: core.NewRuleSet([]*core.FieldRule{
			{Name: "invoice_id", Type: core.FieldString, Required: true},
			{Name: "customer_id", Type: core.FieldString, Required: true, References: "customers"},
			{Name: "line_items_json", Type: core.FieldString},
		}),
	}
}

func lineItemsExplosion() Explosion {
	return Explosion{
		Source: "invoices",
		Field:  "line_items_json",
		Target: &core.SourceDefinition{
			Name: "invoice_line_items",
			ForeignKeys: []core.ForeignKey{
				{Field: "invoice_id", References: "invoices"},
				{Field: "product_id", References: "products"},
			},
			Rules: core.NewRuleSet([]*core.FieldRule{
				{Name: "invoice_id", Type: core.FieldString, Required: true},
				{Name: "line_number", Type: core.FieldInteger, Required: true, Min: ptr(1)},
				{Name: "product_id", Type: core.FieldString, Required: true},
				{Name: "quantity", Type: core.FieldInteger, Min: ptr(1)},
			}),
		},
	}
}

func cleanRules() []cleaner.Rule {
	return []cleaner.Rule{{Name: "phone", Type: cleaner.RulePhone}}
}

func policies() *core.PolicyTable {
	p := core.NewPolicyTable()
	_ = p.Set(core.PolicyKey{Source: "customers", Field: "email", Kind: core.ErrCustomValue}, core.ActionNullAndKeep)
	return p
}

// domainData is listed in an order unrelated to processing order.
func domainData() map[string][]*core.Record {
	return map[string][]*core.Record{
		"transactions": {
			row(0, "transaction_id", "TXN-1", "customer_id", "CUS-1", "product_id", "PRD-1", "amount", "19.99"),
			row(1, "transaction_id", "TXN-2", "customer_id", "CUS-9", "product_id", "PRD-1", "amount", "5"),
			row(2, "transaction_id", "TXN-3", "customer_id", "CUS-2", "product_id", "PRD-2", "amount", "5"),
			row(3, "transaction_id", "TXN-4", "customer_id", "CUS-9", "product_id", "PRD-9", "amount", "abc"),
			row(4, "transaction_id", "TXN-5", "customer_id", "", "product_id", nil, "amount", "1"),
		},
		"customers": {
			row(0, "customer_id", "CUS-1", "email", "ann@example.com", "phone", "(555) 123-4567"),
			row(1, "customer_id", "CUS-2", "email", "not-an-email", "phone", "555.987.6543"),
			row(2, "customer_id", "CUS-1", "email", "dup@example.com", "phone", nil),
			row(3, "customer_id", "  ", "email", "x@example.com", "phone", "+1 555 000 1111"),
		},
		"products": {
			row(0, "product_id", "PRD-1", "price", "10"),
			row(1, "product_id", "PRD-2", "price", "-3"),
		},
		"invoices": {
			row(0, "invoice_id", "INV-1", "customer_id", "CUS-1",
				"line_items_json", `[{"product_id": "PRD-1", "quantity": 2}, {"product_id": "PRD-9", "quantity": 1}]`),
			row(1, "invoice_id", "INV-2", "customer_id", "CUS-2", "line_items_json", "not json"),
			row(2, "invoice_id", "INV-3", "customer_id", "CUS-1", "line_items_json", nil),
		},
	}
}

func domainConfig(l *memLoader) Config {
	return Config{
		Sources:    []*core.SourceDefinition{transactionsDef(), customersDef(), productsDef(), invoicesDef()},
		Loader:     l,
		CleanRules: cleanRules(),
		Policies:   policies(),
		Explosions: []Explosion{lineItemsExplosion()},
		Workers:    3,
		ChunkSize:  2,
	}
}
