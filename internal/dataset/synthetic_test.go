package dataset

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate_Deterministic(t *testing.T) {
	opts := GenerateOptions{Customers: 30, Orders: 100, Products: 8, Sellers: 4, Seed: 42}
	a := Generate(opts)
	b := Generate(opts)
	assert.Equal(t, a, b)

	opts.Seed = 43
	c := Generate(opts)
	assert.NotEqual(t, a.Orders[0].OrderID, c.Orders[0].OrderID)
}

func TestGenerate_ReferentialIntegrity(t *testing.T) {
	opts := DefaultGenerateOptions()
	opts.Customers, opts.Orders = 50, 300
	tables := Generate(opts)

	require.Len(t, tables.Customers, 50)
	require.Len(t, tables.Orders, 300)
	assert.Len(t, tables.Products, opts.Products)
	assert.Len(t, tables.Sellers, opts.Sellers)

	customers := make(map[string]bool)
	for _, c := range tables.Customers {
		customers[c.CustomerID] = true
	}
	zips := make(map[string]bool)
	for _, g := range tables.Geolocation {
		zips[g.ZipCodePrefix] = true
	}
	for _, c := range tables.Customers {
		assert.True(t, zips[c.ZipCodePrefix], c.ZipCodePrefix)
	}

	end := opts.Start.Add(opts.Span)
	orders := make(map[string]bool)
	for _, o := range tables.Orders {
		orders[o.OrderID] = true
		assert.True(t, customers[o.CustomerID])
		assert.False(t, o.PurchaseTimestamp.Before(opts.Start))
		assert.True(t, o.PurchaseTimestamp.Before(end))
	}

	perOrder := make(map[string]int)
	low, high := decimal.RequireFromString("5.00"), decimal.RequireFromString("499.99")
	for _, it := range tables.OrderItems {
		require.True(t, orders[it.OrderID])
		perOrder[it.OrderID]++
		assert.Equal(t, perOrder[it.OrderID], it.ItemSeq)
		assert.True(t, it.Price.GreaterThanOrEqual(low) && it.Price.LessThanOrEqual(high), it.Price.String())
	}
	for id := range orders {
		assert.GreaterOrEqual(t, perOrder[id], 1)
		assert.LessOrEqual(t, perOrder[id], 3)
	}

	for _, r := range tables.Reviews {
		assert.True(t, orders[r.OrderID])
		assert.GreaterOrEqual(t, r.Score, 1)
		assert.LessOrEqual(t, r.Score, 5)
	}
}

func TestSchemas(t *testing.T) {
	schemas := Schemas()
	require.Len(t, schemas, len(TableNames))
	for i, name := range TableNames {
		assert.Contains(t, schemas[i], "CREATE TABLE IF NOT EXISTS "+name+" (")
	}
}
