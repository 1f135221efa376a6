package database

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"ecommerce-dashboard/internal/dataset"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func smallSnapshot() *dataset.Tables {
	return dataset.Generate(dataset.GenerateOptions{
		Customers: 20,
		Orders:    60,
		Products:  10,
		Sellers:   5,
		Seed:      3,
	})
}

func TestSQLite_SeedThenLoad(t *testing.T) {
	ctx := context.Background()
	src, err := Open(ctx, KindSQLite, filepath.Join(t.TempDir(), "dashboard.db"))
	require.NoError(t, err)
	defer src.Close()

	seeder, ok := src.(Seeder)
	require.True(t, ok)

	want := smallSnapshot()
	require.NoError(t, seeder.Seed(ctx, want))

	got, err := src.Load(ctx)
	require.NoError(t, err)

	require.Len(t, got.Orders, len(want.Orders))
	require.Len(t, got.OrderItems, len(want.OrderItems))
	assert.Len(t, got.Products, len(want.Products))
	assert.Len(t, got.Customers, len(want.Customers))
	assert.Len(t, got.Sellers, len(want.Sellers))
	assert.Len(t, got.Reviews, len(want.Reviews))
	assert.ElementsMatch(t, want.Geolocation, got.Geolocation)

	orders := make(map[string]dataset.Order, len(got.Orders))
	for i, o := range got.Orders {
		if i > 0 {
			assert.Less(t, got.Orders[i-1].OrderID, o.OrderID)
		}
		orders[o.OrderID] = o
	}
	for _, o := range want.Orders {
		loaded, ok := orders[o.OrderID]
		require.True(t, ok, o.OrderID)
		assert.Equal(t, o.CustomerID, loaded.CustomerID)
		assert.Equal(t, o.Status, loaded.Status)
		assert.True(t, o.PurchaseTimestamp.Equal(loaded.PurchaseTimestamp), "%s: %s != %s", o.OrderID, o.PurchaseTimestamp, loaded.PurchaseTimestamp)
		assert.Equal(t, time.UTC, loaded.PurchaseTimestamp.Location())
	}

	items := make(map[string]dataset.OrderItem, len(got.OrderItems))
	for _, it := range got.OrderItems {
		items[fmt.Sprintf("%s/%d", it.OrderID, it.ItemSeq)] = it
	}
	for _, it := range want.OrderItems {
		loaded, ok := items[fmt.Sprintf("%s/%d", it.OrderID, it.ItemSeq)]
		require.True(t, ok)
		assert.True(t, it.Price.Equal(loaded.Price), "%s != %s", it.Price, loaded.Price)
		assert.True(t, it.FreightValue.Equal(loaded.FreightValue))
	}
}

func TestSQLite_SeedReplacesExistingRows(t *testing.T) {
	ctx := context.Background()
	src, err := Open(ctx, KindSQLite, filepath.Join(t.TempDir(), "dashboard.db"))
	require.NoError(t, err)
	defer src.Close()

	seeder := src.(Seeder)
	require.NoError(t, seeder.Seed(ctx, smallSnapshot()))

	tiny := &dataset.Tables{
		Orders: []dataset.Order{{OrderID: "o1", CustomerID: "c1", Status: "delivered", PurchaseTimestamp: time.Date(2018, 1, 1, 12, 0, 0, 0, time.UTC)}},
	}
	require.NoError(t, seeder.Seed(ctx, tiny))

	got, err := src.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, got.Orders, 1)
	assert.Empty(t, got.OrderItems)
	assert.Empty(t, got.Customers)
}

func TestSQLite_SeedSharedReviewID(t *testing.T) {
	ctx := context.Background()
	src, err := Open(ctx, KindSQLite, filepath.Join(t.TempDir(), "dashboard.db"))
	require.NoError(t, err)
	defer src.Close()

	ts := time.Date(2018, 1, 1, 12, 0, 0, 0, time.UTC)
	tables := &dataset.Tables{
		Orders: []dataset.Order{
			{OrderID: "o1", CustomerID: "c1", Status: "delivered", PurchaseTimestamp: ts},
			{OrderID: "o2", CustomerID: "c2", Status: "delivered", PurchaseTimestamp: ts},
		},
		Reviews: []dataset.Review{
			{ReviewID: "r1", OrderID: "o1", Score: 5},
			{ReviewID: "r1", OrderID: "o2", Score: 5},
		},
	}
	require.NoError(t, src.(Seeder).Seed(ctx, tables))

	got, err := src.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, tables.Reviews, got.Reviews)
}

func TestMySQL_SeedPassesExactAmounts(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	tables := &dataset.Tables{
		Orders: []dataset.Order{{OrderID: "o1", CustomerID: "c1", Status: "delivered", PurchaseTimestamp: time.Date(2018, 1, 1, 0, 0, 0, 0, time.UTC)}},
		OrderItems: []dataset.OrderItem{{
			OrderID: "o1", ItemSeq: 1, ProductID: "p1", SellerID: "s1",
			Price: decimal.RequireFromString("129.90"), FreightValue: decimal.RequireFromString("15.10"),
		}},
	}

	mock.ExpectBegin()
	for range dataset.TableNames {
		mock.ExpectExec("CREATE TABLE IF NOT EXISTS").WillReturnResult(sqlmock.NewResult(0, 0))
	}
	for range dataset.TableNames {
		mock.ExpectExec("DELETE FROM").WillReturnResult(sqlmock.NewResult(0, 0))
	}
	mock.ExpectExec("INSERT INTO orders").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO order_items").
		WithArgs("o1", 1, "p1", "s1", "129.9", "15.1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, (&MySQLDriver{db: db}).Seed(context.Background(), tables))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQL_Load(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	ts := time.Date(2018, 3, 4, 10, 30, 0, 0, time.UTC)
	mock.ExpectQuery("FROM orders ORDER BY id").
		WillReturnRows(sqlmock.NewRows([]string{"id", "customer_id", "status", "purchase_timestamp"}).
			AddRow("o1", "c1", "delivered", ts))
	mock.ExpectQuery(`CAST\(price AS CHAR\), CAST\(freight_value AS CHAR\) FROM order_items`).
		WillReturnRows(sqlmock.NewRows([]string{"order_id", "item_seq", "product_id", "seller_id", "price", "freight_value"}).
			AddRow("o1", 1, "p1", "s1", "129.90", "15.10").
			AddRow("o1", 2, "p2", "s1", "10.00", "0.00"))
	mock.ExpectQuery("FROM products").
		WillReturnRows(sqlmock.NewRows([]string{"id", "category"}).AddRow("p1", "perfumaria"))
	mock.ExpectQuery("FROM customers").
		WillReturnRows(sqlmock.NewRows([]string{"id", "unique_id", "zip_code_prefix", "city", "state"}).
			AddRow("c1", "u1", "14409", "franca", "SP"))
	mock.ExpectQuery("FROM sellers").
		WillReturnRows(sqlmock.NewRows([]string{"id", "zip_code_prefix", "city", "state"}).
			AddRow("s1", "13023", "campinas", "SP"))
	mock.ExpectQuery("FROM geolocation").
		WillReturnRows(sqlmock.NewRows([]string{"zip_code_prefix", "lat", "lng", "city", "state"}).
			AddRow("14409", -20.50, -47.39, "franca", "SP"))
	mock.ExpectQuery("FROM reviews").
		WillReturnRows(sqlmock.NewRows([]string{"id", "order_id", "score"}).AddRow("r1", "o1", 4))

	driver := &MySQLDriver{db: db}
	tables, err := driver.Load(context.Background())
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())

	require.Len(t, tables.Orders, 1)
	assert.True(t, ts.Equal(tables.Orders[0].PurchaseTimestamp))
	require.Len(t, tables.OrderItems, 2)
	assert.Equal(t, "129.9", tables.OrderItems[0].Price.String())
	assert.Equal(t, 2, tables.OrderItems[1].ItemSeq)
	assert.Equal(t, "perfumaria", tables.Products[0].Category)
	assert.Equal(t, "SP", tables.Customers[0].State)
	assert.Equal(t, "campinas", tables.Sellers[0].City)
	assert.InDelta(t, -47.39, tables.Geolocation[0].Lng, 1e-9)
	assert.Equal(t, 4, tables.Reviews[0].Score)
}

func TestMySQL_LoadRejectsBadPrice(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("FROM orders").
		WillReturnRows(sqlmock.NewRows([]string{"id", "customer_id", "status", "purchase_timestamp"}))
	mock.ExpectQuery("FROM order_items").
		WillReturnRows(sqlmock.NewRows([]string{"order_id", "item_seq", "product_id", "seller_id", "price", "freight_value"}).
			AddRow("o1", 1, "p1", "s1", "abc", "0"))

	_, err = (&MySQLDriver{db: db}).Load(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load order_items")
}

func TestMySQL_SeedRollsBackAndKeepsCause(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	boom := errors.New("boom")
	mock.ExpectBegin()
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS orders").WillReturnError(boom)
	mock.ExpectRollback()

	err = (&MySQLDriver{db: db}).Seed(context.Background(), smallSnapshot())
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPlaceholders(t *testing.T) {
	assert.Equal(t, "$1, $2, $3", dollarPlaceholders(3))
	assert.Equal(t, "?, ?, ?", questionPlaceholders(3))
	assert.Equal(t, "INSERT INTO reviews (id, order_id, score) VALUES (?, ?, ?)",
		insertQuery("reviews", []string{"id", "order_id", "score"}, questionPlaceholders))
}

func TestMongoDatabaseName(t *testing.T) {
	tests := []struct {
		uri  string
		want string
	}{
		{"mongodb://localhost:27017/olist", "olist"},
		{"mongodb://a:1,b:2/olist?replicaSet=rs0", "olist"},
		{"mongodb://localhost:27017/?replicaSet=rs0", defaultMongoDatabase},
		{"mongodb://localhost:27017", defaultMongoDatabase},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, mongoDatabaseName(tt.uri), tt.uri)
	}
}

func TestOrderDocs_NestsItems(t *testing.T) {
	tables := &dataset.Tables{
		Orders: []dataset.Order{{OrderID: "o1", CustomerID: "c1"}, {OrderID: "o2", CustomerID: "c2"}},
		OrderItems: []dataset.OrderItem{
			{OrderID: "o1", ItemSeq: 1},
			{OrderID: "o1", ItemSeq: 2},
			{OrderID: "orphan", ItemSeq: 1},
		},
	}
	docs := orderDocs(tables)
	require.Len(t, docs, 2)
	assert.Len(t, docs[0].Items, 2)
	assert.Empty(t, docs[1].Items)
}

func TestOpen(t *testing.T) {
	_, err := Open(context.Background(), "oracle", "x")
	assert.Error(t, err)

	_, err = Open(context.Background(), KindPostgres, "")
	assert.Error(t, err)

	src, err := Open(context.Background(), KindCSV, t.TempDir())
	require.NoError(t, err)
	_, err = src.Load(context.Background())
	assert.Error(t, err, "orders file is mandatory")
	assert.NoError(t, src.Close())
}
