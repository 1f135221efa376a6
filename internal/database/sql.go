package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"ecommerce-dashboard/internal/dataset"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

type rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

type queryFunc func(ctx context.Context, query string) (rows, func(), error)

type execFunc func(ctx context.Context, query string, args ...any) error

func sqlQuery(db *sql.DB) queryFunc {
	return func(ctx context.Context, query string) (rows, func(), error) {
		r, err := db.QueryContext(ctx, query)
		if err != nil {
			return nil, nil, err
		}
		return r, func() { r.Close() }, nil
	}
}

func pgxQuery(conn *pgx.Conn) queryFunc {
	return func(ctx context.Context, query string) (rows, func(), error) {
		r, err := conn.Query(ctx, query)
		if err != nil {
			return nil, nil, err
		}
		return r, r.Close, nil
	}
}

// textCast renders a DECIMAL column as text so prices never pass through
// float64 on the way out.
type textCast func(column string) string

func scanAll(ctx context.Context, query queryFunc, q string, scan func(rows) error) error {
	r, closeRows, err := query(ctx, q)
	if err != nil {
		return err
	}
	defer closeRows()
	for r.Next() {
		if err := scan(r); err != nil {
			return err
		}
	}
	return r.Err()
}

func loadTables(ctx context.Context, query queryFunc, cast textCast) (*dataset.Tables, error) {
	t := &dataset.Tables{}

	err := scanAll(ctx, query, "SELECT id, customer_id, status, purchase_timestamp FROM orders ORDER BY id", func(r rows) error {
		var o dataset.Order
		if err := r.Scan(&o.OrderID, &o.CustomerID, &o.Status, &o.PurchaseTimestamp); err != nil {
			return err
		}
		o.PurchaseTimestamp = o.PurchaseTimestamp.UTC()
		t.Orders = append(t.Orders, o)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load orders: %w", err)
	}

	itemsQuery := fmt.Sprintf(
		"SELECT order_id, item_seq, product_id, seller_id, %s, %s FROM order_items ORDER BY order_id, item_seq",
		cast("price"), cast("freight_value"),
	)
	err = scanAll(ctx, query, itemsQuery, func(r rows) error {
		var (
			it             dataset.OrderItem
			price, freight string
		)
		if err := r.Scan(&it.OrderID, &it.ItemSeq, &it.ProductID, &it.SellerID, &price, &freight); err != nil {
			return err
		}
		var err error
		if it.Price, err = decimal.NewFromString(price); err != nil {
			return fmt.Errorf("order %s item %d: price: %w", it.OrderID, it.ItemSeq, err)
		}
		if it.FreightValue, err = decimal.NewFromString(freight); err != nil {
			return fmt.Errorf("order %s item %d: freight: %w", it.OrderID, it.ItemSeq, err)
		}
		t.OrderItems = append(t.OrderItems, it)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load order_items: %w", err)
	}

	err = scanAll(ctx, query, "SELECT id, category FROM products ORDER BY id", func(r rows) error {
		var p dataset.Product
		if err := r.Scan(&p.ProductID, &p.Category); err != nil {
			return err
		}
		t.Products = append(t.Products, p)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load products: %w", err)
	}

	err = scanAll(ctx, query, "SELECT id, unique_id, zip_code_prefix, city, state FROM customers ORDER BY id", func(r rows) error {
		var c dataset.Customer
		if err := r.Scan(&c.CustomerID, &c.CustomerUniqueID, &c.ZipCodePrefix, &c.City, &c.State); err != nil {
			return err
		}
		t.Customers = append(t.Customers, c)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load customers: %w", err)
	}

	err = scanAll(ctx, query, "SELECT id, zip_code_prefix, city, state FROM sellers ORDER BY id", func(r rows) error {
		var s dataset.Seller
		if err := r.Scan(&s.SellerID, &s.ZipCodePrefix, &s.City, &s.State); err != nil {
			return err
		}
		t.Sellers = append(t.Sellers, s)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load sellers: %w", err)
	}

	// geolocation has no key; insertion order decides which row wins per zip
	err = scanAll(ctx, query, "SELECT zip_code_prefix, lat, lng, city, state FROM geolocation", func(r rows) error {
		var g dataset.Geolocation
		if err := r.Scan(&g.ZipCodePrefix, &g.Lat, &g.Lng, &g.City, &g.State); err != nil {
			return err
		}
		t.Geolocation = append(t.Geolocation, g)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load geolocation: %w", err)
	}

	err = scanAll(ctx, query, "SELECT id, order_id, score FROM reviews ORDER BY id, order_id", func(r rows) error {
		var rv dataset.Review
		if err := r.Scan(&rv.ReviewID, &rv.OrderID, &rv.Score); err != nil {
			return err
		}
		t.Reviews = append(t.Reviews, rv)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load reviews: %w", err)
	}

	return t, nil
}

// seedTx writes tables through whichever SQL transaction handle the
// driver's ExecuteTx passed in.
func seedTx(ctx context.Context, tx interface{}, tables *dataset.Tables) error {
	switch tx := tx.(type) {
	case pgx.Tx:
		return seedSQL(ctx, func(ctx context.Context, query string, args ...any) error {
			_, err := tx.Exec(ctx, query, args...)
			return err
		}, dollarPlaceholders, tables)
	case *sql.Tx:
		return seedSQL(ctx, func(ctx context.Context, query string, args ...any) error {
			_, err := tx.ExecContext(ctx, query, args...)
			return err
		}, questionPlaceholders, tables)
	default:
		return fmt.Errorf("unsupported transaction type: %T", tx)
	}
}

func dollarPlaceholders(n int) string {
	p := make([]string, n)
	for i := range p {
		p[i] = fmt.Sprintf("$%d", i+1)
	}
	return strings.Join(p, ", ")
}

func questionPlaceholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func insertQuery(table string, columns []string, placeholders func(int) string) string {
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, strings.Join(columns, ", "), placeholders(len(columns)))
}

func seedSQL(ctx context.Context, exec execFunc, placeholders func(int) string, t *dataset.Tables) error {
	for _, schema := range dataset.Schemas() {
		if err := exec(ctx, schema); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}
	for _, table := range dataset.TableNames {
		if err := exec(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	q := insertQuery("orders", []string{"id", "customer_id", "status", "purchase_timestamp"}, placeholders)
	for _, o := range t.Orders {
		if err := exec(ctx, q, o.OrderID, o.CustomerID, o.Status, o.PurchaseTimestamp.UTC()); err != nil {
			return fmt.Errorf("insert order %s: %w", o.OrderID, err)
		}
	}

	q = insertQuery("order_items", []string{"order_id", "item_seq", "product_id", "seller_id", "price", "freight_value"}, placeholders)
	for _, it := range t.OrderItems {
		err := exec(ctx, q, it.OrderID, it.ItemSeq, it.ProductID, it.SellerID, it.Price, it.FreightValue)
		if err != nil {
			return fmt.Errorf("insert item %s/%d: %w", it.OrderID, it.ItemSeq, err)
		}
	}

	q = insertQuery("products", []string{"id", "category"}, placeholders)
	for _, p := range t.Products {
		if err := exec(ctx, q, p.ProductID, p.Category); err != nil {
			return fmt.Errorf("insert product %s: %w", p.ProductID, err)
		}
	}

	q = insertQuery("customers", []string{"id", "unique_id", "zip_code_prefix", "city", "state"}, placeholders)
	for _, c := range t.Customers {
		if err := exec(ctx, q, c.CustomerID, c.CustomerUniqueID, c.ZipCodePrefix, c.City, c.State); err != nil {
			return fmt.Errorf("insert customer %s: %w", c.CustomerID, err)
		}
	}

	q = insertQuery("sellers", []string{"id", "zip_code_prefix", "city", "state"}, placeholders)
	for _, s := range t.Sellers {
		if err := exec(ctx, q, s.SellerID, s.ZipCodePrefix, s.City, s.State); err != nil {
			return fmt.Errorf("insert seller %s: %w", s.SellerID, err)
		}
	}

	q = insertQuery("geolocation", []string{"zip_code_prefix", "lat", "lng", "city", "state"}, placeholders)
	for _, g := range t.Geolocation {
		if err := exec(ctx, q, g.ZipCodePrefix, g.Lat, g.Lng, g.City, g.State); err != nil {
			return fmt.Errorf("insert geolocation %s: %w", g.ZipCodePrefix, err)
		}
	}

	q = insertQuery("reviews", []string{"id", "order_id", "score"}, placeholders)
	for _, r := range t.Reviews {
		if err := exec(ctx, q, r.ReviewID, r.OrderID, r.Score); err != nil {
			return fmt.Errorf("insert review %s/%s: %w", r.ReviewID, r.OrderID, err)
		}
	}
	return nil
}

// sqlExecuteTx runs txFunc in a database/sql transaction, rolling back on
// error or panic.
func sqlExecuteTx(ctx context.Context, db *sql.DB, txFunc func(interface{}) error) (err error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		} else if err != nil {
			tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()

	err = txFunc(tx)
	return err
}
