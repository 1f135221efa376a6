package database

import (
	"context"
	"database/sql"

	"ecommerce-dashboard/internal/dataset"

	"github.com/go-sql-driver/mysql"
)

type MySQLDriver struct {
	db *sql.DB
}

// Connect opens the pool. parseTime is forced on so purchase timestamps
// scan into time.Time.
func (md *MySQLDriver) Connect(ctx context.Context, dsn string) error {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return err
	}
	cfg.ParseTime = true

	db, err := sql.Open("mysql", cfg.FormatDSN())
	if err != nil {
		return err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return err
	}
	md.db = db
	return nil
}

func (md *MySQLDriver) Close() error {
	return md.db.Close()
}

func (md *MySQLDriver) ExecuteTx(ctx context.Context, txFunc func(interface{}) error) error {
	return sqlExecuteTx(ctx, md.db, txFunc)
}

func (md *MySQLDriver) Load(ctx context.Context) (*dataset.Tables, error) {
	return loadTables(ctx, sqlQuery(md.db), func(column string) string {
		return "CAST(" + column + " AS CHAR)"
	})
}

func (md *MySQLDriver) Seed(ctx context.Context, tables *dataset.Tables) error {
	return md.ExecuteTx(ctx, func(tx interface{}) error {
		return seedTx(ctx, tx, tables)
	})
}
