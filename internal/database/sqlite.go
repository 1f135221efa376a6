package database

import (
	"context"
	"database/sql"

	"ecommerce-dashboard/internal/dataset"

	_ "modernc.org/sqlite"
)

// SQLiteDriver keeps a single connection open: SQLite serialises writers
// and an in-memory database lives only as long as its connection.
type SQLiteDriver struct {
	db *sql.DB
}

func (sd *SQLiteDriver) Connect(ctx context.Context, dsn string) error {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return err
	}
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return err
	}
	sd.db = db
	return nil
}

func (sd *SQLiteDriver) Close() error {
	return sd.db.Close()
}

func (sd *SQLiteDriver) ExecuteTx(ctx context.Context, txFunc func(interface{}) error) error {
	return sqlExecuteTx(ctx, sd.db, txFunc)
}

func (sd *SQLiteDriver) Load(ctx context.Context) (*dataset.Tables, error) {
	return loadTables(ctx, sqlQuery(sd.db), func(column string) string {
		return "CAST(" + column + " AS TEXT)"
	})
}

func (sd *SQLiteDriver) Seed(ctx context.Context, tables *dataset.Tables) error {
	return sd.ExecuteTx(ctx, func(tx interface{}) error {
		return seedTx(ctx, tx, tables)
	})
}
