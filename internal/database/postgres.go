package database

import (
	"context"

	"ecommerce-dashboard/internal/dataset"

	"github.com/jackc/pgx/v5"
)

type PostgresDriver struct {
	conn *pgx.Conn
}

func (pd *PostgresDriver) Connect(ctx context.Context, dsn string) error {
	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return err
	}
	pd.conn = conn
	return nil
}

func (pd *PostgresDriver) Close() error {
	return pd.conn.Close(context.Background())
}

func (pd *PostgresDriver) ExecuteTx(ctx context.Context, txFunc func(interface{}) error) (err error) {
	tx, err := pd.conn.Begin(ctx)
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback(ctx)
			panic(p) // re-panic after rollback
		} else if err != nil {
			tx.Rollback(ctx) // err is non-nil; don't change it
		} else {
			err = tx.Commit(ctx) // err is nil; if Commit returns error, update err
		}
	}()

	err = txFunc(tx)
	return err
}

func (pd *PostgresDriver) Load(ctx context.Context) (*dataset.Tables, error) {
	return loadTables(ctx, pgxQuery(pd.conn), func(column string) string {
		return column + "::text"
	})
}

func (pd *PostgresDriver) Seed(ctx context.Context, tables *dataset.Tables) error {
	return pd.ExecuteTx(ctx, func(tx interface{}) error {
		return seedTx(ctx, tx, tables)
	})
}
