package database

import (
	"context"
	"fmt"

	"ecommerce-dashboard/internal/dataset"
)

// Source kinds accepted by Open.
const (
	KindCSV      = "csv"
	KindPostgres = "postgres"
	KindMySQL    = "mysql"
	KindSQLite   = "sqlite"
	KindMongo    = "mongo"
)

// Source hands the dashboard a full snapshot of the seven tables.
type Source interface {
	Load(ctx context.Context) (*dataset.Tables, error)
	Close() error
}

// Seeder writes a snapshot into a database, replacing what was there.
type Seeder interface {
	Seed(ctx context.Context, tables *dataset.Tables) error
}

type DatabaseDriver interface {
	Connect(ctx context.Context, dsn string) error
	Close() error
	ExecuteTx(ctx context.Context, txFunc func(interface{}) error) error
}

// CSVSource reads the olist CSV export from a directory.
type CSVSource struct {
	Dir string
}

func (s *CSVSource) Load(ctx context.Context) (*dataset.Tables, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return dataset.LoadCSVDir(s.Dir)
}

func (s *CSVSource) Close() error {
	return nil
}

// Open connects to the source of the given kind. For KindCSV the dsn is the
// directory holding the CSV files.
func Open(ctx context.Context, kind, dsn string) (Source, error) {
	var driver interface {
		DatabaseDriver
		Source
	}
	switch kind {
	case KindCSV:
		return &CSVSource{Dir: dsn}, nil
	case KindPostgres:
		driver = &PostgresDriver{}
	case KindMySQL:
		driver = &MySQLDriver{}
	case KindSQLite:
		driver = &SQLiteDriver{}
	case KindMongo:
		driver = &MongoDriver{}
	default:
		return nil, fmt.Errorf("unsupported source type: %s", kind)
	}

	if dsn == "" {
		return nil, fmt.Errorf("no dsn configured for %s", kind)
	}
	if err := driver.Connect(ctx, dsn); err != nil {
		return nil, fmt.Errorf("connect to %s: %w", kind, err)
	}
	return driver, nil
}
