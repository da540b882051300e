package records

import (
	"context"
	"fmt"
	"strings"
)

const (
	DriverMongo    = "mongo"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverFile     = "file"
)

// Options selects and configures a backend.
type Options struct {
	Driver          string
	MongoURI        string
	MongoDatabase   string
	MongoCollection string
	SQLitePath      string
	PostgresDSN     string
	FilePath        string
}

// Open builds the Store named by opts.Driver.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(opts.Driver)) {
	case DriverMongo:
		return NewMongoStore(ctx, opts.MongoURI, opts.MongoDatabase, opts.MongoCollection)
	case DriverSQLite:
		return NewSQLiteStore(opts.SQLitePath)
	case DriverPostgres:
		return NewPostgresStore(opts.PostgresDSN)
	case DriverFile:
		return NewFileStore(opts.FilePath)
	default:
		return nil, fmt.Errorf("unknown record store: %q", opts.Driver)
	}
}
