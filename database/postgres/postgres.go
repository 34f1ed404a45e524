// Package postgres keeps each migrated schema as a PostgreSQL schema. The
// versioning tables live inside the schema they track.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	nurl "net/url"

	"github.com/hashicorp/go-multierror"
	"github.com/lib/pq"

	"github.com/soothsayer-db/soothsayer/database"
	iurl "github.com/soothsayer-db/soothsayer/internal/url"
	"github.com/soothsayer-db/soothsayer/script"
)

func init() {
	db := Postgres{}
	database.Register("postgres", &db)
	database.Register("postgresql", &db)
}

var (
	DefaultVersionTable        = "schema_version"
	DefaultAppliedScriptsTable = "applied_scripts"
)

var (
	ErrNilConfig = fmt.Errorf("no config")
)

type Config struct {
	VersionTable        string
	AppliedScriptsTable string

	// Ping defaults to database.DefaultPingConfig.
	Ping *database.PingConfig
}

type Postgres struct {
	db *sql.DB

	// Open and WithInstance need to guarantee that config is never nil
	config *Config
}

func WithInstance(ctx context.Context, instance *sql.DB, config *Config) (database.Conn, error) {
	if config == nil {
		return nil, ErrNilConfig
	}

	ping := database.DefaultPingConfig
	if config.Ping != nil {
		ping = *config.Ping
	}
	if err := database.Ping(ctx, instance, ping); err != nil {
		return nil, err
	}

	if len(config.VersionTable) == 0 {
		config.VersionTable = DefaultVersionTable
	}
	if len(config.AppliedScriptsTable) == 0 {
		config.AppliedScriptsTable = DefaultAppliedScriptsTable
	}

	return &Postgres{
		db:     instance,
		config: config,
	}, nil
}

func (p *Postgres) Open(ctx context.Context, url string) (database.Conn, error) {
	purl, err := nurl.Parse(url)
	if err != nil {
		return nil, err
	}
	ping, err := database.PingConfigFromQuery(purl.Query())
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("postgres", iurl.FilterCustomQuery(purl).String())
	if err != nil {
		return nil, err
	}

	px, err := WithInstance(ctx, db, &Config{
		VersionTable:        purl.Query().Get("x-version-table"),
		AppliedScriptsTable: purl.Query().Get("x-applied-scripts-table"),
		Ping:                &ping,
	})
	if err != nil {
		return nil, multierror.Append(database.RedactPassword(err), db.Close())
	}

	return px, nil
}

func (p *Postgres) Close() error {
	return p.db.Close()
}

func (p *Postgres) SchemaExists(ctx context.Context, schema string) (bool, error) {
	query := `SELECT COUNT(1) FROM information_schema.schemata WHERE schema_name = $1`
	var count int
	if err := p.db.QueryRowContext(ctx, query, schema).Scan(&count); err != nil {
		return false, &database.Error{Schema: schema, OrigErr: err, Query: []byte(query)}
	}
	return count > 0, nil
}

// Execute runs the script in a single transaction.
func (p *Postgres) Execute(ctx context.Context, s *script.Script) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return &database.Error{OrigErr: err, Err: "transaction start failed"}
	}

	if _, err := tx.ExecContext(ctx, s.Content); err != nil {
		if errRollback := tx.Rollback(); errRollback != nil {
			err = multierror.Append(err, errRollback)
		}
		return &database.Error{OrigErr: err, Err: scriptFailure(s, err), Query: []byte(s.Content)}
	}

	if err := tx.Commit(); err != nil {
		return &database.Error{OrigErr: err, Err: "transaction commit failed"}
	}
	return nil
}

func scriptFailure(s *script.Script, err error) string {
	var pgErr *pq.Error
	if errors.As(err, &pgErr) {
		msg := fmt.Sprintf("script %v failed: %v (%v)", s.Name, pgErr.Message, pgErr.Code.Name())
		if pgErr.Position != "" {
			msg += " at position " + pgErr.Position
		}
		return msg
	}
	return fmt.Sprintf("script %v failed", s.Name)
}

func (p *Postgres) exec(ctx context.Context, schema, query string, args ...interface{}) error {
	if _, err := p.db.ExecContext(ctx, query, args...); err != nil {
		return &database.Error{Schema: schema, OrigErr: err, Query: []byte(query)}
	}
	return nil
}

func (p *Postgres) tableExists(ctx context.Context, schema, table string) (bool, error) {
	query := `SELECT COUNT(1) FROM information_schema.tables WHERE table_schema = $1 AND table_name = $2`
	var count int
	if err := p.db.QueryRowContext(ctx, query, schema, table).Scan(&count); err != nil {
		return false, &database.Error{Schema: schema, OrigErr: err, Query: []byte(query)}
	}
	return count > 0, nil
}

// quoteTable returns the schema qualified, quoted name of table.
func quoteTable(schema, table string) string {
	return pq.QuoteIdentifier(schema) + "." + pq.QuoteIdentifier(table)
}

func tablespaceClause(tablespace string) string {
	if tablespace == "" {
		return ""
	}
	return " TABLESPACE " + pq.QuoteIdentifier(tablespace)
}
