// Package oracle migrates Oracle schemas, which are database users. The
// versioning tables are created inside the migrated schema.
package oracle

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	nurl "net/url"
	"regexp"
	"strings"

	multierror "github.com/hashicorp/go-multierror"
	_ "github.com/sijms/go-ora/v2"
	"github.com/sijms/go-ora/v2/network"

	"github.com/soothsayer-db/soothsayer/database"
	iurl "github.com/soothsayer-db/soothsayer/internal/url"
	"github.com/soothsayer-db/soothsayer/script"
)

func init() {
	db := Oracle{}
	database.Register("oracle", &db)
}

const (
	defaultVersionTable            = "SCHEMA_VERSION"
	defaultAppliedScriptsTable     = "APPLIED_SCRIPTS"
	defaultStatementSeparator      = ";"
	plsqlDefaultStatementSeparator = "---"
	plsqlStatementEndToken         = "END;"
)

var (
	ErrNilConfig     = fmt.Errorf("no config")
	ErrInvalidSchema = fmt.Errorf("invalid oracle identifier")
)

var identifierRegex = regexp.MustCompile(`^[A-Z][A-Z0-9_$#]{0,127}$`)

type Config struct {
	VersionTable            string
	AppliedScriptsTable     string
	PLSQLStatementSeparator string

	// Ping defaults to database.DefaultPingConfig.
	Ping *database.PingConfig
}

type Oracle struct {
	// Scripts and bookkeeping share one session
	conn *sql.Conn
	db   *sql.DB

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

	if config.VersionTable == "" {
		config.VersionTable = defaultVersionTable
	}
	if config.AppliedScriptsTable == "" {
		config.AppliedScriptsTable = defaultAppliedScriptsTable
	}
	if config.PLSQLStatementSeparator == "" {
		config.PLSQLStatementSeparator = plsqlDefaultStatementSeparator
	}
	for _, table := range []string{config.VersionTable, config.AppliedScriptsTable} {
		if _, err := identifier(table); err != nil {
			return nil, err
		}
	}

	conn, err := instance.Conn(ctx)
	if err != nil {
		return nil, err
	}

	return &Oracle{
		conn:   conn,
		db:     instance,
		config: config,
	}, nil
}

func (ora *Oracle) Open(ctx context.Context, url string) (database.Conn, error) {
	purl, err := nurl.Parse(url)
	if err != nil {
		return nil, err
	}
	if purl.Scheme != "oracle" {
		return nil, errors.New("invalid schema expected oracle, got: " + purl.Scheme)
	}
	ping, err := database.PingConfigFromQuery(purl.Query())
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("oracle", iurl.FilterCustomQuery(purl).String())
	if err != nil {
		return nil, err
	}

	oraInst, err := WithInstance(ctx, db, &Config{
		VersionTable:            strings.ToUpper(purl.Query().Get("x-version-table")),
		AppliedScriptsTable:     strings.ToUpper(purl.Query().Get("x-applied-scripts-table")),
		PLSQLStatementSeparator: purl.Query().Get("x-statement-separator"),
		Ping:                    &ping,
	})
	if err != nil {
		return nil, multierror.Append(database.RedactPassword(err), db.Close())
	}

	return oraInst, nil
}

func (ora *Oracle) Close() error {
	connErr := ora.conn.Close()
	dbErr := ora.db.Close()
	if connErr != nil || dbErr != nil {
		return fmt.Errorf("conn: %v, db: %v", connErr, dbErr)
	}
	return nil
}

// identifier upper cases name the way Oracle does for unquoted identifiers
// and rejects anything that would need quoting.
func identifier(name string) (string, error) {
	upper := strings.ToUpper(name)
	if !identifierRegex.MatchString(upper) {
		return "", &database.Error{Schema: name, OrigErr: ErrInvalidSchema}
	}
	return upper, nil
}

func (ora *Oracle) table(schema, table string) (string, error) {
	owner, err := identifier(schema)
	if err != nil {
		return "", err
	}
	return owner + "." + table, nil
}

func (ora *Oracle) SchemaExists(ctx context.Context, schema string) (bool, error) {
	owner, err := identifier(schema)
	if err != nil {
		return false, err
	}

	query := `SELECT COUNT(1) FROM ALL_USERS WHERE USERNAME = :1`
	var count int
	if err := ora.conn.QueryRowContext(ctx, query, owner).Scan(&count); err != nil {
		return false, &database.Error{Schema: schema, OrigErr: err, Query: []byte(query)}
	}
	return count > 0, nil
}

// Execute runs the statements of the script one after another. Oracle
// commits DDL implicitly, so a failed script may leave earlier statements
// applied.
func (ora *Oracle) Execute(ctx context.Context, s *script.Script) error {
	queries, err := parseStatements(strings.NewReader(s.Content), ora.config.PLSQLStatementSeparator)
	if err != nil {
		return err
	}
	for _, query := range queries {
		if _, err := ora.conn.ExecContext(ctx, query); err != nil {
			var oraErr *network.OracleError
			if errors.As(err, &oraErr) {
				return &database.Error{OrigErr: err, Err: fmt.Sprintf("script %v failed: %v", s.Name, oraErr.ErrMsg), Query: []byte(query)}
			}
			return &database.Error{OrigErr: err, Err: fmt.Sprintf("script %v failed", s.Name), Query: []byte(query)}
		}
	}
	return nil
}

func (ora *Oracle) exec(ctx context.Context, schema, query string, args ...interface{}) error {
	if _, err := ora.conn.ExecContext(ctx, query, args...); err != nil {
		return &database.Error{Schema: schema, OrigErr: err, Query: []byte(query)}
	}
	return nil
}

func (ora *Oracle) tableExists(ctx context.Context, schema, table string) (bool, error) {
	owner, err := identifier(schema)
	if err != nil {
		return false, err
	}

	query := `SELECT COUNT(1) FROM ALL_TABLES WHERE OWNER = :1 AND TABLE_NAME = :2`
	var count int
	if err := ora.conn.QueryRowContext(ctx, query, owner, table).Scan(&count); err != nil {
		return false, &database.Error{Schema: schema, OrigErr: err, Query: []byte(query)}
	}
	return count > 0, nil
}

func tablespaceClause(tablespace string) (string, error) {
	if tablespace == "" {
		return "", nil
	}
	ts, err := identifier(tablespace)
	if err != nil {
		return "", err
	}
	return " TABLESPACE " + ts, nil
}
