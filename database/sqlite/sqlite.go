// Package sqlite stores schemas in a SQLite database file. SQLite has no
// schemas of its own, so a schema is the set of tables whose name starts
// with "<schema>_". The versioning tables follow the same rule. Schema names
// hold letters and digits only, so no schema's tables carry the prefix of
// another one.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	nurl "net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"go.uber.org/atomic"
	_ "modernc.org/sqlite"

	"github.com/soothsayer-db/soothsayer/database"
	iurl "github.com/soothsayer-db/soothsayer/internal/url"
	"github.com/soothsayer-db/soothsayer/script"
)

func init() {
	database.Register("sqlite", &Sqlite{})
}

var (
	DefaultVersionTable        = "schema_version"
	DefaultAppliedScriptsTable = "applied_scripts"
)

var (
	ErrNilConfig     = fmt.Errorf("no config")
	ErrInvalidSchema = fmt.Errorf("schema name must start with a letter and only contain letters and digits")
)

var identifierRegex = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9]*$`)

type Config struct {
	VersionTable        string
	AppliedScriptsTable string
	NoTxWrap            bool

	// Ping defaults to database.DefaultPingConfig.
	Ping *database.PingConfig
}

type Sqlite struct {
	db     *sql.DB
	closed atomic.Bool

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

	return &Sqlite{
		db:     instance,
		config: config,
	}, nil
}

func (m *Sqlite) Open(ctx context.Context, url string) (database.Conn, error) {
	purl, err := nurl.Parse(url)
	if err != nil {
		return nil, err
	}
	ping, err := database.PingConfigFromQuery(purl.Query())
	if err != nil {
		return nil, err
	}
	dbfile := strings.Replace(iurl.FilterCustomQuery(purl).String(), "sqlite://", "", 1)
	db, err := sql.Open("sqlite", dbfile)
	if err != nil {
		return nil, err
	}

	qv := purl.Query()

	noTxWrap := false
	if v := qv.Get("x-no-tx-wrap"); v != "" {
		noTxWrap, err = strconv.ParseBool(v)
		if err != nil {
			return nil, multierror.Append(fmt.Errorf("x-no-tx-wrap: %s", err), db.Close())
		}
	}

	mx, err := WithInstance(ctx, db, &Config{
		VersionTable:        qv.Get("x-version-table"),
		AppliedScriptsTable: qv.Get("x-applied-scripts-table"),
		NoTxWrap:            noTxWrap,
		Ping:                &ping,
	})
	if err != nil {
		return nil, multierror.Append(err, db.Close())
	}
	return mx, nil
}

// Close closes the database handle once, later calls do nothing.
func (m *Sqlite) Close() error {
	if !m.closed.CompareAndSwap(false, true) {
		return nil
	}
	return m.db.Close()
}

func (m *Sqlite) table(schema, name string) (string, error) {
	if !identifierRegex.MatchString(schema) {
		return "", &database.Error{Schema: schema, OrigErr: ErrInvalidSchema}
	}
	return schema + "_" + name, nil
}

func (m *Sqlite) tableExists(ctx context.Context, table string) (bool, error) {
	query := `SELECT COUNT(1) FROM sqlite_master WHERE type = 'table' AND name = ?`
	var count int
	if err := m.db.QueryRowContext(ctx, query, table).Scan(&count); err != nil {
		return false, &database.Error{OrigErr: err, Query: []byte(query)}
	}
	return count > 0, nil
}

// SchemaExists reports whether any table belongs to schema. Like table
// names, schema names compare case-insensitively.
func (m *Sqlite) SchemaExists(ctx context.Context, schema string) (bool, error) {
	if !identifierRegex.MatchString(schema) {
		return false, &database.Error{Schema: schema, OrigErr: ErrInvalidSchema}
	}
	prefix := schema + `\_%`

	query := `SELECT COUNT(1) FROM sqlite_master WHERE type = 'table' AND name LIKE ? ESCAPE '\'`
	var count int
	if err := m.db.QueryRowContext(ctx, query, prefix).Scan(&count); err != nil {
		return false, &database.Error{Schema: schema, OrigErr: err, Query: []byte(query)}
	}
	return count > 0, nil
}

func (m *Sqlite) Execute(ctx context.Context, s *script.Script) error {
	if m.config.NoTxWrap {
		return m.executeQueryNoTx(ctx, s.Content)
	}
	return m.executeQuery(ctx, s.Content)
}

func (m *Sqlite) executeQuery(ctx context.Context, query string, args ...interface{}) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return &database.Error{OrigErr: err, Err: "transaction start failed"}
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		if errRollback := tx.Rollback(); errRollback != nil {
			err = multierror.Append(err, errRollback)
		}
		return &database.Error{OrigErr: err, Query: []byte(query)}
	}
	if err := tx.Commit(); err != nil {
		return &database.Error{OrigErr: err, Err: "transaction commit failed"}
	}
	return nil
}

func (m *Sqlite) executeQueryNoTx(ctx context.Context, query string) error {
	if _, err := m.db.ExecContext(ctx, query); err != nil {
		return &database.Error{OrigErr: err, Query: []byte(query)}
	}
	return nil
}

func (m *Sqlite) VersionTableExists(ctx context.Context, schema string) (bool, error) {
	table, err := m.table(schema, m.config.VersionTable)
	if err != nil {
		return false, err
	}
	return m.tableExists(ctx, table)
}

func (m *Sqlite) InitialiseVersioningTable(ctx context.Context, schema, tablespace string) error {
	table, err := m.table(schema, m.config.VersionTable)
	if err != nil {
		return err
	}
	query := `CREATE TABLE ` + table + ` (version INTEGER PRIMARY KEY, recorded_at TEXT NOT NULL)`
	return m.executeQuery(ctx, query)
}

func (m *Sqlite) GetCurrentVersion(ctx context.Context, schema string) (*database.DatabaseVersion, error) {
	table, err := m.table(schema, m.config.VersionTable)
	if err != nil {
		return nil, err
	}

	query := `SELECT version, recorded_at FROM ` + table + ` ORDER BY version DESC LIMIT 1`
	var (
		version    int64
		recordedAt string
	)
	err = m.db.QueryRowContext(ctx, query).Scan(&version, &recordedAt)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, nil
	case err != nil:
		return nil, &database.Error{Schema: schema, OrigErr: err, Query: []byte(query)}
	}

	at, err := parseTime(recordedAt)
	if err != nil {
		return nil, &database.Error{Schema: schema, OrigErr: err, Query: []byte(query)}
	}
	return &database.DatabaseVersion{Version: version, RecordedAt: at}, nil
}

func (m *Sqlite) SetCurrentVersion(ctx context.Context, schema string, version int64) error {
	table, err := m.table(schema, m.config.VersionTable)
	if err != nil {
		return err
	}
	query := `INSERT INTO ` + table + ` (version, recorded_at) VALUES (?, ?)`
	return m.executeQuery(ctx, query, version, formatTime(time.Now()))
}

func (m *Sqlite) RemoveVersion(ctx context.Context, schema string, version int64) error {
	table, err := m.table(schema, m.config.VersionTable)
	if err != nil {
		return err
	}
	query := `DELETE FROM ` + table + ` WHERE version = ?`
	return m.executeQuery(ctx, query, version)
}

func (m *Sqlite) AppliedScriptsTableExists(ctx context.Context, schema string) (bool, error) {
	table, err := m.table(schema, m.config.AppliedScriptsTable)
	if err != nil {
		return false, err
	}
	return m.tableExists(ctx, table)
}

func (m *Sqlite) InitialiseAppliedScriptsTable(ctx context.Context, schema, tablespace string) error {
	table, err := m.table(schema, m.config.AppliedScriptsTable)
	if err != nil {
		return err
	}
	query := `CREATE TABLE ` + table + ` (
		version INTEGER PRIMARY KEY,
		forward_name TEXT NOT NULL,
		forward_content TEXT NOT NULL,
		reverse_name TEXT,
		reverse_content TEXT,
		applied_at TEXT NOT NULL
	)`
	return m.executeQuery(ctx, query)
}

func (m *Sqlite) GetAppliedScripts(ctx context.Context, schema string) (applied []database.AppliedScript, err error) {
	table, err := m.table(schema, m.config.AppliedScriptsTable)
	if err != nil {
		return nil, err
	}

	query := `SELECT version, forward_name, forward_content, reverse_name, reverse_content, applied_at FROM ` + table + ` ORDER BY version ASC`
	rows, err := m.db.QueryContext(ctx, query)
	if err != nil {
		return nil, &database.Error{Schema: schema, OrigErr: err, Query: []byte(query)}
	}
	defer func() {
		if errClose := rows.Close(); errClose != nil {
			err = multierror.Append(err, errClose)
		}
	}()

	for rows.Next() {
		var (
			a                           database.AppliedScript
			reverseName, reverseContent sql.NullString
			appliedAt                   string
		)
		if err := rows.Scan(&a.Version, &a.Forward.Name, &a.Forward.Content, &reverseName, &reverseContent, &appliedAt); err != nil {
			return nil, &database.Error{Schema: schema, OrigErr: err, Query: []byte(query)}
		}
		a.Forward.Version = a.Version
		a.Forward.Category = script.Up
		if reverseName.Valid {
			a.Reverse = &script.Script{Version: a.Version, Name: reverseName.String, Category: script.Down, Content: reverseContent.String}
		}
		if a.AppliedAt, err = parseTime(appliedAt); err != nil {
			return nil, &database.Error{Schema: schema, OrigErr: err, Query: []byte(query)}
		}
		applied = append(applied, a)
	}
	if err := rows.Err(); err != nil {
		return nil, &database.Error{Schema: schema, OrigErr: err, Query: []byte(query)}
	}
	return applied, nil
}

func (m *Sqlite) InsertAppliedScript(ctx context.Context, schema string, applied database.AppliedScript) error {
	table, err := m.table(schema, m.config.AppliedScriptsTable)
	if err != nil {
		return err
	}

	var reverseName, reverseContent sql.NullString
	if applied.Reverse != nil {
		reverseName = sql.NullString{String: applied.Reverse.Name, Valid: true}
		reverseContent = sql.NullString{String: applied.Reverse.Content, Valid: true}
	}
	at := applied.AppliedAt
	if at.IsZero() {
		at = time.Now()
	}

	query := `INSERT INTO ` + table + ` (version, forward_name, forward_content, reverse_name, reverse_content, applied_at) VALUES (?, ?, ?, ?, ?, ?)`
	return m.executeQuery(ctx, query, applied.Version, applied.Forward.Name, applied.Forward.Content, reverseName, reverseContent, formatTime(at))
}

func (m *Sqlite) RemoveAppliedScript(ctx context.Context, schema string, version int64) error {
	table, err := m.table(schema, m.config.AppliedScriptsTable)
	if err != nil {
		return err
	}
	query := `DELETE FROM ` + table + ` WHERE version = ?`
	return m.executeQuery(ctx, query, version)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}
