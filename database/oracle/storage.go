package oracle

import (
	"context"
	"database/sql"
	"errors"
	"time"

	multierror "github.com/hashicorp/go-multierror"

	"github.com/soothsayer-db/soothsayer/database"
	"github.com/soothsayer-db/soothsayer/script"
)

func (ora *Oracle) VersionTableExists(ctx context.Context, schema string) (bool, error) {
	return ora.tableExists(ctx, schema, ora.config.VersionTable)
}

func (ora *Oracle) InitialiseVersioningTable(ctx context.Context, schema, tablespace string) error {
	table, err := ora.table(schema, ora.config.VersionTable)
	if err != nil {
		return err
	}
	ts, err := tablespaceClause(tablespace)
	if err != nil {
		return err
	}

	query := `CREATE TABLE ` + table + ` (
  VERSION NUMBER(19) NOT NULL PRIMARY KEY,
  RECORDED_AT TIMESTAMP DEFAULT SYSTIMESTAMP NOT NULL
  )` + ts
	return ora.exec(ctx, schema, query)
}

func (ora *Oracle) GetCurrentVersion(ctx context.Context, schema string) (*database.DatabaseVersion, error) {
	table, err := ora.table(schema, ora.config.VersionTable)
	if err != nil {
		return nil, err
	}

	query := `SELECT VERSION, RECORDED_AT FROM (SELECT VERSION, RECORDED_AT FROM ` + table + ` ORDER BY VERSION DESC) WHERE ROWNUM = 1`
	var v database.DatabaseVersion
	err = ora.conn.QueryRowContext(ctx, query).Scan(&v.Version, &v.RecordedAt)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, nil
	case err != nil:
		return nil, &database.Error{Schema: schema, OrigErr: err, Query: []byte(query)}
	default:
		return &v, nil
	}
}

func (ora *Oracle) SetCurrentVersion(ctx context.Context, schema string, version int64) error {
	table, err := ora.table(schema, ora.config.VersionTable)
	if err != nil {
		return err
	}
	query := `INSERT INTO ` + table + ` (VERSION) VALUES (:1)`
	return ora.exec(ctx, schema, query, version)
}

func (ora *Oracle) RemoveVersion(ctx context.Context, schema string, version int64) error {
	table, err := ora.table(schema, ora.config.VersionTable)
	if err != nil {
		return err
	}
	query := `DELETE FROM ` + table + ` WHERE VERSION = :1`
	return ora.exec(ctx, schema, query, version)
}

func (ora *Oracle) AppliedScriptsTableExists(ctx context.Context, schema string) (bool, error) {
	return ora.tableExists(ctx, schema, ora.config.AppliedScriptsTable)
}

func (ora *Oracle) InitialiseAppliedScriptsTable(ctx context.Context, schema, tablespace string) error {
	table, err := ora.table(schema, ora.config.AppliedScriptsTable)
	if err != nil {
		return err
	}
	ts, err := tablespaceClause(tablespace)
	if err != nil {
		return err
	}

	query := `CREATE TABLE ` + table + ` (
  VERSION NUMBER(19) NOT NULL PRIMARY KEY,
  FORWARD_NAME VARCHAR2(512) NOT NULL,
  FORWARD_CONTENT CLOB NOT NULL,
  REVERSE_NAME VARCHAR2(512),
  REVERSE_CONTENT CLOB,
  APPLIED_AT TIMESTAMP NOT NULL
  )` + ts
	return ora.exec(ctx, schema, query)
}

func (ora *Oracle) GetAppliedScripts(ctx context.Context, schema string) (applied []database.AppliedScript, err error) {
	table, err := ora.table(schema, ora.config.AppliedScriptsTable)
	if err != nil {
		return nil, err
	}

	query := `SELECT VERSION, FORWARD_NAME, FORWARD_CONTENT, REVERSE_NAME, REVERSE_CONTENT, APPLIED_AT FROM ` + table + ` ORDER BY VERSION ASC`
	rows, err := ora.conn.QueryContext(ctx, query)
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
		)
		if err := rows.Scan(&a.Version, &a.Forward.Name, &a.Forward.Content, &reverseName, &reverseContent, &a.AppliedAt); err != nil {
			return nil, &database.Error{Schema: schema, OrigErr: err, Query: []byte(query)}
		}
		a.Forward.Version = a.Version
		a.Forward.Category = script.Up
		if reverseName.Valid {
			a.Reverse = &script.Script{Version: a.Version, Name: reverseName.String, Category: script.Down, Content: reverseContent.String}
		}
		applied = append(applied, a)
	}
	if err := rows.Err(); err != nil {
		return nil, &database.Error{Schema: schema, OrigErr: err, Query: []byte(query)}
	}
	return applied, nil
}

func (ora *Oracle) InsertAppliedScript(ctx context.Context, schema string, applied database.AppliedScript) error {
	table, err := ora.table(schema, ora.config.AppliedScriptsTable)
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

	query := `INSERT INTO ` + table + ` (VERSION, FORWARD_NAME, FORWARD_CONTENT, REVERSE_NAME, REVERSE_CONTENT, APPLIED_AT) VALUES (:1, :2, :3, :4, :5, :6)`
	return ora.exec(ctx, schema, query, applied.Version, applied.Forward.Name, applied.Forward.Content, reverseName, reverseContent, at)
}

func (ora *Oracle) RemoveAppliedScript(ctx context.Context, schema string, version int64) error {
	table, err := ora.table(schema, ora.config.AppliedScriptsTable)
	if err != nil {
		return err
	}
	query := `DELETE FROM ` + table + ` WHERE VERSION = :1`
	return ora.exec(ctx, schema, query, version)
}
