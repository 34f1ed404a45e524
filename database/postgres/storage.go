package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/soothsayer-db/soothsayer/database"
	"github.com/soothsayer-db/soothsayer/script"
)

func (p *Postgres) VersionTableExists(ctx context.Context, schema string) (bool, error) {
	return p.tableExists(ctx, schema, p.config.VersionTable)
}

func (p *Postgres) InitialiseVersioningTable(ctx context.Context, schema, tablespace string) error {
	query := `CREATE TABLE ` + quoteTable(schema, p.config.VersionTable) + ` (
		version bigint not null primary key,
		recorded_at timestamp with time zone not null default now()
	)` + tablespaceClause(tablespace)
	return p.exec(ctx, schema, query)
}

func (p *Postgres) GetCurrentVersion(ctx context.Context, schema string) (*database.DatabaseVersion, error) {
	query := `SELECT version, recorded_at FROM ` + quoteTable(schema, p.config.VersionTable) + ` ORDER BY version DESC LIMIT 1`

	var v database.DatabaseVersion
	err := p.db.QueryRowContext(ctx, query).Scan(&v.Version, &v.RecordedAt)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, nil
	case err != nil:
		return nil, &database.Error{Schema: schema, OrigErr: err, Query: []byte(query)}
	default:
		return &v, nil
	}
}

func (p *Postgres) SetCurrentVersion(ctx context.Context, schema string, version int64) error {
	query := `INSERT INTO ` + quoteTable(schema, p.config.VersionTable) + ` (version) VALUES ($1)`
	return p.exec(ctx, schema, query, version)
}

func (p *Postgres) RemoveVersion(ctx context.Context, schema string, version int64) error {
	query := `DELETE FROM ` + quoteTable(schema, p.config.VersionTable) + ` WHERE version = $1`
	return p.exec(ctx, schema, query, version)
}

func (p *Postgres) AppliedScriptsTableExists(ctx context.Context, schema string) (bool, error) {
	return p.tableExists(ctx, schema, p.config.AppliedScriptsTable)
}

// InitialiseAppliedScriptsTable creates the history table. It keeps the
// content of the scripts so a schema can be rolled back without the script
// folder it was migrated with.
func (p *Postgres) InitialiseAppliedScriptsTable(ctx context.Context, schema, tablespace string) error {
	query := `CREATE TABLE ` + quoteTable(schema, p.config.AppliedScriptsTable) + ` (
		version bigint not null primary key,
		forward_name text not null,
		forward_content text not null,
		reverse_name text,
		reverse_content text,
		applied_at timestamp with time zone not null default now()
	)` + tablespaceClause(tablespace)
	return p.exec(ctx, schema, query)
}

func (p *Postgres) GetAppliedScripts(ctx context.Context, schema string) (applied []database.AppliedScript, err error) {
	query := `SELECT version, forward_name, forward_content, reverse_name, reverse_content, applied_at FROM ` +
		quoteTable(schema, p.config.AppliedScriptsTable) + ` ORDER BY version ASC`

	rows, err := p.db.QueryContext(ctx, query)
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

func (p *Postgres) InsertAppliedScript(ctx context.Context, schema string, applied database.AppliedScript) error {
	var reverseName, reverseContent sql.NullString
	if applied.Reverse != nil {
		reverseName = sql.NullString{String: applied.Reverse.Name, Valid: true}
		reverseContent = sql.NullString{String: applied.Reverse.Content, Valid: true}
	}
	at := applied.AppliedAt
	if at.IsZero() {
		at = time.Now()
	}

	query := `INSERT INTO ` + quoteTable(schema, p.config.AppliedScriptsTable) +
		` (version, forward_name, forward_content, reverse_name, reverse_content, applied_at) VALUES ($1, $2, $3, $4, $5, $6)`
	return p.exec(ctx, schema, query, applied.Version, applied.Forward.Name, applied.Forward.Content, reverseName, reverseContent, at)
}

func (p *Postgres) RemoveAppliedScript(ctx context.Context, schema string, version int64) error {
	query := `DELETE FROM ` + quoteTable(schema, p.config.AppliedScriptsTable) + ` WHERE version = $1`
	return p.exec(ctx, schema, query, version)
}
