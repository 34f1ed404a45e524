package cli

import (
	"context"
	"errors"

	"github.com/soothsayer-db/soothsayer"
	"github.com/soothsayer-db/soothsayer/database/sqlplus"
)

var errUnknownCommand = errors.New("unknown command")

func newMigrator(c Config, url string) (*soothsayer.Migrator, error) {
	m := soothsayer.New(url)
	m.TermPolicy = c.TermPolicy
	if c.SQLPlus {
		runner, err := sqlplus.New(c.SQLPlusPath, url)
		if err != nil {
			return nil, err
		}
		m.Runner = runner
	}
	return m, nil
}

func upCmd(ctx context.Context, m *soothsayer.Migrator, c Config, log *Log) error {
	return m.Migrate(ctx, c.MigrationInfo(soothsayer.Up))
}

func downCmd(ctx context.Context, m *soothsayer.Migrator, c Config, log *Log) error {
	return m.Migrate(ctx, c.MigrationInfo(soothsayer.Down))
}

func versionCmd(ctx context.Context, m *soothsayer.Migrator, c Config, log *Log) error {
	schema := c.MigrationInfo(soothsayer.Up).TargetSchema
	if schema == "" {
		return soothsayer.ErrNoSchema
	}
	v, err := m.Version(ctx, schema)
	if err != nil {
		return err
	}
	if v == nil {
		log.Printf("Schema '%v' has no version.", schema)
		return nil
	}
	log.Printf("Schema '%v' is at version %d.", schema, *v)
	return nil
}
