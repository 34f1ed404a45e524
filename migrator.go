package soothsayer

import (
	"context"
	"path/filepath"

	"github.com/hashicorp/go-multierror"

	"github.com/soothsayer-db/soothsayer/database"
	"github.com/soothsayer-db/soothsayer/script"
)

// Connector opens the connection used for one migration run.
type Connector func(ctx context.Context) (database.Conn, error)

// Migrator brings a schema to a target version with the scripts of a
// script folder. It opens a new connection for every run and closes it
// before returning.
type Migrator struct {
	// Log receives progress events. It may be nil.
	Log Logger

	// Scanner reads the script folders, defaults to script.NewFolderScanner.
	Scanner script.Scanner

	// TermPolicy decides when a schema may be terminated.
	TermPolicy TermPolicy

	// Runner, if set, executes scripts instead of the connection.
	Runner database.ScriptRunner

	connect Connector
}

// New returns a Migrator connecting to databaseURL with the driver
// registered for its scheme.
func New(databaseURL string) *Migrator {
	return NewWithConnector(func(ctx context.Context) (database.Conn, error) {
		return database.Open(ctx, databaseURL)
	})
}

// NewWithConnector returns a Migrator using connect to open connections.
func NewWithConnector(connect Connector) *Migrator {
	return &Migrator{
		Scanner: script.NewFolderScanner(),
		connect: connect,
	}
}

type categories map[script.Category][]*script.Script

// Migrate runs the migration described by info.
func (m *Migrator) Migrate(ctx context.Context, info MigrationInfo) (err error) {
	if err := info.Validate(); err != nil {
		return err
	}

	conn, err := m.open(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := conn.Close(); cerr != nil {
			err = multierror.Append(err, cerr)
		}
	}()

	log := emitter{m.Log}
	schema := info.TargetSchema

	log.text("Checking for the current database version.")
	current, err := m.currentVersion(ctx, conn, schema)
	if err != nil {
		return err
	}
	log.info("The current database version is: %v", formatVersion(current))

	log.info("Scanning input folder '%v' for scripts...", info.ScriptFolder)
	scripts, err := m.scan(info, log)
	if err != nil {
		return err
	}

	if info.TargetVersion != nil {
		log.info("Target database version was provided, will target migrating the database to version %v", *info.TargetVersion)
	}

	verifyReverseScripts(scripts, log)

	var stored []Step
	if info.UseStored {
		log.info("Using stored applied scripts, fetching the scripts recorded in the target database...")
		stored, err = m.storedSteps(ctx, conn, schema)
		if err != nil {
			return err
		}
		log.text("%v stored applied scripts found.", len(stored))
	}

	upDown := PairSteps(scripts[script.Up], scripts[script.Down])
	initTerm := PairSteps(scripts[script.Init], scripts[script.Term])

	if info.Direction == Down {
		err = m.down(ctx, conn, info, current, upDown, initTerm, stored)
	} else {
		err = m.up(ctx, conn, info, current, upDown, initTerm)
	}
	if err != nil {
		return err
	}

	return m.report(ctx, conn, schema)
}

// Version returns the version recorded for schema, nil if the schema or its
// versioning table does not exist or no version is recorded.
func (m *Migrator) Version(ctx context.Context, schema string) (v *int64, err error) {
	conn, err := m.open(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := conn.Close(); cerr != nil {
			err = multierror.Append(err, cerr)
		}
	}()

	return m.currentVersion(ctx, conn, schema)
}

func (m *Migrator) open(ctx context.Context) (database.Conn, error) {
	conn, err := m.connect(ctx)
	if err != nil {
		return nil, err
	}
	if m.Runner != nil {
		conn = database.WithRunner(conn, m.Runner)
	}
	return conn, nil
}

func (m *Migrator) currentVersion(ctx context.Context, conn database.Conn, schema string) (*int64, error) {
	exists, err := conn.SchemaExists(ctx, schema)
	if err != nil || !exists {
		return nil, err
	}
	exists, err = conn.VersionTableExists(ctx, schema)
	if err != nil || !exists {
		return nil, err
	}
	v, err := conn.GetCurrentVersion(ctx, schema)
	if err != nil || v == nil {
		return nil, err
	}
	return &v.Version, nil
}

// scan reads all four script folders. Configuration errors of every folder
// are returned together.
func (m *Migrator) scan(info MigrationInfo, log emitter) (categories, error) {
	scanner := m.Scanner
	if scanner == nil {
		scanner = script.NewFolderScanner()
	}

	var result error
	scripts := make(categories, len(script.Categories))
	for _, category := range script.Categories {
		scs, skipped, err := scanner.Scan(filepath.Join(info.ScriptFolder, string(category)), category, info.TargetEnvironment)
		if err != nil {
			result = multierror.Append(result, err)
			continue
		}
		scripts[category] = scs

		log.text("Found %v '%v' scripts.", len(scs), category)
		for _, sc := range scs {
			log.verbose(1, "%v", sc.Name)
		}
		for _, name := range skipped {
			log.warn(1, "Skipping '%v', it is not a '%v' script.", name, category)
		}
	}
	return scripts, result
}

func verifyReverseScripts(scripts categories, log emitter) {
	missing := withoutReverse(scripts[script.Up], scripts[script.Down])
	if len(missing) == 0 {
		return
	}
	log.warn(0, "The following 'up' scripts do not have a corresponding 'down' script, any rollback may not work as expected:")
	for _, sc := range missing {
		log.warn(1, "%v", sc.Name)
	}
}

func (m *Migrator) storedSteps(ctx context.Context, conn database.Conn, schema string) ([]Step, error) {
	exists, err := conn.AppliedScriptsTableExists(ctx, schema)
	if err != nil || !exists {
		return nil, err
	}
	applied, err := conn.GetAppliedScripts(ctx, schema)
	if err != nil {
		return nil, err
	}
	return StoredSteps(applied), nil
}

func (m *Migrator) down(ctx context.Context, conn database.Conn, info MigrationInfo, current *int64, upDown, initTerm, stored []Step) error {
	steps := upDown
	if len(stored) > 0 {
		emitter{m.Log}.warn(0, "NOTE: Using stored applied scripts to perform downgrade instead of local 'down' scripts.")
		steps = stored
	}

	down := NewDownMigration(conn, conn, info.Forced, m.Log)
	if err := down.Migrate(ctx, steps, current, info.TargetVersion, conn, info.TargetSchema, info.TargetTablespace); err != nil {
		return err
	}

	if info.TargetVersion != nil {
		emitter{m.Log}.info("A target version was provided, termination scripts will not be executed.")
		return nil
	}

	term := NewTermMigration(conn, conn, info.Forced, m.TermPolicy, m.Log)
	return term.Migrate(ctx, initTerm, current, info.TargetVersion, conn, info.TargetSchema, info.TargetTablespace)
}

func (m *Migrator) up(ctx context.Context, conn database.Conn, info MigrationInfo, current *int64, upDown, initTerm []Step) error {
	initm := NewInitMigration(conn, info.Forced, m.Log)
	if err := initm.Migrate(ctx, initTerm, current, info.TargetVersion, conn, info.TargetSchema, info.TargetTablespace); err != nil {
		return err
	}

	if err := ensureTables(ctx, conn, info.TargetSchema, info.TargetTablespace); err != nil {
		return err
	}

	up := NewUpMigration(conn, conn, info.Forced, m.Log)
	return up.Migrate(ctx, upDown, current, info.TargetVersion, conn, info.TargetSchema, info.TargetTablespace)
}

// ensureTables creates the versioning and applied scripts tables that do not
// exist yet.
func ensureTables(ctx context.Context, conn database.Conn, schema, tablespace string) error {
	exists, err := conn.VersionTableExists(ctx, schema)
	if err != nil {
		return err
	}
	if !exists {
		if err := conn.InitialiseVersioningTable(ctx, schema, tablespace); err != nil {
			return err
		}
	}

	exists, err = conn.AppliedScriptsTableExists(ctx, schema)
	if err != nil {
		return err
	}
	if !exists {
		return conn.InitialiseAppliedScriptsTable(ctx, schema, tablespace)
	}
	return nil
}

func (m *Migrator) report(ctx context.Context, conn database.Conn, schema string) error {
	log := emitter{m.Log}

	exists, err := conn.SchemaExists(ctx, schema)
	if err != nil {
		return err
	}
	if !exists {
		log.info("Target schema '%v' no longer exists.", schema)
		return nil
	}

	v, err := m.currentVersion(ctx, conn, schema)
	if err != nil {
		return err
	}
	log.info("Database version is now: %v", formatVersion(v))
	return nil
}
