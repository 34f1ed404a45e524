// Package database provides the Conn interface.
// All database drivers must implement this interface, register themselves
// and pass the tests in package database/testing.
package database

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	iurl "github.com/soothsayer-db/soothsayer/internal/url"
	"github.com/soothsayer-db/soothsayer/script"
)

var driversMu sync.RWMutex
var drivers = make(map[string]Driver)

// DatabaseVersion is the version currently recorded for a schema.
type DatabaseVersion struct {
	Version    int64
	RecordedAt time.Time
}

// AppliedScript is one entry of the applied scripts history. Reverse is nil
// when no down script was known at the time the forward script was applied.
type AppliedScript struct {
	Version   int64
	Forward   script.Script
	Reverse   *script.Script
	AppliedAt time.Time
}

// MetadataProvider answers existence questions about schema objects.
type MetadataProvider interface {
	SchemaExists(ctx context.Context, schema string) (bool, error)
}

// VersionRepository reads and writes the version marker of a schema.
// The versioning table keeps one row per applied version, the current
// version is the highest one.
type VersionRepository interface {
	VersionTableExists(ctx context.Context, schema string) (bool, error)

	// InitialiseVersioningTable must only be called once the table is known
	// to be absent.
	InitialiseVersioningTable(ctx context.Context, schema, tablespace string) error

	// GetCurrentVersion returns nil if no version is recorded.
	GetCurrentVersion(ctx context.Context, schema string) (*DatabaseVersion, error)

	SetCurrentVersion(ctx context.Context, schema string, version int64) error

	RemoveVersion(ctx context.Context, schema string, version int64) error
}

// AppliedScriptsRepository records the scripts that were executed.
type AppliedScriptsRepository interface {
	AppliedScriptsTableExists(ctx context.Context, schema string) (bool, error)

	// InitialiseAppliedScriptsTable must only be called once the table is
	// known to be absent.
	InitialiseAppliedScriptsTable(ctx context.Context, schema, tablespace string) error

	// GetAppliedScripts returns the history ordered by ascending version.
	GetAppliedScripts(ctx context.Context, schema string) ([]AppliedScript, error)

	InsertAppliedScript(ctx context.Context, schema string, applied AppliedScript) error

	RemoveAppliedScript(ctx context.Context, schema string, version int64) error
}

// ScriptRunner executes the content of one script. A returned error means
// the script failed as a whole.
type ScriptRunner interface {
	Execute(ctx context.Context, s *script.Script) error
}

// Conn is an open connection to a single database. Migrator owns it for the
// duration of one run and closes it on every exit path.
type Conn interface {
	MetadataProvider
	VersionRepository
	AppliedScriptsRepository
	ScriptRunner

	Close() error
}

// Driver opens connections for the URL scheme it was registered with.
type Driver interface {
	// Open returns a new connection configured with parameters
	// coming from the URL string.
	Open(ctx context.Context, url string) (Conn, error)
}

// Open returns a new connection using the driver registered for the scheme
// of url.
func Open(ctx context.Context, url string) (Conn, error) {
	scheme, err := iurl.SchemeFromURL(url)
	if err != nil {
		return nil, fmt.Errorf("database driver: %w", err)
	}

	driversMu.RLock()
	d, ok := drivers[scheme]
	driversMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("database driver: unknown driver %v (forgotten import?)", scheme)
	}

	return d.Open(ctx, url)
}

// Register globally registers a driver.
func Register(name string, driver Driver) {
	driversMu.Lock()
	defer driversMu.Unlock()
	if driver == nil {
		panic("Register driver is nil")
	}
	if _, dup := drivers[name]; dup {
		panic("Register called twice for driver " + name)
	}
	drivers[name] = driver
}

// List lists the registered drivers
func List() []string {
	driversMu.RLock()
	defer driversMu.RUnlock()
	names := make([]string, 0, len(drivers))
	for n := range drivers {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// WithRunner returns a Conn that executes scripts with runner instead of the
// connection's own runner. Everything else is delegated to conn.
func WithRunner(conn Conn, runner ScriptRunner) Conn {
	return &runnerConn{Conn: conn, runner: runner}
}

type runnerConn struct {
	Conn
	runner ScriptRunner
}

func (c *runnerConn) Execute(ctx context.Context, s *script.Script) error {
	return c.runner.Execute(ctx, s)
}
