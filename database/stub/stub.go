// Package stub is an in-memory database.Conn that records every call. A
// script's content is a list of directives, one per line:
//
//	CREATE SCHEMA <name>
//	DROP SCHEMA <name>
//	FAIL <message>
//
// Any other line is ignored.
package stub

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/atomic"

	"github.com/soothsayer-db/soothsayer/database"
	"github.com/soothsayer-db/soothsayer/script"
)

func init() {
	database.Register("stub", &Stub{})
}

// Stub implements database.Driver and database.Conn.
type Stub struct {
	URL string

	// Executed holds the names of the scripts run, in order.
	Executed []string

	// Writes counts every call that changed state.
	Writes int

	// Now is used for recorded times, defaults to time.Now.
	Now func() time.Time

	mu            sync.Mutex
	schemas       map[string]bool
	versionTables map[string]bool
	appliedTables map[string]bool
	versions      map[string]map[int64]database.DatabaseVersion
	applied       map[string]map[int64]database.AppliedScript
	closed        atomic.Int32
}

// New returns an empty Stub.
func New() *Stub {
	return &Stub{
		schemas:       make(map[string]bool),
		versionTables: make(map[string]bool),
		appliedTables: make(map[string]bool),
		versions:      make(map[string]map[int64]database.DatabaseVersion),
		applied:       make(map[string]map[int64]database.AppliedScript),
	}
}

// Open implements database.Driver. Every call returns a new, empty Stub.
func (s *Stub) Open(ctx context.Context, url string) (database.Conn, error) {
	st := New()
	st.URL = url
	return st, nil
}

// Close counts the calls made to it. The Stub stays usable so the same
// state can be handed to several runs.
func (s *Stub) Close() error {
	s.closed.Inc()
	return nil
}

// Closed reports how often Close was called.
func (s *Stub) Closed() int {
	return int(s.closed.Load())
}

// CreateSchema makes schema exist without executing a script.
func (s *Stub) CreateSchema(schema string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.schemas[schema] = true
}

func (s *Stub) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Stub) SchemaExists(ctx context.Context, schema string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.schemas[schema], nil
}

func (s *Stub) Execute(ctx context.Context, sc *script.Script) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Executed = append(s.Executed, sc.Name)
	s.Writes++

	for _, line := range strings.Split(sc.Content, "\n") {
		fields := strings.Fields(strings.TrimSuffix(strings.TrimSpace(line), ";"))
		if len(fields) < 2 {
			continue
		}
		switch {
		case strings.EqualFold(fields[0], "FAIL"):
			return errors.New(strings.Join(fields[1:], " "))
		case len(fields) == 3 && strings.EqualFold(fields[1], "SCHEMA") && strings.EqualFold(fields[0], "CREATE"):
			s.schemas[fields[2]] = true
		case len(fields) == 3 && strings.EqualFold(fields[1], "SCHEMA") && strings.EqualFold(fields[0], "DROP"):
			s.drop(fields[2])
		}
	}
	return nil
}

func (s *Stub) drop(schema string) {
	delete(s.schemas, schema)
	delete(s.versionTables, schema)
	delete(s.appliedTables, schema)
	delete(s.versions, schema)
	delete(s.applied, schema)
}

func (s *Stub) VersionTableExists(ctx context.Context, schema string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.versionTables[schema], nil
}

func (s *Stub) InitialiseVersioningTable(ctx context.Context, schema, tablespace string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.versionTables[schema] {
		return fmt.Errorf("versioning table of schema %v already exists", schema)
	}
	s.versionTables[schema] = true
	s.versions[schema] = make(map[int64]database.DatabaseVersion)
	s.Writes++
	return nil
}

func (s *Stub) GetCurrentVersion(ctx context.Context, schema string) (*database.DatabaseVersion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.versionTables[schema] {
		return nil, fmt.Errorf("schema %v has no versioning table", schema)
	}

	var current *database.DatabaseVersion
	for _, v := range s.versions[schema] {
		if current == nil || v.Version > current.Version {
			v := v
			current = &v
		}
	}
	return current, nil
}

func (s *Stub) SetCurrentVersion(ctx context.Context, schema string, version int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.versionTables[schema] {
		return fmt.Errorf("schema %v has no versioning table", schema)
	}
	s.versions[schema][version] = database.DatabaseVersion{Version: version, RecordedAt: s.now()}
	s.Writes++
	return nil
}

func (s *Stub) RemoveVersion(ctx context.Context, schema string, version int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.versionTables[schema] {
		return fmt.Errorf("schema %v has no versioning table", schema)
	}
	delete(s.versions[schema], version)
	s.Writes++
	return nil
}

func (s *Stub) AppliedScriptsTableExists(ctx context.Context, schema string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appliedTables[schema], nil
}

func (s *Stub) InitialiseAppliedScriptsTable(ctx context.Context, schema, tablespace string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.appliedTables[schema] {
		return fmt.Errorf("applied scripts table of schema %v already exists", schema)
	}
	s.appliedTables[schema] = true
	s.applied[schema] = make(map[int64]database.AppliedScript)
	s.Writes++
	return nil
}

func (s *Stub) GetAppliedScripts(ctx context.Context, schema string) ([]database.AppliedScript, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.appliedTables[schema] {
		return nil, fmt.Errorf("schema %v has no applied scripts table", schema)
	}

	applied := make([]database.AppliedScript, 0, len(s.applied[schema]))
	for _, a := range s.applied[schema] {
		applied = append(applied, a)
	}
	sort.Slice(applied, func(i, j int) bool { return applied[i].Version < applied[j].Version })
	return applied, nil
}

func (s *Stub) InsertAppliedScript(ctx context.Context, schema string, applied database.AppliedScript) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.appliedTables[schema] {
		return fmt.Errorf("schema %v has no applied scripts table", schema)
	}
	if applied.AppliedAt.IsZero() {
		applied.AppliedAt = s.now()
	}
	s.applied[schema][applied.Version] = applied
	s.Writes++
	return nil
}

func (s *Stub) RemoveAppliedScript(ctx context.Context, schema string, version int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.appliedTables[schema] {
		return fmt.Errorf("schema %v has no applied scripts table", schema)
	}
	delete(s.applied[schema], version)
	s.Writes++
	return nil
}
