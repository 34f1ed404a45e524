package soothsayer

import (
	"context"
	"fmt"

	"github.com/soothsayer-db/soothsayer/database"
	"github.com/soothsayer-db/soothsayer/script"
)

// Kind identifies one of the four migration strategies.
type Kind int

const (
	KindInit Kind = iota
	KindUp
	KindDown
	KindTerm
)

func (k Kind) String() string {
	switch k {
	case KindInit:
		return "init"
	case KindUp:
		return "up"
	case KindDown:
		return "down"
	case KindTerm:
		return "term"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// TermPolicy decides when a schema counts as drained, which the term
// strategy requires unless forced.
type TermPolicy int

const (
	// TermRequiresNoVersion treats a schema without a recorded version as
	// drained, whether or not the versioning table still exists.
	TermRequiresNoVersion TermPolicy = iota

	// TermRequiresNoVersionTable only treats a schema as drained once its
	// versioning table no longer exists.
	TermRequiresNoVersionTable
)

func (p TermPolicy) String() string {
	switch p {
	case TermRequiresNoVersion:
		return "no-version"
	case TermRequiresNoVersionTable:
		return "no-version-table"
	}
	return fmt.Sprintf("policy(%d)", int(p))
}

// ParseTermPolicy parses the String form of a TermPolicy.
func ParseTermPolicy(s string) (TermPolicy, error) {
	switch s {
	case "", "no-version":
		return TermRequiresNoVersion, nil
	case "no-version-table":
		return TermRequiresNoVersionTable, nil
	}
	return 0, fmt.Errorf("unknown term policy %q", s)
}

// Strategy is one of the four migration strategies. Use NewInitMigration,
// NewUpMigration, NewDownMigration or NewTermMigration.
type Strategy struct {
	Kind   Kind
	Forced bool

	// TermPolicy is only used by KindTerm.
	TermPolicy TermPolicy

	metadata database.MetadataProvider
	versions database.VersionRepository
	applied  database.AppliedScriptsRepository

	emitter
}

// NewInitMigration runs init scripts on a schema that does not exist yet.
func NewInitMigration(metadata database.MetadataProvider, forced bool, log Logger) *Strategy {
	return &Strategy{Kind: KindInit, Forced: forced, metadata: metadata, emitter: emitter{log}}
}

// NewUpMigration applies up scripts above the current version.
func NewUpMigration(versions database.VersionRepository, applied database.AppliedScriptsRepository, forced bool, log Logger) *Strategy {
	return &Strategy{Kind: KindUp, Forced: forced, versions: versions, applied: applied, emitter: emitter{log}}
}

// NewDownMigration rolls back applied versions, most recent first.
func NewDownMigration(versions database.VersionRepository, applied database.AppliedScriptsRepository, forced bool, log Logger) *Strategy {
	return &Strategy{Kind: KindDown, Forced: forced, versions: versions, applied: applied, emitter: emitter{log}}
}

// NewTermMigration runs term scripts once a schema has been drained.
func NewTermMigration(metadata database.MetadataProvider, versions database.VersionRepository, forced bool, policy TermPolicy, log Logger) *Strategy {
	return &Strategy{Kind: KindTerm, Forced: forced, TermPolicy: policy, metadata: metadata, versions: versions, emitter: emitter{log}}
}

// Migrate selects the eligible steps and executes them in order with
// runner. It stops at the first failing step and returns a *StepError.
// A failed precondition without Forced is a warning and returns nil.
func (s *Strategy) Migrate(ctx context.Context, steps []Step, currentVersion, targetVersion *int64, runner database.ScriptRunner, schema, tablespace string) error {
	switch s.Kind {
	case KindInit:
		return s.migrateInit(ctx, steps, runner, schema)
	case KindUp:
		return s.migrateUp(ctx, steps, currentVersion, targetVersion, runner, schema)
	case KindDown:
		return s.migrateDown(ctx, steps, currentVersion, targetVersion, runner, schema)
	case KindTerm:
		return s.migrateTerm(ctx, steps, runner, schema)
	}
	return fmt.Errorf("unknown migration strategy %v", s.Kind)
}

// execute runs sc. Once handed to the runner a script is not cancelled.
func (s *Strategy) execute(ctx context.Context, runner database.ScriptRunner, sc *script.Script) error {
	s.text("Executing %v '%v'", sc.Category, sc.Name)
	return runner.Execute(context.WithoutCancel(ctx), sc)
}

func (s *Strategy) stepError(ctx context.Context, schema string, step Step, sc *script.Script, err error) error {
	e := &StepError{Kind: s.Kind, Version: step.Version(), Err: err}
	if sc != nil {
		e.Script = sc.Name
	}
	if s.versions != nil {
		if v, verr := s.versions.GetCurrentVersion(ctx, schema); verr == nil && v != nil {
			e.LastVersion = &v.Version
		}
	}
	return e
}
