package soothsayer

import (
	"context"

	"github.com/soothsayer-db/soothsayer/database"
)

// migrateTerm runs the term steps in descending order once the schema is
// drained. Like init, term carries no version marker or history.
func (s *Strategy) migrateTerm(ctx context.Context, steps []Step, runner database.ScriptRunner, schema string) error {
	if len(steps) == 0 {
		return nil
	}

	exists, err := s.metadata.SchemaExists(ctx, schema)
	if err != nil {
		return err
	}
	if !exists {
		s.info("Schema '%v' does not exist, there is nothing to terminate.", schema)
		return nil
	}

	drained, err := s.drained(ctx, schema)
	if err != nil {
		return err
	}
	if !drained {
		if !s.Forced {
			s.warn(0, "Schema '%v' still has applied versions, skipping 'term' scripts. Use force to run them anyway.", schema)
			return nil
		}
		s.warn(0, "Schema '%v' still has applied versions, running 'term' scripts because migration is forced.", schema)
	}

	for _, step := range descending(steps) {
		rev := step.Reverse()
		if rev == nil {
			s.warn(0, "Version %v has no 'term' script, skipping it.", step.Version())
			continue
		}
		if err := s.execute(ctx, runner, rev); err != nil {
			return s.stepError(ctx, schema, step, rev, err)
		}
	}
	return nil
}

func (s *Strategy) drained(ctx context.Context, schema string) (bool, error) {
	versionTable, err := s.versions.VersionTableExists(ctx, schema)
	if err != nil {
		return false, err
	}
	if !versionTable {
		return true, nil
	}
	if s.TermPolicy == TermRequiresNoVersionTable {
		return false, nil
	}
	v, err := s.versions.GetCurrentVersion(ctx, schema)
	if err != nil {
		return false, err
	}
	return v == nil, nil
}
