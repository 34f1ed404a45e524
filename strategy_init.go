package soothsayer

import (
	"context"

	"github.com/soothsayer-db/soothsayer/database"
)

// migrateInit runs every init step in ascending order. Init scripts carry no
// version marker and are not recorded in the applied scripts history.
func (s *Strategy) migrateInit(ctx context.Context, steps []Step, runner database.ScriptRunner, schema string) error {
	if len(steps) == 0 {
		return nil
	}

	exists, err := s.metadata.SchemaExists(ctx, schema)
	if err != nil {
		return err
	}
	if exists {
		if !s.Forced {
			s.warn(0, "Schema '%v' already exists, skipping 'init' scripts. Use force to run them anyway.", schema)
			return nil
		}
		s.warn(0, "Schema '%v' already exists, running 'init' scripts because migration is forced.", schema)
	}

	for _, step := range ascending(steps) {
		fwd := step.Forward()
		if err := s.execute(ctx, runner, fwd); err != nil {
			return s.stepError(ctx, schema, step, fwd, err)
		}
	}
	return nil
}
