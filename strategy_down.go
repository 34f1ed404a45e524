package soothsayer

import (
	"context"

	"github.com/soothsayer-db/soothsayer/database"
)

// migrateDown rolls back the steps at or below currentVersion and above
// targetVersion, most recent first. After each step its version marker and
// history record are removed.
func (s *Strategy) migrateDown(ctx context.Context, steps []Step, currentVersion, targetVersion *int64, runner database.ScriptRunner, schema string) error {
	versionTable, err := s.versions.VersionTableExists(ctx, schema)
	if err != nil {
		return err
	}
	if !versionTable {
		s.warn(0, "Schema '%v' has no versioning table, there is nothing to roll back.", schema)
		return nil
	}

	selected := downWindow(steps, currentVersion, targetVersion)
	if len(selected) == 0 {
		s.info("No 'down' scripts to apply for schema '%v'.", schema)
		return nil
	}

	appliedTable, err := s.applied.AppliedScriptsTableExists(ctx, schema)
	if err != nil {
		return err
	}

	for _, step := range selected {
		rev := step.Reverse()
		if rev == nil {
			if s.Forced {
				return s.stepError(ctx, schema, step, nil, ErrNoReverseScript{Version: step.Version()})
			}
			s.warn(0, "Version %v has no 'down' script and can not be rolled back, removing its version only.", step.Version())
		} else if err := s.execute(ctx, runner, rev); err != nil {
			return s.stepError(ctx, schema, step, rev, err)
		}

		if err := s.versions.RemoveVersion(ctx, schema, step.Version()); err != nil {
			return s.stepError(ctx, schema, step, rev, err)
		}
		if appliedTable {
			if err := s.applied.RemoveAppliedScript(ctx, schema, step.Version()); err != nil {
				return s.stepError(ctx, schema, step, rev, err)
			}
		}
	}
	return nil
}
