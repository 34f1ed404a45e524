package soothsayer

import (
	"context"

	"github.com/hashicorp/go-multierror"

	"github.com/soothsayer-db/soothsayer/database"
)

// migrateUp applies the up steps above currentVersion, up to and including
// targetVersion, recording version and history after each one.
func (s *Strategy) migrateUp(ctx context.Context, steps []Step, currentVersion, targetVersion *int64, runner database.ScriptRunner, schema string) error {
	selected := upWindow(steps, currentVersion, targetVersion)
	if len(selected) == 0 {
		s.info("No 'up' scripts to apply, schema '%v' is up to date.", schema)
		return nil
	}

	ready, err := s.bookkeepingReady(ctx, schema)
	if err != nil {
		return err
	}
	if !ready {
		if !s.Forced {
			s.warn(0, "Versioning tables are missing for schema '%v', skipping 'up' scripts.", schema)
			return nil
		}
		s.warn(0, "Versioning tables are missing for schema '%v', running 'up' scripts because migration is forced.", schema)
	}

	for _, step := range selected {
		fwd := step.Forward()
		if err := s.execute(ctx, runner, fwd); err != nil {
			return s.stepError(ctx, schema, step, fwd, err)
		}

		if err := s.versions.SetCurrentVersion(ctx, schema, step.Version()); err != nil {
			return s.stepError(ctx, schema, step, fwd, err)
		}

		applied := database.AppliedScript{Version: step.Version(), Forward: *fwd}
		if rev := step.Reverse(); rev != nil {
			r := *rev
			applied.Reverse = &r
		}
		if err := s.applied.InsertAppliedScript(ctx, schema, applied); err != nil {
			// a version without history could not be rolled back
			if rerr := s.versions.RemoveVersion(ctx, schema, step.Version()); rerr != nil {
				err = multierror.Append(err, rerr)
			}
			return s.stepError(ctx, schema, step, fwd, err)
		}
	}
	return nil
}

func (s *Strategy) bookkeepingReady(ctx context.Context, schema string) (bool, error) {
	versionTable, err := s.versions.VersionTableExists(ctx, schema)
	if err != nil {
		return false, err
	}
	appliedTable, err := s.applied.AppliedScriptsTableExists(ctx, schema)
	if err != nil {
		return false, err
	}
	return versionTable && appliedTable, nil
}
