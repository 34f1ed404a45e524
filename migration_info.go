package soothsayer

// Direction of a migration run.
type Direction string

const (
	Down Direction = "down"
	Up   Direction = "up"
)

// MigrationInfo describes one requested migration run.
type MigrationInfo struct {
	Direction Direction

	// ScriptFolder holds the init, up, down and term folders.
	ScriptFolder string

	TargetSchema      string
	TargetTablespace  string
	TargetEnvironment []string

	// TargetVersion is nil to migrate fully up, or fully down including the
	// term scripts.
	TargetVersion *int64

	// UseStored rolls back with the scripts recorded in the database instead
	// of the local down scripts.
	UseStored bool

	// Forced bypasses the precondition checks of the strategies.
	Forced bool
}

// Validate reports configuration errors that make a run impossible.
func (i MigrationInfo) Validate() error {
	if i.Direction != Up && i.Direction != Down {
		return ErrInvalidDirection
	}
	if i.TargetSchema == "" {
		return ErrNoSchema
	}
	if i.ScriptFolder == "" {
		return ErrNoScriptFolder
	}
	return nil
}

// Version returns a pointer to v, for MigrationInfo.TargetVersion.
func Version(v int64) *int64 {
	return &v
}
