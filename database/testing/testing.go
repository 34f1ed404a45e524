// Package testing has the database tests.
// All database drivers must pass the Test function.
// This lives in it's own package so it stays a test dependency.
package testing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soothsayer-db/soothsayer/database"
	"github.com/soothsayer-db/soothsayer/script"
)

// Fixture tells the suite how to drive a particular database.
type Fixture struct {
	// Schema must not exist when Test starts.
	Schema string

	// Create is a script that creates Schema.
	Create *script.Script

	// Invalid is a script the database must reject.
	Invalid *script.Script
}

// Test runs tests against database implementations.
func Test(t *testing.T, c database.Conn, f Fixture) {
	require.NotNil(t, f.Create, "test must provide a create script")
	require.NotNil(t, f.Invalid, "test must provide an invalid script")

	TestExecute(t, c, f) // test first, creates the schema
	TestVersioning(t, c, f.Schema)
	TestAppliedScripts(t, c, f.Schema)
}

func TestExecute(t *testing.T, c database.Conn, f Fixture) {
	ctx := context.Background()

	exists, err := c.SchemaExists(ctx, f.Schema)
	require.NoError(t, err)
	require.False(t, exists, "schema %v must not exist yet", f.Schema)

	require.NoError(t, c.Execute(ctx, f.Create))

	exists, err = c.SchemaExists(ctx, f.Schema)
	require.NoError(t, err)
	assert.True(t, exists)

	assert.Error(t, c.Execute(ctx, f.Invalid))
}

func TestVersioning(t *testing.T, c database.Conn, schema string) {
	ctx := context.Background()

	exists, err := c.VersionTableExists(ctx, schema)
	require.NoError(t, err)
	require.False(t, exists)

	require.NoError(t, c.InitialiseVersioningTable(ctx, schema, ""))

	exists, err = c.VersionTableExists(ctx, schema)
	require.NoError(t, err)
	require.True(t, exists)

	v, err := c.GetCurrentVersion(ctx, schema)
	require.NoError(t, err)
	assert.Nil(t, v, "a new versioning table has no version")

	steps := []struct {
		name     string
		apply    func() error
		expected *int64
	}{
		{name: "set 1", apply: func() error { return c.SetCurrentVersion(ctx, schema, 1) }, expected: ptr(1)},
		{name: "set 2", apply: func() error { return c.SetCurrentVersion(ctx, schema, 2) }, expected: ptr(2)},
		{name: "set 10", apply: func() error { return c.SetCurrentVersion(ctx, schema, 10) }, expected: ptr(10)},
		{name: "remove 10", apply: func() error { return c.RemoveVersion(ctx, schema, 10) }, expected: ptr(2)},
		{name: "remove 2", apply: func() error { return c.RemoveVersion(ctx, schema, 2) }, expected: ptr(1)},
		{name: "remove 1", apply: func() error { return c.RemoveVersion(ctx, schema, 1) }, expected: nil},
	}

	for _, step := range steps {
		t.Run(step.name, func(t *testing.T) {
			require.NoError(t, step.apply())

			v, err := c.GetCurrentVersion(ctx, schema)
			require.NoError(t, err)
			if step.expected == nil {
				assert.Nil(t, v)
				return
			}
			require.NotNil(t, v)
			assert.Equal(t, *step.expected, v.Version)
		})
	}
}

func TestAppliedScripts(t *testing.T, c database.Conn, schema string) {
	ctx := context.Background()

	exists, err := c.AppliedScriptsTableExists(ctx, schema)
	require.NoError(t, err)
	require.False(t, exists)

	require.NoError(t, c.InitialiseAppliedScriptsTable(ctx, schema, ""))

	exists, err = c.AppliedScriptsTableExists(ctx, schema)
	require.NoError(t, err)
	require.True(t, exists)

	applied, err := c.GetAppliedScripts(ctx, schema)
	require.NoError(t, err)
	assert.Empty(t, applied)

	second := database.AppliedScript{
		Version: 2,
		Forward: script.Script{Version: 2, Name: "2_add_index.sql", Category: script.Up, Content: "create index"},
		Reverse: &script.Script{Version: 2, Name: "2_add_index.sql", Category: script.Down, Content: "drop index"},
	}
	first := database.AppliedScript{
		Version: 1,
		Forward: script.Script{Version: 1, Name: "1_create.sql", Category: script.Up, Content: "create table"},
	}
	require.NoError(t, c.InsertAppliedScript(ctx, schema, second))
	require.NoError(t, c.InsertAppliedScript(ctx, schema, first))

	applied, err = c.GetAppliedScripts(ctx, schema)
	require.NoError(t, err)
	require.Len(t, applied, 2)

	assert.Equal(t, int64(1), applied[0].Version)
	assert.Equal(t, "1_create.sql", applied[0].Forward.Name)
	assert.Equal(t, "create table", applied[0].Forward.Content)
	assert.Nil(t, applied[0].Reverse)
	assert.False(t, applied[0].AppliedAt.IsZero())

	assert.Equal(t, int64(2), applied[1].Version)
	require.NotNil(t, applied[1].Reverse)
	assert.Equal(t, "2_add_index.sql", applied[1].Reverse.Name)
	assert.Equal(t, "drop index", applied[1].Reverse.Content)
	assert.Equal(t, script.Down, applied[1].Reverse.Category)

	require.NoError(t, c.RemoveAppliedScript(ctx, schema, 2))

	applied, err = c.GetAppliedScripts(ctx, schema)
	require.NoError(t, err)
	require.Len(t, applied, 1)
	assert.Equal(t, int64(1), applied[0].Version)
}

func ptr(v int64) *int64 {
	return &v
}
