package stub

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soothsayer-db/soothsayer/database"
	dt "github.com/soothsayer-db/soothsayer/database/testing"
	"github.com/soothsayer-db/soothsayer/script"
)

func Test(t *testing.T) {
	s := &Stub{}
	c, err := s.Open(context.Background(), "stub://")
	require.NoError(t, err)

	dt.Test(t, c, dt.Fixture{
		Schema:  "app",
		Create:  &script.Script{Name: "create.sql", Content: "CREATE SCHEMA app;"},
		Invalid: &script.Script{Name: "invalid.sql", Content: "FAIL syntax error"},
	})
}

func TestOpenRegistered(t *testing.T) {
	c, err := database.Open(context.Background(), "stub://anything")
	require.NoError(t, err)
	assert.Equal(t, "stub://anything", c.(*Stub).URL)
}

func TestExecuteDirectives(t *testing.T) {
	ctx := context.Background()
	s := New()

	require.NoError(t, s.Execute(ctx, &script.Script{Name: "1.sql", Content: "create schema app\nselect 1"}))
	require.NoError(t, s.InitialiseVersioningTable(ctx, "app", ""))
	require.NoError(t, s.SetCurrentVersion(ctx, "app", 1))

	require.NoError(t, s.Execute(ctx, &script.Script{Name: "2.sql", Content: "DROP SCHEMA app;"}))

	exists, err := s.SchemaExists(ctx, "app")
	require.NoError(t, err)
	assert.False(t, exists)

	exists, err = s.VersionTableExists(ctx, "app")
	require.NoError(t, err)
	assert.False(t, exists, "dropping a schema drops its tables")

	err = s.Execute(ctx, &script.Script{Name: "3.sql", Content: "FAIL table missing"})
	assert.EqualError(t, err, "table missing")

	assert.Equal(t, []string{"1.sql", "2.sql", "3.sql"}, s.Executed)
	assert.Equal(t, 5, s.Writes)
}

func TestClose(t *testing.T) {
	s := New()
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	assert.Equal(t, 2, s.Closed())
}
