package sqlplus

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soothsayer-db/soothsayer/database"
	"github.com/soothsayer-db/soothsayer/script"
)

func TestConnectString(t *testing.T) {
	cases := []struct {
		url       string
		expected  string
		expectErr bool
	}{
		{url: "oracle://scott:tiger@db:1521/XEPDB1", expected: "scott/tiger@//db:1521/XEPDB1"},
		{url: "oracle://scott@db/XE", expected: "scott@//db/XE"},
		{url: "oracle://db:1521/XE", expectErr: true},
		{url: "postgres://app:secret@db/app", expectErr: true},
	}

	for _, c := range cases {
		t.Run(c.url, func(t *testing.T) {
			connect, err := ConnectString(c.url)
			if c.expectErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, c.expected, connect)
		})
	}
}

// fakeSQLPlus writes a shell script standing in for sqlplus. It copies the
// script it was given to the returned file and its arguments next to it.
// Scripts holding a line FAIL exit with 1, scripts holding a line QUOTA
// exit with 1536, which the OS reports as 0.
func fakeSQLPlus(t *testing.T) (command, received string) {
	if runtime.GOOS == "windows" {
		t.Skip("needs a POSIX shell")
	}
	dir := t.TempDir()
	received = filepath.Join(dir, "received.sql")
	command = filepath.Join(dir, "sqlplus")

	body := `#!/bin/sh
[ "$1" = "-S" ] && [ "$2" = "-L" ] && [ "$3" = "/nolog" ] || exit 64
echo "$@" > "` + received + `.args"
file="${4#@}"
cat "$file" > "` + received + `"
if grep -qx FAIL "$file"; then
  echo "ORA-00942: table or view does not exist"
  exit 1
fi
if grep -qx QUOTA "$file"; then
  echo "ORA-01536: space quota exceeded for tablespace 'USERS'"
  exit 1536
fi
echo "Table created."
`
	require.NoError(t, os.WriteFile(command, []byte(body), 0o755))
	return command, received
}

func TestExecute(t *testing.T) {
	command, received := fakeSQLPlus(t)
	var out bytes.Buffer
	r := &Runner{Command: command, ConnectString: "scott/tiger@//db/XE", Output: &out}

	require.NoError(t, r.Execute(context.Background(), &script.Script{Name: "1_users.sql", Content: "CREATE TABLE USERS (ID NUMBER);"}))

	got, err := os.ReadFile(received)
	require.NoError(t, err)
	assert.Equal(t, header+"CONNECT scott/tiger@//db/XE\n"+header+"CREATE TABLE USERS (ID NUMBER);\nEXIT\n", string(got))

	args, err := os.ReadFile(received + ".args")
	require.NoError(t, err)
	assert.NotContains(t, string(args), "tiger")
	assert.Equal(t, "Table created.\n", out.String())
}

func TestScriptFileIsPrivate(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("needs a POSIX shell")
	}
	dir := t.TempDir()
	mode := filepath.Join(dir, "mode")
	command := filepath.Join(dir, "sqlplus")
	body := "#!/bin/sh\nls -l \"${4#@}\" | cut -c1-10 > \"" + mode + "\"\n"
	require.NoError(t, os.WriteFile(command, []byte(body), 0o755))

	r := &Runner{Command: command, ConnectString: "scott/tiger@//db/XE"}
	require.NoError(t, r.Execute(context.Background(), &script.Script{Name: "1.sql"}))

	got, err := os.ReadFile(mode)
	require.NoError(t, err)
	assert.Equal(t, "-rw-------\n", string(got))
}

func TestExecuteFailure(t *testing.T) {
	command, _ := fakeSQLPlus(t)
	r := &Runner{Command: command, ConnectString: "scott/tiger@//db/XE"}

	err := r.Execute(context.Background(), &script.Script{Name: "2_fail.sql", Content: "FAIL"})
	var dbErr *database.Error
	require.True(t, errors.As(err, &dbErr))
	assert.Equal(t, "script 2_fail.sql failed with exit status 1", dbErr.Err)
	assert.Equal(t, "ORA-00942: table or view does not exist", string(dbErr.Query))
}

func TestExecuteErrorWithZeroExitStatus(t *testing.T) {
	command, _ := fakeSQLPlus(t)
	r := &Runner{Command: command, ConnectString: "scott/tiger@//db/XE"}

	err := r.Execute(context.Background(), &script.Script{Name: "3_quota.sql", Content: "QUOTA"})
	var dbErr *database.Error
	require.True(t, errors.As(err, &dbErr))
	assert.Equal(t, "script 3_quota.sql failed", dbErr.Err)
	assert.EqualError(t, dbErr.OrigErr, "ORA-01536: space quota exceeded for tablespace 'USERS'")
}

func TestErrorLine(t *testing.T) {
	cases := []struct {
		out      string
		expected string
	}{
		{out: "Table created.\n", expected: ""},
		{out: "\nPL/SQL procedure successfully completed.\n", expected: ""},
		{out: "Table created.\n  ORA-00955: name is already used by an existing object\n", expected: "ORA-00955: name is already used by an existing object"},
		{out: "SP2-0734: unknown command beginning \"CREAT TABL...\"\n", expected: "SP2-0734: unknown command beginning \"CREAT TABL...\""},
	}

	for _, c := range cases {
		t.Run(c.expected, func(t *testing.T) {
			assert.Equal(t, c.expected, errorLine([]byte(c.out)))
		})
	}
}

func TestExecuteMissingCommand(t *testing.T) {
	r := &Runner{Command: filepath.Join(t.TempDir(), "missing"), ConnectString: "scott@//db/XE"}

	err := r.Execute(context.Background(), &script.Script{Name: "1.sql"})
	assert.ErrorContains(t, err, "could not start")
}
