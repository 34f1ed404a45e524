package oracle

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/sijms/go-ora/v2/network"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/soothsayer-db/soothsayer/database"
	"github.com/soothsayer-db/soothsayer/script"
)

type OracleTestSuite struct {
	suite.Suite
	conn database.Conn
	mock sqlmock.Sqlmock
	ctx  context.Context
}

func (s *OracleTestSuite) SetupTest() {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	s.Require().NoError(err)

	s.conn, err = WithInstance(context.Background(), db, &Config{})
	s.Require().NoError(err)
	s.mock = mock
	s.ctx = context.Background()
}

func (s *OracleTestSuite) TearDownTest() {
	s.mock.ExpectClose()
	s.NoError(s.conn.Close())
	s.NoError(s.mock.ExpectationsWereMet())
}

func TestOracleTestSuite(t *testing.T) {
	suite.Run(t, new(OracleTestSuite))
}

func (s *OracleTestSuite) TestSchemaExistsUppercases() {
	s.mock.ExpectQuery(`SELECT COUNT(1) FROM ALL_USERS WHERE USERNAME = :1`).
		WithArgs("APP").
		WillReturnRows(sqlmock.NewRows([]string{"COUNT(1)"}).AddRow(1))

	exists, err := s.conn.SchemaExists(s.ctx, "app")
	s.Require().NoError(err)
	s.True(exists)
}

func (s *OracleTestSuite) TestInvalidSchema() {
	_, err := s.conn.SchemaExists(s.ctx, `app" OR 1=1 --`)
	s.ErrorIs(err, ErrInvalidSchema)
}

func (s *OracleTestSuite) TestVersionTableExists() {
	s.mock.ExpectQuery(`SELECT COUNT(1) FROM ALL_TABLES WHERE OWNER = :1 AND TABLE_NAME = :2`).
		WithArgs("APP", "SCHEMA_VERSION").
		WillReturnRows(sqlmock.NewRows([]string{"COUNT(1)"}).AddRow(0))

	exists, err := s.conn.VersionTableExists(s.ctx, "app")
	s.Require().NoError(err)
	s.False(exists)
}

func (s *OracleTestSuite) TestInitialiseTablesInTablespace() {
	s.mock.ExpectExec(`CREATE TABLE APP.SCHEMA_VERSION ( VERSION NUMBER(19) NOT NULL PRIMARY KEY, RECORDED_AT TIMESTAMP DEFAULT SYSTIMESTAMP NOT NULL ) TABLESPACE USERS`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	s.mock.ExpectExec(`CREATE TABLE APP.APPLIED_SCRIPTS ( VERSION NUMBER(19) NOT NULL PRIMARY KEY, FORWARD_NAME VARCHAR2(512) NOT NULL, FORWARD_CONTENT CLOB NOT NULL, REVERSE_NAME VARCHAR2(512), REVERSE_CONTENT CLOB, APPLIED_AT TIMESTAMP NOT NULL )`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	s.NoError(s.conn.InitialiseVersioningTable(s.ctx, "app", "users"))
	s.NoError(s.conn.InitialiseAppliedScriptsTable(s.ctx, "app", ""))
}

func (s *OracleTestSuite) TestGetCurrentVersion() {
	query := `SELECT VERSION, RECORDED_AT FROM (SELECT VERSION, RECORDED_AT FROM APP.SCHEMA_VERSION ORDER BY VERSION DESC) WHERE ROWNUM = 1`
	recorded := time.Date(2023, 11, 5, 8, 30, 0, 0, time.UTC)

	s.mock.ExpectQuery(query).WillReturnRows(sqlmock.NewRows([]string{"VERSION", "RECORDED_AT"}).AddRow(int64(12), recorded))
	v, err := s.conn.GetCurrentVersion(s.ctx, "app")
	s.Require().NoError(err)
	s.Require().NotNil(v)
	s.Equal(int64(12), v.Version)
	s.Equal(recorded, v.RecordedAt)

	s.mock.ExpectQuery(query).WillReturnRows(sqlmock.NewRows([]string{"VERSION", "RECORDED_AT"}))
	v, err = s.conn.GetCurrentVersion(s.ctx, "app")
	s.Require().NoError(err)
	s.Nil(v)
}

func (s *OracleTestSuite) TestVersionBookkeeping() {
	s.mock.ExpectExec(`INSERT INTO APP.SCHEMA_VERSION (VERSION) VALUES (:1)`).
		WithArgs(int64(4)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	s.mock.ExpectExec(`DELETE FROM APP.SCHEMA_VERSION WHERE VERSION = :1`).
		WithArgs(int64(4)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	s.mock.ExpectExec(`DELETE FROM APP.APPLIED_SCRIPTS WHERE VERSION = :1`).
		WithArgs(int64(4)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	s.NoError(s.conn.SetCurrentVersion(s.ctx, "app", 4))
	s.NoError(s.conn.RemoveVersion(s.ctx, "app", 4))
	s.NoError(s.conn.RemoveAppliedScript(s.ctx, "app", 4))
}

func (s *OracleTestSuite) TestAppliedScripts() {
	at := time.Date(2023, 11, 5, 8, 30, 0, 0, time.UTC)

	s.mock.ExpectExec(`INSERT INTO APP.APPLIED_SCRIPTS (VERSION, FORWARD_NAME, FORWARD_CONTENT, REVERSE_NAME, REVERSE_CONTENT, APPLIED_AT) VALUES (:1, :2, :3, :4, :5, :6)`).
		WithArgs(int64(1), "1_users.sql", "CREATE TABLE USERS (ID NUMBER)", nil, nil, at).
		WillReturnResult(sqlmock.NewResult(0, 1))
	s.NoError(s.conn.InsertAppliedScript(s.ctx, "app", database.AppliedScript{
		Version:   1,
		Forward:   script.Script{Version: 1, Name: "1_users.sql", Content: "CREATE TABLE USERS (ID NUMBER)"},
		AppliedAt: at,
	}))

	s.mock.ExpectQuery(`SELECT VERSION, FORWARD_NAME, FORWARD_CONTENT, REVERSE_NAME, REVERSE_CONTENT, APPLIED_AT FROM APP.APPLIED_SCRIPTS ORDER BY VERSION ASC`).
		WillReturnRows(sqlmock.NewRows([]string{"VERSION", "FORWARD_NAME", "FORWARD_CONTENT", "REVERSE_NAME", "REVERSE_CONTENT", "APPLIED_AT"}).
			AddRow(int64(1), "1_users.sql", "CREATE TABLE USERS (ID NUMBER)", nil, nil, at).
			AddRow(int64(2), "2_email.sql", "ALTER TABLE USERS ADD EMAIL VARCHAR2(100)", "2_email.sql", "ALTER TABLE USERS DROP COLUMN EMAIL", at))

	applied, err := s.conn.GetAppliedScripts(s.ctx, "app")
	s.Require().NoError(err)
	s.Require().Len(applied, 2)
	s.Nil(applied[0].Reverse)
	s.Require().NotNil(applied[1].Reverse)
	s.Equal("ALTER TABLE USERS DROP COLUMN EMAIL", applied[1].Reverse.Content)
	s.Equal(script.Down, applied[1].Reverse.Category)
}

func (s *OracleTestSuite) TestExecuteSplitsStatements() {
	s.mock.ExpectExec(`CREATE TABLE USERS (ID NUMBER)`).WillReturnResult(sqlmock.NewResult(0, 0))
	s.mock.ExpectExec(`CREATE INDEX USERS_ID ON USERS (ID)`).WillReturnResult(sqlmock.NewResult(0, 0))

	s.NoError(s.conn.Execute(s.ctx, &script.Script{
		Name:    "1_users.sql",
		Content: "CREATE TABLE USERS (ID NUMBER);\n-- index\nCREATE INDEX USERS_ID ON USERS (ID);\n",
	}))
}

func (s *OracleTestSuite) TestExecuteStopsAtFailingStatement() {
	s.mock.ExpectExec(`CREATE TABLE USERS (ID NUMBER)`).
		WillReturnError(&network.OracleError{ErrCode: 955, ErrMsg: "ORA-00955: name is already used by an existing object"})

	err := s.conn.Execute(s.ctx, &script.Script{
		Name:    "1_users.sql",
		Content: "CREATE TABLE USERS (ID NUMBER);\nCREATE INDEX USERS_ID ON USERS (ID);",
	})
	s.Require().Error(err)
	s.Contains(err.Error(), "script 1_users.sql failed: ORA-00955: name is already used by an existing object")

	var oraErr *network.OracleError
	s.True(errors.As(err, &oraErr))
	s.Equal(955, oraErr.ErrCode)
}

func TestWithInstanceRejectsTableName(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	_, err = WithInstance(context.Background(), db, &Config{VersionTable: "SCHEMA VERSION"})
	require.ErrorIs(t, err, ErrInvalidSchema)
}

func TestOpenRejectsOtherScheme(t *testing.T) {
	_, err := (&Oracle{}).Open(context.Background(), "postgres://localhost/app")
	require.Error(t, err)
}

func TestParseStatements(t *testing.T) {
	cases := []struct {
		migration       string
		expectedQueries []string
	}{
		{migration: `
CREATE TABLE USERS (
  USER_ID integer unique,
  NAME    varchar(40),
  EMAIL   varchar(40)
);

---
--
BEGIN
EXECUTE IMMEDIATE 'DROP TABLE USERS';
EXCEPTION
    WHEN OTHERS THEN
        IF SQLCODE != -942 THEN
            RAISE;
        END IF;
END;

---
-- comment
--
CREATE TABLE USERS (
   USER_ID integer unique,
   NAME    varchar(40),
   EMAIL   varchar(40)
);
---
--`,
			expectedQueries: []string{
				`CREATE TABLE USERS (
  USER_ID integer unique,
  NAME    varchar(40),
  EMAIL   varchar(40)
)`,
				`BEGIN
EXECUTE IMMEDIATE 'DROP TABLE USERS';
EXCEPTION
    WHEN OTHERS THEN
        IF SQLCODE != -942 THEN
            RAISE;
        END IF;
END;`,
				`CREATE TABLE USERS (
   USER_ID integer unique,
   NAME    varchar(40),
   EMAIL   varchar(40)
)`,
			}},
		{migration: `
-- comment
CREATE TABLE USERS (
  USER_ID integer unique,
  NAME    varchar(40),
  EMAIL   varchar(40)
);
-- this is comment
ALTER TABLE USERS ADD CITY varchar(100);
`,
			expectedQueries: []string{
				`CREATE TABLE USERS (
  USER_ID integer unique,
  NAME    varchar(40),
  EMAIL   varchar(40)
)`,
				`ALTER TABLE USERS ADD CITY varchar(100)`,
			}},
	}
	for _, c := range cases {
		queries, err := parseStatements(bytes.NewBufferString(c.migration), plsqlDefaultStatementSeparator)
		require.Nil(t, err)
		require.Equal(t, c.expectedQueries, queries)
	}
}
