package main

import (
	"os"

	"github.com/spf13/pflag"

	"github.com/soothsayer-db/soothsayer/database"
	"github.com/soothsayer-db/soothsayer/internal/cli"
)

const (
	// configuration defaults
	defaultLogFormat  = "text"
	defaultTermPolicy = "no-version"
)

func newFlagSet() *pflag.FlagSet {
	flags := pflag.NewFlagSet("soothsayer", pflag.ExitOnError)
	flags.Usage = func() { cli.Usage(os.Stderr) }

	flags.BoolP("help", "h", false, "Print usage")
	flags.Bool("version", false, "Print version")
	flags.BoolP(cli.KeyVerbose, "v", false, "Print verbose logging")
	flags.String(cli.KeyLogFormat, defaultLogFormat, "text or json")
	flags.String(cli.KeyOptionsFile, cli.OptionsFileName, "JSON file overriding options")

	flags.StringP(cli.KeyConnection, "c", "", "Database to migrate (driver://url)")
	flags.StringP(cli.KeyUsername, "u", "", "Database user")
	flags.StringP(cli.KeyPassword, "p", "", "Database password")
	flags.StringP(cli.KeySchema, "s", "", "Target schema")
	flags.StringP(cli.KeyTablespace, "t", "", "Tablespace for the versioning tables")
	flags.IntP(cli.KeyConnectRetries, "r", int(database.DefaultPingConfig.MaxRetries), "Connection retries after the first attempt")

	flags.StringP(cli.KeyInput, "i", "", "Folder holding the init, up, down and term folders")
	flags.StringSliceP(cli.KeyEnvironment, "e", nil, "Environments to run scripts for")
	flags.String(cli.KeyTargetVersion, "", "Version to migrate up or down to")
	flags.Bool(cli.KeyUseStored, false, "Roll back with the scripts stored in the database")
	flags.BoolP(cli.KeyForce, "f", false, "Run scripts even when their preconditions fail")
	flags.String(cli.KeyTermPolicy, defaultTermPolicy, "When to run term scripts: no-version or no-version-table")

	flags.Bool(cli.KeySQLPlus, false, "Run scripts with the SQL*Plus client")
	flags.String(cli.KeySQLPlusPath, "sqlplus", "SQL*Plus executable")
	return flags
}
